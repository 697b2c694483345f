// Package storage implements the file-tree-backed storage area. All
// access to the tree goes through a cross-process reader/writer lock;
// committed write transactions can trigger a configured hook command
// that runs while the write lock is still held.
package storage

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/davstore/davstore/internal/errors"
	"github.com/davstore/davstore/internal/hook"
	"github.com/davstore/davstore/internal/lock"
)

const (
	// lockFileName is the storage-level lock file at the tree root and
	// the base name of per-collection cache lock files.
	lockFileName = ".Radicale.lock"
	// cacheDirName is the per-collection cache directory.
	cacheDirName = ".Radicale.cache"
)

// Config carries the storage settings. All values are explicit; the
// package reads no ambient configuration.
type Config struct {
	// Root is the filesystem folder holding the storage tree.
	Root string
	// Hook is the command template run after each committed write
	// transaction. Empty disables the hook.
	Hook string
	// Debug enables capture and logging of hook output.
	Debug bool
}

// Storage coordinates access to one storage tree.
type Storage struct {
	root         string
	hookTemplate string
	provider     lock.Provider
	runner       *hook.Runner
	logger       *slog.Logger

	mu   sync.Mutex
	held *lock.Handle
}

// New creates a Storage rooted at cfg.Root, locking through a lock
// file at the top of the tree.
func New(cfg Config, logger *slog.Logger) (*Storage, error) {
	if cfg.Root == "" {
		return nil, errors.Config("storage.New", "filesystem folder is not set")
	}
	provider := lock.NewFileProvider(filepath.Join(cfg.Root, lockFileName))
	return NewWithProvider(cfg, provider, logger)
}

// NewWithProvider creates a Storage with an explicit lock provider.
func NewWithProvider(cfg Config, provider lock.Provider, logger *slog.Logger) (*Storage, error) {
	if cfg.Root == "" {
		return nil, errors.Config("storage.New", "filesystem folder is not set")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Storage{
		root:         cfg.Root,
		hookTemplate: cfg.Hook,
		provider:     provider,
		runner:       hook.NewRunner(logger, cfg.Debug),
		logger:       logger,
	}, nil
}

// Root returns the storage tree's filesystem folder.
func (s *Storage) Root() string {
	return s.root
}

// WithLock runs body while holding the storage lock in the given mode.
// The lock is released on every exit path, including a panic in body.
//
// After body returns without error from a write-mode transaction, a
// configured hook runs synchronously with the lock still held, so no
// other writer can interleave between the commit and the hook. The
// hook receives the open lock descriptor. A hook failure is returned
// to the caller even though the write itself already reached disk;
// retrying or compensating is the caller's responsibility.
//
// A body error skips the hook. Read-mode transactions never run it.
func (s *Storage) WithLock(ctx context.Context, mode lock.Mode, user string, body func() error) (err error) {
	handle, err := s.provider.Acquire(ctx, mode)
	if err != nil {
		return err
	}
	s.setHeld(handle)
	defer func() {
		s.setHeld(nil)
		if rerr := handle.Release(); rerr != nil && err == nil {
			err = rerr
		}
	}()

	if err := body(); err != nil {
		return err
	}

	if mode == lock.ModeWrite && s.hookTemplate != "" {
		if err := s.runner.Run(ctx, s.hookTemplate, user, s.root, handle.File()); err != nil {
			s.logger.Error("hook failed after committed write", "error", err)
			return err
		}
	}
	return nil
}

// heldMode returns the mode of the currently held storage lock, or ""
// when no transaction is active.
func (s *Storage) heldMode() lock.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held == nil {
		return ""
	}
	return s.held.Mode()
}

func (s *Storage) setHeld(h *lock.Handle) {
	s.mu.Lock()
	s.held = h
	s.mu.Unlock()
}
