// Package lock provides cross-process reader/writer locks for the
// storage tree. Locks are scoped to a lock file path: any number of
// readers may hold the lock concurrently, while a writer excludes all
// other holders. The exclusion itself is delegated to the operating
// system's file locking primitive.
package lock

import (
	"context"
	"os"
	"sync"

	"github.com/davstore/davstore/internal/errors"
)

// Mode is the mode a lock is held in.
type Mode string

const (
	// ModeRead is a shared lock. Readers may coexist.
	ModeRead Mode = "r"
	// ModeWrite is an exclusive lock.
	ModeWrite Mode = "w"
)

// Handle is an acquired lock. It is owned by the acquiring call stack
// and must be released exactly once; further Release calls are no-ops.
type Handle struct {
	mode    Mode
	file    *os.File
	once    sync.Once
	release func() error
}

// NewHandle builds a handle around an already-acquired lock. It is
// intended for Provider implementations; release is invoked at most
// once.
func NewHandle(mode Mode, file *os.File, release func() error) *Handle {
	return &Handle{mode: mode, file: file, release: release}
}

// Mode returns the mode the lock was acquired in.
func (h *Handle) Mode() Mode {
	return h.mode
}

// File returns the open lock file backing this handle. The descriptor
// stays valid until Release and may be inherited by a subprocess to
// tie the subprocess's lifetime to lock validity.
func (h *Handle) File() *os.File {
	return h.file
}

// Release unlocks and closes the lock file. Safe to call more than
// once; only the first call has an effect.
func (h *Handle) Release() error {
	var err error
	h.once.Do(func() {
		err = h.release()
	})
	return err
}

// Provider supplies scoped reader/writer locks.
type Provider interface {
	// Acquire blocks until a lock of the requested mode is held and
	// returns its handle. The context is consulted before blocking;
	// once the OS wait has started it runs to completion.
	Acquire(ctx context.Context, mode Mode) (*Handle, error)
}

// FileProvider implements Provider on top of an OS file lock keyed by
// a single lock file path. The lock file is created on first use and
// never removed; its content is irrelevant.
type FileProvider struct {
	path string
}

// NewFileProvider creates a provider for the given lock file path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

// Path returns the lock file path.
func (p *FileProvider) Path() string {
	return p.path
}

// Acquire opens the lock file and takes a shared or exclusive OS lock
// on it, blocking until the lock is available.
func (p *FileProvider) Acquire(ctx context.Context, mode Mode) (*Handle, error) {
	const op = "lock.Acquire"

	if mode != ModeRead && mode != ModeWrite {
		return nil, errors.Newf(errors.KindInternal, "invalid lock mode %q", mode)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.KindCanceled, op, "canceled before acquiring lock")
	}

	f, err := os.OpenFile(p.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, errors.LockWrap(err, op, "failed to open lock file "+p.path)
	}

	if err := lockFile(f, mode); err != nil {
		_ = f.Close()
		return nil, errors.LockWrap(err, op, "failed to lock "+p.path)
	}

	return &Handle{
		mode: mode,
		file: f,
		release: func() error {
			unlockErr := unlockFile(f)
			closeErr := f.Close()
			if unlockErr != nil {
				return errors.LockWrap(unlockErr, "lock.Release", "failed to unlock "+p.path)
			}
			if closeErr != nil {
				return errors.LockWrap(closeErr, "lock.Release", "failed to close "+p.path)
			}
			return nil
		},
	}, nil
}

var _ Provider = (*FileProvider)(nil)
