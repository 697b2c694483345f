package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/davstore/davstore/internal/errors"
	"github.com/davstore/davstore/internal/fileutil"
	"github.com/davstore/davstore/internal/lock"
)

// Collection is one directory of items inside the storage tree.
type Collection struct {
	storage *Storage
	path    string
}

// Collection returns the collection at the given slash-separated path
// relative to the storage root. An empty path addresses the root
// collection.
func (s *Storage) Collection(path string) (*Collection, error) {
	const op = "storage.Collection"

	clean, err := sanitizePath(path)
	if err != nil {
		return nil, errors.StorageWrap(err, op, "invalid collection path "+path)
	}
	return &Collection{storage: s, path: clean}, nil
}

// Path returns the collection's path relative to the storage root.
func (c *Collection) Path() string {
	return c.path
}

// FilesystemPath returns the collection's absolute directory.
func (c *Collection) FilesystemPath() string {
	return filepath.Join(c.storage.root, filepath.FromSlash(c.path))
}

// AcquireCacheLock serializes access to the collection's cache folder.
//
// When the enclosing storage lock is already held in write mode the
// cache is serialized by that coarser lock and taking a second one
// would self-deadlock, so a no-op release is returned. Otherwise the
// cache directory is created durably and a write lock is taken on a
// lock file inside it, one file per namespace.
func (c *Collection) AcquireCacheLock(ctx context.Context, ns string) (func() error, error) {
	const op = "storage.AcquireCacheLock"

	if c.storage.heldMode() == lock.ModeWrite {
		return func() error { return nil }, nil
	}

	cacheFolder := filepath.Join(c.FilesystemPath(), cacheDirName)
	if err := fileutil.MakeDirsSynced(cacheFolder); err != nil {
		return nil, errors.IOWrap(err, op, "failed to create cache folder")
	}

	name := lockFileName
	if ns != "" {
		name += "." + ns
	}
	provider := lock.NewFileProvider(filepath.Join(cacheFolder, name))
	handle, err := provider.Acquire(ctx, lock.ModeWrite)
	if err != nil {
		return nil, err
	}
	return handle.Release, nil
}

// Ensure creates the collection directory if it is missing.
func (c *Collection) Ensure() error {
	if err := fileutil.MakeDirsSynced(c.FilesystemPath()); err != nil {
		return errors.IOWrap(err, "storage.Ensure", "failed to create collection "+c.path)
	}
	return nil
}

// Upload stores an item in the collection atomically. It must be
// called from inside a write transaction.
func (c *Collection) Upload(name string, data []byte) error {
	const op = "storage.Upload"

	if err := validateItemName(name); err != nil {
		return errors.StorageWrap(err, op, "invalid item name "+name)
	}
	if err := c.Ensure(); err != nil {
		return err
	}
	path := filepath.Join(c.FilesystemPath(), name)
	if err := fileutil.AtomicWriteFile(path, data, 0o600); err != nil {
		return errors.IOWrap(err, op, "failed to write item "+name)
	}
	return nil
}

// Get reads an item from the collection.
func (c *Collection) Get(name string) ([]byte, error) {
	const op = "storage.Get"

	if err := validateItemName(name); err != nil {
		return nil, errors.StorageWrap(err, op, "invalid item name "+name)
	}
	data, err := os.ReadFile(filepath.Join(c.FilesystemPath(), name))
	if err != nil {
		return nil, errors.IOWrap(err, op, "failed to read item "+name)
	}
	return data, nil
}

// Delete removes an item from the collection. It must be called from
// inside a write transaction.
func (c *Collection) Delete(name string) error {
	const op = "storage.Delete"

	if err := validateItemName(name); err != nil {
		return errors.StorageWrap(err, op, "invalid item name "+name)
	}
	if err := os.Remove(filepath.Join(c.FilesystemPath(), name)); err != nil {
		return errors.IOWrap(err, op, "failed to delete item "+name)
	}
	return fileutil.SyncDir(c.FilesystemPath())
}

// List returns the item names in the collection, skipping internal
// files and subdirectories.
func (c *Collection) List() ([]string, error) {
	const op = "storage.List"

	entries, err := os.ReadDir(c.FilesystemPath())
	if err != nil {
		return nil, errors.IOWrap(err, op, "failed to list collection "+c.path)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// sanitizePath normalizes a slash-separated collection path and
// rejects anything that could escape the storage root.
func sanitizePath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	clean := strings.Trim(filepath.ToSlash(path), "/")
	if clean == "" {
		return "", nil
	}
	for _, part := range strings.Split(clean, "/") {
		if part == "" || part == "." || part == ".." {
			return "", errors.Newf(errors.KindStorage, "unsafe path component %q", part)
		}
	}
	return clean, nil
}

// validateItemName rejects item names that are empty, hidden, or
// contain path separators.
func validateItemName(name string) error {
	if name == "" {
		return errors.New(errors.KindStorage, "empty item name")
	}
	if strings.ContainsAny(name, "/\\") {
		return errors.Newf(errors.KindStorage, "item name %q contains a path separator", name)
	}
	if strings.HasPrefix(name, ".") {
		return errors.Newf(errors.KindStorage, "item name %q is hidden", name)
	}
	return nil
}
