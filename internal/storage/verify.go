package storage

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/davstore/davstore/internal/errors"
	"github.com/davstore/davstore/internal/lock"
)

// Verify walks the whole storage tree under a read lock and checks
// that every item is readable. It returns the first problem found.
func (s *Storage) Verify(ctx context.Context) error {
	const op = "storage.Verify"

	return s.WithLock(ctx, lock.ModeRead, "", func() error {
		items := 0
		err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return errors.StorageWrap(err, op, "failed to walk "+path)
			}
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
			if d.IsDir() {
				// Hidden directories hold bookkeeping state, not items;
				// the hook may create its own, such as a git repository.
				if path != s.root && d.Name()[0] == '.' {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return errors.Newf(errors.KindStorage, "unexpected entry %s in storage tree", path)
			}
			if filepath.Base(path)[0] == '.' {
				return nil
			}
			f, oerr := os.Open(path)
			if oerr != nil {
				return errors.IOWrap(oerr, op, "item is not readable: "+path)
			}
			_ = f.Close()
			items++
			return nil
		})
		if err != nil {
			return err
		}
		s.logger.Info("storage tree verified", "root", s.root, "items", items)
		return nil
	})
}
