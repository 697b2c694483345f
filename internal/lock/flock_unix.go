//go:build !windows

package lock

import (
	"os"

	"golang.org/x/sys/unix"
)

// lockFile takes a blocking flock(2) on f: shared for read, exclusive
// for write. flock locks are tied to the open file description, so a
// descriptor inherited by a child process keeps the lock alive even if
// the parent dies.
func lockFile(f *os.File, mode Mode) error {
	how := unix.LOCK_SH
	if mode == ModeWrite {
		how = unix.LOCK_EX
	}
	return unix.Flock(int(f.Fd()), how)
}

func unlockFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
