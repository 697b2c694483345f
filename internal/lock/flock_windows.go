//go:build windows

package lock

import (
	"os"

	"golang.org/x/sys/windows"
)

// allBytes covers the whole file range in LockFileEx calls.
const allBytes = ^uint32(0)

// lockFile takes a blocking LockFileEx lock on f: shared for read,
// exclusive for write.
func lockFile(f *os.File, mode Mode) error {
	var flags uint32
	if mode == ModeWrite {
		flags = windows.LOCKFILE_EXCLUSIVE_LOCK
	}
	ol := new(windows.Overlapped)
	return windows.LockFileEx(windows.Handle(f.Fd()), flags, 0, allBytes, allBytes, ol)
}

func unlockFile(f *os.File) error {
	ol := new(windows.Overlapped)
	return windows.UnlockFileEx(windows.Handle(f.Fd()), 0, allBytes, allBytes, ol)
}
