//go:build !windows

package hook

import (
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// newShellCommand builds the command that runs the hook line through
// the shell.
func newShellCommand(command string) *exec.Cmd {
	return exec.Command("/bin/sh", "-c", command)
}

// configureProcAttr puts the hook into its own process group so that
// terminal signals sent to the caller's foreground group do not reach
// it. The group also identifies the hook's children for the post-exit
// sweep. The open lock file is passed to the child so the lock is not
// silently released if the parent is killed while the hook runs.
func configureProcAttr(cmd *exec.Cmd, lockFile *os.File) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
	if lockFile != nil {
		cmd.ExtraFiles = append(cmd.ExtraFiles, lockFile)
	}
}

// killProcessGroup sends SIGKILL to every remaining member of the
// hook's process group. It reports whether any member was found;
// an empty group is not an error.
func killProcessGroup(pid int) (bool, error) {
	err := unix.Kill(-pid, unix.SIGKILL)
	if err == unix.ESRCH {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
