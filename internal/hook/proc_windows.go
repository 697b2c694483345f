//go:build windows

package hook

import (
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// newShellCommand builds the command that runs the hook line through
// the shell.
func newShellCommand(command string) *exec.Cmd {
	return exec.Command("cmd", "/c", command)
}

// configureProcAttr creates the hook in a new process group so that
// console control events aimed at the caller do not reach it. Windows
// has no pass_fds equivalent for arbitrary handles at spawn time, so
// the lock file stays with the parent.
func configureProcAttr(cmd *exec.Cmd, _ *os.File) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.CreationFlags |= windows.CREATE_NEW_PROCESS_GROUP
}

// killProcessGroup is a no-op on Windows; there is no direct way to
// kill a process group by id once the primary process has been reaped.
func killProcessGroup(int) (bool, error) {
	return false, nil
}
