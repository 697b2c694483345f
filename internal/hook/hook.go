// Package hook executes the configured post-write command as an
// isolated subprocess. The subprocess runs in its own process group so
// interactive signals aimed at the caller do not reach it, inherits
// the open storage lock descriptor where the platform allows it, and
// is always reaped before control returns, together with any children
// it left behind.
package hook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"al.essio.dev/pkg/shellescape"

	dserrors "github.com/davstore/davstore/internal/errors"
)

// AnonymousUser is substituted into the command template when the
// transaction has no user identity.
const AnonymousUser = "Anonymous"

// userPlaceholder is the template marker replaced by the quoted user.
const userPlaceholder = "%(user)s"

// pipeDrainTimeout bounds how long Wait keeps draining the hook's
// output pipes after the process has exited. A backgrounded child that
// inherited the pipes would otherwise hold Wait open until it exits.
const pipeDrainTimeout = time.Second

// ResolveCommand substitutes the shell-quoted user into the command
// template. An empty user resolves to AnonymousUser.
func ResolveCommand(template, user string) string {
	if user == "" {
		user = AnonymousUser
	}
	return strings.ReplaceAll(template, userPlaceholder, shellescape.Quote(user))
}

// ExitError reports a hook command that ran but exited non-zero.
type ExitError struct {
	// Command is the literal resolved command line.
	Command string
	// ExitCode is the subprocess's exit status.
	ExitCode int
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return fmt.Sprintf("hook command %q failed with exit code %d", e.Command, e.ExitCode)
}

// Runner executes hook commands.
type Runner struct {
	logger *slog.Logger
	debug  bool
}

// NewRunner creates a hook runner. When debug is true the hook's
// stdout and stderr are captured and logged; otherwise both streams
// are discarded. Stdin is always discarded.
func NewRunner(logger *slog.Logger, debug bool) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger, debug: debug}
}

// Run resolves the command template for user, executes it through the
// shell with workDir as working directory, and blocks until it exits.
//
// lockFile, when non-nil, is the open storage lock file; it is passed
// to the child at spawn time so the lock survives an ungraceful death
// of the parent while the hook is still running.
//
// If ctx is canceled during the wait, the subprocess's whole process
// group is forcibly terminated and the subprocess reaped before ctx's
// error is returned unchanged.
// After the subprocess has exited by any path, remaining members of
// its process group are killed best-effort; finding any is logged as
// a warning since the hook failed to reap its own children.
func (r *Runner) Run(ctx context.Context, template, user, workDir string, lockFile *os.File) error {
	const op = "hook.Run"

	command := ResolveCommand(template, user)

	cmd := newShellCommand(command)
	cmd.Dir = workDir

	var stdout, stderr bytes.Buffer
	if r.debug {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	configureProcAttr(cmd, lockFile)
	cmd.WaitDelay = pipeDrainTimeout

	r.logger.Debug("running hook", "command", command)
	if err := cmd.Start(); err != nil {
		return dserrors.HookWrap(err, op, "failed to spawn hook")
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var waitErr, interrupted error
	select {
	case waitErr = <-done:
	case <-ctx.Done():
		// Terminate the whole group, not just the shell: a child that
		// inherited the output pipes would keep Wait draining them.
		if found, err := killProcessGroup(cmd.Process.Pid); err != nil || !found {
			_ = cmd.Process.Kill()
		}
		<-done
		interrupted = ctx.Err()
	}

	// Sweep whatever is left of the hook's process group.
	if found, err := killProcessGroup(cmd.Process.Pid); err == nil && found {
		r.logger.Warn("killed remaining child processes of hook", "command", command)
	}

	// Wait abandoning the pipe drain after the process exited cleanly
	// is not a hook failure; the sweep above handles the stragglers.
	if errors.Is(waitErr, exec.ErrWaitDelay) {
		waitErr = nil
	}

	if interrupted != nil {
		return interrupted
	}

	if out := stdout.String(); out != "" {
		r.logger.Debug("captured hook stdout", "output", out)
	}
	if out := stderr.String(); out != "" {
		r.logger.Debug("captured hook stderr", "output", out)
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return dserrors.HookWrap(&ExitError{
				Command:  command,
				ExitCode: exitErr.ExitCode(),
			}, op, "hook failed")
		}
		return dserrors.HookWrap(waitErr, op, "failed to wait for hook")
	}

	return nil
}
