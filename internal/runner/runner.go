// Package runner executes external commands with structured argument lists
// and captured output.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// waitDelayAfterKill is the grace period for a process to exit after its
// timeout expires before it is forcibly killed.
const waitDelayAfterKill = 500 * time.Millisecond

// DefaultMaxOutputBytes is the default maximum captured output per command (1 MiB).
const DefaultMaxOutputBytes = 1 << 20

// Command describes a single external command invocation.
type Command struct {
	// Name is the executable name or path.
	Name string

	// Args are passed to the executable as-is; no shell is involved.
	Args []string

	// Env holds extra KEY=VALUE pairs appended to the inherited environment.
	Env []string

	// User, when set, runs the command as that user through sudo unless the
	// current process already is that user.
	User string

	// Privileged runs the command through sudo unless the process is root.
	Privileged bool

	// Timeout bounds the command's runtime. Zero means no timeout.
	Timeout time.Duration
}

// String renders the command for logs.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result is the outcome of a command. Output always holds the captured
// combined stdout/stderr, also on failure.
type Result struct {
	Output   string
	OK       bool
	ExitCode int
	Err      error
}

// Runner executes commands. Implementations never panic or exit the process;
// failures are reported through Result.
type Runner interface {
	Run(ctx context.Context, cmd Command) Result
}

// ExecRunner implements Runner using os/exec.
type ExecRunner struct {
	privileges     Privileges
	maxOutputBytes int64
	logger         *slog.Logger
}

// NewExecRunner returns a Runner that executes real processes.
func NewExecRunner(privileges Privileges, logger *slog.Logger) *ExecRunner {
	return &ExecRunner{
		privileges:     privileges,
		maxOutputBytes: DefaultMaxOutputBytes,
		logger:         logger.With("component", "runner"),
	}
}

// Run executes cmd and returns its captured output.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) Result {
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	argv := r.privileges.Wrap(cmd)
	r.logger.Debug("running command", "argv", strings.Join(argv, " "))

	c := exec.CommandContext(ctx, argv[0], argv[1:]...)
	c.WaitDelay = waitDelayAfterKill
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	out := newLimitedWriter(r.maxOutputBytes)
	c.Stdout = out
	c.Stderr = out

	runErr := c.Run()
	res := Result{Output: strings.TrimSpace(collectOutput(out))}

	if runErr == nil {
		res.OK = true
		return res
	}

	res.Err = runErr
	res.ExitCode = -1
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
	}
	if ctx.Err() == context.DeadlineExceeded {
		res.Err = fmt.Errorf("runner: %s: timed out after %s: %w", cmd.Name, cmd.Timeout, runErr)
	}
	return res
}
