package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"
)

// Invocation describes one run of the client.
type Invocation struct {
	Command Command
	Dir     string
	Env     []string // appended to the current process environment
	Stdout  io.Writer
	Stderr  io.Writer
}

// Runner runs the client and reports its exit code. It blocks until the
// process exits. An error is returned only when the process could not be run
// to completion; a non-zero exit is not an error.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (int, error)
}

// killGrace bounds how long output pipes are drained after a timed-out
// client is killed. Children the client left behind may still hold them.
const killGrace = 2 * time.Second

// ExecRunner implements Runner with os/exec.
type ExecRunner struct {
	// Timeout kills the client after the duration. Zero waits indefinitely.
	Timeout time.Duration
}

// Run starts the client and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) (int, error) {
	if len(inv.Command.Args) == 0 {
		return -1, fmt.Errorf("empty command")
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	args := inv.Command.Args
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = inv.Dir
	cmd.Env = append(os.Environ(), inv.Env...)
	cmd.Stdout = inv.Stdout
	cmd.Stderr = inv.Stderr
	if r.Timeout > 0 {
		cmd.WaitDelay = killGrace
	}

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	if ctx.Err() != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && r.Timeout > 0 {
			return -1, fmt.Errorf("%s timed out after %s", args[0], r.Timeout)
		}
		return -1, fmt.Errorf("running %s: %w", args[0], ctx.Err())
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("running %s: %w", args[0], err)
}

// Compile-time check that ExecRunner implements Runner.
var _ Runner = (*ExecRunner)(nil)
