// Package execx runs external commands with a wall-clock bound and a
// guaranteed kill-and-reap of the child process. Every subprocess the
// measurement pipeline starts (ping, iperf3) goes through this package.
package execx

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// ErrTimeout reports that the command exceeded its wall-clock bound and was
// terminated.
var ErrTimeout = errors.New("command timed out")

// reapDelay is how long Wait gives a killed process to exit before the
// runtime releases it forcibly.
const reapDelay = 5 * time.Second

// Result holds the captured output of a finished command. A non-zero exit
// status is recorded here rather than surfaced as an error, so callers can
// apply their own success criteria.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner runs one external command bounded by timeout.
type Runner interface {
	Run(ctx context.Context, timeout time.Duration, dir string, name string, args ...string) (Result, error)
}

// ExecRunner is the os/exec backed Runner used outside tests.
type ExecRunner struct{}

// Run starts name with args and waits for it to finish, but never longer
// than timeout. On timeout the process is killed, reaped and ErrTimeout is
// returned along with whatever output was captured.
func (ExecRunner) Run(ctx context.Context, timeout time.Duration, dir string, name string, args ...string) (Result, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Dir = dir
	cmd.WaitDelay = reapDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}
	if runCtx.Err() != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return res, ErrTimeout
		}
		return res, runCtx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, err
}
