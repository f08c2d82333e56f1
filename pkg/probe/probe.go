// Package probe provides a typed, time-bounded subprocess invocation used to
// confirm that a backing executable can launch.
//
// A presence probe deliberately answers only "did it start", never "did it
// run to completion". Binaries that block waiting for interactive input are
// expected; the probe's timeout is a pass, not a failure.
package probe

import (
	"context"
	"os/exec"
	"time"

	"github.com/pkg/errors"
)

type (
	// Result describes the outcome of a single probe invocation.
	Result struct {
		// ExitCode is the process exit code, or -1 when the process never
		// ran to completion (timed out or was killed).
		ExitCode int

		// TimedOut reports whether the invocation hit the probe deadline.
		TimedOut bool

		// StderrTail holds the last portion of the process's stderr output,
		// useful when reporting a definition whose executable misbehaves.
		StderrTail string
	}

	// Runner executes presence probes. The interface exists so validation can
	// be tested without launching real processes.
	Runner interface {
		Run(ctx context.Context, name string, args ...string) (*Result, error)
	}

	execRunner struct {
		timeout time.Duration
	}
)

// stderrLimit bounds how much stderr is retained per probe.
const stderrLimit = 2048

// NewRunner creates a Runner that executes the named binary under the given
// timeout. A non-positive timeout falls back to three seconds.
func NewRunner(timeout time.Duration) Runner {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &execRunner{timeout: timeout}
}

// Run launches the binary and waits for it to exit or for the deadline.
//
// Outcomes:
//   - process exits (any code): Result with its exit code, no error
//   - deadline reached: Result{TimedOut: true}, no error
//   - binary missing or not executable: error
func (r *execRunner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tail := &tailBuffer{limit: stderrLimit}
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = tail

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return &Result{ExitCode: -1, TimedOut: true, StderrTail: tail.String()}, nil
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &Result{ExitCode: exitErr.ExitCode(), StderrTail: tail.String()}, nil
		}
		return nil, errors.Wrapf(err, "failed to launch: %s", name)
	}

	return &Result{ExitCode: 0, StderrTail: tail.String()}, nil
}

// tailBuffer keeps the trailing limit bytes of everything written to it.
type tailBuffer struct {
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.limit {
		t.buf = t.buf[len(t.buf)-t.limit:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return string(t.buf)
}
