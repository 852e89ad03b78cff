// Package poll provides the single "retry until settled or out of time"
// primitive used by every wait in the sidecar: source readiness, generation
// completion and the login redirect.
//
// Each iteration of a check reports one of three outcomes. Pending means the
// remote side has not settled yet and the loop keeps waiting; an error
// returned alongside Pending is remembered as the most recent transient fault
// and attached to the timeout error if the budget runs out. Settled ends the
// wait successfully. Abort ends it immediately with the returned error, so a
// genuine fault is never retried silently until the budget expires.
package poll

import (
	"context"
	"fmt"
	"time"

	"github.com/automeetsslide/decksidecar/internal/errors"
)

// Outcome is the verdict of one check iteration.
type Outcome int

const (
	// Pending means not settled yet; keep waiting.
	Pending Outcome = iota
	// Settled means the terminal condition was observed.
	Settled
	// Abort means an unrecoverable fault; stop now.
	Abort
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Settled:
		return "settled"
	case Abort:
		return "abort"
	default:
		return "unknown"
	}
}

// Check performs one observation.
type Check[T any] func(ctx context.Context) (T, Outcome, error)

// Options parameterize a wait.
type Options struct {
	// Operation names the wait in timeout errors, e.g. "waiting for source notes.pdf".
	Operation string
	// Interval is the pause between checks.
	Interval time.Duration
	// Timeout is the total budget, measured from the start of the wait.
	Timeout time.Duration
	// Wake, if non-nil, triggers an immediate re-check when it receives.
	Wake <-chan struct{}
	// OnPending is called after every Pending iteration with the time elapsed so far.
	OnPending func(elapsed time.Duration)
}

// Until runs check until it settles, aborts, the budget elapses, or ctx is
// canceled. The check always runs at least once, and once more at the
// deadline if the last pause ended there.
//
// A timeout returns *errors.TimeoutError (matching errors.ErrTimeout) wrapping
// the last transient error, if any. Cancellation returns an error matching
// errors.ErrCanceled.
func Until[T any](ctx context.Context, opts Options, check Check[T]) (T, error) {
	var zero T

	start := time.Now()
	deadline := start.Add(opts.Timeout)
	var lastErr error

	for {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("%s: %w: %v", opts.Operation, errors.ErrCanceled, err)
		}

		value, outcome, err := check(ctx)
		switch outcome {
		case Settled:
			return value, nil
		case Abort:
			if err == nil {
				err = errors.New("check aborted")
			}
			return zero, err
		}
		if err != nil {
			lastErr = err
		}

		now := time.Now()
		if opts.OnPending != nil {
			opts.OnPending(now.Sub(start))
		}

		remaining := deadline.Sub(now)
		if remaining <= 0 {
			return zero, errors.NewTimeoutError(opts.Operation, opts.Timeout).WithCause(lastErr)
		}

		wait := opts.Interval
		if wait <= 0 || wait > remaining {
			wait = remaining
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("%s: %w: %v", opts.Operation, errors.ErrCanceled, ctx.Err())
		case <-opts.Wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}
