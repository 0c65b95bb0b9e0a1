// Package retry runs an operation under a bounded, fixed-delay retry policy.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/benbjohnson/clock"

	"ghostfetch/internal/shared/errs"
)

// Policy is fixed at startup and shared read-only.
type Policy struct {
	// Delay between attempts.
	Delay time.Duration
	// MaxRetries counts attempts after the first one; 5 means at most 6 attempts.
	MaxRetries int
	// Jitter adds a random offset in [0, Delay) to each wait.
	Jitter bool
}

// DefaultPolicy is the policy used for per-item downloads.
func DefaultPolicy() Policy {
	return Policy{
		Delay:      200 * time.Millisecond,
		MaxRetries: 5,
		Jitter:     true,
	}
}

// Executor applies a Policy.
type Executor struct {
	policy  Policy
	clock   clock.Clock
	onRetry func(attempt int, err error)
}

type Option func(*Executor)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clock.Clock) Option {
	return func(e *Executor) { e.clock = c }
}

// WithObserver is called before every wait with the number of the upcoming retry.
func WithObserver(fn func(attempt int, err error)) Option {
	return func(e *Executor) { e.onRetry = fn }
}

func New(policy Policy, opts ...Option) *Executor {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	if policy.Delay < 0 {
		policy.Delay = 0
	}
	e := &Executor{policy: policy, clock: clock.New()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) Policy() Policy {
	return e.policy
}

// Do invokes op until it succeeds, fails permanently, or the policy is exhausted.
// It returns the first success or the last failure. Every attempt starts from scratch,
// so op must be safe to repeat.
func Do[T any](ctx context.Context, e *Executor, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if errs.IsPermanent(err) || attempt >= e.policy.MaxRetries || ctx.Err() != nil {
			return zero, err
		}
		if e.onRetry != nil {
			e.onRetry(attempt+1, err)
		}
		if werr := e.wait(ctx); werr != nil {
			return zero, errors.Join(err, werr)
		}
	}
}

func (e *Executor) backoff() time.Duration {
	d := e.policy.Delay
	if e.policy.Jitter && d > 0 {
		d += rand.N(d)
	}
	return d
}

func (e *Executor) wait(ctx context.Context) error {
	d := e.backoff()
	if d <= 0 {
		return ctx.Err()
	}
	t := e.clock.Timer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
