// Package retry provides an explicit retry policy with exponential backoff,
// applied at call sites instead of wrapping functions.
package retry

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// Policy retries an operation up to MaxAttempts times. The delay before
// attempt n (n starting at 0 for the first retry) is
// BaseDelay * 2^n + jitter, with jitter drawn uniformly from [0, 1s).
// Sleep and Jitter are injectable so tests never block on real time.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Sleep       func(time.Duration)
	Jitter      func() time.Duration
}

func New(maxAttempts int, baseDelay time.Duration) Policy {
	return Policy{MaxAttempts: maxAttempts, BaseDelay: baseDelay}
}

// Do runs fn until it succeeds or attempts are exhausted, returning the last
// error. Retries are transparent to the caller: intermediate failures are
// logged, never propagated. A cancelled context stops further attempts.
func (p Policy) Do(ctx context.Context, op string, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	jitter := p.Jitter
	if jitter == nil {
		jitter = func() time.Duration {
			return time.Duration(rand.Float64() * float64(time.Second))
		}
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(p.BaseDelay)*math.Pow(2, float64(attempt-1))) + jitter()
			slog.Debug("retrying operation", slog.String("op", op), slog.Int("attempt", attempt+1), slog.Duration("delay", delay))
			sleep(delay)
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		err = fn()
		if err == nil {
			return nil
		}

		slog.Warn("operation attempt failed", slog.String("op", op), slog.Int("attempt", attempt+1), slog.String("err", err.Error()))
	}

	return err
}
