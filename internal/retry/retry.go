// Package retry provides configurable backoff for generation gateway calls.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	perrors "github.com/phaseflow/phaseflow/internal/errors"
)

// Policy holds retry configuration. The zero value retries nothing; use
// Default() for sensible generation-call defaults.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      bool
}

// Default returns the policy used for generation calls: one initial call
// plus two extra attempts.
func Default() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
		Jitter:      true,
	}
}

// Do executes fn, retrying on retryable errors with exponential backoff.
// Quota and credential failures are classified non-retryable and returned
// immediately. Returns the last error once attempts are exhausted.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !perrors.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == p.MaxAttempts-1 {
			break
		}

		delay := time.Duration(float64(p.BaseDelay) * math.Pow(2, float64(attempt)))
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
		if p.Jitter {
			delay = time.Duration(float64(delay) * (0.5 + rand.Float64()*0.5))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}
