package retry

import (
	"context"
	"time"
)

// Policy controls the retry loop for a single operation.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first one.
	MaxAttempts int
	// InitialDelay is the sleep before the second attempt.
	InitialDelay time.Duration
	// Multiplier grows the delay after every failed attempt.
	Multiplier float64
	// Retryable decides whether an error is worth another attempt.
	// A nil predicate retries everything.
	Retryable func(error) bool
}

// DefaultPolicy matches the provider retry settings used across the service.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		Multiplier:   2.0,
	}
}

// Do runs op until it succeeds, the policy is exhausted, the error is
// non-retryable, or ctx is cancelled. The last error is returned.
func Do(ctx context.Context, policy Policy, op func(context.Context) error) error {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	delay := policy.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if policy.Retryable != nil && !policy.Retryable(lastErr) {
			return lastErr
		}
		if attempt == policy.MaxAttempts {
			return lastErr
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if policy.Multiplier > 0 {
			delay = time.Duration(float64(delay) * policy.Multiplier)
		}
	}

	return lastErr
}
