// Package retry provides the shared backoff policy used by every backend
// adapter. Callers supply an error classifier so fatal configuration errors
// fail fast while transient failures are retried with exponential backoff,
// jitter, and a higher floor delay for rate-limit responses.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Policy configures exponential backoff retry behaviour.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the initial delay between attempts.
	BaseDelay time.Duration

	// MaxDelay caps the delay between attempts.
	MaxDelay time.Duration

	// Multiplier grows the delay after each attempt.
	Multiplier float64

	// Jitter is the fraction of the delay randomised on each sleep,
	// in [0,1]. 0.2 means the delay varies by up to ±20%.
	Jitter float64

	// RateLimitFloor is the minimum delay after a rate-limited attempt,
	// applied regardless of where the exponential schedule is.
	RateLimitFloor time.Duration
}

// DefaultPolicy returns the shared backoff defaults.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    4,
		BaseDelay:      500 * time.Millisecond,
		MaxDelay:       8 * time.Second,
		Multiplier:     2.0,
		Jitter:         0.2,
		RateLimitFloor: 2 * time.Second,
	}
}

// Classifier decides how an error affects the retry loop.
type Classifier struct {
	// Transient reports whether the error is worth retrying.
	// Errors that are not transient abort immediately.
	Transient func(error) bool

	// RateLimited reports whether the error should use the rate-limit
	// floor delay. Optional.
	RateLimited func(error) bool
}

// Do runs fn until it succeeds, a non-transient error occurs, the attempt
// budget is exhausted, or the context is cancelled. The backoff sleep is
// interruptible: cancellation during a sleep returns ctx.Err() immediately.
func Do[T any](ctx context.Context, policy Policy, classify Classifier, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	delay := policy.BaseDelay
	for attempt := 0; attempt < attempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if classify.Transient == nil || !classify.Transient(err) {
			return zero, err
		}
		if attempt == attempts-1 {
			break
		}

		wait := jittered(delay, policy.Jitter)
		if classify.RateLimited != nil && classify.RateLimited(err) && wait < policy.RateLimitFloor {
			wait = policy.RateLimitFloor
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(wait):
		}

		delay = time.Duration(float64(delay) * policy.Multiplier)
		if policy.MaxDelay > 0 && delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}

	return zero, lastErr
}

// jittered randomises d by up to ±fraction.
func jittered(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 || d <= 0 {
		return d
	}
	spread := float64(d) * fraction
	offset := (rand.Float64()*2 - 1) * spread
	out := time.Duration(float64(d) + offset)
	if out < 0 {
		return 0
	}
	return out
}
