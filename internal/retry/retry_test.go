package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func transientOnly() Classifier {
	return Classifier{
		Transient: func(err error) bool { return errors.Is(err, errTransient) },
	}
}

func fastPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		Multiplier:  2.0,
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), fastPolicy(), transientOnly(), func() (int, error) {
		calls++
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesTransientErrors(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), fastPolicy(), transientOnly(), func() (string, error) {
		calls++
		if calls < 3 {
			return "", errTransient
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnFatalError(t *testing.T) {
	fatal := errors.New("bad credentials")
	calls := 0
	_, err := Do(context.Background(), fastPolicy(), transientOnly(), func() (int, error) {
		calls++
		return 0, fatal
	})

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls, "fatal errors must not be retried")
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(), transientOnly(), func() (int, error) {
		calls++
		return 0, errTransient
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, calls)
}

func TestDoCancellationInterruptsBackoff(t *testing.T) {
	policy := Policy{
		MaxAttempts: 3,
		BaseDelay:   10 * time.Second, // would block the test if not interrupted
		Multiplier:  2.0,
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := Do(ctx, policy, transientOnly(), func() (int, error) {
		return 0, errTransient
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second, "backoff sleep must be interruptible")
}

func TestDoRateLimitFloor(t *testing.T) {
	policy := Policy{
		MaxAttempts:    2,
		BaseDelay:      time.Millisecond,
		Multiplier:     2.0,
		RateLimitFloor: 50 * time.Millisecond,
	}
	classify := Classifier{
		Transient:   func(error) bool { return true },
		RateLimited: func(error) bool { return true },
	}

	start := time.Now()
	calls := 0
	_, err := Do(context.Background(), policy, classify, func() (int, error) {
		calls++
		return 0, errTransient
	})

	assert.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond,
		"rate-limited attempts must wait at least the floor delay")
}

func TestJitteredStaysNonNegative(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := jittered(time.Millisecond, 1.0)
		assert.GreaterOrEqual(t, d, time.Duration(0))
	}
}
