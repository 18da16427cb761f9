package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fastPolicy() *Policy {
	return &Policy{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	r := NewBackoffRetryer(fastPolicy(), zap.NewNop())

	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsRetries(t *testing.T) {
	r := NewBackoffRetryer(fastPolicy(), zap.NewNop())

	boom := errors.New("boom")
	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		return boom
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 4, calls, "initial attempt plus three retries")
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	policy := fastPolicy()
	policy.RetryIf = func(err error) bool { return false }
	r := NewBackoffRetryer(policy, zap.NewNop())

	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		return errors.New("fatal")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "non-retryable errors must not be retried")
}

func TestDoRetryIfFilters(t *testing.T) {
	transient := errors.New("transient")
	policy := fastPolicy()
	policy.RetryIf = func(err error) bool { return errors.Is(err, transient) }
	r := NewBackoffRetryer(policy, zap.NewNop())

	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		if calls == 1 {
			return transient
		}
		return errors.New("fatal")
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls, "first error retried, second stops the loop")
}

func TestDoRespectsContextCancellation(t *testing.T) {
	policy := fastPolicy()
	policy.InitialDelay = time.Hour // force the wait branch
	policy.MaxDelay = time.Hour
	policy.Jitter = false
	r := NewBackoffRetryer(policy, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := r.Do(ctx, func() error { return errors.New("transient") })
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOnRetryCallback(t *testing.T) {
	var attempts []int
	policy := fastPolicy()
	policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		attempts = append(attempts, attempt)
	}
	r := NewBackoffRetryer(policy, zap.NewNop())

	_ = r.Do(context.Background(), func() error { return errors.New("transient") })

	assert.Equal(t, []int{1, 2, 3}, attempts)
}

func TestCalculateDelayBounds(t *testing.T) {
	policy := &Policy{
		MaxRetries:   5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     400 * time.Millisecond,
		Multiplier:   2.0,
		Jitter:       true,
	}
	r := NewBackoffRetryer(policy, zap.NewNop()).(*backoffRetryer)

	for attempt := 1; attempt <= 10; attempt++ {
		d := r.calculateDelay(attempt)
		assert.GreaterOrEqual(t, d, policy.InitialDelay, "attempt %d", attempt)
		// MaxDelay plus the 25% jitter ceiling.
		assert.LessOrEqual(t, d, 500*time.Millisecond, "attempt %d", attempt)
	}
}

func TestDoTyped(t *testing.T) {
	r := NewBackoffRetryer(fastPolicy(), zap.NewNop())

	calls := 0
	got, err := DoTyped[string](r, context.Background(), func() (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("transient")
		}
		return "done", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "done", got)
}

func TestDoTypedPropagatesError(t *testing.T) {
	policy := fastPolicy()
	policy.MaxRetries = 0
	r := NewBackoffRetryer(policy, zap.NewNop())

	got, err := DoTyped[*struct{}](r, context.Background(), func() (*struct{}, error) {
		return nil, errors.New("boom")
	})

	require.Error(t, err)
	assert.Nil(t, got)
}
