package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "igleads/pkg/errors"
)

// fastBackoff keeps tests quick.
func fastBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:    time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
		JitterFactor: 0,
	}
}

func fastConfig() *Config {
	cfg := DefaultConfig()
	cfg.Backoff = fastBackoff()
	return cfg
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		return nil
	}, fastConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesRetryableErrors(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		if calls < 3 {
			return errs.New(errs.ErrorTypeNetwork, 0, "connection reset")
		}
		return nil
	}, fastConfig())
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnNonRetryableError(t *testing.T) {
	calls := 0
	authErr := errs.New(errs.ErrorTypeAuth, 401, "bad token")
	err := Do(func() error {
		calls++
		return authErr
	}, fastConfig())
	assert.Equal(t, authErr, err)
	assert.Equal(t, 1, calls)
}

func TestDoExhaustsMaxAttempts(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		return errs.New(errs.ErrorTypeServerError, 503, "unavailable")
	}, fastConfig())
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "max retry attempts")
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := fastConfig()
	cfg.Context = ctx
	cfg.Backoff = &ExponentialBackoff{BaseDelay: time.Minute, MaxDelay: time.Minute}

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- Do(func() error {
			calls++
			cancel()
			return errs.New(errs.ErrorTypeNetwork, 0, "flaky")
		}, cfg)
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(5 * time.Second):
		t.Fatal("retry did not observe cancellation")
	}
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	result, err := DoWithResult(func() (string, error) {
		calls++
		if calls < 2 {
			return "", errs.New(errs.ErrorTypeNetwork, 0, "flaky")
		}
		return "payload", nil
	}, fastConfig())
	require.NoError(t, err)
	assert.Equal(t, "payload", result)
	assert.Equal(t, 2, calls)
}

func TestRetrierBuildersDoNotMutateOriginal(t *testing.T) {
	base := NewRetrier(fastConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	derived := base.WithMaxAttempts(1).WithContext(ctx)
	assert.NotSame(t, base, derived)
	assert.Equal(t, 3, base.config.MaxAttempts)
	assert.Equal(t, 1, derived.config.MaxAttempts)
}

func TestDefaultRetryIf(t *testing.T) {
	assert.False(t, DefaultRetryIf(nil))
	assert.True(t, DefaultRetryIf(errs.New(errs.ErrorTypeRateLimit, 429, "limited")))
	assert.False(t, DefaultRetryIf(errs.New(errs.ErrorTypeParsing, 200, "bad json")))
	assert.False(t, DefaultRetryIf(context.Canceled))
	assert.False(t, DefaultRetryIf(context.DeadlineExceeded))
	assert.True(t, DefaultRetryIf(errors.New("mystery")))
}

func TestExponentialBackoffGrowth(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		JitterFactor: 0,
	}
	assert.Equal(t, 100*time.Millisecond, eb.NextDelay(1))
	assert.Equal(t, 200*time.Millisecond, eb.NextDelay(2))
	assert.Equal(t, 400*time.Millisecond, eb.NextDelay(3))
	assert.Equal(t, time.Second, eb.NextDelay(10), "delay is capped at MaxDelay")
	assert.Equal(t, time.Duration(0), eb.NextDelay(0))
}

func TestLinearBackoffGrowth(t *testing.T) {
	lb := &LinearBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     250 * time.Millisecond,
		Increment:    50 * time.Millisecond,
		JitterFactor: 0,
	}
	assert.Equal(t, 100*time.Millisecond, lb.NextDelay(1))
	assert.Equal(t, 150*time.Millisecond, lb.NextDelay(2))
	assert.Equal(t, 250*time.Millisecond, lb.NextDelay(5), "delay is capped at MaxDelay")
}

func TestWait(t *testing.T) {
	require.NoError(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Minute), context.Canceled)
}
