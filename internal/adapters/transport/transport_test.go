package transport

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/pkg/errors"
)

func fastRetrier(n int) *Retrier {
	return NewRetrier(RetryConfig{MaxRetries: n, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond})
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	v, err := Retry(context.Background(), fastRetrier(3), func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, &StatusError{Provider: "test", Code: http.StatusServiceUnavailable}
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 3, calls)
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	calls := 0
	err := fastRetrier(3).Do(context.Background(), func(context.Context) error {
		calls++
		return &StatusError{Provider: "test", Code: http.StatusNotFound}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestRetry_Exhausted(t *testing.T) {
	calls := 0
	err := fastRetrier(2).Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("connection reset by peer")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "max retries (2) exceeded")
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRetrier(RetryConfig{MaxRetries: 5, InitialDelay: time.Second})
	calls := 0
	err := r.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errors.New("timeout talking to upstream")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDelay(t *testing.T) {
	r := NewRetrier(RetryConfig{MaxRetries: 3, InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond})
	assert.Equal(t, 100*time.Millisecond, r.delay(0))
	assert.Equal(t, 200*time.Millisecond, r.delay(1))
	assert.Equal(t, 300*time.Millisecond, r.delay(2))
}

func TestStatusErrorClassification(t *testing.T) {
	assert.True(t, errors.Is(&StatusError{Code: 429}, errors.ErrRateLimitExceeded))
	assert.True(t, errors.Is(&StatusError{Code: 500}, errors.ErrExternal))
	assert.True(t, IsRetryable(&StatusError{Code: 502}))
	assert.False(t, IsRetryable(&StatusError{Code: 400}))
	assert.False(t, IsRetryable(context.DeadlineExceeded))
}

func TestLimiter(t *testing.T) {
	l := NewLimiter("test", 10)
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())

	unlimited := NewLimiter("none", 0)
	for i := 0; i < 100; i++ {
		require.True(t, unlimited.Allow())
	}
	require.NoError(t, unlimited.Wait(context.Background()))
}
