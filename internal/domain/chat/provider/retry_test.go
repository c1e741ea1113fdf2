package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestRetryEventuallySucceeds(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetry(3), IsRetryableNetworkError, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("read: connection reset by peer")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetry(5), IsRetryableNetworkError, func(context.Context) error {
		calls++
		return errors.New("invalid api key")
	})
	assert.EqualError(t, err, "invalid api key")
	assert.Equal(t, 1, calls)
}

func TestRetryGivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetry(2), nil, func(context.Context) error {
		calls++
		return errors.New("service unavailable")
	})
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := Retry(ctx, fastRetry(5), nil, func(context.Context) error {
		calls++
		return errors.New("connection refused")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryableNetworkError(errors.New("dial tcp: connection refused")))
	assert.True(t, IsRetryableNetworkError(errors.New("429 Too Many Requests")))
	assert.False(t, IsRetryableNetworkError(context.Canceled))
	assert.False(t, IsRetryableNetworkError(nil))

	assert.True(t, IsRetryableStatus(503))
	assert.True(t, IsRetryableStatus(429))
	assert.False(t, IsRetryableStatus(400))
}
