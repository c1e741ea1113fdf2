package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreakerLifecycle(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(2, time.Minute)
	cb.now = func() time.Time { return now }

	assert.True(t, cb.Allow())
	cb.RecordFailure()
	assert.True(t, cb.Allow())
	cb.RecordFailure()
	assert.False(t, cb.Allow())
	assert.Equal(t, 1, cb.State())

	now = now.Add(time.Minute)
	assert.True(t, cb.Allow(), "probe allowed after cool-down")
	assert.Equal(t, 2, cb.State())

	cb.RecordFailure()
	assert.False(t, cb.Allow(), "failed probe reopens the breaker")

	now = now.Add(2 * time.Minute)
	assert.True(t, cb.Allow())
	cb.RecordSuccess()
	assert.Equal(t, 0, cb.State())
}
