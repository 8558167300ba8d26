package resilience

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerOpensAtThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)
	rl := RateLimitError{Provider: "openai"}

	assert.False(t, cb.OnError(rl))
	assert.False(t, cb.OnError(rl))
	assert.True(t, cb.Allow())
	assert.True(t, cb.OnError(rl), "third strike should trip the breaker")
	assert.False(t, cb.Allow())
	assert.Greater(t, cb.Remaining(), 50*time.Second)
}

func TestBreakerIgnoresOtherErrors(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Minute)
	assert.False(t, cb.OnError(errors.New("timeout")))
	assert.True(t, cb.Allow())
	assert.Zero(t, cb.Remaining())
}

func TestBreakerReopensAfterCooldown(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)
	cb.OnError(RateLimitError{})
	assert.False(t, cb.Allow())
	time.Sleep(20 * time.Millisecond)
	assert.True(t, cb.Allow())
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Minute)
	cb.OnError(RateLimitError{})
	cb.OnSuccess()
	cb.OnError(RateLimitError{})
	assert.True(t, cb.Allow())
}

func TestIsRateLimitUnwraps(t *testing.T) {
	wrapped := fmt.Errorf("polish: %w", RateLimitError{Provider: "openai"})
	assert.True(t, IsRateLimit(wrapped))
	assert.False(t, IsRateLimit(errors.New("polish: rate limit")))
}
