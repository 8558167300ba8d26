package resilience

import (
	"errors"
	"sync"
	"time"
)

// RateLimitError is a polish-backend rate limit response.
type RateLimitError struct {
	Provider string
	Message  string
}

func (e RateLimitError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "rate limit"
}

// IsRateLimit returns true when the error is a RateLimitError.
func IsRateLimit(err error) bool {
	var rl RateLimitError
	return errors.As(err, &rl)
}

// CircuitBreaker fails fast for a cooldown once a backend has rate
// limited enough consecutive requests. Only rate-limit errors count
// toward the threshold; transport and backend faults pass through so
// the caller's own retry policy handles them.
type CircuitBreaker struct {
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu       sync.Mutex
	strikes  int
	openedAt time.Time
}

func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 3
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &CircuitBreaker{threshold: threshold, cooldown: cooldown, now: time.Now}
}

// Allow reports whether a request may proceed.
func (c *CircuitBreaker) Allow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.openLocked()
}

// Remaining returns how much cooldown is left, zero when closed.
func (c *CircuitBreaker) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.openLocked() {
		return 0
	}
	return c.openedAt.Add(c.cooldown).Sub(c.now())
}

// OnSuccess closes the breaker and forgets accumulated strikes.
func (c *CircuitBreaker) OnSuccess() {
	c.mu.Lock()
	c.strikes = 0
	c.openedAt = time.Time{}
	c.mu.Unlock()
}

// OnError feeds a request failure into the breaker and reports
// whether this failure tripped it open.
func (c *CircuitBreaker) OnError(err error) bool {
	if !IsRateLimit(err) {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	wasOpen := c.openLocked()
	c.strikes++
	if c.strikes >= c.threshold {
		c.openedAt = c.now()
	}
	return !wasOpen && c.openLocked()
}

func (c *CircuitBreaker) openLocked() bool {
	return !c.openedAt.IsZero() && c.now().Before(c.openedAt.Add(c.cooldown))
}
