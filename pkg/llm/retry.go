package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/vanch007/voiceflow-sub001/pkg/configutil"
)

type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      float64
	IsRetryable func(error) bool
	Sleep       func(time.Duration)
}

func (c RetryConfig) withDefaults() RetryConfig {
	c.MaxAttempts = configutil.IntValue(c.MaxAttempts, 3)
	c.BaseDelay = configutil.DurationValue(c.BaseDelay, 100*time.Millisecond)
	c.MaxDelay = configutil.DurationValue(c.MaxDelay, 2*time.Second)
	if c.IsRetryable == nil {
		c.IsRetryable = DefaultIsRetryable
	}
	if c.Sleep == nil {
		c.Sleep = time.Sleep
	}
	return c
}

// Retry runs fn with exponential backoff and jitter until it succeeds,
// exhausts its attempts, or hits a non-retryable error.
func Retry(ctx context.Context, cfg RetryConfig, fn func(context.Context) (string, error)) (string, error) {
	cfg = cfg.withDefaults()

	var lastErr error
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := 0; i < cfg.MaxAttempts; i++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !cfg.IsRetryable(err) || i == cfg.MaxAttempts-1 {
			break
		}
		cfg.Sleep(backoffDelay(cfg.BaseDelay, cfg.MaxDelay, cfg.Jitter, i, r))
	}
	return "", fmt.Errorf("llm retry failed: %w", lastErr)
}

// DefaultIsRetryable treats everything except cancellation as worth
// another attempt; transient network failures dominate in practice.
func DefaultIsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func backoffDelay(base, max time.Duration, jitter float64, attempt int, r *rand.Rand) time.Duration {
	pow := math.Pow(2, float64(attempt))
	d := time.Duration(float64(base) * pow)
	if d > max {
		d = max
	}
	if jitter > 0 {
		return d + time.Duration(float64(d)*jitter*r.Float64())
	}
	return d
}
