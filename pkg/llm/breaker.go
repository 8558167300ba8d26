package llm

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vanch007/voiceflow-sub001/pkg/metrics"
	"github.com/vanch007/voiceflow-sub001/pkg/resilience"
)

// ErrBreakerOpen is returned while the breaker is cooling down.
var ErrBreakerOpen = errors.New("llm: circuit breaker open")

// BreakerClient wraps a Client with a rate-limit circuit breaker.
// Repeated 429s open the breaker; while it is open Complete fails
// fast and the caller falls back to rule-based polishing.
type BreakerClient struct {
	inner    Client
	breaker  *resilience.CircuitBreaker
	observer metrics.Observer

	mu   sync.Mutex
	open bool
}

func NewBreakerClient(inner Client, breaker *resilience.CircuitBreaker, observer metrics.Observer) *BreakerClient {
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker(0, 0)
	}
	if observer == nil {
		observer = metrics.NoopObserver{}
	}
	return &BreakerClient{inner: inner, breaker: breaker, observer: observer}
}

func (b *BreakerClient) Name() string { return b.inner.Name() }

func (b *BreakerClient) Complete(ctx context.Context, messages []Message) (string, error) {
	if !b.breaker.Allow() {
		b.record(metrics.EventBreakerDenied)
		return "", ErrBreakerOpen
	}
	out, err := b.inner.Complete(ctx, messages)
	if err != nil {
		tripped := b.breaker.OnError(err)
		if resilience.IsRateLimit(err) {
			b.record(metrics.EventRateLimit)
		}
		if tripped {
			b.transition(true)
		}
		return "", err
	}
	b.breaker.OnSuccess()
	b.transition(false)
	return out, nil
}

func (b *BreakerClient) Ping(ctx context.Context) error {
	return b.inner.Ping(ctx)
}

func (b *BreakerClient) transition(open bool) {
	b.mu.Lock()
	changed := b.open != open
	b.open = open
	b.mu.Unlock()
	if !changed {
		return
	}
	if open {
		b.record(metrics.EventBreakerOpen)
	} else {
		b.record(metrics.EventBreakerClose)
	}
}

func (b *BreakerClient) record(name string) {
	b.observer.RecordEvent(metrics.Event{
		Name: name,
		Time: time.Now(),
		Tags: map[string]string{"provider": b.inner.Name()},
	})
}
