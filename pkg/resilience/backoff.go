// Package resilience holds the retry primitives used around the
// transport.
package resilience

import (
	"sync"
	"time"
)

// Backoff produces exponentially growing retry delays: each Next call
// returns the current delay and doubles it, up to the cap. Reset
// returns to the initial delay; callers decide when (a fresh connect,
// or a connection that reached the connected state).
type Backoff struct {
	mu      sync.Mutex
	initial time.Duration
	max     time.Duration
	next    time.Duration
}

func NewBackoff(initial, max time.Duration) *Backoff {
	if initial <= 0 {
		initial = 3 * time.Second
	}
	if max < initial {
		max = initial
	}
	return &Backoff{initial: initial, max: max, next: initial}
}

func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	d := b.next
	doubled := b.next * 2
	if doubled > b.max {
		doubled = b.max
	}
	b.next = doubled
	return d
}

func (b *Backoff) Reset() {
	b.mu.Lock()
	b.next = b.initial
	b.mu.Unlock()
}

// Peek reports the delay the next Next call would return.
func (b *Backoff) Peek() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.next
}
