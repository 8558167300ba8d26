// Package scheduler provides the cancellable repeating-task handle that
// drives preview and periodic re-transcription. Cancellation-on-stop is
// a structural property of the handle: once Stop returns, no new tick
// callback will begin (a callback already running completes).
package scheduler

import (
	"sync"
	"time"
)

// Task is the handle to one armed repeating job.
type Task interface {
	Stop()
}

// Scheduler arms repeating jobs. The callback must return promptly;
// long-running work belongs on a worker goroutine the callback spawns.
type Scheduler interface {
	Every(interval time.Duration, fn func()) Task
}

// Ticker is the production Scheduler backed by time.Ticker.
type Ticker struct{}

func NewTicker() *Ticker { return &Ticker{} }

func (Ticker) Every(interval time.Duration, fn func()) Task {
	t := &tickerTask{
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
		fn:     fn,
	}
	go t.loop()
	return t
}

type tickerTask struct {
	ticker *time.Ticker
	done   chan struct{}
	fn     func()

	mu      sync.Mutex
	stopped bool
	once    sync.Once
}

func (t *tickerTask) loop() {
	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C:
			t.fire()
		}
	}
}

// fire runs the callback under the task lock so Stop, which takes the
// same lock, cannot return while a new tick is starting.
func (t *tickerTask) fire() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.fn()
}

func (t *tickerTask) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
	})
}
