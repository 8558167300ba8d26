package scheduler

import (
	"sync"
	"time"
)

// Manual is a Scheduler driven by hand, used to make timer behavior
// deterministic in tests.
type Manual struct {
	mu    sync.Mutex
	tasks []*ManualTask
}

func NewManual() *Manual { return &Manual{} }

func (m *Manual) Every(interval time.Duration, fn func()) Task {
	t := &ManualTask{fn: fn, interval: interval}
	m.mu.Lock()
	m.tasks = append(m.tasks, t)
	m.mu.Unlock()
	return t
}

// Fire triggers one tick on every armed task, synchronously.
func (m *Manual) Fire() {
	m.mu.Lock()
	tasks := make([]*ManualTask, len(m.tasks))
	copy(tasks, m.tasks)
	m.mu.Unlock()
	for _, t := range tasks {
		t.Fire()
	}
}

// Active reports how many tasks have not been stopped.
func (m *Manual) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if !t.Stopped() {
			n++
		}
	}
	return n
}

type ManualTask struct {
	mu       sync.Mutex
	fn       func()
	interval time.Duration
	stopped  bool
}

func (t *ManualTask) Interval() time.Duration { return t.interval }

func (t *ManualTask) Fire() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.fn()
}

func (t *ManualTask) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func (t *ManualTask) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}
