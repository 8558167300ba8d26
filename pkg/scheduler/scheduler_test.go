package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTickerFiresRepeatedly(t *testing.T) {
	var fired atomic.Int32
	task := NewTicker().Every(10*time.Millisecond, func() { fired.Add(1) })
	defer task.Stop()

	deadline := time.After(time.Second)
	for fired.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 3 ticks, got %d", fired.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestStopPreventsNewTicks(t *testing.T) {
	var fired atomic.Int32
	task := NewTicker().Every(5*time.Millisecond, func() { fired.Add(1) })
	time.Sleep(20 * time.Millisecond)
	task.Stop()
	after := fired.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, fired.Load())
}

func TestStopIsIdempotent(t *testing.T) {
	task := NewTicker().Every(time.Hour, func() {})
	task.Stop()
	task.Stop()
}

func TestManualFiresOnlyActiveTasks(t *testing.T) {
	m := NewManual()
	var a, b int
	ta := m.Every(time.Second, func() { a++ })
	m.Every(2*time.Second, func() { b++ })

	m.Fire()
	ta.Stop()
	m.Fire()

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
	assert.Equal(t, 1, m.Active())
}
