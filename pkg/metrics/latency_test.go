package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLatencyObserverSummarizesSession(t *testing.T) {
	o := NewLatencyObserver(nil)
	start := time.Now()
	tags := map[string]string{"session_id": "s1"}

	o.RecordEvent(Event{Name: EventSessionStart, Time: start, Tags: tags})
	o.RecordEvent(Event{Name: EventPreviewTick, Time: start.Add(500 * time.Millisecond), Tags: tags})
	o.RecordEvent(Event{Name: EventPreviewTick, Time: start.Add(time.Second), Tags: tags})
	o.RecordEvent(Event{Name: EventTickSkipped, Time: start.Add(time.Second), Tags: tags})
	o.RecordEvent(Event{Name: EventSessionStop, Time: start.Add(2 * time.Second), Tags: tags})

	o.mu.Lock()
	defer o.mu.Unlock()
	assert.Empty(t, o.sessions, "trace should be dropped after stop")
}

func TestLatencyObserverIgnoresUntaggedEvents(t *testing.T) {
	o := NewLatencyObserver(nil)
	o.RecordEvent(Event{Name: EventPreviewTick, Time: time.Now()})

	o.mu.Lock()
	defer o.mu.Unlock()
	assert.Empty(t, o.sessions)
}

func TestMultiObserverFansOut(t *testing.T) {
	a := NewMemoryObserver()
	b := NewMemoryObserver()
	m := NewMultiObserver(a, b)

	m.RecordEvent(Event{Name: EventSessionStart, Time: time.Now()})

	assert.Equal(t, 1, a.CountByName(EventSessionStart))
	assert.Equal(t, 1, b.CountByName(EventSessionStart))
}
