package metrics

import (
	"log/slog"
	"sync"
	"time"
)

// LatencyObserver follows each session through its events and logs one
// summary line when the session stops: how long it ran, when the first
// partial went out, and how many ticks were skipped or discarded.
type LatencyObserver struct {
	mu       sync.Mutex
	sessions map[string]*sessionTrace
	log      *slog.Logger
}

type sessionTrace struct {
	started   time.Time
	firstTick time.Time
	ticks     int
	skips     int
	stale     int
	errors    int
}

func NewLatencyObserver(log *slog.Logger) *LatencyObserver {
	if log == nil {
		log = slog.Default()
	}
	return &LatencyObserver{
		sessions: make(map[string]*sessionTrace),
		log:      log,
	}
}

func (o *LatencyObserver) RecordEvent(ev Event) {
	sessionID := ""
	if ev.Tags != nil {
		sessionID = ev.Tags["session_id"]
	}
	if sessionID == "" {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	t := o.sessions[sessionID]
	if t == nil {
		t = &sessionTrace{}
		o.sessions[sessionID] = t
	}

	switch ev.Name {
	case EventSessionStart:
		t.started = ev.Time
	case EventPreviewTick, EventPeriodicTick:
		if t.firstTick.IsZero() {
			t.firstTick = ev.Time
		}
		t.ticks++
	case EventTickSkipped:
		t.skips++
	case EventStaleDiscard:
		t.stale++
	case EventTranscribeError:
		t.errors++
	case EventSessionStop:
		o.logSummaryLocked(sessionID, t, ev.Time)
		delete(o.sessions, sessionID)
	}
}

func (o *LatencyObserver) logSummaryLocked(sessionID string, t *sessionTrace, stopped time.Time) {
	o.log.Info("session_latency",
		"session_id", sessionID,
		"session_ms", durationMs(t.started, stopped),
		"first_tick_ms", durationMs(t.started, t.firstTick),
		"ticks", t.ticks,
		"skips", t.skips,
		"stale", t.stale,
		"errors", t.errors,
	)
}

func durationMs(a, b time.Time) int64 {
	if a.IsZero() || b.IsZero() {
		return -1
	}
	return b.Sub(a).Milliseconds()
}
