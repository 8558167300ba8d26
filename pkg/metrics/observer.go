package metrics

import "time"

// Event is one pipeline measurement: a name, a timestamp, an optional
// numeric value and free-form tags/fields.
type Event struct {
	Name   string
	Time   time.Time
	Value  float64
	Tags   map[string]string
	Fields map[string]any
}

// Event names recorded by the pipeline.
const (
	EventCaptureBlock    = "capture_block"
	EventCaptureDropped  = "capture_block_dropped"
	EventSessionStart    = "session_start"
	EventSessionStop     = "session_stop"
	EventPreviewTick     = "preview_tick"
	EventPeriodicTick    = "periodic_tick"
	EventTickSkipped     = "tick_skipped"
	EventStaleDiscard    = "stale_result_discarded"
	EventTranscribeFinal = "transcribe_final"
	EventTranscribeError = "transcribe_error"
	EventTransportState  = "transport_state"
	EventReconnectRetry  = "transport_reconnect_retry"
	EventRateLimit       = "polish_rate_limit"
	EventBreakerOpen     = "polish_breaker_open"
	EventBreakerClose    = "polish_breaker_close"
	EventBreakerDenied   = "polish_breaker_denied"
)

type Observer interface {
	RecordEvent(ev Event)
}

type Flusher interface {
	Flush() error
}

type NoopObserver struct{}

func (NoopObserver) RecordEvent(Event) {}
