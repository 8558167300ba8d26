package metrics

import (
	"math"
	"sync/atomic"
)

// High-frequency events that may be thinned without losing the story
// of a session. Everything else passes through regardless of rate, so
// a sampled events file still contains every lifecycle transition.
var sampledNames = map[string]bool{
	EventCaptureBlock:   true,
	EventCaptureDropped: true,
	EventPreviewTick:    true,
	EventPeriodicTick:   true,
}

// SamplingObserver forwards roughly rate*N of the chatty capture and
// tick events, and all of the rest.
type SamplingObserver struct {
	inner   Observer
	every   uint64
	counter atomic.Uint64
}

func NewSamplingObserver(inner Observer, rate float64) *SamplingObserver {
	every := uint64(1)
	switch {
	case rate <= 0:
		every = 0
	case rate < 1:
		every = uint64(math.Round(1.0 / rate))
		if every == 0 {
			every = 1
		}
	}
	return &SamplingObserver{inner: inner, every: every}
}

func (s *SamplingObserver) RecordEvent(ev Event) {
	if !sampledNames[ev.Name] {
		s.inner.RecordEvent(ev)
		return
	}
	switch s.every {
	case 0:
		return
	case 1:
		s.inner.RecordEvent(ev)
	default:
		if s.counter.Add(1)%s.every == 0 {
			s.inner.RecordEvent(ev)
		}
	}
}
