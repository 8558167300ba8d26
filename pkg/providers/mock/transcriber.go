// Package mock provides a scriptable transcriber for development and
// tests: it returns canned transcripts without any network dependency.
package mock

import (
	"context"
	"sync"
	"time"
)

type Config struct {
	// Transcripts are returned in order, one per call; the last entry
	// repeats once the script is exhausted.
	Transcripts []string
	// Err, when set, is returned by every call instead of a transcript.
	Err error
	// Latency delays each call to exercise in-flight guards.
	Latency time.Duration
}

type Transcriber struct {
	cfg Config

	mu    sync.Mutex
	calls int
}

func New(cfg Config) *Transcriber {
	if len(cfg.Transcripts) == 0 {
		cfg.Transcripts = []string{"mock transcript"}
	}
	return &Transcriber{cfg: cfg}
}

func (t *Transcriber) Name() string { return "mock" }

func (t *Transcriber) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	if t.cfg.Latency > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(t.cfg.Latency):
		}
	}

	t.mu.Lock()
	idx := t.calls
	t.calls++
	t.mu.Unlock()

	if t.cfg.Err != nil {
		return "", t.cfg.Err
	}
	if idx >= len(t.cfg.Transcripts) {
		idx = len(t.cfg.Transcripts) - 1
	}
	return t.cfg.Transcripts[idx], nil
}

// Calls reports how many times Transcribe ran.
func (t *Transcriber) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}
