// Package buffer holds the rolling sample store between capture and
// transcription. One writer (the capture goroutine) appends; readers
// copy bounded windows out under the same lock, so every read is atomic
// with respect to a concurrent append and writer stalls are bounded by
// a memcpy of at most the configured window.
package buffer

import (
	"sync"
	"time"

	"github.com/vanch007/voiceflow-sub001/pkg/frames"
)

// StreamBuffer is a thread-safe, append-only rolling sample store.
type StreamBuffer struct {
	mu      sync.Mutex
	samples []float32
	rate    int
}

func New(rate int) *StreamBuffer {
	if rate <= 0 {
		rate = frames.TargetSampleRate
	}
	return &StreamBuffer{rate: rate}
}

func (b *StreamBuffer) Rate() int { return b.rate }

// Append adds a normalized frame. Capture goroutine only.
func (b *StreamBuffer) Append(f frames.AudioFrame) {
	b.AppendSamples(f.RawSamples())
}

// AppendSamples adds raw samples already at the buffer's rate.
func (b *StreamBuffer) AppendSamples(samples []float32) {
	if len(samples) == 0 {
		return
	}
	b.mu.Lock()
	b.samples = append(b.samples, samples...)
	b.mu.Unlock()
}

// Windowed copies out the most recent d of audio. A buffer holding less
// than d returns everything it has; the result is never longer than
// d * rate samples and is always taken from the tail.
func (b *StreamBuffer) Windowed(d time.Duration) []float32 {
	want := int(d.Seconds() * float64(b.rate))
	if want <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	start := len(b.samples) - want
	if start < 0 {
		start = 0
	}
	out := make([]float32, len(b.samples)-start)
	copy(out, b.samples[start:])
	return out
}

// DrainAll copies the entire buffer and clears it, atomically.
func (b *StreamBuffer) DrainAll() []float32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]float32, len(b.samples))
	copy(out, b.samples)
	b.samples = b.samples[:0]
	return out
}

// Clear empties the buffer.
func (b *StreamBuffer) Clear() {
	b.mu.Lock()
	b.samples = b.samples[:0]
	b.mu.Unlock()
}

// Len reports the current sample count.
func (b *StreamBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples)
}

// Duration reports the buffered audio length.
func (b *StreamBuffer) Duration() time.Duration {
	return time.Duration(float64(b.Len()) / float64(b.rate) * float64(time.Second))
}
