// Package engine defines the transcription contract the session
// controller runs against. Vendors live under pkg/providers and the
// protocol-backed engine under pkg/engine/remote.
package engine

import "context"

// Transcriber turns one buffered utterance into text.
type Transcriber interface {
	// Name returns the engine name for logging/metrics.
	Name() string
	// Transcribe converts samples at the given rate into text. It
	// blocks until the engine produces a result or ctx expires.
	Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error)
}
