package frames

import "time"

// TargetSampleRate is the fixed rate of every normalized frame in the
// pipeline. Capture blocks at other rates are resampled before they
// become an AudioFrame.
const TargetSampleRate = 16000

// AudioFrame is an immutable block of mono Float32 samples at a fixed
// sample rate, stamped with its capture time. The samples are copied on
// construction and on read, so a frame can cross goroutines freely.
type AudioFrame struct {
	samples []float32
	rate    int
	ts      time.Time
}

func NewAudioFrame(samples []float32, rate int, ts time.Time) AudioFrame {
	buf := make([]float32, len(samples))
	copy(buf, samples)
	return AudioFrame{samples: buf, rate: rate, ts: ts}
}

func (f AudioFrame) Samples() []float32 {
	out := make([]float32, len(f.samples))
	copy(out, f.samples)
	return out
}

// RawSamples returns the backing slice without copying. Callers must not
// mutate it.
func (f AudioFrame) RawSamples() []float32 { return f.samples }

func (f AudioFrame) Len() int           { return len(f.samples) }
func (f AudioFrame) Rate() int          { return f.rate }
func (f AudioFrame) Timestamp() time.Time { return f.ts }

func (f AudioFrame) Duration() time.Duration {
	if f.rate <= 0 {
		return 0
	}
	return time.Duration(float64(len(f.samples)) / float64(f.rate) * float64(time.Second))
}

// VolumeUpdate carries the loudness telemetry derived from one capture
// block: the block RMS, the tracked noise floor and the instantaneous
// SNR in dB. It is delivered on its own callback, independent of the
// audio path.
type VolumeUpdate struct {
	RMS        float64
	SNR        float64
	NoiseFloor float64
	Timestamp  time.Time
}

// ResultKind distinguishes rolling re-transcriptions from the one result
// that closes a session.
type ResultKind string

const (
	KindPartial ResultKind = "partial"
	KindFinal   ResultKind = "final"
)

// Trigger names the reason a partial result was produced.
type Trigger string

const (
	TriggerPause    Trigger = "pause"
	TriggerPeriodic Trigger = "periodic"
	TriggerPreview  Trigger = "preview"
)

// Result is one transcription outcome. Final results may carry the
// pre-polish text in Original; Err is set when the engine failed and
// Text is the fallback (empty) value.
type Result struct {
	Kind       ResultKind
	Text       string
	Original   string
	Trigger    Trigger
	Generation uint64
	Err        error
}
