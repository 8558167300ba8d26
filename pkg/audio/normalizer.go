package audio

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/vanch007/voiceflow-sub001/pkg/frames"
)

// ErrFormat marks a capture block the normalizer cannot interpret. The
// block is dropped and capture continues.
var ErrFormat = errors.New("unrecognized capture format")

// Normalizer turns raw capture blocks of arbitrary rate, channel count
// and bit depth into mono Float32 at the target rate, and derives the
// per-block loudness telemetry. Not safe for concurrent use: it belongs
// to the capture goroutine.
type Normalizer struct {
	targetRate int
	profile    *NoiseProfile
}

func NewNormalizer(targetRate, noiseWindow int) *Normalizer {
	if targetRate <= 0 {
		targetRate = frames.TargetSampleRate
	}
	return &Normalizer{
		targetRate: targetRate,
		profile:    NewNoiseProfile(noiseWindow),
	}
}

func (n *Normalizer) TargetRate() int { return n.targetRate }

// Process normalizes one block: channel-0 extraction, Float32
// conversion, resample to the target rate, then RMS/SNR derivation
// against the rolling noise profile.
func (n *Normalizer) Process(b Block) ([]float32, frames.VolumeUpdate, error) {
	if err := b.validate(); err != nil {
		return nil, frames.VolumeUpdate{}, err
	}
	mono := extractChannelZero(b)
	out := ResampleLinear(mono, b.Layout.SampleRate, n.targetRate)

	rms := RMS(out)
	n.profile.Push(rms)
	vol := frames.VolumeUpdate{
		RMS:        rms,
		SNR:        n.profile.SNR(rms),
		NoiseFloor: n.profile.Floor(),
		Timestamp:  b.Timestamp,
	}
	return out, vol, nil
}

// extractChannelZero pulls channel 0 as Float32 in [-1, 1]. Multi-channel
// input is not downmixed; the remaining channels are discarded.
func extractChannelZero(b Block) []float32 {
	count := b.frameCount()
	out := make([]float32, count)

	var stride, offset int
	var data []byte
	if b.Layout.Interleaved {
		data = b.Planes[0]
		stride = b.Layout.Format.bytesPerSample() * b.Layout.Channels
		offset = 0
	} else {
		data = b.Planes[0]
		stride = b.Layout.Format.bytesPerSample()
		offset = 0
	}

	switch b.Layout.Format {
	case FormatFloat32:
		for i := 0; i < count; i++ {
			bits := binary.LittleEndian.Uint32(data[offset+i*stride:])
			out[i] = math.Float32frombits(bits)
		}
	case FormatInt16:
		for i := 0; i < count; i++ {
			v := int16(binary.LittleEndian.Uint16(data[offset+i*stride:]))
			out[i] = float32(v) / 32768.0
		}
	case FormatInt32:
		for i := 0; i < count; i++ {
			v := int32(binary.LittleEndian.Uint32(data[offset+i*stride:]))
			out[i] = float32(float64(v) / float64(math.MaxInt32))
		}
	}
	return out
}

// ResampleLinear converts samples from srcRate to dstRate using linear
// interpolation. Output length is inputFrames*dstRate/srcRate, so one
// second of input yields one second of output within a sample.
func ResampleLinear(in []float32, srcRate, dstRate int) []float32 {
	if srcRate == dstRate || len(in) == 0 {
		out := make([]float32, len(in))
		copy(out, in)
		return out
	}
	ratio := float64(srcRate) / float64(dstRate)
	outLen := int(float64(len(in)) * float64(dstRate) / float64(srcRate))
	out := make([]float32, outLen)
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := pos - float64(idx)
		next := idx + 1
		if next >= len(in) {
			next = len(in) - 1
		}
		if idx >= len(in) {
			idx = len(in) - 1
		}
		out[i] = float32(float64(in[idx])*(1-frac) + float64(in[next])*frac)
	}
	return out
}

// RMS returns the root-mean-square amplitude of a sample block.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
