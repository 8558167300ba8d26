package audio

import "math"

// DefaultNoiseWindow is sized for ~5 s of history at 100 ms capture
// blocks.
const DefaultNoiseWindow = 50

// NoiseProfile is a fixed-capacity sliding window of recent block RMS
// values. The tracked noise floor is the window minimum; SNR compares
// the current RMS against that floor. Rebuilt continuously, never
// persisted. Owned by the capture goroutine, no locking.
type NoiseProfile struct {
	window   []float64
	capacity int
	next     int
	filled   bool
}

func NewNoiseProfile(capacity int) *NoiseProfile {
	if capacity <= 0 {
		capacity = DefaultNoiseWindow
	}
	return &NoiseProfile{
		window:   make([]float64, 0, capacity),
		capacity: capacity,
	}
}

func (p *NoiseProfile) Push(rms float64) {
	if len(p.window) < p.capacity {
		p.window = append(p.window, rms)
		return
	}
	p.window[p.next] = rms
	p.next = (p.next + 1) % p.capacity
	p.filled = true
}

// Floor returns the tracked noise floor: the minimum RMS in the window,
// or 0 when no blocks have been seen.
func (p *NoiseProfile) Floor() float64 {
	if len(p.window) == 0 {
		return 0
	}
	floor := p.window[0]
	for _, v := range p.window[1:] {
		if v < floor {
			floor = v
		}
	}
	return floor
}

// SNR estimates the signal-to-noise ratio in dB for the given block
// RMS. It reports 0 unless the RMS exceeds a strictly positive floor,
// which also covers pure silence without dividing by zero.
func (p *NoiseProfile) SNR(rms float64) float64 {
	floor := p.Floor()
	if floor <= 0 || rms <= floor {
		return 0
	}
	return 20 * math.Log10(rms/floor)
}

// Len reports how many RMS entries are currently tracked.
func (p *NoiseProfile) Len() int { return len(p.window) }
