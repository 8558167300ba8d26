package audio

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vanch007/voiceflow-sub001/pkg/errorsx"
	"github.com/vanch007/voiceflow-sub001/pkg/frames"
	"github.com/vanch007/voiceflow-sub001/pkg/logging"
	"github.com/vanch007/voiceflow-sub001/pkg/metrics"
)

var (
	// ErrDeviceUnavailable reports a capture device that disappeared
	// mid-session. Fatal to the current session; recovery requires an
	// explicit Rebuild before the next start.
	ErrDeviceUnavailable = errors.New("capture device unavailable")

	// ErrSourceEnabled rejects device swaps while capture is running.
	ErrSourceEnabled = errors.New("source is enabled")
)

// DefaultVADThreshold matches the block-RMS silence gate of the capture
// path. Gating is off by default: discontinuous audio degrades
// transcription accuracy.
const DefaultVADThreshold = 0.01

// CaptureDevice is the device-side collaborator. It delivers raw blocks
// on a single dedicated goroutine and reports failures through fail.
type CaptureDevice interface {
	Name() string
	Start(deliver func(Block), fail func(error)) error
	Stop() error
}

type SourceConfig struct {
	TargetRate   int
	NoiseWindow  int
	VADEnabled   bool
	VADThreshold float64
}

func (c SourceConfig) withDefaults() SourceConfig {
	if c.TargetRate <= 0 {
		c.TargetRate = frames.TargetSampleRate
	}
	if c.NoiseWindow <= 0 {
		c.NoiseWindow = DefaultNoiseWindow
	}
	if c.VADThreshold <= 0 {
		c.VADThreshold = DefaultVADThreshold
	}
	return c
}

// Source normalizes a capture device's output into mono Float32 frames
// at the target rate and publishes loudness telemetry. Frames and
// volume updates go out on two independent callbacks: the volume
// cadence is never affected by VAD gating on the frame path.
type Source struct {
	cfg    SourceConfig
	norm   *Normalizer
	logger *slog.Logger
	obs    metrics.Observer

	mu      sync.Mutex
	device  CaptureDevice
	enabled atomic.Bool

	onFrame  func(frames.AudioFrame)
	onVolume func(frames.VolumeUpdate)
	onError  func(error)
}

func NewSource(device CaptureDevice, cfg SourceConfig) *Source {
	cfg = cfg.withDefaults()
	return &Source{
		cfg:    cfg,
		norm:   NewNormalizer(cfg.TargetRate, cfg.NoiseWindow),
		device: device,
		logger: logging.NewComponentLogger(nil, "audio_source"),
		obs:    metrics.NoopObserver{},
	}
}

// SetObserver installs a metrics sink. Call before Enable.
func (s *Source) SetObserver(obs metrics.Observer) {
	if obs != nil {
		s.obs = obs
	}
}

// OnFrame registers the normalized-audio consumer. Call before Enable.
func (s *Source) OnFrame(fn func(frames.AudioFrame)) { s.onFrame = fn }

// OnVolume registers the loudness consumer. The callback runs on the
// capture goroutine and must not block.
func (s *Source) OnVolume(fn func(frames.VolumeUpdate)) { s.onVolume = fn }

// OnError registers the fatal-error consumer.
func (s *Source) OnError(fn func(error)) { s.onError = fn }

// Enable starts the underlying device and begins emitting frames.
func (s *Source) Enable() error {
	s.mu.Lock()
	device := s.device
	s.mu.Unlock()
	if device == nil {
		return errorsx.Wrap(ErrDeviceUnavailable, errorsx.ReasonCaptureDevice)
	}
	if !s.enabled.CompareAndSwap(false, true) {
		return nil
	}
	if err := device.Start(s.handleBlock, s.handleFailure); err != nil {
		s.enabled.Store(false)
		return errorsx.Wrap(err, errorsx.ReasonCaptureDevice)
	}
	s.logger.Info("capture_enabled", "device", device.Name())
	return nil
}

// Disable stops the device. Blocks already in flight may still be
// delivered by the device goroutine; they are discarded.
func (s *Source) Disable() error {
	if !s.enabled.CompareAndSwap(true, false) {
		return nil
	}
	s.mu.Lock()
	device := s.device
	s.mu.Unlock()
	if device == nil {
		return nil
	}
	err := device.Stop()
	s.logger.Info("capture_disabled", "device", device.Name())
	return err
}

// Rebuild swaps the capture device after a default-device change. Valid
// only while disabled; the noise profile starts over because it tracked
// the old device.
func (s *Source) Rebuild(device CaptureDevice) error {
	if s.enabled.Load() {
		return ErrSourceEnabled
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.device = device
	s.norm = NewNormalizer(s.cfg.TargetRate, s.cfg.NoiseWindow)
	s.logger.Info("capture_rebuilt", "device", device.Name())
	return nil
}

func (s *Source) handleBlock(b Block) {
	if !s.enabled.Load() {
		return
	}
	if b.Timestamp.IsZero() {
		b.Timestamp = time.Now()
	}
	samples, vol, err := s.norm.Process(b)
	if err != nil {
		// Unrecognized formats drop the block, never the session.
		s.logger.Warn("capture_block_dropped",
			"reason_code", string(errorsx.ReasonCaptureFormat),
			"error", err.Error())
		s.obs.RecordEvent(metrics.Event{Name: metrics.EventCaptureDropped, Time: b.Timestamp})
		return
	}

	if s.onVolume != nil {
		s.onVolume(vol)
	}
	s.obs.RecordEvent(metrics.Event{
		Name:  metrics.EventCaptureBlock,
		Time:  b.Timestamp,
		Value: vol.RMS,
	})

	if s.cfg.VADEnabled && vol.RMS < s.cfg.VADThreshold {
		return
	}
	if s.onFrame != nil {
		s.onFrame(frames.NewAudioFrame(samples, s.cfg.TargetRate, b.Timestamp))
	}
}

func (s *Source) handleFailure(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, ErrDeviceUnavailable) {
		s.enabled.Store(false)
		s.logger.Error("capture_device_lost",
			"reason_code", string(errorsx.ReasonCaptureDevice),
			"error", err.Error())
		if s.onError != nil {
			s.onError(errorsx.Wrap(err, errorsx.ReasonCaptureDevice))
		}
		return
	}
	s.logger.Warn("capture_device_error", "error", err.Error())
	if s.onError != nil {
		s.onError(errorsx.Wrap(err, errorsx.ReasonCaptureDevice))
	}
}
