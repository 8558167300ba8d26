// Package session owns the recording lifecycle: one controller drives
// the rolling buffer, the preview/periodic timers and the engine, and
// turns stop() into exactly one final result.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vanch007/voiceflow-sub001/pkg/audio"
	"github.com/vanch007/voiceflow-sub001/pkg/buffer"
	"github.com/vanch007/voiceflow-sub001/pkg/configutil"
	"github.com/vanch007/voiceflow-sub001/pkg/engine"
	"github.com/vanch007/voiceflow-sub001/pkg/errorsx"
	"github.com/vanch007/voiceflow-sub001/pkg/frames"
	"github.com/vanch007/voiceflow-sub001/pkg/logging"
	"github.com/vanch007/voiceflow-sub001/pkg/metrics"
	"github.com/vanch007/voiceflow-sub001/pkg/polish"
	"github.com/vanch007/voiceflow-sub001/pkg/redact"
	"github.com/vanch007/voiceflow-sub001/pkg/scheduler"
)

type State string

const (
	StateIdle     State = "idle"
	StateActive   State = "active"
	StateDraining State = "draining"
)

type Mode string

const (
	ModeOneShot    Mode = "oneShot"
	ModeContinuous Mode = "continuous"
)

var (
	ErrNotActive     = errors.New("no active session")
	ErrSessionActive = errors.New("session already active")
)

// MinSamples is the default floor below which a drain produces an
// empty final result without touching the engine. Degenerate inputs
// crash some backends, so the guard is policy, not an optimization.
const MinSamples = 8000

// Config is fixed for the lifetime of one session.
type Config struct {
	Mode         Mode
	Language     string
	EnablePolish bool
	Hotwords     []string
	Scene        map[string]any

	// VADEnabled mirrors the source-side gate; the controller uses it
	// only to decide whether preview ticks are worth attempting before
	// any speech has been heard.
	VADEnabled   bool
	VADThreshold float64

	MinSamples       int
	PreviewInterval  time.Duration
	PreviewWindow    time.Duration
	PeriodicInterval time.Duration
	PeriodicWindow   time.Duration
}

func (c Config) withDefaults() Config {
	if c.Mode == "" {
		c.Mode = ModeOneShot
	}
	c.VADThreshold = configutil.FloatValue(c.VADThreshold, audio.DefaultVADThreshold)
	c.MinSamples = configutil.IntValue(c.MinSamples, MinSamples)
	c.PreviewInterval = configutil.DurationValue(c.PreviewInterval, 500*time.Millisecond)
	c.PreviewWindow = configutil.DurationValue(c.PreviewWindow, 4*time.Second)
	c.PeriodicInterval = configutil.DurationValue(c.PeriodicInterval, 1500*time.Millisecond)
	c.PeriodicWindow = configutil.DurationValue(c.PeriodicWindow, 6*time.Second)
	return c
}

// CaptureSource is the slice of the audio source the controller
// drives; *audio.Source satisfies it.
type CaptureSource interface {
	Enable() error
	Disable() error
}

// Options carries the controller's collaborators. Engine is required;
// everything else has a working default.
type Options struct {
	Engine    engine.Transcriber
	Polisher  polish.Polisher
	Source    CaptureSource
	Scheduler scheduler.Scheduler
	Buffer    *buffer.StreamBuffer
	Observer  metrics.Observer
	Logger    *slog.Logger
}

type Controller struct {
	engine engine.Transcriber
	polish polish.Polisher
	source CaptureSource
	sched  scheduler.Scheduler
	buf    *buffer.StreamBuffer
	logger *slog.Logger
	obs    metrics.Observer

	mu         sync.Mutex
	state      State
	cfg        Config
	generation uint64
	sessionID  string
	task       scheduler.Task
	hasSpeech  bool

	inFlight atomic.Bool

	onResult func(frames.Result)
}

func New(opts Options) (*Controller, error) {
	if opts.Engine == nil {
		return nil, errors.New("session: engine is required")
	}
	if opts.Scheduler == nil {
		opts.Scheduler = scheduler.NewTicker()
	}
	if opts.Buffer == nil {
		opts.Buffer = buffer.New(frames.TargetSampleRate)
	}
	if opts.Observer == nil {
		opts.Observer = metrics.NoopObserver{}
	}
	return &Controller{
		engine: opts.Engine,
		polish: opts.Polisher,
		source: opts.Source,
		sched:  opts.Scheduler,
		buf:    opts.Buffer,
		logger: logging.NewComponentLogger(opts.Logger, "session"),
		obs:    opts.Observer,
		state:  StateIdle,
	}, nil
}

// OnResult registers the result consumer. Partial results arrive on a
// worker goroutine, the final result on the goroutine calling Stop;
// consumers needing a UI context hop there themselves.
func (c *Controller) OnResult(fn func(frames.Result)) { c.onResult = fn }

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Buffer exposes the rolling store for wiring the capture callback.
func (c *Controller) Buffer() *buffer.StreamBuffer { return c.buf }

// Start opens a session. Valid only from Idle: the buffer is cleared,
// the source enabled and the mode's repeating timer armed.
func (c *Controller) Start(cfg Config) error {
	cfg = cfg.withDefaults()

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return errorsx.Wrap(ErrSessionActive, errorsx.ReasonSessionState)
	}
	c.generation++
	gen := c.generation
	c.cfg = cfg
	c.sessionID = uuid.NewString()
	c.hasSpeech = false
	c.buf.Clear()

	if c.source != nil {
		if err := c.source.Enable(); err != nil {
			c.mu.Unlock()
			return errorsx.Wrap(err, errorsx.ReasonCaptureDevice)
		}
	}
	c.state = StateActive

	interval := cfg.PreviewInterval
	if cfg.Mode == ModeContinuous {
		interval = cfg.PeriodicInterval
	}
	c.task = c.sched.Every(interval, func() { c.tick(gen) })

	sessionID := c.sessionID
	c.mu.Unlock()

	c.obs.RecordEvent(metrics.Event{
		Name: metrics.EventSessionStart,
		Time: time.Now(),
		Tags: map[string]string{"mode": string(cfg.Mode), "session_id": sessionID},
	})
	c.logger.Info("session_started",
		"session_id", sessionID,
		"mode", string(cfg.Mode),
		"language", cfg.Language,
		"polish", cfg.EnablePolish)
	return nil
}

// Feed appends one normalized frame to the rolling buffer. Frames
// outside an Active or Draining session are rejected, never buffered.
func (c *Controller) Feed(frame frames.AudioFrame) error {
	c.mu.Lock()
	if c.state != StateActive && c.state != StateDraining {
		c.mu.Unlock()
		return errorsx.Wrap(ErrNotActive, errorsx.ReasonSessionState)
	}
	trackSpeech := c.cfg.VADEnabled && !c.hasSpeech
	threshold := c.cfg.VADThreshold
	c.mu.Unlock()

	c.buf.Append(frame)

	if trackSpeech && audio.RMS(frame.RawSamples()) >= threshold {
		c.mu.Lock()
		c.hasSpeech = true
		c.mu.Unlock()
	}
	return nil
}

// Stop drains the session and produces the final result. The timers
// are cancelled before the drain so no new tick can race the final
// window; a tick already in flight completes and its result is
// discarded by the generation check.
func (c *Controller) Stop(ctx context.Context) (frames.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return frames.Result{}, errorsx.Wrap(ErrNotActive, errorsx.ReasonSessionState)
	}
	c.state = StateDraining
	gen := c.generation
	c.generation++ // invalidates in-flight tick completions
	cfg := c.cfg
	task := c.task
	c.task = nil
	sessionID := c.sessionID
	c.mu.Unlock()

	if task != nil {
		task.Stop()
	}
	if c.source != nil {
		if err := c.source.Disable(); err != nil {
			c.logger.Warn("source_disable_failed", "error", err.Error())
		}
	}

	samples := c.buf.DrainAll()

	res := frames.Result{Kind: frames.KindFinal, Generation: gen}
	var retErr error
	if len(samples) < cfg.MinSamples {
		c.logger.Info("drain_below_minimum",
			"session_id", sessionID,
			"samples", len(samples),
			"min_samples", cfg.MinSamples)
	} else {
		text, err := c.engine.Transcribe(ctx, samples, c.buf.Rate())
		if err != nil {
			retErr = errorsx.Wrap(err, errorsx.ReasonEngineTranscribe)
			res.Err = retErr
			c.obs.RecordEvent(metrics.Event{
				Name: metrics.EventTranscribeError,
				Time: time.Now(),
				Tags: map[string]string{"session_id": sessionID, "engine": c.engine.Name()},
			})
			c.logger.Error("final_transcribe_failed",
				"session_id", sessionID,
				"error", err.Error())
		} else {
			res.Text = text
			res.Original = text
			if cfg.EnablePolish && c.polish != nil {
				polished, perr := c.polish.Polish(ctx, text)
				if perr != nil {
					c.logger.Warn("polish_failed",
						"session_id", sessionID,
						"error", perr.Error())
				} else {
					res.Text = polished
				}
			}
			c.obs.RecordEvent(metrics.Event{
				Name:  metrics.EventTranscribeFinal,
				Time:  time.Now(),
				Value: float64(len(samples)),
				Tags:  map[string]string{"session_id": sessionID, "engine": c.engine.Name()},
			})
		}
	}

	c.mu.Lock()
	c.state = StateIdle
	c.sessionID = ""
	c.mu.Unlock()

	c.obs.RecordEvent(metrics.Event{
		Name: metrics.EventSessionStop,
		Time: time.Now(),
		Tags: map[string]string{"session_id": sessionID},
	})
	c.logger.Info("session_stopped",
		"session_id", sessionID,
		"samples", len(samples),
		"text", redact.Snippet(res.Text, 80))

	if fn := c.onResult; fn != nil {
		fn(res)
	}
	return res, retErr
}

// Abort tears the session down after a fatal source failure: timers
// stop, nothing is drained, and the error surfaces as an empty final
// result. Recovery requires a device reselection before the next Start.
func (c *Controller) Abort(err error) {
	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		return
	}
	c.state = StateIdle
	gen := c.generation
	c.generation++
	task := c.task
	c.task = nil
	sessionID := c.sessionID
	c.sessionID = ""
	c.mu.Unlock()

	if task != nil {
		task.Stop()
	}
	if c.source != nil {
		_ = c.source.Disable()
	}
	c.buf.Clear()

	c.logger.Error("session_aborted",
		"session_id", sessionID,
		"reason_code", string(errorsx.Reason(err)),
		"error", err.Error())
	c.obs.RecordEvent(metrics.Event{
		Name: metrics.EventSessionStop,
		Time: time.Now(),
		Tags: map[string]string{"session_id": sessionID, "aborted": "true"},
	})

	if fn := c.onResult; fn != nil {
		fn(frames.Result{
			Kind:       frames.KindFinal,
			Generation: gen,
			Err:        errorsx.Wrap(err, errorsx.ReasonCaptureDevice),
		})
	}
}

// tick runs on the scheduler goroutine; the transcription itself is
// dispatched to a worker so overlapping ticks are prevented by the
// in-flight guard alone.
func (c *Controller) tick(gen uint64) {
	c.mu.Lock()
	if c.state != StateActive || c.generation != gen {
		c.mu.Unlock()
		return
	}
	cfg := c.cfg
	hasSpeech := c.hasSpeech
	sessionID := c.sessionID
	c.mu.Unlock()

	trigger := frames.TriggerPreview
	window := cfg.PreviewWindow
	eventName := metrics.EventPreviewTick
	if cfg.Mode == ModeContinuous {
		trigger = frames.TriggerPeriodic
		window = cfg.PeriodicWindow
		eventName = metrics.EventPeriodicTick
	}

	if cfg.VADEnabled && !hasSpeech {
		c.obs.RecordEvent(metrics.Event{
			Name: metrics.EventTickSkipped,
			Time: time.Now(),
			Tags: map[string]string{"session_id": sessionID, "reason": "no_speech"},
		})
		return
	}

	if !c.inFlight.CompareAndSwap(false, true) {
		c.obs.RecordEvent(metrics.Event{
			Name: metrics.EventTickSkipped,
			Time: time.Now(),
			Tags: map[string]string{"session_id": sessionID, "reason": "in_flight"},
		})
		return
	}

	samples := c.buf.Windowed(window)
	if len(samples) < cfg.MinSamples {
		c.inFlight.Store(false)
		return
	}

	c.obs.RecordEvent(metrics.Event{
		Name:  eventName,
		Time:  time.Now(),
		Value: float64(len(samples)),
		Tags:  map[string]string{"session_id": sessionID},
	})

	go func() {
		defer c.inFlight.Store(false)
		text, err := c.engine.Transcribe(context.Background(), samples, c.buf.Rate())
		if err != nil {
			c.obs.RecordEvent(metrics.Event{
				Name: metrics.EventTranscribeError,
				Time: time.Now(),
				Tags: map[string]string{"session_id": sessionID, "trigger": string(trigger)},
			})
			c.logger.Warn("tick_transcribe_failed",
				"session_id", sessionID,
				"trigger", string(trigger),
				"error", err.Error())
			return
		}
		c.deliverPartial(gen, frames.Result{
			Kind:       frames.KindPartial,
			Text:       text,
			Trigger:    trigger,
			Generation: gen,
		})
	}()
}

// deliverPartial drops completions from a stopped or superseded
// session.
func (c *Controller) deliverPartial(gen uint64, res frames.Result) {
	c.mu.Lock()
	stale := gen != c.generation || c.state != StateActive
	sessionID := c.sessionID
	c.mu.Unlock()
	if stale {
		c.obs.RecordEvent(metrics.Event{
			Name: metrics.EventStaleDiscard,
			Time: time.Now(),
			Tags: map[string]string{"session_id": sessionID, "trigger": string(res.Trigger)},
		})
		return
	}
	if fn := c.onResult; fn != nil {
		fn(res)
	}
}
