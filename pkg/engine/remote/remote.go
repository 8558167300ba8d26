// Package remote implements the engine contract against the duplex
// protocol backend: each utterance becomes a start/audio/stop exchange
// and resolves when the backend returns its final envelope.
package remote

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/vanch007/voiceflow-sub001/pkg/errorsx"
	"github.com/vanch007/voiceflow-sub001/pkg/logging"
	"github.com/vanch007/voiceflow-sub001/pkg/protocol"
	"github.com/vanch007/voiceflow-sub001/pkg/transport"
)

// Sender is the transport surface the engine needs; *transport.Client
// satisfies it.
type Sender interface {
	SendControl(msg any) error
	SendAudio(samples []float32, format protocol.FrameFormat) error
	OnMessage(fn func(protocol.ServerMessage))
}

var _ Sender = (*transport.Client)(nil)

type Config struct {
	Language     string
	EnablePolish bool
	Hotwords     []string
	Scene        map[string]any

	// Frame selects the binary audio encoding; float32 keeps full
	// precision, int16 halves bandwidth.
	Frame protocol.FrameFormat

	// ResultTimeout bounds the wait for the final envelope after stop.
	ResultTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Frame == 0 {
		c.Frame = protocol.FrameFloat32LE
	}
	if c.ResultTimeout <= 0 {
		c.ResultTimeout = 15 * time.Second
	}
	return c
}

type finalResult struct {
	text string
	err  error
}

// Engine serializes utterances over one shared control channel.
type Engine struct {
	sender Sender
	cfg    Config
	logger *slog.Logger

	mu sync.Mutex

	pendingMu sync.Mutex
	pending   chan finalResult

	onPartial func(text string)
}

func New(sender Sender, cfg Config) *Engine {
	e := &Engine{
		sender: sender,
		cfg:    cfg.withDefaults(),
		logger: logging.NewComponentLogger(nil, "remote_engine"),
	}
	sender.OnMessage(e.handleMessage)
	return e
}

func (e *Engine) Name() string { return "remote" }

// OnPartial registers the consumer for interim hypotheses the backend
// pushes while an utterance is in flight.
func (e *Engine) OnPartial(fn func(text string)) { e.onPartial = fn }

func (e *Engine) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	// One utterance at a time: the backend correlates start/stop pairs
	// by arrival order, so interleaving would cross results.
	e.mu.Lock()
	defer e.mu.Unlock()

	pending := make(chan finalResult, 1)
	e.setPending(pending)
	defer e.setPending(nil)

	start := protocol.NewStart(e.cfg.Language, e.cfg.EnablePolish, e.cfg.Hotwords, e.cfg.Scene)
	if err := e.sender.SendControl(start); err != nil {
		return "", err
	}
	if err := e.sender.SendAudio(samples, e.cfg.Frame); err != nil {
		return "", err
	}
	if err := e.sender.SendControl(protocol.NewStop()); err != nil {
		return "", err
	}

	select {
	case res := <-pending:
		return res.text, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(e.cfg.ResultTimeout):
		return "", errorsx.Wrap(errors.New("backend final result timed out"), errorsx.ReasonEngineTranscribe)
	}
}

func (e *Engine) setPending(ch chan finalResult) {
	// Callers hold e.mu; the message handler runs on the transport read
	// goroutine, so the slot itself needs its own guard.
	e.pendingMu.Lock()
	e.pending = ch
	e.pendingMu.Unlock()
}

func (e *Engine) currentPending() chan finalResult {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	return e.pending
}

func (e *Engine) handleMessage(msg protocol.ServerMessage) {
	switch msg.Type {
	case protocol.TypePartial:
		if fn := e.onPartial; fn != nil {
			fn(msg.Text)
		}
	case protocol.TypeFinal:
		pending := e.currentPending()
		if pending == nil {
			e.logger.Warn("unexpected_final_result", "text_len", len(msg.Text))
			return
		}
		res := finalResult{text: msg.Text}
		if msg.Error != "" {
			res.err = errorsx.Wrap(errors.New(msg.Error), errorsx.ReasonEngineTranscribe)
		}
		select {
		case pending <- res:
		default:
		}
	case protocol.TypePolishUpdate:
		// Late polish revisions arrive after the final; surfaced as a
		// partial so listeners can refresh displayed text.
		if fn := e.onPartial; fn != nil && msg.Text != "" {
			fn(msg.Text)
		}
	}
}
