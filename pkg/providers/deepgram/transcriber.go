// Package deepgram implements the engine contract on top of the
// Deepgram live transcription API. Each call opens a short-lived
// streaming connection, pushes the utterance as linear16 PCM and
// collects the final transcripts.
package deepgram

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"

	"github.com/vanch007/voiceflow-sub001/pkg/errorsx"
	"github.com/vanch007/voiceflow-sub001/pkg/logging"
)

type Config struct {
	APIKey   string
	Model    string
	Language string
	// FinalizeTimeout caps how long to wait for the service to flush
	// trailing results after the audio has been sent.
	FinalizeTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = "nova-2"
	}
	if c.FinalizeTimeout <= 0 {
		c.FinalizeTimeout = 10 * time.Second
	}
	return c
}

type Transcriber struct {
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config) *Transcriber {
	return &Transcriber{
		cfg:    cfg.withDefaults(),
		logger: logging.NewComponentLogger(nil, "deepgram"),
	}
}

func (t *Transcriber) Name() string { return "deepgram" }

func (t *Transcriber) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	col := newCollector()

	clientOptions := &interfaces.ClientOptions{}
	transcriptOptions := &interfaces.LiveTranscriptionOptions{
		Model:      t.cfg.Model,
		Language:   t.cfg.Language,
		Encoding:   "linear16",
		SampleRate: sampleRate,
		Channels:   1,
	}

	dgClient, err := client.NewWSUsingCallback(ctx, t.cfg.APIKey, clientOptions, transcriptOptions, col)
	if err != nil {
		return "", errorsx.Wrap(err, errorsx.ReasonEngineTranscribe)
	}
	if connected := dgClient.Connect(); !connected {
		return "", errorsx.Wrap(errors.New("deepgram connection failed"), errorsx.ReasonEngineTranscribe)
	}

	pipeReader, pipeWriter := io.Pipe()
	go func() {
		if streamErr := dgClient.Stream(pipeReader); streamErr != nil && ctx.Err() == nil {
			t.logger.Error("deepgram_stream_error", "error", streamErr.Error())
		}
	}()

	if _, err := pipeWriter.Write(pcm16Bytes(samples)); err != nil {
		dgClient.Stop()
		return "", errorsx.Wrap(err, errorsx.ReasonEngineTranscribe)
	}
	_ = pipeWriter.Close()
	dgClient.Stop()

	select {
	case <-col.done:
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(t.cfg.FinalizeTimeout):
		t.logger.Warn("deepgram_finalize_timeout",
			"partial_text", col.text())
	}
	if err := col.failure(); err != nil {
		return "", errorsx.Wrap(err, errorsx.ReasonEngineTranscribe)
	}
	return col.text(), nil
}

// pcm16Bytes converts float32 samples to little-endian linear16.
func pcm16Bytes(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(s*math.MaxInt16)))
	}
	return out
}

// collector implements the SDK callback contract and accumulates final
// transcript segments until the connection closes.
type collector struct {
	mu    sync.Mutex
	parts []string
	err   error
	done  chan struct{}
	once  sync.Once
}

func newCollector() *collector {
	return &collector{done: make(chan struct{})}
}

func (c *collector) text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.TrimSpace(strings.Join(c.parts, " "))
}

func (c *collector) failure() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *collector) finish() {
	c.once.Do(func() { close(c.done) })
}

func (c *collector) Open(or *msginterfaces.OpenResponse) error { return nil }

func (c *collector) Message(mr *msginterfaces.MessageResponse) error {
	if len(mr.Channel.Alternatives) == 0 {
		return nil
	}
	transcript := mr.Channel.Alternatives[0].Transcript
	if transcript == "" || !(mr.IsFinal || mr.SpeechFinal) {
		return nil
	}
	c.mu.Lock()
	c.parts = append(c.parts, transcript)
	c.mu.Unlock()
	return nil
}

func (c *collector) Metadata(md *msginterfaces.MetadataResponse) error { return nil }

func (c *collector) SpeechStarted(ssr *msginterfaces.SpeechStartedResponse) error { return nil }

func (c *collector) UtteranceEnd(ur *msginterfaces.UtteranceEndResponse) error { return nil }

func (c *collector) Close(cr *msginterfaces.CloseResponse) error {
	c.finish()
	return nil
}

func (c *collector) Error(er *msginterfaces.ErrorResponse) error {
	c.mu.Lock()
	if c.err == nil {
		c.err = errors.New(er.ErrCode + ": " + er.ErrMsg)
	}
	c.mu.Unlock()
	c.finish()
	return nil
}

func (c *collector) UnhandledEvent(byData []byte) error { return nil }
