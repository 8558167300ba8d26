package remote

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanch007/voiceflow-sub001/pkg/protocol"
)

type fakeSender struct {
	mu       sync.Mutex
	controls []any
	audio    [][]float32
	handler  func(protocol.ServerMessage)
	// final, when set, is pushed back right after the stop message.
	final *protocol.ServerMessage
}

func (f *fakeSender) SendControl(msg any) error {
	f.mu.Lock()
	f.controls = append(f.controls, msg)
	final := f.final
	handler := f.handler
	f.mu.Unlock()
	if _, isStop := msg.(protocol.StopMessage); isStop && final != nil && handler != nil {
		go handler(*final)
	}
	return nil
}

func (f *fakeSender) SendAudio(samples []float32, format protocol.FrameFormat) error {
	f.mu.Lock()
	buf := make([]float32, len(samples))
	copy(buf, samples)
	f.audio = append(f.audio, buf)
	f.mu.Unlock()
	return nil
}

func (f *fakeSender) OnMessage(fn func(protocol.ServerMessage)) {
	f.mu.Lock()
	f.handler = fn
	f.mu.Unlock()
}

func TestTranscribeRoundTrip(t *testing.T) {
	sender := &fakeSender{
		final: &protocol.ServerMessage{Type: protocol.TypeFinal, Text: "hello world"},
	}
	eng := New(sender, Config{Language: "en", EnablePolish: true})

	text, err := eng.Transcribe(context.Background(), []float32{0.1, 0.2, 0.3}, 16000)
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)

	sender.mu.Lock()
	defer sender.mu.Unlock()
	require.Len(t, sender.controls, 2)
	start, ok := sender.controls[0].(protocol.StartMessage)
	require.True(t, ok)
	assert.Equal(t, protocol.TypeStart, start.Type)
	assert.Equal(t, "true", start.EnablePolish)
	assert.Equal(t, "en", start.Language)
	_, ok = sender.controls[1].(protocol.StopMessage)
	assert.True(t, ok)
	require.Len(t, sender.audio, 1)
	assert.Len(t, sender.audio[0], 3)
}

func TestTranscribeBackendError(t *testing.T) {
	sender := &fakeSender{
		final: &protocol.ServerMessage{Type: protocol.TypeFinal, Error: "model not loaded"},
	}
	eng := New(sender, Config{})

	_, err := eng.Transcribe(context.Background(), []float32{0}, 16000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestTranscribeTimesOutWithoutFinal(t *testing.T) {
	sender := &fakeSender{} // never answers
	eng := New(sender, Config{ResultTimeout: 10 * time.Millisecond})

	_, err := eng.Transcribe(context.Background(), []float32{0}, 16000)
	require.Error(t, err)
}

func TestPartialsReachListener(t *testing.T) {
	sender := &fakeSender{
		final: &protocol.ServerMessage{Type: protocol.TypeFinal, Text: "done"},
	}
	eng := New(sender, Config{})

	var mu sync.Mutex
	var partials []string
	eng.OnPartial(func(text string) {
		mu.Lock()
		partials = append(partials, text)
		mu.Unlock()
	})

	sender.handler(protocol.ServerMessage{Type: protocol.TypePartial, Text: "do"})

	text, err := eng.Transcribe(context.Background(), []float32{0}, 16000)
	require.NoError(t, err)
	assert.Equal(t, "done", text)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"do"}, partials)
}
