package audio

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderDeviceDeliversWholeStream(t *testing.T) {
	// 2.5 blocks of int16 mono at 16 kHz with 100 ms blocks.
	raw := make([]byte, 4000*2)
	dev := NewReaderDevice("pcm", bytes.NewReader(raw), ReaderDeviceConfig{
		SampleRate: 16000,
		Format:     FormatInt16,
	})

	var mu sync.Mutex
	var frames int
	require.NoError(t, dev.Start(func(b Block) {
		mu.Lock()
		frames += b.frameCount()
		mu.Unlock()
	}, func(err error) {
		t.Errorf("unexpected failure: %v", err)
	}))

	select {
	case <-dev.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("device never finished")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 4000, frames)
}

func TestReaderDeviceStop(t *testing.T) {
	// An endless zero reader; Stop must end the pump.
	dev := NewReaderDevice("pcm", zeroReader{}, ReaderDeviceConfig{
		SampleRate: 16000,
		Format:     FormatFloat32,
		Realtime:   true,
	})

	require.NoError(t, dev.Start(func(Block) {}, func(error) {}))
	require.NoError(t, dev.Stop())

	select {
	case <-dev.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("device did not stop")
	}
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}
