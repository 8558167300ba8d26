package audio

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanch007/voiceflow-sub001/pkg/frames"
)

// fakeDevice lets tests push blocks and failures by hand.
type fakeDevice struct {
	mu      sync.Mutex
	deliver func(Block)
	fail    func(error)
	started bool
	stopped bool
}

func (d *fakeDevice) Name() string { return "fake" }

func (d *fakeDevice) Start(deliver func(Block), fail func(error)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deliver = deliver
	d.fail = fail
	d.started = true
	return nil
}

func (d *fakeDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	return nil
}

func (d *fakeDevice) push(b Block) {
	d.mu.Lock()
	deliver := d.deliver
	d.mu.Unlock()
	if deliver != nil {
		deliver(b)
	}
}

func (d *fakeDevice) failWith(err error) {
	d.mu.Lock()
	fail := d.fail
	d.mu.Unlock()
	if fail != nil {
		fail(err)
	}
}

func constBlock(value float32, n int) Block {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = value
	}
	return Block{
		Planes:    [][]byte{f32Bytes(samples)},
		Layout:    Layout{SampleRate: 16000, Channels: 1, Format: FormatFloat32, Interleaved: true},
		Timestamp: time.Now(),
	}
}

func TestSourceEmitsFramesAndVolume(t *testing.T) {
	dev := &fakeDevice{}
	src := NewSource(dev, SourceConfig{})

	var gotFrames []frames.AudioFrame
	var gotVolumes []frames.VolumeUpdate
	src.OnFrame(func(f frames.AudioFrame) { gotFrames = append(gotFrames, f) })
	src.OnVolume(func(v frames.VolumeUpdate) { gotVolumes = append(gotVolumes, v) })

	require.NoError(t, src.Enable())
	dev.push(constBlock(0.2, 1600))

	require.Len(t, gotFrames, 1)
	assert.Equal(t, 1600, gotFrames[0].Len())
	assert.Equal(t, frames.TargetSampleRate, gotFrames[0].Rate())
	require.Len(t, gotVolumes, 1)
	assert.InDelta(t, 0.2, gotVolumes[0].RMS, 1e-6)
}

func TestVADGateSuppressesFramesNotVolume(t *testing.T) {
	dev := &fakeDevice{}
	src := NewSource(dev, SourceConfig{VADEnabled: true, VADThreshold: 0.05})

	var frameCount, volumeCount int
	src.OnFrame(func(frames.AudioFrame) { frameCount++ })
	src.OnVolume(func(frames.VolumeUpdate) { volumeCount++ })

	require.NoError(t, src.Enable())
	dev.push(constBlock(0.01, 1600)) // below threshold
	dev.push(constBlock(0.2, 1600))  // above threshold

	assert.Equal(t, 1, frameCount, "silent block must not reach the transcription path")
	assert.Equal(t, 2, volumeCount, "volume cadence is independent of VAD decisions")
}

func TestMalformedBlockDroppedCaptureContinues(t *testing.T) {
	dev := &fakeDevice{}
	src := NewSource(dev, SourceConfig{})

	var frameCount int
	src.OnFrame(func(frames.AudioFrame) { frameCount++ })

	require.NoError(t, src.Enable())
	dev.push(Block{
		Planes: [][]byte{make([]byte, 10)},
		Layout: Layout{SampleRate: 16000, Channels: 1, Format: SampleFormat(42), Interleaved: true},
	})
	dev.push(constBlock(0.2, 1600))

	assert.Equal(t, 1, frameCount)
}

func TestDeviceLossIsFatal(t *testing.T) {
	dev := &fakeDevice{}
	src := NewSource(dev, SourceConfig{})

	var frameCount int
	var gotErr error
	src.OnFrame(func(frames.AudioFrame) { frameCount++ })
	src.OnError(func(err error) { gotErr = err })

	require.NoError(t, src.Enable())
	dev.failWith(ErrDeviceUnavailable)

	require.ErrorIs(t, gotErr, ErrDeviceUnavailable)

	// Source stopped emitting: late blocks from the dying device are ignored.
	dev.push(constBlock(0.2, 1600))
	assert.Zero(t, frameCount)
}

func TestRebuildRequiresDisabled(t *testing.T) {
	dev := &fakeDevice{}
	src := NewSource(dev, SourceConfig{})
	require.NoError(t, src.Enable())

	assert.ErrorIs(t, src.Rebuild(&fakeDevice{}), ErrSourceEnabled)

	require.NoError(t, src.Disable())
	assert.True(t, dev.stopped)
	assert.NoError(t, src.Rebuild(&fakeDevice{}))
}
