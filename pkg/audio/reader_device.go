package audio

import (
	"io"
	"sync"
	"time"
)

// ReaderDeviceConfig describes the raw PCM carried by the reader.
type ReaderDeviceConfig struct {
	SampleRate  int
	Channels    int
	Format      SampleFormat
	BlockFrames int
	// Realtime paces delivery at the stream's natural rate, matching a
	// live microphone; off, the reader is drained as fast as possible.
	Realtime bool
}

func (c ReaderDeviceConfig) withDefaults() ReaderDeviceConfig {
	if c.SampleRate <= 0 {
		c.SampleRate = 16000
	}
	if c.Channels <= 0 {
		c.Channels = 1
	}
	if c.BlockFrames <= 0 {
		c.BlockFrames = c.SampleRate / 10 // 100 ms blocks
	}
	return c
}

// ReaderDevice adapts any PCM byte stream (a file, stdin, a pipe) to
// the capture-device contract. The stream ends the device: after EOF no
// further blocks are delivered and Done is closed.
type ReaderDevice struct {
	name string
	r    io.Reader
	cfg  ReaderDeviceConfig

	mu       sync.Mutex
	running  bool
	stop     chan struct{}
	done     chan struct{}
	doneOnce sync.Once
}

func NewReaderDevice(name string, r io.Reader, cfg ReaderDeviceConfig) *ReaderDevice {
	return &ReaderDevice{
		name: name,
		r:    r,
		cfg:  cfg.withDefaults(),
		done: make(chan struct{}),
	}
}

func (d *ReaderDevice) Name() string { return d.name }

// Done is closed once the underlying stream is exhausted or the device
// stopped; callers use it to end the session after a file has played
// out.
func (d *ReaderDevice) Done() <-chan struct{} { return d.done }

func (d *ReaderDevice) Start(deliver func(Block), fail func(error)) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = true
	d.stop = make(chan struct{})
	stop := d.stop
	d.mu.Unlock()

	go d.pump(stop, deliver, fail)
	return nil
}

func (d *ReaderDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return nil
	}
	d.running = false
	close(d.stop)
	return nil
}

func (d *ReaderDevice) pump(stop chan struct{}, deliver func(Block), fail func(error)) {
	defer d.finish()

	blockBytes := d.cfg.BlockFrames * d.cfg.Channels * d.cfg.Format.bytesPerSample()
	blockDur := time.Duration(d.cfg.BlockFrames) * time.Second / time.Duration(d.cfg.SampleRate)
	layout := Layout{
		SampleRate:  d.cfg.SampleRate,
		Channels:    d.cfg.Channels,
		Format:      d.cfg.Format,
		Interleaved: true,
	}

	for {
		select {
		case <-stop:
			return
		default:
		}

		buf := make([]byte, blockBytes)
		n, err := io.ReadFull(d.r, buf)
		if n > 0 {
			// Trim a short tail read to whole frames.
			frameBytes := d.cfg.Channels * d.cfg.Format.bytesPerSample()
			n -= n % frameBytes
			if n > 0 {
				deliver(Block{
					Planes:    [][]byte{buf[:n]},
					Layout:    layout,
					Timestamp: time.Now(),
				})
			}
		}
		if err != nil {
			if err != io.EOF && err != io.ErrUnexpectedEOF {
				fail(err)
			}
			return
		}

		if d.cfg.Realtime {
			select {
			case <-stop:
				return
			case <-time.After(blockDur):
			}
		}
	}
}

func (d *ReaderDevice) finish() {
	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
	d.doneOnce.Do(func() { close(d.done) })
}
