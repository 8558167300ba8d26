package audio

import (
	"fmt"
	"time"
)

// SampleFormat identifies the bit depth of raw capture samples.
type SampleFormat int

const (
	FormatFloat32 SampleFormat = iota
	FormatInt16
	FormatInt32
)

func (f SampleFormat) String() string {
	switch f {
	case FormatFloat32:
		return "float32"
	case FormatInt16:
		return "int16"
	case FormatInt32:
		return "int32"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

func (f SampleFormat) bytesPerSample() int {
	switch f {
	case FormatInt16:
		return 2
	case FormatFloat32, FormatInt32:
		return 4
	default:
		return 0
	}
}

// Layout describes how one raw capture block is laid out in memory.
// Capture devices report it per block; nothing upstream of the
// normalizer assumes a fixed device format.
type Layout struct {
	SampleRate  int
	Channels    int
	Format      SampleFormat
	Interleaved bool
}

// Block is one raw capture block. Interleaved blocks carry a single
// plane with channels woven together; planar blocks carry one plane per
// channel.
type Block struct {
	Planes    [][]byte
	Layout    Layout
	Timestamp time.Time
}

// validate rejects layouts the normalizer cannot interpret. A failed
// validation drops the block, it never stops capture.
func (b Block) validate() error {
	l := b.Layout
	if l.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrFormat, l.SampleRate)
	}
	if l.Channels <= 0 {
		return fmt.Errorf("%w: channel count %d", ErrFormat, l.Channels)
	}
	bps := l.Format.bytesPerSample()
	if bps == 0 {
		return fmt.Errorf("%w: unrecognized sample format %s", ErrFormat, l.Format)
	}
	if len(b.Planes) == 0 {
		return fmt.Errorf("%w: no planes", ErrFormat)
	}
	if l.Interleaved {
		if len(b.Planes) != 1 {
			return fmt.Errorf("%w: interleaved block with %d planes", ErrFormat, len(b.Planes))
		}
		if len(b.Planes[0])%(bps*l.Channels) != 0 {
			return fmt.Errorf("%w: interleaved plane not a multiple of the frame size", ErrFormat)
		}
		return nil
	}
	if len(b.Planes) < l.Channels {
		return fmt.Errorf("%w: planar block with %d planes for %d channels", ErrFormat, len(b.Planes), l.Channels)
	}
	if len(b.Planes[0])%bps != 0 {
		return fmt.Errorf("%w: plane not a multiple of the sample size", ErrFormat)
	}
	return nil
}

// frameCount returns the number of per-channel sample frames in the block.
func (b Block) frameCount() int {
	bps := b.Layout.Format.bytesPerSample()
	if bps == 0 || len(b.Planes) == 0 {
		return 0
	}
	if b.Layout.Interleaved {
		return len(b.Planes[0]) / (bps * b.Layout.Channels)
	}
	return len(b.Planes[0]) / bps
}
