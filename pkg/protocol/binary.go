package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// FrameFormat is the one-byte tag that prefixes every binary audio
// frame. The values are a compatibility surface: renumbering them
// requires a protocol version bump.
type FrameFormat byte

const (
	// FrameFloat32LE carries raw Float32 little-endian samples.
	FrameFloat32LE FrameFormat = 0x01
	// FrameInt16LE carries Int16 little-endian samples scaled by
	// 32767, halving the transport bandwidth.
	FrameInt16LE FrameFormat = 0x02
)

var (
	// ErrUnknownFrameTag rejects frames with a tag this decoder does
	// not speak. Decoding is exhaustive on the tag: there is no
	// permissive untagged fallback.
	ErrUnknownFrameTag = errors.New("unknown audio frame tag")

	// ErrShortFrame rejects frames too small to carry a tag and at
	// least one sample.
	ErrShortFrame = errors.New("audio frame too short")

	// ErrFramePayload rejects payloads whose length is not a multiple
	// of the sample size.
	ErrFramePayload = errors.New("audio frame payload misaligned")
)

// EncodeAudioFrame prefixes the samples with the format tag. Int16
// frames clamp to [-1, 1] before scaling.
func EncodeAudioFrame(samples []float32, format FrameFormat) ([]byte, error) {
	switch format {
	case FrameFloat32LE:
		out := make([]byte, 1+len(samples)*4)
		out[0] = byte(FrameFloat32LE)
		for i, s := range samples {
			binary.LittleEndian.PutUint32(out[1+i*4:], math.Float32bits(s))
		}
		return out, nil
	case FrameInt16LE:
		out := make([]byte, 1+len(samples)*2)
		out[0] = byte(FrameInt16LE)
		for i, s := range samples {
			v := s
			if v > 1 {
				v = 1
			} else if v < -1 {
				v = -1
			}
			binary.LittleEndian.PutUint16(out[1+i*2:], uint16(int16(v*32767)))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownFrameTag, byte(format))
	}
}

// DecodeAudioFrame parses a tagged binary frame back into Float32
// samples. Unknown tags are a hard error.
func DecodeAudioFrame(data []byte) ([]float32, FrameFormat, error) {
	if len(data) < 2 {
		return nil, 0, ErrShortFrame
	}
	tag := FrameFormat(data[0])
	payload := data[1:]
	switch tag {
	case FrameFloat32LE:
		if len(payload)%4 != 0 {
			return nil, tag, fmt.Errorf("%w: float32 payload of %d bytes", ErrFramePayload, len(payload))
		}
		samples := make([]float32, len(payload)/4)
		for i := range samples {
			samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
		}
		return samples, tag, nil
	case FrameInt16LE:
		if len(payload)%2 != 0 {
			return nil, tag, fmt.Errorf("%w: int16 payload of %d bytes", ErrFramePayload, len(payload))
		}
		samples := make([]float32, len(payload)/2)
		for i := range samples {
			v := int16(binary.LittleEndian.Uint16(payload[i*2:]))
			samples[i] = float32(v) / 32767.0
		}
		return samples, tag, nil
	default:
		return nil, tag, fmt.Errorf("%w: 0x%02x", ErrUnknownFrameTag, byte(tag))
	}
}
