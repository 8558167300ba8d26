package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartMessageWireShape(t *testing.T) {
	msg := NewStart("zh", true, []string{"VoiceFlow"}, map[string]any{"type": "chat"})
	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "start", decoded["type"])
	// The flag is a string on the wire, not a bool.
	assert.Equal(t, "true", decoded["enable_polish"])
	assert.Equal(t, "zh", decoded["language"])
}

func TestDecodeServerMessageFinal(t *testing.T) {
	raw := []byte(`{"type":"final","text":"hello there","original_text":"hello there","polish_method":"rules"}`)
	msg, err := DecodeServerMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, TypeFinal, msg.Type)
	assert.Equal(t, "hello there", msg.Text)
	assert.Equal(t, "rules", msg.PolishMethod)
}

func TestDecodeServerMessageMissingType(t *testing.T) {
	_, err := DecodeServerMessage([]byte(`{"text":"x"}`))
	assert.Error(t, err)
}

func TestDecodeServerMessageBadJSON(t *testing.T) {
	_, err := DecodeServerMessage([]byte(`{`))
	assert.Error(t, err)
}

func TestConfigMessageWireShape(t *testing.T) {
	raw, err := json.Marshal(NewConfig(map[string]any{"model_id": "large-v3"}))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "config", decoded["type"])
	settings, ok := decoded["settings"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "large-v3", settings["model_id"])
}

func TestSaveCustomPromptWireShape(t *testing.T) {
	prompt := "only fix typos"
	raw, err := json.Marshal(NewSaveCustomPrompt("coding", &prompt))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "save_custom_prompt", decoded["type"])
	assert.Equal(t, "coding", decoded["scene_type"])
	assert.Equal(t, "only fix typos", decoded["prompt"])

	// A nil prompt resets the scene; the key must still be present.
	raw, err = json.Marshal(NewSaveCustomPrompt("coding", nil))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &decoded))
	val, present := decoded["prompt"]
	assert.True(t, present)
	assert.Nil(t, val)
}

func TestDecodeSavePromptAck(t *testing.T) {
	raw := []byte(`{"type":"save_custom_prompt_ack","success":true,"scene_type":"coding"}`)
	msg, err := DecodeServerMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, TypeSavePromptAck, msg.Type)
	require.NotNil(t, msg.Success)
	assert.True(t, *msg.Success)
	assert.Equal(t, "coding", msg.SceneType)
}

func TestFloat32FrameRoundTrip(t *testing.T) {
	in := []float32{0, 0.25, -0.5, 1, -1}
	raw, err := EncodeAudioFrame(in, FrameFloat32LE)
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), raw[0])

	out, tag, err := DecodeAudioFrame(raw)
	require.NoError(t, err)
	assert.Equal(t, FrameFloat32LE, tag)
	assert.Equal(t, in, out)
}

func TestInt16FrameRoundTripWithinTolerance(t *testing.T) {
	in := []float32{0, 0.25, -0.5, 0.99}
	raw, err := EncodeAudioFrame(in, FrameInt16LE)
	require.NoError(t, err)
	assert.Equal(t, byte(0x02), raw[0])
	assert.Len(t, raw, 1+len(in)*2)

	out, tag, err := DecodeAudioFrame(raw)
	require.NoError(t, err)
	assert.Equal(t, FrameInt16LE, tag)
	require.Len(t, out, len(in))
	for i := range in {
		assert.InDelta(t, in[i], out[i], 1.0/32767)
	}
}

func TestInt16EncodeClamps(t *testing.T) {
	raw, err := EncodeAudioFrame([]float32{2.0, -2.0}, FrameInt16LE)
	require.NoError(t, err)
	out, _, err := DecodeAudioFrame(raw)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, out[0], 1e-4)
	assert.InDelta(t, -1.0, out[1], 1e-4)
}

func TestDecodeUnknownTagErrors(t *testing.T) {
	_, _, err := DecodeAudioFrame([]byte{0x7f, 0, 0, 0, 0})
	assert.ErrorIs(t, err, ErrUnknownFrameTag)
}

func TestDecodeShortFrameErrors(t *testing.T) {
	_, _, err := DecodeAudioFrame([]byte{0x01})
	assert.ErrorIs(t, err, ErrShortFrame)
}

func TestDecodeMisalignedPayloadErrors(t *testing.T) {
	_, _, err := DecodeAudioFrame([]byte{0x01, 1, 2, 3})
	assert.ErrorIs(t, err, ErrFramePayload)
}

func TestEncodeUnknownTagErrors(t *testing.T) {
	_, err := EncodeAudioFrame([]float32{0}, FrameFormat(0x09))
	assert.ErrorIs(t, err, ErrUnknownFrameTag)
}
