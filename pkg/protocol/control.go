// Package protocol defines the duplex wire format spoken with the
// transcription backend: JSON control envelopes discriminated by a
// "type" field, and tagged binary audio frames.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/vanch007/voiceflow-sub001/pkg/errorsx"
)

// MessageType discriminates control envelopes.
type MessageType string

// Client-to-server control messages.
const (
	TypeStart             MessageType = "start"
	TypeStop              MessageType = "stop"
	TypeConfig            MessageType = "config"
	TypeConfigLLM         MessageType = "config_llm"
	TypeTestLLM           MessageType = "test_llm_connection"
	TypeAnalyzeHistory    MessageType = "analyze_history"
	TypeGetDefaultPrompts MessageType = "get_default_prompts"
	TypeGetCustomPrompts  MessageType = "get_custom_prompts"
	TypeSaveCustomPrompt  MessageType = "save_custom_prompt"
)

// Server-to-client control messages.
const (
	TypePartial         MessageType = "partial"
	TypeFinal           MessageType = "final"
	TypePolishUpdate    MessageType = "polish_update"
	TypeConfigLLMAck    MessageType = "config_llm_ack"
	TypeTestLLMResult   MessageType = "test_llm_connection_result"
	TypeAnalysisResult  MessageType = "analysis_result"
	TypeDefaultPrompts  MessageType = "default_prompts"
	TypeCustomPrompts   MessageType = "custom_prompts"
	TypeSavePromptAck   MessageType = "save_custom_prompt_ack"
)

// StartMessage opens a recording session on the backend.
// enable_polish travels as the strings "true"/"false", a quirk of the
// backend's parser that is part of the compatibility surface.
type StartMessage struct {
	Type          MessageType    `json:"type"`
	EnablePolish  string         `json:"enable_polish"`
	UseLLMPolish  bool           `json:"use_llm_polish"`
	UseTimestamps bool           `json:"use_timestamps"`
	ModelID       string         `json:"model_id,omitempty"`
	Language      string         `json:"language,omitempty"`
	Scene         map[string]any `json:"scene,omitempty"`
	ActiveApp     map[string]any `json:"active_app,omitempty"`
	Hotwords      []string       `json:"hotwords,omitempty"`
}

func NewStart(language string, enablePolish bool, hotwords []string, scene map[string]any) StartMessage {
	polish := "false"
	if enablePolish {
		polish = "true"
	}
	return StartMessage{
		Type:         TypeStart,
		EnablePolish: polish,
		Language:     language,
		Hotwords:     hotwords,
		Scene:        scene,
	}
}

// StopMessage ends the recording session and requests the final result.
type StopMessage struct {
	Type MessageType `json:"type"`
}

func NewStop() StopMessage { return StopMessage{Type: TypeStop} }

// ConfigMessage carries backend-specific settings outside a session.
type ConfigMessage struct {
	Type     MessageType    `json:"type"`
	Settings map[string]any `json:"settings,omitempty"`
}

func NewConfig(settings map[string]any) ConfigMessage {
	return ConfigMessage{Type: TypeConfig, Settings: settings}
}

// SaveCustomPromptMessage stores or resets a per-scene polish prompt.
// A nil Prompt resets the scene to its default.
type SaveCustomPromptMessage struct {
	Type      MessageType `json:"type"`
	SceneType string      `json:"scene_type"`
	Prompt    *string     `json:"prompt"`
}

func NewSaveCustomPrompt(sceneType string, prompt *string) SaveCustomPromptMessage {
	return SaveCustomPromptMessage{Type: TypeSaveCustomPrompt, SceneType: sceneType, Prompt: prompt}
}

// ServerMessage is the decoded form of any backend envelope. Fields not
// present for a given type are zero.
type ServerMessage struct {
	Type         MessageType     `json:"type"`
	Text         string          `json:"text,omitempty"`
	OriginalText string          `json:"original_text,omitempty"`
	PolishMethod string          `json:"polish_method,omitempty"`
	Success      *bool           `json:"success,omitempty"`
	Error        string          `json:"error,omitempty"`
	LatencyMS    float64         `json:"latency_ms,omitempty"`
	SceneType    string          `json:"scene_type,omitempty"`
	Action       string          `json:"action,omitempty"`
	Prompts      json.RawMessage `json:"prompts,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
}

// DecodeServerMessage parses one inbound control envelope. An envelope
// without a type discriminator is a protocol error.
func DecodeServerMessage(data []byte) (ServerMessage, error) {
	var msg ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ServerMessage{}, errorsx.Wrap(fmt.Errorf("decode control message: %w", err), errorsx.ReasonProtocolDecode)
	}
	if msg.Type == "" {
		return ServerMessage{}, errorsx.Wrap(fmt.Errorf("control message missing type"), errorsx.ReasonProtocolDecode)
	}
	return msg, nil
}
