package voiceflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanch007/voiceflow-sub001/pkg/metrics"
	"github.com/vanch007/voiceflow-sub001/pkg/protocol"
	"github.com/vanch007/voiceflow-sub001/pkg/session"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, "engine:\n  provider: mock\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "mock", cfg.Engine.Provider)
	assert.Equal(t, "oneShot", cfg.Session.Mode)
	assert.Equal(t, 8000, cfg.Session.MinSamples)
	assert.Equal(t, 500, cfg.Session.PreviewIntervalMS)
	assert.Equal(t, 1500, cfg.Session.PeriodicIntervalMS)
	assert.Equal(t, "ws://localhost:9876", cfg.Transport.URL)
	assert.Equal(t, 3000, cfg.Transport.InitialBackoffMS)
	assert.Equal(t, 30000, cfg.Transport.MaxBackoffMS)
	assert.True(t, cfg.Privacy.RedactPII)
	assert.False(t, cfg.Session.VADEnabled)
}

func TestLoadConfigRejectsUnknownProvider(t *testing.T) {
	path := writeConfig(t, "engine:\n  provider: whisperx\n")

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown engine provider")
}

func TestLoadConfigRejectsUnknownMode(t *testing.T) {
	path := writeConfig(t, "session:\n  mode: batch\n")

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestSessionConfigMapping(t *testing.T) {
	path := writeConfig(t, `
session:
  mode: continuous
  language: zh
  enable_polish: true
  hotwords: ["kafka", "viper"]
  periodic_window_ms: 5000
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	sc := cfg.SessionConfig()
	assert.Equal(t, session.ModeContinuous, sc.Mode)
	assert.Equal(t, "zh", sc.Language)
	assert.Equal(t, []string{"kafka", "viper"}, sc.Hotwords)
	assert.Equal(t, 5000, int(sc.PeriodicWindow.Milliseconds()))
}

func TestBuildEngineMock(t *testing.T) {
	cfg := Config{Engine: EngineConfig{
		Provider: "mock",
		Settings: map[string]any{"transcript": "fixed"},
	}}

	eng, err := BuildEngine(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "mock", eng.Name())
}

func TestBuildEngineRemoteRequiresTransport(t *testing.T) {
	cfg := Config{Engine: EngineConfig{Provider: "remote"}}

	_, err := BuildEngine(cfg, nil)
	require.Error(t, err)
}

func TestBuildEngineDeepgramRequiresAPIKey(t *testing.T) {
	cfg := Config{Engine: EngineConfig{Provider: "deepgram"}}

	_, err := BuildEngine(cfg, nil)
	require.Error(t, err)
}

func TestFrameFormatSelection(t *testing.T) {
	cfg := Config{Transport: TransportConfig{Frame: "int16"}}
	assert.Equal(t, protocol.FrameInt16LE, frameFormat(cfg))

	cfg.Transport.Frame = "float32"
	assert.Equal(t, protocol.FrameFloat32LE, frameFormat(cfg))
}

func TestBuildPolisher(t *testing.T) {
	obs := metrics.NoopObserver{}
	assert.Nil(t, BuildPolisher(Config{}, obs))

	p := BuildPolisher(Config{Polish: PolishConfig{Rules: true}}, obs)
	require.NotNil(t, p)
	assert.Equal(t, "rules", p.Name())

	llmCfg := Config{Polish: PolishConfig{
		Rules: true,
		LLM:   PolishLLMConfig{Enabled: true, APIKey: "sk-test", Scene: "coding"},
	}}
	p = BuildPolisher(llmCfg, obs)
	require.NotNil(t, p)
	assert.Equal(t, "llm", p.Name())
}

func TestLLMPolishConfigRequiresKeyOrBaseURL(t *testing.T) {
	path := writeConfig(t, `
polish:
  llm:
    enabled: true
`)
	_, err := LoadConfig(path)
	require.Error(t, err)

	path = writeConfig(t, `
polish:
  llm:
    enabled: true
    base_url: http://localhost:11434/v1
    model: qwen2.5
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.Polish.LLM.Enabled)
	assert.Equal(t, "qwen2.5", cfg.Polish.LLM.Model)
	assert.Equal(t, "general", cfg.Polish.LLM.Scene)
}
