// Package voiceflow is the composition root: it loads configuration,
// builds the engine, transport, polish and session layers, and wires
// capture into the session controller.
package voiceflow

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`

	Engine        EngineConfig        `mapstructure:"engine"`
	Session       SessionConfig       `mapstructure:"session"`
	Capture       CaptureConfig       `mapstructure:"capture"`
	Transport     TransportConfig     `mapstructure:"transport"`
	Polish        PolishConfig        `mapstructure:"polish"`
	Privacy       PrivacyConfig       `mapstructure:"privacy"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// EngineConfig selects the transcription provider; settings are
// provider-specific and decoded by the builder.
type EngineConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type SessionConfig struct {
	Mode         string   `mapstructure:"mode"`
	Language     string   `mapstructure:"language"`
	EnablePolish bool     `mapstructure:"enable_polish"`
	Hotwords     []string `mapstructure:"hotwords"`

	MinSamples         int  `mapstructure:"min_samples"`
	PreviewIntervalMS  int  `mapstructure:"preview_interval_ms"`
	PreviewWindowMS    int  `mapstructure:"preview_window_ms"`
	PeriodicIntervalMS int  `mapstructure:"periodic_interval_ms"`
	PeriodicWindowMS   int  `mapstructure:"periodic_window_ms"`
	VADEnabled         bool `mapstructure:"vad_enabled"`
}

type CaptureConfig struct {
	VADEnabled   bool    `mapstructure:"vad_enabled"`
	VADThreshold float64 `mapstructure:"vad_threshold"`
	FrameBuffer  int     `mapstructure:"frame_buffer"`
}

type TransportConfig struct {
	URL              string `mapstructure:"url"`
	SettleDelayMS    int    `mapstructure:"settle_delay_ms"`
	ProbeTimeoutMS   int    `mapstructure:"probe_timeout_ms"`
	WriteTimeoutMS   int    `mapstructure:"write_timeout_ms"`
	InitialBackoffMS int    `mapstructure:"initial_backoff_ms"`
	MaxBackoffMS     int    `mapstructure:"max_backoff_ms"`
	// Frame selects the audio wire encoding: float32 or int16.
	Frame string `mapstructure:"frame"`
}

type PolishConfig struct {
	Rules bool            `mapstructure:"rules"`
	LLM   PolishLLMConfig `mapstructure:"llm"`
}

// PolishLLMConfig enables model-backed polishing of final transcripts.
// Rule-based polishing stays as the fallback when the backend fails.
type PolishLLMConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	APIKey       string  `mapstructure:"api_key"`
	BaseURL      string  `mapstructure:"base_url"`
	Model        string  `mapstructure:"model"`
	Scene        string  `mapstructure:"scene"`
	CustomPrompt string  `mapstructure:"custom_prompt"`
	Temperature  float64 `mapstructure:"temperature"`
	TimeoutMS    int     `mapstructure:"timeout_ms"`

	// Breaker opens after this many consecutive rate limits and
	// stays open for the cooldown.
	BreakerThreshold  int `mapstructure:"breaker_threshold"`
	BreakerCooldownMS int `mapstructure:"breaker_cooldown_ms"`
}

type PrivacyConfig struct {
	RedactPII bool `mapstructure:"redact_pii"`
}

type ObservabilityConfig struct {
	EventsPath  string  `mapstructure:"events_path"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	EventBuffer int     `mapstructure:"event_buffer"`
	// LogEvents mirrors every event to the debug log.
	LogEvents bool `mapstructure:"log_events"`
	// SessionSummary logs one latency line per finished session.
	SessionSummary bool `mapstructure:"session_summary"`
}

func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return unmarshalConfig(v)
}

// DefaultConfig returns the built-in defaults without reading a file.
func DefaultConfig() Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := unmarshalConfig(v)
	if err != nil {
		panic(err) // defaults are static and always valid
	}
	return cfg
}

func unmarshalConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("engine.provider", "mock")
	v.SetDefault("session.mode", "oneShot")
	v.SetDefault("session.language", "")
	v.SetDefault("session.enable_polish", true)
	v.SetDefault("session.min_samples", 8000)
	v.SetDefault("session.preview_interval_ms", 500)
	v.SetDefault("session.preview_window_ms", 4000)
	v.SetDefault("session.periodic_interval_ms", 1500)
	v.SetDefault("session.periodic_window_ms", 6000)
	v.SetDefault("session.vad_enabled", false)
	v.SetDefault("capture.vad_enabled", false)
	v.SetDefault("capture.vad_threshold", 0.01)
	v.SetDefault("capture.frame_buffer", 64)
	v.SetDefault("transport.url", "ws://localhost:9876")
	v.SetDefault("transport.settle_delay_ms", 500)
	v.SetDefault("transport.probe_timeout_ms", 3000)
	v.SetDefault("transport.write_timeout_ms", 5000)
	v.SetDefault("transport.initial_backoff_ms", 3000)
	v.SetDefault("transport.max_backoff_ms", 30000)
	v.SetDefault("transport.frame", "float32")
	v.SetDefault("polish.rules", true)
	v.SetDefault("polish.llm.enabled", false)
	v.SetDefault("polish.llm.base_url", "")
	v.SetDefault("polish.llm.model", "gpt-4o-mini")
	v.SetDefault("polish.llm.scene", "general")
	v.SetDefault("polish.llm.temperature", 0.3)
	v.SetDefault("polish.llm.timeout_ms", 15000)
	v.SetDefault("polish.llm.breaker_threshold", 3)
	v.SetDefault("polish.llm.breaker_cooldown_ms", 30000)
	v.SetDefault("privacy.redact_pii", true)
	v.SetDefault("observability.events_path", "")
	v.SetDefault("observability.sample_rate", 1.0)
	v.SetDefault("observability.event_buffer", 256)
	v.SetDefault("observability.log_events", false)
	v.SetDefault("observability.session_summary", true)
}

func (c Config) validate() error {
	switch c.Engine.Provider {
	case "mock", "deepgram", "remote":
	default:
		return fmt.Errorf("unknown engine provider %q", c.Engine.Provider)
	}
	switch c.Session.Mode {
	case "oneShot", "continuous":
	default:
		return fmt.Errorf("unknown session mode %q", c.Session.Mode)
	}
	switch c.Transport.Frame {
	case "float32", "int16":
	default:
		return fmt.Errorf("unknown transport frame %q", c.Transport.Frame)
	}
	if c.Polish.LLM.Enabled && c.Polish.LLM.APIKey == "" && c.Polish.LLM.BaseURL == "" {
		return fmt.Errorf("polish.llm.api_key is required unless base_url points at a keyless backend")
	}
	return nil
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }
