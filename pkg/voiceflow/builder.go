package voiceflow

import (
	"fmt"
	"os"

	"github.com/vanch007/voiceflow-sub001/pkg/audio"
	"github.com/vanch007/voiceflow-sub001/pkg/configutil"
	"github.com/vanch007/voiceflow-sub001/pkg/engine"
	"github.com/vanch007/voiceflow-sub001/pkg/engine/remote"
	"github.com/vanch007/voiceflow-sub001/pkg/llm"
	"github.com/vanch007/voiceflow-sub001/pkg/metrics"
	"github.com/vanch007/voiceflow-sub001/pkg/polish"
	"github.com/vanch007/voiceflow-sub001/pkg/protocol"
	"github.com/vanch007/voiceflow-sub001/pkg/providers/deepgram"
	"github.com/vanch007/voiceflow-sub001/pkg/providers/mock"
	"github.com/vanch007/voiceflow-sub001/pkg/resilience"
	"github.com/vanch007/voiceflow-sub001/pkg/session"
	"github.com/vanch007/voiceflow-sub001/pkg/transport"
)

type mockSettings struct {
	Transcript string `mapstructure:"transcript"`
	LatencyMS  int    `mapstructure:"latency_ms"`
}

type deepgramSettings struct {
	APIKey            string `mapstructure:"api_key"`
	Model             string `mapstructure:"model"`
	Language          string `mapstructure:"language"`
	FinalizeTimeoutMS int    `mapstructure:"finalize_timeout_ms"`
}

// BuildEngine constructs the configured transcriber. The remote
// provider needs the transport client; other providers ignore it.
func BuildEngine(cfg Config, client *transport.Client) (engine.Transcriber, error) {
	switch cfg.Engine.Provider {
	case "mock":
		var settings mockSettings
		if err := configutil.DecodeSettings(cfg.Engine.Settings, &settings); err != nil {
			return nil, fmt.Errorf("mock settings: %w", err)
		}
		mockCfg := mock.Config{Latency: ms(settings.LatencyMS)}
		if settings.Transcript != "" {
			mockCfg.Transcripts = []string{settings.Transcript}
		}
		return mock.New(mockCfg), nil

	case "deepgram":
		var settings deepgramSettings
		if err := configutil.DecodeSettings(cfg.Engine.Settings, &settings); err != nil {
			return nil, fmt.Errorf("deepgram settings: %w", err)
		}
		if err := configutil.RequireString(settings.APIKey, "engine.settings.api_key"); err != nil {
			return nil, err
		}
		language := settings.Language
		if language == "" {
			language = cfg.Session.Language
		}
		return deepgram.New(deepgram.Config{
			APIKey:          settings.APIKey,
			Model:           settings.Model,
			Language:        language,
			FinalizeTimeout: ms(settings.FinalizeTimeoutMS),
		}), nil

	case "remote":
		if client == nil {
			return nil, fmt.Errorf("remote engine requires a transport client")
		}
		return remote.New(client, remote.Config{
			Language:     cfg.Session.Language,
			EnablePolish: cfg.Session.EnablePolish,
			Hotwords:     cfg.Session.Hotwords,
			Frame:        frameFormat(cfg),
		}), nil

	default:
		return nil, fmt.Errorf("unknown engine provider %q", cfg.Engine.Provider)
	}
}

// BuildTransport constructs the protocol client from config. Only the
// remote engine needs one; callers skip this for local providers.
func BuildTransport(cfg Config) *transport.Client {
	return transport.NewClient(transport.Config{
		URL:            cfg.Transport.URL,
		SettleDelay:    ms(cfg.Transport.SettleDelayMS),
		ProbeTimeout:   ms(cfg.Transport.ProbeTimeoutMS),
		WriteTimeout:   ms(cfg.Transport.WriteTimeoutMS),
		InitialBackoff: ms(cfg.Transport.InitialBackoffMS),
		MaxBackoff:     ms(cfg.Transport.MaxBackoffMS),
	})
}

// BuildPolisher assembles the polish chain; nil when no stage is
// enabled so the session skips polishing entirely. When the LLM stage
// is on it carries its own rule fallback, so the plain rules stage is
// dropped to avoid polishing twice.
func BuildPolisher(cfg Config, observer metrics.Observer) polish.Polisher {
	if cfg.Polish.LLM.Enabled {
		return polish.NewLLMPolisher(buildLLMClient(cfg.Polish.LLM, observer), polish.LLMConfig{
			Scene:        cfg.Polish.LLM.Scene,
			CustomPrompt: cfg.Polish.LLM.CustomPrompt,
			Timeout:      ms(cfg.Polish.LLM.TimeoutMS),
		})
	}
	if cfg.Polish.Rules {
		return polish.NewRulePolisher()
	}
	return nil
}

func buildLLMClient(cfg PolishLLMConfig, observer metrics.Observer) llm.Client {
	client := llm.NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL)
	if cfg.Temperature > 0 {
		client.Temperature = cfg.Temperature
	}
	breaker := resilience.NewCircuitBreaker(cfg.BreakerThreshold, ms(cfg.BreakerCooldownMS))
	return llm.NewBreakerClient(client, breaker, observer)
}

// BuildObserver wires the metrics sinks: a JSONL file behind sampling
// and an async buffer when an events path is configured, plus optional
// log mirrors. The returned closer flushes and releases the sinks.
func BuildObserver(cfg Config) (metrics.Observer, func(), error) {
	var sinks []metrics.Observer
	closer := func() {}

	if cfg.Observability.EventsPath != "" {
		f, err := os.OpenFile(cfg.Observability.EventsPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open events file: %w", err)
		}
		var obs metrics.Observer = metrics.NewJSONLObserver(f)
		if cfg.Observability.SampleRate > 0 && cfg.Observability.SampleRate < 1 {
			obs = metrics.NewSamplingObserver(obs, cfg.Observability.SampleRate)
		}
		async := metrics.NewAsyncObserver(obs, cfg.Observability.EventBuffer)
		closer = func() {
			async.Close()
			_ = f.Close()
		}
		sinks = append(sinks, async)
	}
	if cfg.Observability.SessionSummary {
		sinks = append(sinks, metrics.NewLatencyObserver(nil))
	}
	if cfg.Observability.LogEvents {
		sinks = append(sinks, metrics.NewLoggerObserver(nil))
	}

	switch len(sinks) {
	case 0:
		return metrics.NoopObserver{}, closer, nil
	case 1:
		return sinks[0], closer, nil
	default:
		return metrics.NewMultiObserver(sinks...), closer, nil
	}
}

// BuildSource wraps a capture device in the normalizing source.
func BuildSource(cfg Config, device audio.CaptureDevice) *audio.Source {
	return audio.NewSource(device, audio.SourceConfig{
		VADEnabled:   cfg.Capture.VADEnabled,
		VADThreshold: cfg.Capture.VADThreshold,
	})
}

// SessionConfig maps file configuration onto one session's settings.
func (c Config) SessionConfig() session.Config {
	return session.Config{
		Mode:             session.Mode(c.Session.Mode),
		Language:         c.Session.Language,
		EnablePolish:     c.Session.EnablePolish,
		Hotwords:         c.Session.Hotwords,
		VADEnabled:       c.Session.VADEnabled || c.Capture.VADEnabled,
		VADThreshold:     c.Capture.VADThreshold,
		MinSamples:       c.Session.MinSamples,
		PreviewInterval:  ms(c.Session.PreviewIntervalMS),
		PreviewWindow:    ms(c.Session.PreviewWindowMS),
		PeriodicInterval: ms(c.Session.PeriodicIntervalMS),
		PeriodicWindow:   ms(c.Session.PeriodicWindowMS),
	}
}

func frameFormat(cfg Config) protocol.FrameFormat {
	if cfg.Transport.Frame == "int16" {
		return protocol.FrameInt16LE
	}
	return protocol.FrameFloat32LE
}
