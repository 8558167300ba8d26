package voiceflow

import (
	"context"
	"log/slog"

	"github.com/vanch007/voiceflow-sub001/pkg/audio"
	"github.com/vanch007/voiceflow-sub001/pkg/engine"
	"github.com/vanch007/voiceflow-sub001/pkg/frames"
	"github.com/vanch007/voiceflow-sub001/pkg/logging"
	"github.com/vanch007/voiceflow-sub001/pkg/redact"
	"github.com/vanch007/voiceflow-sub001/pkg/session"
	"github.com/vanch007/voiceflow-sub001/pkg/transport"
)

// App is the assembled pipeline: capture feeding the session
// controller, which drives the configured engine.
type App struct {
	Config     Config
	Source     *audio.Source
	Controller *session.Controller
	Transport  *transport.Client
	Engine     engine.Transcriber

	logger    *slog.Logger
	obsCloser func()
}

// NewApp builds the full pipeline around one capture device. The
// device may be nil for callers that feed frames directly.
func NewApp(cfg Config, device audio.CaptureDevice) (*App, error) {
	logger := logging.Init(cfg.LogLevel, cfg.LogFormat)
	redact.SetEnabled(cfg.Privacy.RedactPII)

	obs, obsCloser, err := BuildObserver(cfg)
	if err != nil {
		return nil, err
	}

	var client *transport.Client
	if cfg.Engine.Provider == "remote" {
		client = BuildTransport(cfg)
		client.SetObserver(obs)
	}

	eng, err := BuildEngine(cfg, client)
	if err != nil {
		obsCloser()
		return nil, err
	}

	var source *audio.Source
	if device != nil {
		source = BuildSource(cfg, device)
		source.SetObserver(obs)
	}

	opts := session.Options{
		Engine:   eng,
		Polisher: BuildPolisher(cfg, obs),
		Observer: obs,
		Logger:   logger,
	}
	if source != nil {
		opts.Source = source
	}
	ctrl, err := session.New(opts)
	if err != nil {
		obsCloser()
		return nil, err
	}

	if source != nil {
		source.OnFrame(func(f frames.AudioFrame) {
			// Frames arriving between sessions are rejected; that is fine.
			_ = ctrl.Feed(f)
		})
		source.OnError(ctrl.Abort)
	}

	return &App{
		Config:     cfg,
		Source:     source,
		Controller: ctrl,
		Transport:  client,
		Engine:     eng,
		logger:     logging.NewComponentLogger(logger, "app"),
		obsCloser:  obsCloser,
	}, nil
}

// Connect brings up the transport when the remote engine is in use;
// a no-op otherwise.
func (a *App) Connect(ctx context.Context) error {
	if a.Transport == nil {
		return nil
	}
	return a.Transport.Connect(ctx)
}

// StartSession opens a session with the configured defaults.
func (a *App) StartSession() error {
	return a.Controller.Start(a.Config.SessionConfig())
}

// StopSession drains the active session and returns the final result.
func (a *App) StopSession(ctx context.Context) (frames.Result, error) {
	return a.Controller.Stop(ctx)
}

// Drain satisfies the runner contract: an active session is stopped
// and its final result logged.
func (a *App) Drain() error {
	if a.Controller.State() == session.StateIdle {
		return nil
	}
	res, err := a.Controller.Stop(context.Background())
	if err != nil {
		return err
	}
	a.logger.Info("drained_final_result", "text", redact.Snippet(res.Text, 80))
	return nil
}

// Close releases the transport and the metrics sink.
func (a *App) Close() error {
	var err error
	if a.Transport != nil {
		err = a.Transport.Disconnect()
	}
	if a.obsCloser != nil {
		a.obsCloser()
	}
	return err
}
