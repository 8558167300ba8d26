// Command voiceflow transcribes a raw PCM stream: it plays a file (or
// stdin) through the capture pipeline, runs one session against the
// configured engine and prints the results.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vanch007/voiceflow-sub001/pkg/audio"
	"github.com/vanch007/voiceflow-sub001/pkg/frames"
	"github.com/vanch007/voiceflow-sub001/pkg/runner"
	"github.com/vanch007/voiceflow-sub001/pkg/voiceflow"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (built-in defaults when empty)")
	input := flag.String("input", "-", "raw PCM input file, '-' for stdin")
	format := flag.String("format", "int16", "input sample format: float32|int16|int32")
	rate := flag.Int("rate", 16000, "input sample rate in Hz")
	channels := flag.Int("channels", 1, "input channel count")
	realtime := flag.Bool("realtime", false, "pace input at its natural rate like a live microphone")
	flag.Parse()

	if err := run(*configPath, *input, *format, *rate, *channels, *realtime); err != nil {
		fmt.Fprintln(os.Stderr, "voiceflow:", err)
		os.Exit(1)
	}
}

func run(configPath, input, format string, rate, channels int, realtime bool) error {
	cfg := voiceflow.DefaultConfig()
	if configPath != "" {
		loaded, err := voiceflow.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	sampleFormat, err := parseFormat(format)
	if err != nil {
		return err
	}

	reader := os.Stdin
	if input != "-" {
		f, err := os.Open(input)
		if err != nil {
			return err
		}
		defer f.Close()
		reader = f
	}

	device := audio.NewReaderDevice(input, reader, audio.ReaderDeviceConfig{
		SampleRate: rate,
		Channels:   channels,
		Format:     sampleFormat,
		Realtime:   realtime,
	})

	app, err := voiceflow.NewApp(cfg, device)
	if err != nil {
		return err
	}
	defer app.Close()

	app.Controller.OnResult(func(res frames.Result) {
		switch {
		case res.Err != nil:
			fmt.Fprintln(os.Stderr, "error:", res.Err)
		case res.Kind == frames.KindFinal:
			fmt.Println(res.Text)
		default:
			fmt.Fprintf(os.Stderr, "[%s] %s\n", res.Trigger, res.Text)
		}
	})

	ctx, cancel := runner.SignalContext(context.Background())
	defer cancel()

	if err := app.Connect(ctx); err != nil {
		return err
	}
	if err := app.StartSession(); err != nil {
		return err
	}

	lr := runner.NewLifecycleRunner(app, runner.Hooks{}, 30*time.Second)

	// The input running dry ends the run; so does a signal.
	go func() {
		select {
		case <-device.Done():
			for lr.State() == runner.StateNew {
				time.Sleep(10 * time.Millisecond)
			}
			_ = lr.Stop()
		case <-ctx.Done():
		}
	}()

	return lr.Run(ctx)
}

func parseFormat(s string) (audio.SampleFormat, error) {
	switch s {
	case "float32":
		return audio.FormatFloat32, nil
	case "int16":
		return audio.FormatInt16, nil
	case "int32":
		return audio.FormatInt32, nil
	}
	return 0, fmt.Errorf("unknown sample format %q", s)
}
