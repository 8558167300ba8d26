// Package polish cleans raw transcripts before they reach the caller:
// filler words go, self-corrections collapse to the corrected phrase,
// and enumerated steps get line structure.
package polish

import (
	"context"
	"log/slog"

	"github.com/vanch007/voiceflow-sub001/pkg/logging"
)

// Polisher rewrites a final transcript. Implementations must be safe
// for concurrent use.
type Polisher interface {
	Name() string
	Polish(ctx context.Context, text string) (string, error)
}

// Chain runs polishers in order, feeding each one's output to the
// next. A failing stage is skipped: its input text survives unchanged
// and the chain continues, so one broken plugin never loses a
// transcript.
type Chain struct {
	stages []Polisher
	logger *slog.Logger
}

func NewChain(stages ...Polisher) *Chain {
	return &Chain{
		stages: stages,
		logger: logging.NewComponentLogger(nil, "polish_chain"),
	}
}

func (c *Chain) Name() string { return "chain" }

func (c *Chain) Polish(ctx context.Context, text string) (string, error) {
	for _, stage := range c.stages {
		out, err := stage.Polish(ctx, text)
		if err != nil {
			c.logger.Warn("polish_stage_failed",
				"stage", stage.Name(),
				"error", err.Error())
			continue
		}
		text = out
	}
	return text, nil
}
