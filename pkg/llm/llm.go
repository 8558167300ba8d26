// Package llm talks to an OpenAI-compatible chat backend. The polish
// layer uses it to rewrite final transcripts; everything here is
// provider-plumbing, no transcript semantics.
package llm

import "context"

// Message is one chat turn in provider format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is the minimal completion surface the polish layer needs.
type Client interface {
	// Complete runs one chat completion and returns the assistant text.
	Complete(ctx context.Context, messages []Message) (string, error)
	// Ping verifies the backend is reachable with the configured
	// credentials; used by connection tests, not the polish path.
	Ping(ctx context.Context) error
	Name() string
}
