// Package redact keeps spoken content out of logs: transcripts carry
// whatever the user dictated, so log lines truncate them and can mask
// emails and phone numbers on top.
package redact

import (
	"regexp"
	"strings"
	"sync/atomic"
)

var enabled atomic.Bool

var (
	emailRe = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	phoneRe = regexp.MustCompile(`\b\+?\d[\d\s\-]{7,}\d\b`)
)

// SetEnabled toggles PII masking inside transcript log fields.
func SetEnabled(v bool) {
	enabled.Store(v)
}

// Enabled returns true when masking is active.
func Enabled() bool {
	return enabled.Load()
}

// Text masks emails and phone numbers when enabled.
func Text(in string) string {
	if !enabled.Load() || strings.TrimSpace(in) == "" {
		return in
	}
	out := emailRe.ReplaceAllString(in, "[REDACTED_EMAIL]")
	out = phoneRe.ReplaceAllString(out, "[REDACTED_PHONE]")
	return out
}

// Snippet prepares a transcript for a log field: masked per the global
// toggle and truncated to max runes.
func Snippet(in string, max int) string {
	out := Text(in)
	runes := []rune(out)
	if max > 0 && len(runes) > max {
		out = string(runes[:max]) + "…"
	}
	return out
}
