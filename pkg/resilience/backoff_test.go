package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffSequence(t *testing.T) {
	b := NewBackoff(3*time.Second, 30*time.Second)
	want := []time.Duration{3, 6, 12, 24, 30}
	for i, w := range want {
		assert.Equal(t, w*time.Second, b.Next(), "attempt %d", i+1)
	}
	// Stays at the cap.
	assert.Equal(t, 30*time.Second, b.Next())
}

func TestBackoffReset(t *testing.T) {
	b := NewBackoff(3*time.Second, 30*time.Second)
	b.Next()
	b.Next()
	b.Reset()
	assert.Equal(t, 3*time.Second, b.Next())
}

func TestBackoffDefaults(t *testing.T) {
	b := NewBackoff(0, 0)
	assert.Equal(t, 3*time.Second, b.Peek())
}
