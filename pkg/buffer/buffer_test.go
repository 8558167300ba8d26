package buffer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(n int, base float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = base + float32(i)
	}
	return out
}

func TestWindowedReturnsAllWhenShorter(t *testing.T) {
	b := New(16000)
	b.AppendSamples(ramp(16000*2, 0)) // 2 s

	got := b.Windowed(4 * time.Second)
	assert.Len(t, got, 16000*2)
}

func TestWindowedReturnsTailWhenLonger(t *testing.T) {
	b := New(16000)
	b.AppendSamples(ramp(16000*6, 0)) // 6 s

	got := b.Windowed(4 * time.Second)
	require.Len(t, got, 16000*4)
	// The window is the tail, so the first sample of the copy is the
	// sample 2 s into the buffer.
	assert.Equal(t, float32(16000*2), got[0])
}

func TestWindowedIsACopy(t *testing.T) {
	b := New(16000)
	b.AppendSamples(ramp(100, 0))
	got := b.Windowed(time.Second)
	got[0] = -999
	again := b.Windowed(time.Second)
	assert.Equal(t, float32(0), again[0])
}

func TestDrainAllClearsAtomically(t *testing.T) {
	b := New(16000)
	b.AppendSamples(ramp(123, 0))

	got := b.DrainAll()
	assert.Len(t, got, 123)
	assert.Zero(t, b.Len())
	assert.Empty(t, b.DrainAll())
}

func TestConcurrentAppendAndWindowed(t *testing.T) {
	b := New(16000)
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			b.AppendSamples(ramp(160, 0))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			w := b.Windowed(time.Second)
			if len(w) > 16000 {
				t.Errorf("window exceeded bound: %d", len(w))
				return
			}
		}
	}()
	wg.Wait()
	assert.Equal(t, 200*160, b.Len())
}
