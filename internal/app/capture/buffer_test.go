package capture

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_Update(t *testing.T) {
	tests := []struct {
		name  string
		size  int
		chunk []float32
		want  []float32
	}{
		{
			name:  "exact fit",
			size:  4,
			chunk: []float32{1, 2, 3, 4},
			want:  []float32{1, 2, 3, 4},
		},
		{
			name:  "truncated",
			size:  3,
			chunk: []float32{1, 2, 3, 4, 5},
			want:  []float32{1, 2, 3},
		},
		{
			name:  "zero padded",
			size:  5,
			chunk: []float32{1, 2},
			want:  []float32{1, 2, 0, 0, 0},
		},
		{
			name:  "empty chunk clears",
			size:  3,
			chunk: nil,
			want:  []float32{0, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(tt.size)
			b.Update([]float32{9, 9, 9, 9, 9, 9}, 2)
			b.Update(tt.chunk, 2)
			assert.Equal(t, tt.want, b.Snapshot())
		})
	}
}

func TestBuffer_OverwritesWholesale(t *testing.T) {
	b := New(4)
	b.Update([]float32{1, 1, 1, 1}, 2)
	b.Update([]float32{2, 2}, 1)

	dst := make([]float32, 4)
	n, channels := b.SnapshotInto(dst)
	assert.Equal(t, 4, n)
	assert.Equal(t, 1, channels)
	assert.Equal(t, []float32{2, 2, 0, 0}, dst)
	assert.Equal(t, uint64(2), b.Updates())
}

func TestBuffer_SnapshotIsCopy(t *testing.T) {
	b := New(2)
	b.Update([]float32{1, 2}, 2)

	snap := b.Snapshot()
	snap[0] = 42
	assert.Equal(t, []float32{1, 2}, b.Snapshot())
}

func TestBuffer_DefaultSize(t *testing.T) {
	assert.Equal(t, DefaultSize, New(0).Size())
}

func TestBuffer_ConcurrentAccess(t *testing.T) {
	b := New(256)
	chunk := make([]float32, 512)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for range 1000 {
			b.Update(chunk, 2)
		}
	}()
	go func() {
		defer wg.Done()
		dst := make([]float32, 256)
		for range 1000 {
			b.SnapshotInto(dst)
		}
	}()
	wg.Wait()
	assert.Equal(t, uint64(1000), b.Updates())
}

func TestSpectrum_PeakInMatchingBar(t *testing.T) {
	const rate = 44100.0
	mono := make([]float64, 2048)
	for i := range mono {
		mono[i] = 0.8 * math.Sin(2*math.Pi*1000*float64(i)/rate)
	}

	levels := Spectrum(mono, rate, 10)
	require.Len(t, levels, 10)

	peak := 0
	for i, v := range levels {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
		if v > levels[peak] {
			peak = i
		}
	}
	// Bars span 20 Hz..20 kHz in 10 log steps; 1 kHz lands in bar 5.
	assert.Equal(t, 5, peak)
}

func TestSpectrum_Silence(t *testing.T) {
	levels := Spectrum(make([]float64, 1024), 48000, 8)
	assert.Equal(t, make([]float64, 8), levels)
	assert.Equal(t, make([]float64, 4), Spectrum(nil, 48000, 4))
}

func TestAnalyzer_Smooths(t *testing.T) {
	a := NewAnalyzer(10, 44100)
	samples := make([]float32, 4096)
	for i := 0; i < 2048; i++ {
		v := float32(0.8 * math.Sin(2*math.Pi*1000*float64(i)/44100))
		samples[i*2] = v
		samples[i*2+1] = v
	}

	raw := Spectrum(a.mixDown(samples, 2), 44100, 10)
	first := a.Analyze(samples, 2)
	for i := range raw {
		assert.InDelta(t, raw[i]*0.6, first[i], 1e-9)
	}
}
