package output

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(n int, start float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = start + float32(i)
	}
	return out
}

func TestFIFO_NeedsDataThreshold(t *testing.T) {
	tests := []struct {
		name     string
		rate     int
		channels int
	}{
		{name: "44.1k stereo", rate: 44100, channels: 2},
		{name: "48k mono", rate: 48000, channels: 1},
		{name: "22.05k stereo", rate: 22050, channels: 2},
		{name: "22.05k mono", rate: 22050, channels: 1},
		{name: "11.025k mono", rate: 11025, channels: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewFIFO(tt.rate, tt.channels, 4000, 250)
			quarter := float64(tt.rate*tt.channels) / 4
			threshold := int(math.Ceil(quarter))
			assert.Equal(t, threshold, q.LowWater())

			for _, fill := range []int{0, 1, threshold - 1, threshold, threshold + 1, 2 * threshold} {
				q.Clear()
				require.Equal(t, fill, q.WriteSamples(make([]float32, fill)))
				assert.Equal(t, float64(fill) < quarter, q.NeedsData(), "buffered=%d", fill)
			}
		})
	}
}

func TestFIFO_UnderrunZeroFills(t *testing.T) {
	q := NewFIFO(44100, 2, 1000, 250)

	for _, n := range []int{1, 2, 512, 4096} {
		out := ramp(n, 1)
		q.Fill(out)
		assert.Len(t, out, n)
		assert.Equal(t, make([]float32, n), out)
	}

	q.WriteSamples([]float32{1, 2, 3})
	out := ramp(8, 9)
	q.Fill(out)
	assert.Equal(t, []float32{1, 2, 3, 0, 0, 0, 0, 0}, out)
	assert.Equal(t, uint64(5), q.Underruns())
}

func TestFIFO_OrderAcrossWrap(t *testing.T) {
	q := NewFIFO(1000, 1, 10, 1) // 10 samples
	require.Equal(t, 10, q.Capacity())

	var got []float32
	next := float32(0)
	for round := 0; round < 20; round++ {
		in := ramp(7, next)
		n := q.WriteSamples(in)
		next += float32(n)

		out := make([]float32, 5)
		q.Fill(out)
		got = append(got, out...)
	}

	for i, v := range got {
		assert.Equal(t, float32(i), v)
	}
}

func TestFIFO_WriteNeverExceedsCapacity(t *testing.T) {
	q := NewFIFO(1000, 2, 10, 1) // 20 samples
	assert.Equal(t, 20, q.WriteSamples(make([]float32, 50)))
	assert.Equal(t, 0, q.WriteSamples(make([]float32, 1)))
	assert.Equal(t, 20, q.Buffered())
}

func TestFIFO_PauseDoesNotDrain(t *testing.T) {
	q := NewFIFO(1000, 1, 100, 10)
	q.WriteSamples(ramp(10, 1))
	q.Pause()

	out := ramp(4, 100)
	q.Fill(out)
	assert.Equal(t, make([]float32, 4), out)
	assert.Equal(t, 10, q.Buffered())
	assert.True(t, q.Paused())

	q.Play()
	q.Fill(out)
	assert.Equal(t, []float32{1, 2, 3, 4}, out)
	assert.Equal(t, 6, q.Buffered())
}

func TestFIFO_Clear(t *testing.T) {
	q := NewFIFO(1000, 2, 100, 10)
	q.WriteSamples(ramp(50, 1))
	q.Clear()
	assert.Equal(t, 0, q.Buffered())
	assert.True(t, q.NeedsData())

	q.WriteSamples([]float32{7, 8})
	out := make([]float32, 2)
	q.Fill(out)
	assert.Equal(t, []float32{7, 8}, out)
}

func TestFIFO_ConcurrentProducerConsumer(t *testing.T) {
	q := NewFIFO(48000, 2, 100, 25)
	const total = 200000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		next := float32(1)
		for written := 0; written < total; {
			n := q.WriteSamples(ramp(min(997, total-written), next))
			written += n
			next += float32(n)
		}
	}()

	got := make([]float32, 0, total)
	out := make([]float32, 256)
	for len(got) < total {
		q.Fill(out)
		for _, v := range out {
			if v != 0 {
				got = append(got, v)
			}
		}
	}
	wg.Wait()

	for i, v := range got[:total] {
		if !assert.Equal(t, float32(i+1), v) {
			break
		}
	}
}

func TestFIFO_FillDoesNotAllocate(t *testing.T) {
	q := NewFIFO(44100, 2, 1000, 250)
	q.WriteSamples(make([]float32, 44100))
	out := make([]float32, 1024)

	allocs := testing.AllocsPerRun(100, func() {
		q.Fill(out)
	})
	assert.Zero(t, allocs)
}
