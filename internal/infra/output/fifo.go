package output

import (
	"sync"
	"sync/atomic"
)

// FIFO is a bounded ring of interleaved float32 samples shared between the
// control goroutine (producer) and a device callback (consumer).
type FIFO struct {
	mu    sync.Mutex
	buf   []float32
	head  int // next read
	count int

	sampleRate int
	channels   int
	lowWater   int

	paused    atomic.Bool
	underruns atomic.Uint64
}

// NewFIFO creates a FIFO sized for capacityMs of audio at the given format.
// NeedsData reports true while less than lowWaterMs is buffered.
func NewFIFO(sampleRate, channels, capacityMs, lowWaterMs int) *FIFO {
	samplesPerSec := sampleRate * channels
	capacity := max(samplesPerSec*capacityMs/1000, channels)
	// Round up so a fractional threshold still counts its last partial sample.
	lowWater := min((samplesPerSec*lowWaterMs+999)/1000, capacity)
	return &FIFO{
		buf:        make([]float32, capacity),
		sampleRate: sampleRate,
		channels:   channels,
		lowWater:   lowWater,
	}
}

// SampleRate returns the FIFO sample rate.
func (q *FIFO) SampleRate() int { return q.sampleRate }

// Channels returns the FIFO channel count.
func (q *FIFO) Channels() int { return q.channels }

// Capacity returns the maximum number of buffered samples.
func (q *FIFO) Capacity() int { return len(q.buf) }

// LowWater returns the NeedsData threshold in samples.
func (q *FIFO) LowWater() int { return q.lowWater }

// Buffered returns the number of queued samples.
func (q *FIFO) Buffered() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// NeedsData reports whether the buffered amount is below the low-water mark.
func (q *FIFO) NeedsData() bool {
	return q.Buffered() < q.lowWater
}

// WriteSamples appends as many samples as fit and returns how many were taken.
func (q *FIFO) WriteSamples(samples []float32) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := min(len(samples), len(q.buf)-q.count)
	tail := (q.head + q.count) % len(q.buf)
	first := copy(q.buf[tail:], samples[:n])
	copy(q.buf, samples[first:n])
	q.count += n
	return n
}

// Fill is the consumer side. It writes exactly len(out) samples, padding any
// shortfall with silence. While paused it writes silence and leaves the
// queue untouched. Fill never blocks beyond the FIFO lock and never allocates.
func (q *FIFO) Fill(out []float32) {
	if q.paused.Load() {
		clear(out)
		return
	}

	q.mu.Lock()
	n := min(len(out), q.count)
	first := copy(out[:n], q.buf[q.head:min(q.head+n, len(q.buf))])
	copy(out[first:n], q.buf)
	q.head = (q.head + n) % len(q.buf)
	q.count -= n
	q.mu.Unlock()

	if n < len(out) {
		clear(out[n:])
		q.underruns.Add(1)
	}
}

// Pause makes Fill emit silence without draining.
func (q *FIFO) Pause() { q.paused.Store(true) }

// Play resumes draining.
func (q *FIFO) Play() { q.paused.Store(false) }

// Paused reports the pause flag.
func (q *FIFO) Paused() bool { return q.paused.Load() }

// Clear drops every queued sample.
func (q *FIFO) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.head = 0
	q.count = 0
}

// Underruns returns how many Fill calls ran short of data.
func (q *FIFO) Underruns() uint64 { return q.underruns.Load() }
