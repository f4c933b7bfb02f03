// Package capture keeps the most recent processed audio for visualization.
package capture

import "sync"

// DefaultSize is the snapshot length used when none is configured.
const DefaultSize = 2048

// Buffer holds a fixed-size copy of the latest processed chunk. Each Update
// overwrites the whole array, so readers always see the newest data and
// never a backlog.
type Buffer struct {
	mu       sync.Mutex
	data     []float32
	channels int
	updates  uint64
}

// New creates a capture buffer of the given length.
func New(size int) *Buffer {
	if size <= 0 {
		size = DefaultSize
	}
	return &Buffer{data: make([]float32, size), channels: 2}
}

// Size returns the snapshot length.
func (b *Buffer) Size() int {
	return len(b.data)
}

// Update replaces the contents with chunk, truncated or zero-padded.
func (b *Buffer) Update(chunk []float32, channels int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := copy(b.data, chunk)
	clear(b.data[n:])
	b.channels = channels
	b.updates++
}

// Clear zeroes the contents.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.data)
}

// SnapshotInto copies the contents into dst and returns the sample count and
// channel layout of the last update.
func (b *Buffer) SnapshotInto(dst []float32) (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return copy(dst, b.data), b.channels
}

// Snapshot returns a fresh copy of the contents.
func (b *Buffer) Snapshot() []float32 {
	out := make([]float32, len(b.data))
	b.SnapshotInto(out)
	return out
}

// Updates returns how many chunks have been captured.
func (b *Buffer) Updates() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.updates
}
