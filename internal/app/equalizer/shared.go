package equalizer

import "sync"

// Shared is an Equalizer guarded by a mutex. The lock covers one chunk or
// one parameter change and is never taken per sample.
type Shared struct {
	mu sync.Mutex
	eq *Equalizer
}

// NewShared creates a shared equalizer for the given sample rate.
func NewShared(sampleRate float64) *Shared {
	return &Shared{eq: New(sampleRate)}
}

// ProcessChunk filters interleaved samples in place.
func (s *Shared) ProcessChunk(samples []float32, channels int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eq.ProcessChunk(samples, channels)
}

// SetEnabled toggles processing.
func (s *Shared) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eq.SetEnabled(enabled)
}

// SetBand sets one band gain.
func (s *Shared) SetBand(i int, gainDB float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eq.SetBand(i, gainDB)
}

// SetBands sets all band gains.
func (s *Shared) SetBands(gains Gains) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eq.SetBands(gains)
}

// Reset flattens all gains.
func (s *Shared) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eq.Reset()
}

// SetSampleRate updates the processing rate.
func (s *Shared) SetSampleRate(sampleRate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eq.SetSampleRate(sampleRate)
}

// ResetState clears filter history, e.g. after a seek.
func (s *Shared) ResetState() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eq.ResetState()
}

// Snapshot returns the enabled flag and gains together.
func (s *Shared) Snapshot() (bool, Gains) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eq.Enabled(), s.eq.Gains()
}
