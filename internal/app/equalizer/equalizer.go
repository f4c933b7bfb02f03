// Package equalizer provides the 10-band peaking biquad equalizer.
//
// Equalizer itself is not safe for concurrent use. Shared wraps it with a
// mutex held for one chunk or one parameter change at a time.
package equalizer

import (
	"math"

	"github.com/cockroachdb/errors"
)

const (
	// NumBands is the number of equalizer bands.
	NumBands = 10
	// MinGainDB and MaxGainDB bound every band gain.
	MinGainDB = -12.0
	MaxGainDB = 12.0
	// DefaultSampleRate is used until the first track sets the real rate.
	DefaultSampleRate = 44100.0

	sampleRateTolerance = 0.1
)

// Frequencies are the octave-spaced band centres in Hz.
var Frequencies = [NumBands]float64{31.25, 62.5, 125, 250, 500, 1000, 2000, 4000, 8000, 16000}

// ErrBandOutOfRange is returned when a band index is not in [0, NumBands).
var ErrBandOutOfRange = errors.New("equalizer band out of range")

// Gains holds one gain in dB per band.
type Gains [NumBands]float64

// Equalizer runs NumBands peaking filters in series.
type Equalizer struct {
	enabled    bool
	sampleRate float64
	gains      Gains
	bands      [NumBands]Biquad
}

// New creates a disabled, flat equalizer for the given sample rate.
func New(sampleRate float64) *Equalizer {
	eq := &Equalizer{sampleRate: sampleRate}
	for i, f := range Frequencies {
		eq.bands[i] = newBiquad(sampleRate, f, 0)
	}
	return eq
}

// ClampGain limits g to [MinGainDB, MaxGainDB].
func ClampGain(g float64) float64 {
	if math.IsNaN(g) {
		return 0
	}
	return math.Max(MinGainDB, math.Min(MaxGainDB, g))
}

// Enabled reports whether processing is active.
func (eq *Equalizer) Enabled() bool {
	return eq.enabled
}

// SetEnabled toggles processing. Disabling clears filter history so that a
// later re-enable starts from silence.
func (eq *Equalizer) SetEnabled(enabled bool) {
	if !enabled {
		eq.ResetState()
	}
	eq.enabled = enabled
}

// Gains returns a copy of the band gains.
func (eq *Equalizer) Gains() Gains {
	return eq.gains
}

// Gain returns the gain of band i.
func (eq *Equalizer) Gain(i int) (float64, error) {
	if i < 0 || i >= NumBands {
		return 0, errors.Wrapf(ErrBandOutOfRange, "band %d", i)
	}
	return eq.gains[i], nil
}

// SetBand sets the gain of band i, clamped.
func (eq *Equalizer) SetBand(i int, gainDB float64) error {
	if i < 0 || i >= NumBands {
		return errors.Wrapf(ErrBandOutOfRange, "band %d", i)
	}
	g := ClampGain(gainDB)
	eq.gains[i] = g
	eq.bands[i].update(eq.sampleRate, g)
	return nil
}

// SetBands sets every band gain, clamped.
func (eq *Equalizer) SetBands(gains Gains) {
	for i, g := range gains {
		_ = eq.SetBand(i, g)
	}
}

// Reset flattens all gains. The enabled flag is left unchanged.
func (eq *Equalizer) Reset() {
	eq.SetBands(Gains{})
}

// SampleRate returns the rate coefficients are computed for.
func (eq *Equalizer) SampleRate() float64 {
	return eq.sampleRate
}

// SetSampleRate recomputes all coefficients when the rate moves by more
// than 0.1 Hz.
func (eq *Equalizer) SetSampleRate(sampleRate float64) {
	if sampleRate <= 0 || math.Abs(sampleRate-eq.sampleRate) <= sampleRateTolerance {
		return
	}
	eq.sampleRate = sampleRate
	for i := range eq.bands {
		eq.bands[i].update(sampleRate, eq.gains[i])
	}
}

// ResetState zeroes the history of every band.
func (eq *Equalizer) ResetState() {
	for i := range eq.bands {
		eq.bands[i].reset()
	}
}

// Band returns the filter of band i for inspection.
func (eq *Equalizer) Band(i int) *Biquad {
	return &eq.bands[i]
}

// Process filters one stereo pair. A disabled equalizer returns its input unchanged.
func (eq *Equalizer) Process(l, r float32) (float32, float32) {
	if !eq.enabled {
		return l, r
	}
	xl, xr := float64(l), float64(r)
	for i := range eq.bands {
		b := &eq.bands[i]
		xl = b.process(0, xl)
		xr = b.process(1, xr)
	}
	return float32(xl), float32(xr)
}

// ProcessChunk filters interleaved samples in place. Mono is run through the
// stereo path with the left output kept; more than two channels pass through.
func (eq *Equalizer) ProcessChunk(samples []float32, channels int) {
	if !eq.enabled {
		return
	}
	switch channels {
	case 1:
		for i, s := range samples {
			samples[i], _ = eq.Process(s, s)
		}
	case 2:
		for i := 0; i+1 < len(samples); i += 2 {
			samples[i], samples[i+1] = eq.Process(samples[i], samples[i+1])
		}
	}
}
