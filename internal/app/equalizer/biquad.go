package equalizer

import "math"

// Q is the fixed quality factor shared by every band.
const Q = 1.0

// Coefficients holds normalized peaking-EQ coefficients (a0 folded into the rest).
type Coefficients struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// PeakingCoefficients computes Audio-EQ-Cookbook peaking coefficients for the
// given sample rate, centre frequency, gain and quality factor.
func PeakingCoefficients(sampleRate, freq, gainDB, q float64) Coefficients {
	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * freq / sampleRate
	cosW0 := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)

	a0 := 1 + alpha/a
	return Coefficients{
		B0: (1 + alpha*a) / a0,
		B1: (-2 * cosW0) / a0,
		B2: (1 - alpha*a) / a0,
		A1: (-2 * cosW0) / a0,
		A2: (1 - alpha/a) / a0,
	}
}

// channelState is the direct form I history of one channel.
type channelState struct {
	x1, x2 float64
	y1, y2 float64
}

// Biquad is a stereo peaking filter with independent per-channel history.
type Biquad struct {
	freq   float64
	gainDB float64
	c      Coefficients
	state  [2]channelState
}

func newBiquad(sampleRate, freq, gainDB float64) Biquad {
	return Biquad{
		freq:   freq,
		gainDB: gainDB,
		c:      PeakingCoefficients(sampleRate, freq, gainDB, Q),
	}
}

// Coefficients returns the current coefficients.
func (b *Biquad) Coefficients() Coefficients {
	return b.c
}

func (b *Biquad) update(sampleRate, gainDB float64) {
	b.gainDB = gainDB
	b.c = PeakingCoefficients(sampleRate, b.freq, gainDB, Q)
}

// process filters one sample of channel ch (0 or 1).
func (b *Biquad) process(ch int, x float64) float64 {
	s := &b.state[ch]
	y := b.c.B0*x + b.c.B1*s.x1 + b.c.B2*s.x2 - b.c.A1*s.y1 - b.c.A2*s.y2
	s.x2 = s.x1
	s.x1 = x
	s.y2 = s.y1
	s.y1 = y
	return y
}

func (b *Biquad) reset() {
	b.state = [2]channelState{}
}
