package capture

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

const (
	minBarHz = 20.0
	maxBarHz = 20000.0
)

// Analyzer turns interleaved snapshots into log-spaced spectrum bars in [0, 1].
type Analyzer struct {
	bars       int
	sampleRate float64
	prev       []float64
	mono       []float64
}

// NewAnalyzer creates an analyzer producing bars levels.
func NewAnalyzer(bars int, sampleRate float64) *Analyzer {
	return &Analyzer{
		bars:       bars,
		sampleRate: sampleRate,
		prev:       make([]float64, bars),
	}
}

// SetSampleRate changes the rate used to map FFT bins to frequencies.
func (a *Analyzer) SetSampleRate(sampleRate float64) {
	if sampleRate > 0 {
		a.sampleRate = sampleRate
	}
}

// Analyze returns the smoothed bar levels of samples.
func (a *Analyzer) Analyze(samples []float32, channels int) []float64 {
	levels := Spectrum(a.mixDown(samples, channels), a.sampleRate, a.bars)
	for i, v := range levels {
		if v > a.prev[i] {
			v = v*0.6 + a.prev[i]*0.4
		} else {
			v = v*0.25 + a.prev[i]*0.75
		}
		levels[i] = v
		a.prev[i] = v
	}
	return levels
}

func (a *Analyzer) mixDown(samples []float32, channels int) []float64 {
	if channels < 1 {
		channels = 1
	}
	frames := len(samples) / channels
	if cap(a.mono) < frames {
		a.mono = make([]float64, frames)
	}
	a.mono = a.mono[:frames]
	for f := range frames {
		var sum float64
		for c := range channels {
			sum += float64(samples[f*channels+c])
		}
		a.mono[f] = sum / float64(channels)
	}
	return a.mono
}

// Spectrum computes bars log-spaced magnitude levels of a mono signal.
func Spectrum(mono []float64, sampleRate float64, bars int) []float64 {
	levels := make([]float64, bars)
	if len(mono) < 2 || bars <= 0 || sampleRate <= 0 {
		return levels
	}

	buf := make([]float64, len(mono))
	copy(buf, mono)
	window.Apply(buf, window.Hann)
	spectrum := fft.FFTReal(buf)

	half := len(spectrum) / 2
	binHz := sampleRate / float64(len(spectrum))
	top := math.Min(maxBarHz, sampleRate/2)
	ratio := math.Pow(top/minBarHz, 1/float64(bars))

	lo := minBarHz
	for b := range bars {
		hi := lo * ratio
		loIdx := max(1, int(lo/binHz))
		hiIdx := min(half-1, int(hi/binHz))

		var sum float64
		count := 0
		for i := loIdx; i <= hiIdx; i++ {
			sum += cmplx.Abs(spectrum[i])
			count++
		}
		if count > 0 {
			sum /= float64(count)
		}
		if sum > 0 {
			levels[b] = math.Max(0, math.Min(1, (20*math.Log10(sum)+10)/50))
		}
		lo = hi
	}
	return levels
}
