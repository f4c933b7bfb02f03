package output

import (
	"slices"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// ClockConfig describes a virtual device that consumes samples on a timer.
type ClockConfig struct {
	Speed             float64 `mapstructure:"speed" default:"1" validate:"gt=0,lte=1000"`
	PeriodMs          int     `mapstructure:"period_ms" default:"10" validate:"gte=1,lte=1000"`
	SupportedRates    []int   `mapstructure:"supported_rates" validate:"dive,gte=8000,lte=384000"`
	SupportedChannels []int   `mapstructure:"supported_channels" validate:"dive,gte=1,lte=8"`
	DefaultRate       int     `mapstructure:"default_rate" default:"48000" validate:"gte=8000,lte=384000"`
	DefaultChannels   int     `mapstructure:"default_channels" default:"2" validate:"gte=1,lte=8"`
	Unavailable       bool    `mapstructure:"unavailable"`
}

// resolve applies the device default and the supported-format lists.
func (c ClockConfig) resolve(sampleRate, channels int) (int, int, error) {
	if sampleRate == 0 && channels == 0 {
		return c.DefaultRate, c.DefaultChannels, nil
	}
	if len(c.SupportedRates) > 0 && !slices.Contains(c.SupportedRates, sampleRate) {
		return 0, 0, errors.Wrapf(ErrFormatUnsupported, "sample rate %d", sampleRate)
	}
	if len(c.SupportedChannels) > 0 && !slices.Contains(c.SupportedChannels, channels) {
		return 0, 0, errors.Wrapf(ErrFormatUnsupported, "%d channels", channels)
	}
	if sampleRate <= 0 || channels <= 0 {
		return 0, 0, errors.Wrapf(ErrFormatUnsupported, "%d Hz/%dch", sampleRate, channels)
	}
	return sampleRate, channels, nil
}

// clockSink drains its FIFO from a ticker goroutine at Speed times real time.
// consume, when set, receives every period of rendered output.
type clockSink struct {
	*FIFO
	period  time.Duration
	speed   float64
	consume func([]float32)
	onClose func() error

	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

func newClockSink(fifo *FIFO, cfg ClockConfig, consume func([]float32), onClose func() error) *clockSink {
	s := &clockSink{
		FIFO:    fifo,
		period:  time.Duration(cfg.PeriodMs) * time.Millisecond,
		speed:   cfg.Speed,
		consume: consume,
		onClose: onClose,
		stop:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *clockSink) run() {
	defer s.wg.Done()

	perTick := float64(s.SampleRate()) * s.period.Seconds() * s.speed
	scratch := make([]float32, (int(perTick)+1)*s.Channels())
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	var carry float64
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			carry += perTick
			frames := int(carry)
			carry -= float64(frames)
			out := scratch[:frames*s.Channels()]
			s.Fill(out)
			if s.consume != nil {
				s.consume(out)
			}
		}
	}
}

// Close stops the clock and runs the close hook.
func (s *clockSink) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()
		if s.onClose != nil {
			s.closeErr = s.onClose()
		}
	})
	return s.closeErr
}
