package output

import "github.com/cockroachdb/errors"

func init() {
	Register("null", NewNullBackend)
}

// NullBackend is a virtual device that discards audio at a simulated clock.
type NullBackend struct {
	opts Options
	cfg  ClockConfig
}

// NewNullBackend creates a null backend from its settings map.
func NewNullBackend(opts Options, settings map[string]any) (Backend, error) {
	var cfg ClockConfig
	if err := decodeSettings(settings, &cfg); err != nil {
		return nil, err
	}
	return &NullBackend{opts: opts, cfg: cfg}, nil
}

// Name returns the backend name.
func (b *NullBackend) Name() string { return "null" }

// Probe fails when the device is configured as unavailable.
func (b *NullBackend) Probe() error {
	if b.cfg.Unavailable {
		return errors.Wrap(ErrNoDevice, "null device disabled")
	}
	return nil
}

// Open starts a clocked sink.
func (b *NullBackend) Open(sampleRate, channels int) (Sink, error) {
	if err := b.Probe(); err != nil {
		return nil, err
	}
	rate, ch, err := b.cfg.resolve(sampleRate, channels)
	if err != nil {
		return nil, err
	}
	fifo := NewFIFO(rate, ch, b.opts.CapacityMs, b.opts.LowWaterMs)
	return newClockSink(fifo, b.cfg, nil, nil), nil
}

// Close is a no-op.
func (b *NullBackend) Close() error { return nil }
