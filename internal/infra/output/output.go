// Package output provides audio output sinks and the device backends behind them.
package output

import (
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
)

// Errors
var (
	ErrNoDevice          = errors.New("no output device available")
	ErrFormatUnsupported = errors.New("output format not supported")
	ErrNegotiationFailed = errors.New("output format negotiation failed")
	ErrUnknownBackend    = errors.New("unknown output backend")
	ErrSinkClosed        = errors.New("sink is closed")
)

// Sink accepts interleaved float32 samples for playback.
type Sink interface {
	// WriteSamples queues samples without blocking and returns how many were accepted.
	WriteSamples(samples []float32) int
	// NeedsData reports whether the producer should supply more samples.
	NeedsData() bool
	// Buffered returns the number of queued samples.
	Buffered() int
	// Pause keeps the stream open but outputs silence without draining.
	Pause()
	// Play resumes draining.
	Play()
	// Clear discards queued samples.
	Clear()
	SampleRate() int
	Channels() int
	// Close stops the stream. No callback runs after Close returns.
	Close() error
}

// Backend opens sinks on an output device.
type Backend interface {
	// Name returns the backend name (used in config).
	Name() string
	// Probe fails when no default output device exists.
	Probe() error
	// Open starts a stream with the given format. Zero rate and channels
	// request the device default.
	Open(sampleRate, channels int) (Sink, error)
	// Close releases the backend.
	Close() error
}

// Options are the buffering parameters shared by every backend.
type Options struct {
	CapacityMs int `default:"4000" validate:"gte=100,lte=60000"`
	LowWaterMs int `default:"250" validate:"gte=10,ltfield=CapacityMs"`
}

// Factory creates a backend from its settings map.
type Factory func(opts Options, settings map[string]any) (Backend, error)

// registry holds registered backend factories.
var registry = make(map[string]Factory)

// Register registers a backend factory.
func Register(name string, factory Factory) {
	registry[name] = factory
}

// Registered returns the registered backend names in sorted order.
func Registered() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewBackend creates the backend registered under name.
func NewBackend(name string, opts Options, settings map[string]any) (Backend, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownBackend, "%q (available: %v)", name, Registered())
	}
	if err := defaults.Set(&opts); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(opts); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	zlog.Debug().Msgf("output: creating backend: name=%s settings=%+v", name, settings)
	b, err := factory(opts, settings)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create backend %s", name)
	}
	return b, nil
}

// Open negotiates a sink: the exact format first, then the device default.
// It fails only when both attempts fail.
func Open(b Backend, sampleRate, channels int) (Sink, error) {
	sink, err := b.Open(sampleRate, channels)
	if err == nil {
		return sink, nil
	}
	zlog.Warn().Msgf("output: %s rejected %d Hz/%dch, falling back to device default: %v",
		b.Name(), sampleRate, channels, err)

	sink, fallbackErr := b.Open(0, 0)
	if fallbackErr != nil {
		return nil, errors.Wrapf(ErrNegotiationFailed, "%s: exact %d Hz/%dch: %v; default: %v",
			b.Name(), sampleRate, channels, err, fallbackErr)
	}
	zlog.Info().Msgf("output: %s opened with device default %d Hz/%dch",
		b.Name(), sink.SampleRate(), sink.Channels())
	return sink, nil
}

// decodeSettings decodes a settings map into cfg, applies defaults and validates.
func decodeSettings(settings map[string]any, cfg any) error {
	if err := mapstructure.Decode(settings, cfg); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(cfg); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(cfg); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}
