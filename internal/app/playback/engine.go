package playback

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/oneamp/internal/app/capture"
	"github.com/osa030/oneamp/internal/app/equalizer"
	"github.com/osa030/oneamp/internal/infra/decoder"
	"github.com/osa030/oneamp/internal/infra/output"
)

// Errors
var (
	ErrNoOutputDevice   = errors.New("no output device available")
	ErrCommandQueueFull = errors.New("command queue is full")
	ErrEngineClosed     = errors.New("engine is closed")
)

// Config holds engine configuration.
type Config struct {
	TickInterval          time.Duration // Longest wait for a command between steps
	PositionInterval      time.Duration // Minimum spacing of Position events
	VisualizationInterval time.Duration // Minimum spacing of VisualizationData events, 0 = every step, <0 = off
	CommandQueueSize      int
	EventQueueSize        int
	CaptureSize           int // Samples kept for visualization
	Decoder               decoder.Options
	Presets               equalizer.Presets // Named gain sets for SetEqPreset
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		TickInterval:          time.Millisecond,
		PositionInterval:      100 * time.Millisecond,
		VisualizationInterval: 33 * time.Millisecond,
		CommandQueueSize:      256,
		EventQueueSize:        1024,
		CaptureSize:           capture.DefaultSize,
		Decoder:               decoder.DefaultOptions(),
		Presets:               equalizer.DefaultPresets(),
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.TickInterval <= 0 {
		c.TickInterval = def.TickInterval
	}
	if c.PositionInterval <= 0 {
		c.PositionInterval = def.PositionInterval
	}
	if c.CommandQueueSize <= 0 {
		c.CommandQueueSize = def.CommandQueueSize
	}
	if c.EventQueueSize <= 0 {
		c.EventQueueSize = def.EventQueueSize
	}
	if c.CaptureSize <= 0 {
		c.CaptureSize = def.CaptureSize
	}
	if c.Presets == nil {
		c.Presets = def.Presets
	}
	c.Decoder = c.Decoder.WithDefaults()
	return c
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	eq      *equalizer.Shared
	capture *capture.Buffer
}

// WithEqualizer shares an existing equalizer with the engine.
func WithEqualizer(eq *equalizer.Shared) Option {
	return func(o *engineOptions) { o.eq = eq }
}

// WithCapture shares an existing capture buffer with the engine.
func WithCapture(buf *capture.Buffer) Option {
	return func(o *engineOptions) { o.capture = buf }
}

// Engine runs playback on its own goroutine. All methods are safe for
// concurrent use and never block, except Close.
type Engine struct {
	id       string
	commands chan Command
	events   chan Event
	done     chan struct{}

	closed    atomic.Bool
	closeOnce sync.Once
}

// New probes backend for an output device and starts the engine goroutine.
// The backend stays owned by the caller.
func New(cfg Config, backend output.Backend, opts ...Option) (*Engine, error) {
	if err := backend.Probe(); err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "backend %s", backend.Name()), ErrNoOutputDevice)
	}

	cfg = cfg.withDefaults()
	o := engineOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.eq == nil {
		o.eq = equalizer.NewShared(equalizer.DefaultSampleRate)
	}
	if o.capture == nil {
		o.capture = capture.New(cfg.CaptureSize)
	}

	e := &Engine{
		id:       uuid.NewString(),
		commands: make(chan Command, cfg.CommandQueueSize),
		events:   make(chan Event, cfg.EventQueueSize),
		done:     make(chan struct{}),
	}
	log := zlog.With().Str("engine_id", e.id).Logger()
	ctrl := newController(cfg, backend, o.eq, o.capture, newEmitter(e.events, log), log)

	log.Info().Msgf("engine: started with backend %s", backend.Name())
	go run(ctrl, e.commands, e.done, e.events, cfg.TickInterval)
	return e, nil
}

// ID returns the engine identifier used in logs.
func (e *Engine) ID() string { return e.id }

// SendCommand queues cmd without blocking.
func (e *Engine) SendCommand(cmd Command) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	select {
	case e.commands <- cmd:
		return nil
	default:
		return errors.Wrapf(ErrCommandQueueFull, "dropping %s", cmd.Type)
	}
}

// TryRecvEvent returns the next event if one is queued.
func (e *Engine) TryRecvEvent() (Event, bool) {
	select {
	case ev, ok := <-e.events:
		return ev, ok
	default:
		return Event{}, false
	}
}

// Events returns the event channel. It is closed when the engine stops.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Done is closed when the engine goroutine has exited.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Close shuts the engine down and waits for the goroutine to exit. The sink
// is closed before Close returns. Calling Close again is a no-op.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		select {
		case e.commands <- Shutdown():
		case <-e.done:
		}
		<-e.done
	})
	return nil
}

// newEmitter returns the event send function. State events are dropped only
// when the queue is full; lossy events once it is half full.
func newEmitter(events chan Event, log zerolog.Logger) func(Event) {
	half := cap(events) / 2
	return func(ev Event) {
		if ev.Type.lossy() && len(events) >= half {
			return
		}
		select {
		case events <- ev:
		default:
			log.Error().Msgf("engine: event queue full, dropping %s", ev.Type)
		}
	}
}

// run is the engine loop: apply at most one command, step playback, then
// wait up to tick for the next command.
func run(ctrl *controller, commands <-chan Command, done chan struct{}, events chan Event, tick time.Duration) {
	defer close(done)
	defer close(events)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	var queued *Command
	for {
		if queued == nil {
			select {
			case cmd := <-commands:
				queued = &cmd
			default:
			}
		}
		if queued != nil {
			cmd := *queued
			queued = nil
			if ctrl.Apply(cmd) {
				return
			}
		}

		if ctrl.Step(time.Now()) {
			continue
		}

		select {
		case cmd := <-commands:
			queued = &cmd
		case <-ticker.C:
		}
	}
}
