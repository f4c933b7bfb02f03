package playback

import (
	"io"
	"math"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/osa030/oneamp/internal/app/capture"
	"github.com/osa030/oneamp/internal/app/equalizer"
	"github.com/osa030/oneamp/internal/domain/track"
	"github.com/osa030/oneamp/internal/infra/decoder"
	"github.com/osa030/oneamp/internal/infra/output"
)

// controller is the playback state machine. It is owned by the engine
// goroutine and is not safe for concurrent use.
type controller struct {
	cfg     Config
	backend output.Backend
	eq      *equalizer.Shared
	capture *capture.Buffer
	emit    func(Event)
	baseLog zerolog.Logger
	log     zerolog.Logger

	state  State
	loadID string
	info   *track.Info
	dec    *decoder.Decoder
	sink   output.Sink
	reader *chunkReader

	// pending holds samples the sink did not accept yet.
	pending    []float32
	pendingBuf []float32
	draining   bool

	lastPosition      time.Time
	lastVisualization time.Time
}

func newController(cfg Config, backend output.Backend, eq *equalizer.Shared, buf *capture.Buffer,
	emit func(Event), log zerolog.Logger) *controller {
	return &controller{
		cfg:     cfg,
		backend: backend,
		eq:      eq,
		capture: buf,
		emit:    emit,
		baseLog: log,
		log:     log,
		state:   StateIdle,
	}
}

// State returns the current playback state.
func (c *controller) State() State { return c.state }

// Apply handles one command and reports whether the engine should stop.
func (c *controller) Apply(cmd Command) bool {
	c.log.Debug().Msgf("engine: command %s", cmd.Type)

	switch cmd.Type {
	case CommandPlay:
		c.load(cmd.Path)

	case CommandPause:
		if c.state == StatePlaying {
			c.sink.Pause()
			c.state = StatePaused
			c.emit(Event{Type: EventPaused, LoadID: c.loadID})
		}

	case CommandResume:
		if c.state == StatePaused {
			c.sink.Play()
			c.state = StatePlaying
			c.emit(Event{Type: EventPlaying, LoadID: c.loadID})
		}

	case CommandStop:
		id := c.loadID
		c.teardown()
		c.emit(Event{Type: EventStopped, LoadID: id})

	case CommandSeek:
		c.seek(cmd.Seconds)

	case CommandNext:
		id := c.loadID
		c.teardown()
		c.emit(Event{Type: EventRequestNext, LoadID: id})

	case CommandPrevious:
		id := c.loadID
		c.teardown()
		c.emit(Event{Type: EventRequestPrevious, LoadID: id})

	case CommandSetEqEnabled:
		c.eq.SetEnabled(cmd.Enabled)
		c.emitEq()

	case CommandSetEqBand:
		if err := c.eq.SetBand(cmd.Band, cmd.GainDB); err != nil {
			c.log.Warn().Msgf("engine: ignoring band update: %v", err)
		}
		c.emitEq()

	case CommandSetEqBands:
		c.eq.SetBands(cmd.Gains)
		c.emitEq()

	case CommandResetEq:
		c.eq.Reset()
		c.emitEq()

	case CommandSetEqPreset:
		if gains, err := c.cfg.Presets.Lookup(cmd.Preset); err != nil {
			c.log.Warn().Msgf("engine: ignoring preset: %v", err)
		} else {
			c.eq.SetBands(gains)
		}
		c.emitEq()

	case CommandShutdown:
		c.teardown()
		return true

	default:
		c.log.Warn().Msgf("engine: unknown command %d", cmd.Type)
	}
	return false
}

// Step feeds the sink and emits periodic events. It reports whether it did
// decode work, in which case the caller should step again without waiting.
func (c *controller) Step(now time.Time) bool {
	if !c.state.active() {
		return false
	}

	busy := false
	if c.state == StatePlaying {
		if c.draining {
			c.flushPending()
			if len(c.pending) == 0 && c.sink.Buffered() == 0 {
				c.finish()
				return false
			}
		} else {
			busy = c.feed()
		}
	}
	if !c.state.active() {
		return false
	}

	if now.Sub(c.lastPosition) >= c.cfg.PositionInterval {
		c.emitPosition()
		c.lastPosition = now
	}
	if c.state == StatePlaying && c.cfg.VisualizationInterval >= 0 &&
		now.Sub(c.lastVisualization) >= c.cfg.VisualizationInterval {
		c.emit(Event{Type: EventVisualizationData, LoadID: c.loadID, Samples: c.capture.Snapshot()})
		c.lastVisualization = now
	}
	return busy
}

// load tears down any current track and starts path.
func (c *controller) load(path string) {
	c.teardown()
	c.loadID = uuid.NewString()
	c.log = c.baseLog.With().Str("load_id", c.loadID).Logger()

	info, err := decoder.ReadInfo(path)
	if err != nil {
		c.fail(errors.Wrap(err, "failed to load track"))
		return
	}
	c.info = &info
	c.state = StateLoaded
	c.emit(Event{Type: EventTrackLoaded, LoadID: c.loadID, Track: info.Clone()})

	dec, err := decoder.Open(path, c.cfg.Decoder)
	if err != nil {
		c.fail(errors.Wrap(err, "failed to open decoder"))
		return
	}
	c.dec = dec

	sink, err := output.Open(c.backend, dec.SampleRate(), dec.Channels())
	if err != nil {
		c.fail(errors.Wrap(err, "failed to open output"))
		return
	}
	c.sink = sink

	c.eq.SetSampleRate(float64(sink.SampleRate()))
	c.eq.ResetState()
	c.capture.Clear()
	c.reader = newChunkReader(dec, sink.SampleRate(), sink.Channels(), c.cfg.Decoder.ChunkFrames)
	if c.reader.converting() {
		c.log.Info().Msgf("engine: converting %d Hz/%dch to %d Hz/%dch",
			dec.SampleRate(), dec.Channels(), sink.SampleRate(), sink.Channels())
	}

	sink.Play()
	c.state = StatePlaying
	c.lastPosition = time.Time{}
	c.lastVisualization = time.Time{}
	c.log.Info().Msgf("engine: playing %s", path)
	c.emit(Event{Type: EventPlaying, LoadID: c.loadID})
}

// feed writes pending samples, then decodes one chunk if the sink wants data.
func (c *controller) feed() bool {
	if !c.flushPending() || !c.sink.NeedsData() {
		return false
	}

	chunk, err := c.reader.Next()
	if len(chunk) > 0 {
		channels := c.sink.Channels()
		c.eq.ProcessChunk(chunk, channels)
		c.capture.Update(chunk, channels)
		if n := c.sink.WriteSamples(chunk); n < len(chunk) {
			c.pendingBuf = append(c.pendingBuf[:0], chunk[n:]...)
			c.pending = c.pendingBuf
		}
	}

	switch {
	case err == nil:
		return true
	case errors.Is(err, io.EOF):
		c.log.Debug().Msg("engine: end of stream, draining output")
		c.draining = true
		return true
	default:
		c.fail(errors.Wrap(err, "playback failed"))
		return false
	}
}

// flushPending writes held-back samples and reports whether none remain.
func (c *controller) flushPending() bool {
	if len(c.pending) == 0 {
		return true
	}
	n := c.sink.WriteSamples(c.pending)
	c.pending = c.pending[n:]
	return len(c.pending) == 0
}

func (c *controller) seek(seconds float64) {
	if !c.state.active() {
		c.log.Debug().Msgf("engine: ignoring seek while %s", c.state)
		return
	}

	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	if total, ok := c.dec.Duration(); ok && seconds > total {
		seconds = total
	}
	if err := c.dec.Seek(seconds); err != nil {
		c.fail(errors.Wrap(err, "failed to seek"))
		return
	}

	c.sink.Clear()
	c.pending = nil
	c.draining = false
	c.eq.ResetState()
	c.capture.Clear()
	c.reader = newChunkReader(c.dec, c.sink.SampleRate(), c.sink.Channels(), c.cfg.Decoder.ChunkFrames)
	c.lastPosition = time.Time{}

	if c.state == StatePaused {
		c.emit(Event{Type: EventPaused, LoadID: c.loadID})
	} else {
		c.emit(Event{Type: EventPlaying, LoadID: c.loadID})
	}
}

// position returns the audible position: decoded time minus the audio still
// queued ahead of the device.
func (c *controller) position() float64 {
	queued := c.sink.Buffered() + len(c.pending)
	latency := float64(queued) / float64(c.sink.SampleRate()*c.sink.Channels())
	return max(c.dec.CurrentPosition()-latency, 0)
}

func (c *controller) total() float64 {
	if c.info != nil && c.info.DurationSec != nil {
		return *c.info.DurationSec
	}
	return 0
}

func (c *controller) emitPosition() {
	c.emit(Event{Type: EventPosition, LoadID: c.loadID, Current: c.position(), Total: c.total()})
}

func (c *controller) emitEq() {
	enabled, gains := c.eq.Snapshot()
	c.emit(Event{Type: EventEqUpdated, LoadID: c.loadID, Enabled: enabled, Gains: gains})
}

// finish ends a track that played to the end.
func (c *controller) finish() {
	id := c.loadID
	c.emitPosition()
	c.log.Info().Msg("engine: track finished")
	c.teardown()
	c.emit(Event{Type: EventFinished, LoadID: id})
}

// fail reports err and releases the track.
func (c *controller) fail(err error) {
	c.log.Error().Err(err).Msg("engine: playback error")
	id := c.loadID
	c.teardown()
	c.emit(Event{Type: EventError, LoadID: id, Message: err.Error()})
}

// teardown releases the decoder and sink without draining and returns to Idle.
func (c *controller) teardown() {
	if c.sink != nil {
		if err := c.sink.Close(); err != nil {
			c.log.Warn().Msgf("engine: failed to close sink: %v", err)
		}
		c.sink = nil
	}
	if c.dec != nil {
		if err := c.dec.Close(); err != nil {
			c.log.Warn().Msgf("engine: failed to close decoder: %v", err)
		}
		c.dec = nil
	}
	c.reader = nil
	c.info = nil
	c.loadID = ""
	c.log = c.baseLog
	c.pending = nil
	c.draining = false
	c.state = StateIdle
}
