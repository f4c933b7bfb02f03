package playback

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/oneamp/internal/app/capture"
	"github.com/osa030/oneamp/internal/app/equalizer"
	"github.com/osa030/oneamp/internal/infra/output"
)

// dcLevel is the 16-bit value written by constant fixtures.
const dcLevel = 8192

// writeFixture writes a 16-bit WAV file whose samples come from gen.
func writeFixture(t *testing.T, name string, rate, channels int, seconds float64, gen func(i int) int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	data := make([]int, int(float64(rate)*seconds)*channels)
	for i := range data {
		data[i] = gen(i)
	}
	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	return path
}

func constant(int) int { return dcLevel }

func sine(rate, channels int, freq float64) func(int) int {
	return func(i int) int {
		frame := i / channels
		return int(16000 * math.Sin(2*math.Pi*freq*float64(frame)/float64(rate)))
	}
}

// newNullBackend returns a clocked virtual device.
func newNullBackend(t *testing.T, settings map[string]any) output.Backend {
	t.Helper()
	b, err := output.NewBackend("null", output.Options{}, settings)
	require.NoError(t, err)
	return b
}

type recorder struct {
	events []Event
}

func (r *recorder) emit(ev Event) { r.events = append(r.events, ev) }

func (r *recorder) types() []EventType {
	out := make([]EventType, 0, len(r.events))
	for _, ev := range r.events {
		if !ev.Type.lossy() {
			out = append(out, ev.Type)
		}
	}
	return out
}

func (r *recorder) reset() { r.events = nil }

func newTestController(t *testing.T, backend output.Backend) (*controller, *recorder) {
	t.Helper()
	rec := &recorder{}
	cfg := DefaultConfig().withDefaults()
	ctrl := newController(cfg, backend, equalizer.NewShared(equalizer.DefaultSampleRate),
		capture.New(cfg.CaptureSize), rec.emit, zerolog.Nop())
	t.Cleanup(func() { ctrl.Apply(Shutdown()) })
	return ctrl, rec
}

func TestController_LoadSequence(t *testing.T) {
	path := writeFixture(t, "tone.wav", 44100, 2, 0.5, sine(44100, 2, 440))
	ctrl, rec := newTestController(t, newNullBackend(t, nil))

	assert.False(t, ctrl.Apply(Play(path)))

	assert.Equal(t, StatePlaying, ctrl.State())
	require.Equal(t, []EventType{EventTrackLoaded, EventPlaying}, rec.types())

	loaded := rec.events[0]
	require.NotNil(t, loaded.Track)
	assert.Equal(t, path, loaded.Track.Path)
	assert.Equal(t, "wav", loaded.Track.Format)
	require.NotNil(t, loaded.Track.DurationSec)
	assert.InDelta(t, 0.5, *loaded.Track.DurationSec, 1e-9)
	assert.NotEmpty(t, loaded.LoadID)
	assert.Equal(t, loaded.LoadID, rec.events[1].LoadID)
}

func TestController_LoadFailureReturnsToIdle(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.wav")
	require.NoError(t, os.WriteFile(garbage, []byte("not a wave file at all"), 0o644))
	good := writeFixture(t, "tone.wav", 44100, 2, 0.2, constant)

	tests := []struct {
		name     string
		path     string
		settings map[string]any
		expected []EventType
	}{
		{
			name:     "missing file",
			path:     filepath.Join(dir, "missing.wav"),
			expected: []EventType{EventError},
		},
		{
			name:     "unknown format",
			path:     garbage,
			expected: []EventType{EventError},
		},
		{
			name:     "negotiation fails",
			path:     good,
			settings: map[string]any{"unavailable": true},
			expected: []EventType{EventTrackLoaded, EventError},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl, rec := newTestController(t, newNullBackend(t, tt.settings))

			ctrl.Apply(Play(tt.path))

			assert.Equal(t, tt.expected, rec.types())
			assert.NotEmpty(t, rec.events[len(rec.events)-1].Message)
			assert.Equal(t, StateIdle, ctrl.State())
			assert.Nil(t, ctrl.dec)
			assert.Nil(t, ctrl.sink)
		})
	}
}

func TestController_PauseResumeEmitOnChange(t *testing.T) {
	path := writeFixture(t, "tone.wav", 44100, 2, 1, constant)
	ctrl, rec := newTestController(t, newNullBackend(t, nil))

	ctrl.Apply(Play(path))
	rec.reset()

	ctrl.Apply(Pause())
	ctrl.Apply(Pause())
	assert.Equal(t, StatePaused, ctrl.State())
	ctrl.Apply(Resume())
	ctrl.Apply(Resume())
	assert.Equal(t, StatePlaying, ctrl.State())

	assert.Equal(t, []EventType{EventPaused, EventPlaying}, rec.types())
}

func TestController_StopAlwaysEmits(t *testing.T) {
	path := writeFixture(t, "tone.wav", 44100, 2, 1, constant)
	ctrl, rec := newTestController(t, newNullBackend(t, nil))

	ctrl.Apply(Stop())
	assert.Equal(t, []EventType{EventStopped}, rec.types())

	ctrl.Apply(Play(path))
	id := rec.events[0].LoadID
	rec.reset()
	ctrl.Apply(Stop())
	assert.Equal(t, []EventType{EventStopped}, rec.types())
	assert.Equal(t, id, rec.events[0].LoadID)
	assert.Equal(t, StateIdle, ctrl.State())
	assert.Nil(t, ctrl.sink)

	// A released track no longer owns later events.
	rec.reset()
	ctrl.Apply(Stop())
	require.Equal(t, []EventType{EventStopped}, rec.types())
	assert.Empty(t, rec.events[0].LoadID)
}

func TestController_SeekWhileIdleIgnored(t *testing.T) {
	ctrl, rec := newTestController(t, newNullBackend(t, nil))
	ctrl.Apply(Seek(3))
	assert.Empty(t, rec.events)
	assert.Equal(t, StateIdle, ctrl.State())
}

func TestController_SeekKeepsPauseState(t *testing.T) {
	path := writeFixture(t, "tone.wav", 8000, 1, 2, constant)
	ctrl, rec := newTestController(t, newNullBackend(t, nil))

	ctrl.Apply(Play(path))
	ctrl.Apply(Pause())
	rec.reset()

	ctrl.Apply(Seek(1.5))
	assert.Equal(t, []EventType{EventPaused}, rec.types())
	assert.Equal(t, StatePaused, ctrl.State())
	assert.Zero(t, ctrl.sink.Buffered())

	rec.reset()
	ctrl.Step(time.Now())
	require.Len(t, rec.events, 1)
	assert.Equal(t, EventPosition, rec.events[0].Type)
	assert.InDelta(t, 1.5, rec.events[0].Current, 1e-6)
	assert.InDelta(t, 2.0, rec.events[0].Total, 1e-6)

	// Seeking past the end clamps to the duration.
	ctrl.Apply(Seek(30))
	assert.InDelta(t, 2.0, ctrl.position(), 1e-6)
}

func TestController_NextPreviousTearDown(t *testing.T) {
	path := writeFixture(t, "tone.wav", 44100, 2, 1, constant)
	ctrl, rec := newTestController(t, newNullBackend(t, nil))

	ctrl.Apply(Play(path))
	id := rec.events[0].LoadID
	rec.reset()

	ctrl.Apply(Next())
	require.Equal(t, []EventType{EventRequestNext}, rec.types())
	assert.Equal(t, id, rec.events[0].LoadID)
	assert.Equal(t, StateIdle, ctrl.State())

	rec.reset()
	ctrl.Apply(Previous())
	assert.Equal(t, []EventType{EventRequestPrevious}, rec.types())
}

func TestController_EqualizerCommands(t *testing.T) {
	ctrl, rec := newTestController(t, newNullBackend(t, nil))
	rock, err := equalizer.DefaultPresets().Lookup("rock")
	require.NoError(t, err)

	tests := []struct {
		name        string
		cmd         Command
		wantType    EventType
		wantEnabled bool
		wantGains   equalizer.Gains
	}{
		{
			name:        "enable",
			cmd:         SetEqEnabled(true),
			wantType:    EventEqUpdated,
			wantEnabled: true,
		},
		{
			name:        "set band",
			cmd:         SetEqBand(3, 6),
			wantType:    EventEqUpdated,
			wantEnabled: true,
			wantGains:   equalizer.Gains{0, 0, 0, 6},
		},
		{
			name:        "band out of range leaves gains unchanged",
			cmd:         SetEqBand(10, 3),
			wantType:    EventEqUpdated,
			wantEnabled: true,
			wantGains:   equalizer.Gains{0, 0, 0, 6},
		},
		{
			name:        "gains are clamped",
			cmd:         SetEqBand(0, 40),
			wantType:    EventEqUpdated,
			wantEnabled: true,
			wantGains:   equalizer.Gains{12, 0, 0, 6},
		},
		{
			name:      "disable keeps gains",
			cmd:       SetEqEnabled(false),
			wantType:  EventEqUpdated,
			wantGains: equalizer.Gains{12, 0, 0, 6},
		},
		{
			name:      "preset",
			cmd:       SetEqPreset("Rock"),
			wantType:  EventEqUpdated,
			wantGains: rock,
		},
		{
			name:      "unknown preset leaves gains unchanged",
			cmd:       SetEqPreset("polka"),
			wantType:  EventEqUpdated,
			wantGains: rock,
		},
		{
			name:     "reset",
			cmd:      ResetEq(),
			wantType: EventEqUpdated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec.reset()
			ctrl.Apply(tt.cmd)
			require.Len(t, rec.events, 1)
			ev := rec.events[0]
			assert.Equal(t, tt.wantType, ev.Type)
			if tt.wantType == EventEqUpdated {
				assert.Equal(t, tt.wantEnabled, ev.Enabled)
				assert.Equal(t, tt.wantGains, ev.Gains)
			}
		})
	}
	assert.Equal(t, StateIdle, ctrl.State())
}

func TestController_UnknownPresetKeepsPlaying(t *testing.T) {
	path := writeFixture(t, "tone.wav", 44100, 2, 1, constant)
	ctrl, rec := newTestController(t, newNullBackend(t, nil))

	ctrl.Apply(Play(path))
	id := rec.events[0].LoadID
	ctrl.Apply(SetEqBand(4, 3))
	rec.reset()

	ctrl.Apply(SetEqPreset("polka"))
	require.Equal(t, []EventType{EventEqUpdated}, rec.types())
	assert.Equal(t, id, rec.events[0].LoadID)
	assert.Equal(t, equalizer.Gains{0, 0, 0, 0, 3}, rec.events[0].Gains)
	assert.Equal(t, StatePlaying, ctrl.State())
	assert.NotNil(t, ctrl.sink)
}

func TestController_ShutdownReleases(t *testing.T) {
	path := writeFixture(t, "tone.wav", 44100, 2, 1, constant)
	ctrl, rec := newTestController(t, newNullBackend(t, nil))

	ctrl.Apply(Play(path))
	rec.reset()
	assert.True(t, ctrl.Apply(Shutdown()))
	assert.Empty(t, rec.events)
	assert.Equal(t, StateIdle, ctrl.State())
	assert.Nil(t, ctrl.sink)
	assert.Nil(t, ctrl.dec)
}

func TestController_PlaysToFinish(t *testing.T) {
	path := writeFixture(t, "tone.wav", 8000, 1, 0.5, constant)
	ctrl, rec := newTestController(t, newNullBackend(t, map[string]any{"speed": 20.0}))

	ctrl.Apply(Play(path))
	deadline := time.Now().Add(5 * time.Second)
	for ctrl.State() != StateIdle {
		require.True(t, time.Now().Before(deadline), "track did not finish")
		if !ctrl.Step(time.Now()) {
			time.Sleep(time.Millisecond)
		}
	}

	types := rec.types()
	require.NotEmpty(t, types)
	assert.Equal(t, EventFinished, types[len(types)-1])

	// The last position before Finished reports the full length.
	var last Event
	for _, ev := range rec.events {
		if ev.Type == EventPosition {
			last = ev
		}
	}
	assert.InDelta(t, 0.5, last.Current, 1e-6)
}
