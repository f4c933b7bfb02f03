// Package playback runs the audio engine: a control goroutine that owns the
// decoder and output sink and talks to callers through commands and events.
package playback

// State represents the playback state.
type State int

const (
	StateIdle    State = iota // Nothing loaded
	StateLoaded               // Track info read, decoder and sink not yet running
	StatePlaying              // Samples are flowing to the sink
	StatePaused               // Sink is paused, decoder position held
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoaded:
		return "loaded"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// active reports whether a decoder and sink are held.
func (s State) active() bool {
	return s == StatePlaying || s == StatePaused
}
