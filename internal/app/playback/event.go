package playback

import (
	"github.com/osa030/oneamp/internal/app/equalizer"
	"github.com/osa030/oneamp/internal/domain/track"
)

// EventType represents a playback event type.
type EventType int

const (
	EventTrackLoaded       EventType = iota // Track info read
	EventPlaying                            // Playback started or resumed
	EventPaused                             // Playback paused
	EventStopped                            // Playback stopped by request
	EventPosition                           // Periodic position update
	EventFinished                           // Track played to the end
	EventRequestNext                        // Caller should load the next track
	EventRequestPrevious                    // Caller should load the previous track
	EventEqUpdated                          // Equalizer state changed
	EventVisualizationData                  // Latest processed samples
	EventError                              // Load, decode or seek failure
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackLoaded:
		return "track_loaded"
	case EventPlaying:
		return "playing"
	case EventPaused:
		return "paused"
	case EventStopped:
		return "stopped"
	case EventPosition:
		return "position"
	case EventFinished:
		return "finished"
	case EventRequestNext:
		return "request_next"
	case EventRequestPrevious:
		return "request_previous"
	case EventEqUpdated:
		return "eq_updated"
	case EventVisualizationData:
		return "visualization_data"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// lossy reports whether events of this type may be dropped under backpressure.
func (e EventType) lossy() bool {
	return e == EventPosition || e == EventVisualizationData
}

// Event represents a playback event.
type Event struct {
	Type    EventType
	LoadID  string          // Load the event refers to, empty if none
	Track   *track.Info     // TrackLoaded
	Current float64         // Position: seconds played
	Total   float64         // Position: track length in seconds, 0 if unknown
	Enabled bool            // EqUpdated
	Gains   equalizer.Gains // EqUpdated
	Samples []float32       // VisualizationData, owned by the receiver
	Message string          // Error
}
