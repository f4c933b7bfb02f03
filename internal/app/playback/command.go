package playback

import "github.com/osa030/oneamp/internal/app/equalizer"

// CommandType represents a command sent to the engine.
type CommandType int

const (
	CommandPlay         CommandType = iota // Load and play a file
	CommandPause                           // Pause playback
	CommandResume                          // Resume paused playback
	CommandStop                            // Stop and release the track
	CommandSeek                            // Seek to a position in seconds
	CommandNext                            // Stop and ask the caller for the next track
	CommandPrevious                        // Stop and ask the caller for the previous track
	CommandSetEqEnabled                    // Enable or bypass the equalizer
	CommandSetEqBand                       // Set one band gain
	CommandSetEqBands                      // Set all band gains
	CommandResetEq                         // Flatten all bands
	CommandSetEqPreset                     // Apply a named preset
	CommandShutdown                        // Tear down and stop the engine
)

// String returns the string representation of the command type.
func (c CommandType) String() string {
	switch c {
	case CommandPlay:
		return "play"
	case CommandPause:
		return "pause"
	case CommandResume:
		return "resume"
	case CommandStop:
		return "stop"
	case CommandSeek:
		return "seek"
	case CommandNext:
		return "next"
	case CommandPrevious:
		return "previous"
	case CommandSetEqEnabled:
		return "set_eq_enabled"
	case CommandSetEqBand:
		return "set_eq_band"
	case CommandSetEqBands:
		return "set_eq_bands"
	case CommandResetEq:
		return "reset_eq"
	case CommandSetEqPreset:
		return "set_eq_preset"
	case CommandShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Command is a request to the engine. Only the fields of its Type are used.
type Command struct {
	Type    CommandType
	Path    string          // Play
	Seconds float64         // Seek
	Enabled bool            // SetEqEnabled
	Band    int             // SetEqBand
	GainDB  float64         // SetEqBand
	Gains   equalizer.Gains // SetEqBands
	Preset  string          // SetEqPreset
}

// Command constructors.

func Play(path string) Command             { return Command{Type: CommandPlay, Path: path} }
func Pause() Command                       { return Command{Type: CommandPause} }
func Resume() Command                      { return Command{Type: CommandResume} }
func Stop() Command                        { return Command{Type: CommandStop} }
func Seek(seconds float64) Command         { return Command{Type: CommandSeek, Seconds: seconds} }
func Next() Command                        { return Command{Type: CommandNext} }
func Previous() Command                    { return Command{Type: CommandPrevious} }
func SetEqEnabled(enabled bool) Command    { return Command{Type: CommandSetEqEnabled, Enabled: enabled} }
func SetEqBands(gains [10]float64) Command { return Command{Type: CommandSetEqBands, Gains: gains} }
func ResetEq() Command                     { return Command{Type: CommandResetEq} }
func SetEqPreset(name string) Command      { return Command{Type: CommandSetEqPreset, Preset: name} }
func Shutdown() Command                    { return Command{Type: CommandShutdown} }

func SetEqBand(band int, gainDB float64) Command {
	return Command{Type: CommandSetEqBand, Band: band, GainDB: gainDB}
}
