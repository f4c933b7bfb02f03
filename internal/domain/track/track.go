// Package track provides the track Info value type.
package track

import (
	"path/filepath"
	"strings"
	"time"
)

// Info describes a loaded audio file.
// Optional fields are nil or empty when the file does not provide them.
type Info struct {
	Path        string   // File path as given to Play
	Format      string   // Detected format (mp3, flac, ogg, wav)
	Title       string   // Tag title
	Artist      string   // Tag artist
	Album       string   // Tag album
	Genre       string   // Tag genre
	Year        int      // Tag year, 0 if unknown
	TrackNumber int      // Tag track number, 0 if unknown
	DurationSec *float64 // Stream duration in seconds
	SampleRate  *int     // Source sample rate in Hz
	Channels    *int     // Source channel count
	BitDepth    *int     // Source bit depth, nil for float codecs
}

// DisplayTitle returns "Artist - Title", the title alone, or the file name
// without extension when the file carries no tags.
func (i *Info) DisplayTitle() string {
	switch {
	case i.Title != "" && i.Artist != "":
		return i.Artist + " - " + i.Title
	case i.Title != "":
		return i.Title
	}
	base := filepath.Base(i.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Duration returns the stream duration when known.
func (i *Info) Duration() (time.Duration, bool) {
	if i.DurationSec == nil {
		return 0, false
	}
	return time.Duration(*i.DurationSec * float64(time.Second)), true
}

// Clone returns a deep copy so events never share pointers with the controller.
func (i *Info) Clone() *Info {
	if i == nil {
		return nil
	}
	c := *i
	c.DurationSec = clonePtr(i.DurationSec)
	c.SampleRate = clonePtr(i.SampleRate)
	c.Channels = clonePtr(i.Channels)
	c.BitDepth = clonePtr(i.BitDepth)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
