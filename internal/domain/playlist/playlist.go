// Package playlist provides the file Playlist used by the CLI to sequence tracks.
package playlist

import "math/rand/v2"

// Option configures a Playlist.
type Option func(*Playlist)

// WithRepeat makes Next and Prev wrap around at the ends.
func WithRepeat(repeat bool) Option {
	return func(p *Playlist) { p.repeat = repeat }
}

// Playlist is an ordered list of file paths with a cursor.
// It is not safe for concurrent use.
type Playlist struct {
	paths  []string
	pos    int
	repeat bool
}

// New creates a playlist positioned at the first path.
func New(paths []string, opts ...Option) *Playlist {
	p := &Playlist{paths: append([]string(nil), paths...)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Len returns the number of paths.
func (p *Playlist) Len() int { return len(p.paths) }

// Repeat reports whether the playlist wraps around.
func (p *Playlist) Repeat() bool { return p.repeat }

// SetRepeat toggles wraparound.
func (p *Playlist) SetRepeat(repeat bool) { p.repeat = repeat }

// Paths returns a copy of the paths in play order.
func (p *Playlist) Paths() []string {
	return append([]string(nil), p.paths...)
}

// Index returns the cursor position.
func (p *Playlist) Index() int { return p.pos }

// Current returns the path under the cursor.
func (p *Playlist) Current() (string, bool) {
	if len(p.paths) == 0 {
		return "", false
	}
	return p.paths[p.pos], true
}

// Next advances the cursor. At the last path it wraps when repeat is on and
// otherwise returns false without moving.
func (p *Playlist) Next() (string, bool) {
	if len(p.paths) == 0 {
		return "", false
	}
	if p.pos+1 >= len(p.paths) {
		if !p.repeat {
			return "", false
		}
		p.pos = 0
	} else {
		p.pos++
	}
	return p.paths[p.pos], true
}

// Prev moves the cursor back. At the first path it wraps when repeat is on
// and otherwise returns false without moving.
func (p *Playlist) Prev() (string, bool) {
	if len(p.paths) == 0 {
		return "", false
	}
	if p.pos == 0 {
		if !p.repeat {
			return "", false
		}
		p.pos = len(p.paths) - 1
	} else {
		p.pos--
	}
	return p.paths[p.pos], true
}

// Jump moves the cursor to index i.
func (p *Playlist) Jump(i int) (string, bool) {
	if i < 0 || i >= len(p.paths) {
		return "", false
	}
	p.pos = i
	return p.paths[p.pos], true
}

// Add appends paths to the end of the playlist.
func (p *Playlist) Add(paths ...string) {
	p.paths = append(p.paths, paths...)
}

// Shuffle randomizes the order and moves the cursor to the first path.
func (p *Playlist) Shuffle(r *rand.Rand) {
	r.Shuffle(len(p.paths), func(i, j int) {
		p.paths[i], p.paths[j] = p.paths[j], p.paths[i]
	})
	p.pos = 0
}
