package decoder

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/dhowden/tag"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/oneamp/internal/domain/track"
)

// ReadInfo builds a track.Info from the stream parameters and the file tags.
// Missing or unreadable tags leave the tag fields empty.
func ReadInfo(path string) (track.Info, error) {
	d, err := Open(path, Options{ChunkFrames: 1})
	if err != nil {
		return track.Info{}, err
	}
	defer d.Close()

	rate, channels := d.SampleRate(), d.Channels()
	info := track.Info{
		Path:       path,
		Format:     d.Format(),
		SampleRate: &rate,
		Channels:   &channels,
	}
	if secs, ok := d.Duration(); ok {
		info.DurationSec = &secs
	}
	if bits := d.s.BitDepth(); bits > 0 {
		info.BitDepth = &bits
	}

	m, err := readTags(d)
	if err != nil {
		zlog.Debug().Msgf("decoder: no tags in %s: %v", path, err)
		return info, nil
	}
	info.Title = m.Title()
	info.Artist = m.Artist()
	info.Album = m.Album()
	info.Genre = m.Genre()
	info.Year = m.Year()
	info.TrackNumber, _ = m.Track()
	return info, nil
}

func readTags(d *Decoder) (tag.Metadata, error) {
	if _, err := d.file.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "failed to rewind")
	}
	return tag.ReadFrom(d.file)
}
