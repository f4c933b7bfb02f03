package decoder

import (
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gabriel-vasile/mimetype"
	zlog "github.com/rs/zerolog/log"
)

// mimeFormats maps detected MIME types to registered format names.
var mimeFormats = map[string]string{
	"audio/mpeg":      "mp3",
	"audio/flac":      "flac",
	"audio/ogg":       "ogg",
	"application/ogg": "ogg",
	"audio/wav":       "wav",
}

// extFormats is consulted only when content sniffing is inconclusive.
var extFormats = map[string]string{
	".mp3":  "mp3",
	".flac": "flac",
	".ogg":  "ogg",
	".oga":  "ogg",
	".wav":  "wav",
	".wave": "wav",
}

// Probe detects the format of path from its content. The file extension is
// used only as a hint when the content cannot be identified.
func Probe(path string) (string, error) {
	m, err := mimetype.DetectFile(path)
	if err != nil {
		return "", errors.Wrap(err, "failed to open file")
	}

	for t := m; t != nil; t = t.Parent() {
		for mime, format := range mimeFormats {
			if t.Is(mime) {
				return format, nil
			}
		}
	}

	if m.Is("application/octet-stream") {
		if format, ok := extFormats[strings.ToLower(filepath.Ext(path))]; ok {
			zlog.Debug().Msgf("decoder: content of %s not recognized, using extension hint %q", path, format)
			return format, nil
		}
	}
	return "", errors.Wrapf(ErrUnsupportedFormat, "%s (detected %s)", path, m.String())
}
