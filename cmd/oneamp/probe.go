package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/oneamp/internal/domain/track"
	"github.com/osa030/oneamp/internal/infra/decoder"
)

// probe prints the track information of each file. It keeps going past
// unreadable files and fails at the end if any were skipped.
func probe(files []string) error {
	failed := 0
	for i, path := range files {
		info, err := decoder.ReadInfo(path)
		if err != nil {
			zlog.Error().Msgf("probe: %s: %v", path, err)
			failed++
			continue
		}
		if i > 0 {
			fmt.Println()
		}
		printInfo(info)
	}
	if failed > 0 {
		return errors.Newf("%d of %d files could not be read", failed, len(files))
	}
	return nil
}

func printInfo(info track.Info) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "%s\n", titleStyle.Render(info.DisplayTitle()))
	row := func(label, value string) {
		if value != "" {
			fmt.Fprintf(w, "  %s\t%s\n", label, value)
		}
	}
	row("Path:", info.Path)
	row("Format:", info.Format)
	row("Artist:", info.Artist)
	row("Album:", info.Album)
	row("Genre:", info.Genre)
	if info.Year > 0 {
		row("Year:", fmt.Sprint(info.Year))
	}
	if info.TrackNumber > 0 {
		row("Track:", fmt.Sprint(info.TrackNumber))
	}
	if info.DurationSec != nil {
		row("Duration:", formatClock(*info.DurationSec))
	}
	if info.SampleRate != nil {
		row("Sample rate:", fmt.Sprintf("%d Hz", *info.SampleRate))
	}
	if info.Channels != nil {
		row("Channels:", fmt.Sprint(*info.Channels))
	}
	if info.BitDepth != nil {
		row("Bit depth:", fmt.Sprintf("%d bit", *info.BitDepth))
	}
}
