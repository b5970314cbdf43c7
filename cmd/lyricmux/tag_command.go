package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/backmassage/lyricmux/internal/display"
	"github.com/backmassage/lyricmux/internal/legacytag"
	"github.com/backmassage/lyricmux/internal/metadata"
	"github.com/backmassage/lyricmux/internal/pipeline"
)

var errNoTrailer = errors.New("no legacy tag trailer")

func newTagCommand(ctx *commandContext) *cobra.Command {
	var (
		show    bool
		charset string
		md      metadata.Record
	)

	cmd := &cobra.Command{
		Use:   "tag <file.mp3>",
		Short: "Write or show the legacy 128-byte tag trailer",
		Long: `Recomputes the 128-byte trailer from the file's own tags, overlaid with any
field flags, replacing an existing trailer in place. Only mp3 files are eligible.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if show {
				cs, ok := legacytag.ParseCharset(charset)
				if !ok {
					return fmt.Errorf("unknown charset %q", charset)
				}
				if cs == legacytag.Auto {
					cs = legacytag.Latin1
				}
				t, found, err := legacytag.ReadFile(path, cs)
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("%w in %s", errNoTrailer, filepath.Base(path))
				}
				renderTag(cmd.OutOrStdout(), t)
				return nil
			}

			if !legacytag.Eligible(path) {
				return fmt.Errorf("%s: only mp3 files carry the legacy trailer", filepath.Base(path))
			}
			if !cfg.LegacyTagEnabled() {
				return errors.New("legacy tag writing is disabled (tags.legacy_tag)")
			}
			if charset != "" {
				cfg.Tags.Charset = charset
			}
			existing, err := metadata.FromFile(path)
			if err != nil {
				ctx.log.Debug("No readable tags in %s: %v", filepath.Base(path), err)
			}
			conv := pipeline.NewConverter(cfg, ctx.log, nil, nil)
			if !conv.RewriteLegacyTag(path, md.Merge(existing)) {
				return fmt.Errorf("writing the legacy tag to %s failed", filepath.Base(path))
			}
			ctx.log.Success("Legacy tag written to %s", filepath.Base(path))
			return nil
		},
	}

	fs := cmd.Flags()
	fs.BoolVar(&show, "show", false, "Print the existing trailer instead of writing one")
	fs.StringVar(&charset, "charset", "", "Trailer charset: auto, latin1 or latin5")
	fs.StringVar(&md.Title, "title", "", "Title override")
	fs.StringVar(&md.Artist, "artist", "", "Artist override")
	fs.StringVar(&md.Album, "album", "", "Album override")
	fs.StringVar(&md.Year, "year", "", "Year override")
	fs.StringVar(&md.Comment, "comment", "", "Comment override")
	fs.IntVar(&md.Track, "track", 0, "Track number override")
	return cmd
}

func renderTag(w io.Writer, t legacytag.Tag) {
	track := "-"
	if t.Track > 0 {
		track = strconv.Itoa(int(t.Track))
	}
	rows := [][]string{
		{"Title", t.Title},
		{"Artist", t.Artist},
		{"Album", t.Album},
		{"Year", t.Year},
		{"Comment", t.Comment},
		{"Track", track},
		{"Genre", strconv.Itoa(int(t.Genre))},
	}
	fmt.Fprint(w, display.RenderTable([]string{"Field", "Value"}, rows, nil))
}
