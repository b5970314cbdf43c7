package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/backmassage/lyricmux/internal/lyrics"
	"github.com/backmassage/lyricmux/internal/metadata"
	"github.com/backmassage/lyricmux/internal/pipeline"
)

func newLyricsCommand(ctx *commandContext) *cobra.Command {
	var (
		sidecar bool
		embed   bool
		from    string
		dirs    []string
	)

	cmd := &cobra.Command{
		Use:   "lyrics <file>",
		Short: "Attach lyrics to an existing media file",
		Long: `Looks up lyrics for the file (a .lrc/.txt next to it or next to --from, then
lyrics already tagged in the source) and writes a sidecar, embeds them, or both.
Embedding replaces the file atomically; the original is kept on any failure.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if !sidecar && !embed {
				sidecar = true
			}
			opts := lyrics.AttachOptions{Include: sidecar, Embed: embed}
			if from != "" {
				if opts.LookupPath, err = filepath.Abs(from); err != nil {
					return err
				}
			}

			md, err := metadata.FromFile(path)
			if err != nil {
				ctx.log.Debug("No readable tags in %s: %v", filepath.Base(path), err)
			}

			conv := pipeline.NewConverter(cfg, ctx.log, nil, lyrics.Chain{lyrics.SidecarFetcher{Dirs: dirs}, lyrics.TagFetcher{}})
			var stats lyrics.Stats
			lp := conv.AttachLyrics(cmd.Context(), path, md, opts, nil, stats.Add)
			if lp != "" {
				fmt.Fprintln(cmd.OutOrStdout(), lp)
			}
			if stats.Found == 0 {
				return fmt.Errorf("%w for %s", lyrics.ErrNotFound, filepath.Base(path))
			}
			if stats.Failed > 0 {
				return fmt.Errorf("attaching lyrics to %s failed", filepath.Base(path))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&sidecar, "sidecar", false, "Write a .lrc/.txt sidecar (default when --embed is not given)")
	cmd.Flags().BoolVar(&embed, "embed", false, "Embed lyrics into the file")
	cmd.Flags().StringVar(&from, "from", "", "Look lyrics up for this file instead (e.g. the original before conversion)")
	cmd.Flags().StringSliceVar(&dirs, "lyrics-dir", nil, "Extra directory to search for lyrics files (repeatable)")
	return cmd
}
