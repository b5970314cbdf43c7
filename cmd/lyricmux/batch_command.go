package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/backmassage/lyricmux/internal/display"
	"github.com/backmassage/lyricmux/internal/ffmpeg"
	"github.com/backmassage/lyricmux/internal/pipeline"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var flags conversionFlags
	var workers int

	cmd := &cobra.Command{
		Use:   "batch <dir|file>...",
		Short: "Convert every media file found under the given paths",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			log := ctx.log

			files, err := collectInputs(args)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				log.Warn("No media files found")
				return nil
			}

			tmpl, err := flags.request(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			status, err := ctx.openStatus()
			if err != nil {
				return err
			}
			conv := pipeline.NewConverter(cfg, log, status, flags.fetcher())

			if flags.dryRun {
				rows := make([]pipeline.PreviewRow, 0, len(files))
				for _, f := range files {
					req := tmpl
					req.InputPath = f
					req.IsVideo = req.IsVideo || pipeline.LooksLikeVideo(f)
					row, err := conv.Preview(cmd.Context(), req)
					if err != nil {
						log.Warn("Skip %s: %v", filepath.Base(f), err)
						continue
					}
					rows = append(rows, row)
				}
				fmt.Fprint(cmd.OutOrStdout(), pipeline.RenderPreview(rows))
				return nil
			}

			if workers <= 0 {
				workers = cfg.Batch.Workers
			}
			display.PrintBanner(cmd.OutOrStdout())
			b := &pipeline.Batch{
				Converter: conv,
				Log:       log,
				Workers:   workers,
				Cancel:    watchCancel(cmd.Context()),
				IsVideo:   isVideo(cfg, log),
			}
			stats, _ := b.Run(cmd.Context(), files, tmpl)
			switch {
			case stats.Canceled > 0 || b.Cancel.Canceled():
				return ffmpeg.ErrCanceled
			case stats.Failed > 0:
				return fmt.Errorf("%d of %d conversions failed", stats.Failed, stats.Total)
			}
			return nil
		},
	}

	flags.bind(cmd)
	cmd.Flags().IntVarP(&workers, "workers", "j", 0, "Concurrent conversions (default: config batch.workers)")
	return cmd
}

// collectInputs expands directories into their media files and keeps
// explicit file arguments as given.
func collectInputs(args []string) ([]string, error) {
	var files []string
	for _, a := range args {
		abs, err := filepath.Abs(a)
		if err != nil {
			return nil, err
		}
		fi, err := os.Stat(abs)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", pipeline.ErrInputNotFound, a)
			}
			return nil, err
		}
		if !fi.IsDir() {
			files = append(files, abs)
			continue
		}
		found, err := pipeline.Discover(abs)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}
