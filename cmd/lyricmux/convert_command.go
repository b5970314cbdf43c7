package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/backmassage/lyricmux/internal/display"
	"github.com/backmassage/lyricmux/internal/pipeline"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var flags conversionFlags
	var jobID string

	cmd := &cobra.Command{
		Use:   "convert <input>",
		Short: "Convert one media file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			log := ctx.log
			input, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve input: %w", err)
			}

			req, err := flags.request(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			req.InputPath = input
			req.JobID = jobID
			video, probed := inspect(cmd.Context(), cfg, log, input)
			req.IsVideo = req.IsVideo || video
			req.Metadata = req.Metadata.Merge(probed)

			status, err := ctx.openStatus()
			if err != nil {
				return err
			}
			conv := pipeline.NewConverter(cfg, log, status, flags.fetcher())

			if flags.dryRun {
				row, err := conv.Preview(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), pipeline.RenderPreview([]pipeline.PreviewRow{row}))
				fmt.Fprintln(cmd.OutOrStdout(), row.Command)
				return nil
			}

			display.PrintBanner(cmd.OutOrStdout())
			req.Cancel = watchCancel(cmd.Context())
			if log.Verbose() {
				last := -10
				req.Progress = func(p int) {
					// One line per 10% step.
					if p/10 != last/10 || p == 100 {
						last = p
						log.Debug("Progress %s", display.FormatPercent(p))
					}
				}
			}

			res, err := conv.Convert(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.OutputPath)
			if res.LyricsPath != "" {
				fmt.Fprintln(cmd.OutOrStdout(), res.LyricsPath)
			}
			return nil
		},
	}

	flags.bind(cmd)
	cmd.Flags().StringVar(&jobID, "job-id", "", "Job id recorded in the status store (default: generated)")
	return cmd
}
