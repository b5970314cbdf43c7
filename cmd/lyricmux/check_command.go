package main

import (
	"github.com/spf13/cobra"

	"github.com/backmassage/lyricmux/internal/check"
	"github.com/backmassage/lyricmux/internal/display"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report ffmpeg/ffprobe availability, encoders and hardware acceleration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			display.PrintBanner(cmd.OutOrStdout())
			check.RunCheck(cmd.Context(), ctx.config, ctx.log, cmd.OutOrStdout())
			return check.CheckDeps(ctx.config)
		},
	}
}
