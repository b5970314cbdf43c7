package main

import (
	"github.com/spf13/cobra"

	"github.com/backmassage/lyricmux/internal/config"
)

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "lyricmux",
		Short:         "Convert media with ffmpeg and attach lyrics",
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig(cmd)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ctx.configFlag, "config", "c", "", "Configuration file path (default ~/.config/lyricmux/config.toml)")
	flags.BoolVarP(&ctx.verbose, "verbose", "v", false, "Show debug output, including every ffmpeg line")
	flags.StringVar(&ctx.logFile, "log", "", "Also append log output to this file")
	flags.Var(config.NewColorModeValue(&ctx.color), "color", "Color output: auto, always or never")

	rootCmd.AddCommand(newConvertCommand(ctx))
	rootCmd.AddCommand(newBatchCommand(ctx))
	rootCmd.AddCommand(newLyricsCommand(ctx))
	rootCmd.AddCommand(newTagCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))

	return rootCmd
}
