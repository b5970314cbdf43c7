package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/backmassage/lyricmux/internal/config"
	"github.com/backmassage/lyricmux/internal/ffmpeg"
	"github.com/backmassage/lyricmux/internal/jobstatus"
	"github.com/backmassage/lyricmux/internal/logging"
)

// commandContext carries the persistent flags and the lazily loaded
// configuration and logger shared by every subcommand.
type commandContext struct {
	configFlag string
	verbose    bool
	logFile    string
	color      config.ColorMode

	config *config.Config
	log    *logging.Logger
	status jobstatus.Store
}

// ensureConfig loads the configuration once and applies flag overrides.
func (c *commandContext) ensureConfig(cmd *cobra.Command) (*config.Config, error) {
	if c.config != nil {
		return c.config, nil
	}
	cfg, err := config.Load(strings.TrimSpace(c.configFlag))
	if err != nil {
		return nil, err
	}
	if c.verbose {
		cfg.Logging.Verbose = true
	}
	if cmd.Flags().Changed("color") {
		cfg.Logging.Color = c.color
	}
	if c.logFile != "" {
		if cfg.Logging.File, err = config.ExpandPath(c.logFile); err != nil {
			return nil, err
		}
	}
	log, err := logging.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	c.config, c.log = cfg, log
	return cfg, nil
}

// openStatus returns the configured job-status store. Without a database
// path the store lives only for this process.
func (c *commandContext) openStatus() (jobstatus.Store, error) {
	if c.status != nil {
		return c.status, nil
	}
	if c.config.Status.DBPath == "" {
		c.status = jobstatus.NewMemoryStore()
		return c.status, nil
	}
	st, err := jobstatus.OpenSQLite(c.config.Status.DBPath)
	if err != nil {
		return nil, err
	}
	c.status = st
	return st, nil
}

func (c *commandContext) close() {
	if c.status != nil {
		_ = c.status.Close()
		c.status = nil
	}
	if c.log != nil {
		_ = c.log.Close()
	}
}

// watchCancel returns a flag that is set once ctx ends, so running ffmpeg
// processes get the graceful interrupt and their partial output removed.
func watchCancel(ctx context.Context) *ffmpeg.CancelFlag {
	flag := &ffmpeg.CancelFlag{}
	if ctx.Done() == nil {
		return flag
	}
	go func() {
		<-ctx.Done()
		flag.Cancel()
	}()
	return flag
}
