package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/backmassage/lyricmux/internal/display"
	"github.com/backmassage/lyricmux/internal/jobstatus"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status [job-id]",
		Short: "Show recorded conversion jobs",
		Long:  "Reads the job-status database configured as status.db_path.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if ctx.config.Status.DBPath == "" {
				return errors.New("no status database configured (set status.db_path)")
			}
			store, err := ctx.openStatus()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				job, err := store.Get(cmd.Context(), args[0])
				if errors.Is(err, jobstatus.ErrNotFound) {
					return fmt.Errorf("job %s not found", args[0])
				}
				if err != nil {
					return err
				}
				renderJob(out, job)
				return nil
			}

			jobs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Fprintln(out, "No jobs recorded")
				return nil
			}
			renderJobs(out, jobs, time.Now())
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of jobs to list (0 lists all)")
	return cmd
}

func renderJobs(w io.Writer, jobs []jobstatus.Job, now time.Time) {
	headers := []string{"ID", "Status", "Progress", "Input", "Updated"}
	aligns := []display.Align{display.AlignLeft, display.AlignLeft, display.AlignRight, display.AlignLeft, display.AlignLeft}
	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		rows = append(rows, []string{
			shortID(j.ID),
			string(j.Status),
			display.FormatPercent(j.Progress),
			filepath.Base(j.Input),
			humanize.RelTime(j.UpdatedAt, now, "ago", "from now"),
		})
	}
	fmt.Fprint(w, display.RenderTable(headers, rows, aligns))
}

func renderJob(w io.Writer, j jobstatus.Job) {
	l := j.Lyrics
	rows := [][]string{
		{"ID", j.ID},
		{"Status", string(j.Status)},
		{"Progress", display.FormatPercent(j.Progress)},
		{"Input", j.Input},
		{"Output", j.Output},
		{"Message", j.Message},
		{"Error", j.Error},
		{"Lyrics", fmt.Sprintf("found %d, not found %d, embedded %d, sidecar %d, failed %d",
			l.Found, l.NotFound, l.Embedded, l.Sidecar, l.Failed)},
		{"Created", j.CreatedAt.Local().Format(time.DateTime)},
		{"Updated", j.UpdatedAt.Local().Format(time.DateTime)},
	}
	fmt.Fprint(w, display.RenderTable([]string{"Field", "Value"}, rows, nil))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

