package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/backmassage/lyricmux/internal/config"
	"github.com/backmassage/lyricmux/internal/display"
	"github.com/backmassage/lyricmux/internal/ffmpeg"
	"github.com/backmassage/lyricmux/internal/fileutil"
	"github.com/backmassage/lyricmux/internal/jobstatus"
	"github.com/backmassage/lyricmux/internal/legacytag"
	"github.com/backmassage/lyricmux/internal/logging"
	"github.com/backmassage/lyricmux/internal/lyrics"
	"github.com/backmassage/lyricmux/internal/metadata"
	"github.com/backmassage/lyricmux/internal/naming"
	"github.com/backmassage/lyricmux/internal/planner"
)

// Converter runs conversions. One Converter may serve many concurrent
// requests; they share only the collision resolver and the status store.
type Converter struct {
	cfg      *config.Config
	log      *logging.Logger
	status   jobstatus.Store
	resolver *naming.CollisionResolver
	fetcher  lyrics.Fetcher
}

// NewConverter wires a Converter. status and fetcher may be nil: status
// updates are then dropped and lyrics lookup falls back to sidecar files
// and tags already present in the source.
func NewConverter(cfg *config.Config, log *logging.Logger, status jobstatus.Store, fetcher lyrics.Fetcher) *Converter {
	if log == nil {
		log = logging.Discard()
	}
	if status == nil {
		status = jobstatus.NewMemoryStore()
	}
	if fetcher == nil {
		fetcher = lyrics.Chain{lyrics.SidecarFetcher{}, lyrics.TagFetcher{}}
	}
	return &Converter{
		cfg:      cfg,
		log:      log,
		status:   status,
		resolver: naming.NewCollisionResolver(),
		fetcher:  fetcher,
	}
}

// Status returns the store receiving job updates.
func (c *Converter) Status() jobstatus.Store { return c.status }

// Prepared is a planned conversion that has not run yet.
type Prepared struct {
	Plan     *planner.Plan
	Command  ffmpeg.Command
	Metadata metadata.Record
}

// Prepare validates req and resolves its plan and command without running
// anything. The output path is claimed; call Release if the plan is
// abandoned.
func (c *Converter) Prepare(req Request) (*Prepared, error) {
	fi, err := os.Stat(req.InputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInputNotFound, req.InputPath)
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrInputNotFile, req.InputPath)
	}
	f, ok := planner.LookupFormat(req.Format)
	if !ok {
		return nil, &planner.UnknownFormatError{Format: req.Format}
	}

	md := req.Metadata.Clean()
	if tags, err := metadata.ReadTags(req.InputPath); err == nil {
		md = md.Merge(tags.Record)
	} else {
		c.log.Debug("No readable tags in %s: %v", filepath.Base(req.InputPath), err)
	}

	outDir := c.outputDir(req)
	template := req.Options.FilenameTemplate
	if template == "" {
		template = c.cfg.Output.FilenameTemplate
	}
	stem := strings.TrimSuffix(filepath.Base(req.InputPath), filepath.Ext(req.InputPath))
	out := naming.OutputPath(outDir, naming.OutputName(template, md, stem), f.Ext)
	out = c.resolver.Resolve(req.InputPath, out)

	o := req.Options
	plan, err := planner.Build(c.cfg, planner.Input{
		InputPath:    req.InputPath,
		OutputPath:   out,
		Format:       f.Name,
		Bitrate:      req.Bitrate,
		IsVideo:      req.IsVideo,
		SampleRateA:  o.SampleRateA,
		SampleRateB:  o.SampleRateB,
		Channels:     o.Channels,
		Codec:        o.Codec,
		HWAccel:      o.HWAccel,
		VideoQuality: o.VideoQuality,
		Streams:      o.Streams,
		CoverPath:    req.CoverPath,
		Tempo:        o.Tempo,
		Metadata:     md,
	})
	if err != nil {
		c.resolver.Release(req.InputPath, out)
		return nil, err
	}
	if o.Tempo != "" && plan.Tempo == nil {
		c.log.Warn("Tempo conversion %q ignored", o.Tempo)
	}

	tmp := fileutil.TempSibling(out)
	return &Prepared{Plan: plan, Command: ffmpeg.BuildConvert(c.cfg, plan, tmp), Metadata: plan.Metadata}, nil
}

// Release frees the output path claimed by Prepare.
func (c *Converter) Release(input string, p *Prepared) {
	if p != nil {
		c.resolver.Release(input, p.Plan.OutputPath)
	}
}

func (c *Converter) outputDir(req Request) string {
	switch {
	case req.OutputDir != "":
		return req.OutputDir
	case c.cfg.Output.Dir != "":
		return c.cfg.Output.Dir
	}
	return filepath.Dir(req.InputPath)
}

// Convert runs req to completion. The returned error is ffmpeg.ErrCanceled
// for a canceled job, else a validation, planning, *ffmpeg.LaunchError or
// *ffmpeg.ExitError. On any error nothing exists at the output path.
func (c *Converter) Convert(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	jobID := c.beginJob(ctx, req)
	res := Result{JobID: jobID}

	canceled := func() bool { return req.Cancel.Canceled() || ctx.Err() != nil }
	if canceled() {
		c.finishJob(ctx, jobID, jobstatus.StatusCanceled, "", ffmpeg.ErrCanceled)
		return res, ffmpeg.ErrCanceled
	}

	prep, err := c.Prepare(req)
	if err != nil {
		c.finishJob(ctx, jobID, jobstatus.StatusFailed, "", err)
		return res, err
	}
	out := prep.Plan.OutputPath
	release := func() { c.Release(req.InputPath, prep) }

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		release()
		err = fmt.Errorf("create output directory: %w", err)
		c.finishJob(ctx, jobID, jobstatus.StatusFailed, "", err)
		return res, err
	}

	c.log.Info("Converting %s -> %s", filepath.Base(req.InputPath), filepath.Base(out))
	c.setMessage(ctx, jobID, "Converting "+filepath.Base(req.InputPath))
	c.log.Exec("%s", prep.Command)

	_, err = ffmpeg.Run(ctx, prep.Command, ffmpeg.RunOptions{
		Progress: func(p int) {
			if req.Progress != nil {
				req.Progress(p)
			}
			_ = c.status.SetProgress(ctx, jobID, p)
		},
		Line:      func(line string) { c.log.Debug("ffmpeg: %s", line) },
		Cancel:    req.Cancel,
		KillGrace: c.cfg.KillGrace(),
	})
	if err != nil {
		release()
		return res, c.failRun(ctx, jobID, err)
	}

	if err := fileutil.Publish(prep.Command.OutputPath, out); err != nil {
		_ = os.Remove(prep.Command.OutputPath)
		release()
		err = fmt.Errorf("publish output: %w", err)
		c.finishJob(ctx, jobID, jobstatus.StatusFailed, "", err)
		return res, err
	}

	// A cancel that raced the final rename still wins.
	if canceled() {
		_ = os.Remove(out)
		release()
		c.finishJob(ctx, jobID, jobstatus.StatusCanceled, "", ffmpeg.ErrCanceled)
		return res, ffmpeg.ErrCanceled
	}

	// --- Post-processing: failures are logged, never returned ---
	var stats lyrics.Stats
	if req.Options.Lyrics.Enabled() {
		opts := req.Options.Lyrics
		if opts.LookupPath == "" {
			opts.LookupPath = req.InputPath
		}
		lp, err := c.attach(ctx, jobID, req, out, prep.Metadata, opts, &stats)
		if errors.Is(err, ffmpeg.ErrCanceled) {
			// Attach already removed any sidecar it created.
			_ = os.Remove(out)
			release()
			c.finishJob(ctx, jobID, jobstatus.StatusCanceled, "", err)
			return res, err
		}
		res.LyricsPath = lp
	}
	if stats.Embedded == 0 {
		// The embed step already rewrote the trailer.
		c.RewriteLegacyTag(out, prep.Metadata)
	}

	res.OutputPath = out
	res.Lyrics = stats
	if fi, err := os.Stat(out); err == nil {
		res.Size = fi.Size()
	}
	res.Elapsed = time.Since(start)
	c.log.Success("Converted in %s (%s)", display.FormatDuration(res.Elapsed), display.FormatBytes(res.Size))
	c.finishJob(ctx, jobID, jobstatus.StatusSucceeded, out, nil)
	return res, nil
}

// failRun logs a failed ffmpeg run and records it.
func (c *Converter) failRun(ctx context.Context, jobID string, err error) error {
	if errors.Is(err, ffmpeg.ErrCanceled) {
		c.log.Warn("Conversion canceled")
		c.finishJob(ctx, jobID, jobstatus.StatusCanceled, "", err)
		return err
	}
	var ee *ffmpeg.ExitError
	if errors.As(err, &ee) && len(ee.Tail) > 0 {
		c.log.Error("Last ffmpeg output:")
		for _, l := range ee.Tail {
			c.log.Error("  %s", l)
		}
	}
	c.log.Error("Conversion failed: %v", err)
	if ee != nil {
		if reason := ee.Reason(); reason != "" {
			c.log.Error("Likely cause: %s", reason)
		}
	}
	c.finishJob(ctx, jobID, jobstatus.StatusFailed, "", err)
	return err
}

// AttachLyrics looks up and attaches lyrics to an existing file. It returns
// the sidecar path, or "" when none was written. logFn and statsFn may be
// nil, in which case messages go to the logger and counts are dropped.
func (c *Converter) AttachLyrics(ctx context.Context, path string, md metadata.Record, opts lyrics.AttachOptions, logFn func(string), statsFn func(lyrics.Stat)) string {
	if logFn == nil {
		logFn = func(s string) { c.log.Info("%s", s) }
	}
	p, _ := c.attacher(nil, "").Attach(ctx, path, md.Clean(), opts, logFn, statsFn)
	return p
}

// attach runs the lyrics step for a job, mirroring messages and counts
// into the status store.
func (c *Converter) attach(ctx context.Context, jobID string, req Request, path string, md metadata.Record, opts lyrics.AttachOptions, stats *lyrics.Stats) (string, error) {
	logFn := func(s string) {
		c.log.Info("%s", s)
		c.setMessage(ctx, jobID, s)
	}
	statsFn := func(s lyrics.Stat) {
		stats.Add(s)
		_ = c.status.SetLyricsStats(ctx, jobID, *stats)
	}
	return c.attacher(req.Cancel, req.TempDir).Attach(ctx, path, md, opts, logFn, statsFn)
}

func (c *Converter) attacher(cancel *ffmpeg.CancelFlag, lockDir string) *lyrics.Attacher {
	e := lyrics.NewEmbedder(c.cfg, c.log)
	if cancel != nil {
		e.Cancel = cancel
	}
	if lockDir != "" {
		e.LockDir = lockDir
	}
	return &lyrics.Attacher{Fetcher: c.fetcher, Embedder: e}
}

// RewriteLegacyTag recomputes the 128-byte trailer of path from md. It
// reports false when the format is not eligible, the trailer is disabled,
// the file is being embedded into by another writer, or the write failed
// (logged).
func (c *Converter) RewriteLegacyTag(path string, md metadata.Record) bool {
	if !legacytag.Eligible(path) || !c.cfg.LegacyTagEnabled() {
		return false
	}
	unlock, err := fileutil.TryLock(c.cfg.Output.TempDir, path)
	if err != nil {
		c.log.Warn("Legacy tag skipped for %s: %v", filepath.Base(path), err)
		return false
	}
	defer unlock()
	if err := legacytag.Rewrite(path, md.Clean(), c.cfg.Tags.Charset, c.cfg.Tags.Comment); err != nil {
		c.log.Warn("Legacy tag write failed for %s: %v", filepath.Base(path), err)
		return false
	}
	c.log.Debug("Legacy tag written to %s", filepath.Base(path))
	return true
}

// --- Status store helpers; the store is for reporting only ---

func (c *Converter) beginJob(ctx context.Context, req Request) string {
	id := req.JobID
	if id == "" {
		id = jobstatus.NewID()
	}
	if err := c.status.SetStatus(ctx, id, jobstatus.StatusRunning); errors.Is(err, jobstatus.ErrNotFound) {
		if err := c.status.Create(ctx, id, req.InputPath); err != nil {
			c.log.Debug("job %s: create status: %v", id, err)
		}
		_ = c.status.SetStatus(ctx, id, jobstatus.StatusRunning)
	}
	return id
}

func (c *Converter) setMessage(ctx context.Context, id, msg string) {
	if err := c.status.SetMessage(ctx, id, msg); err != nil {
		c.log.Debug("job %s: set message: %v", id, err)
	}
}

func (c *Converter) finishJob(ctx context.Context, id string, status jobstatus.Status, output string, cause error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	// The caller's ctx may already be canceled; the final record still lands.
	if err := c.status.Finish(context.WithoutCancel(ctx), id, status, output, msg); err != nil {
		c.log.Debug("job %s: finish: %v", id, err)
	}
}
