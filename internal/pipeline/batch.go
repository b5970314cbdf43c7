package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/backmassage/lyricmux/internal/display"
	"github.com/backmassage/lyricmux/internal/ffmpeg"
	"github.com/backmassage/lyricmux/internal/logging"
)

// Outcome is the per-file result of a batch run, in input order.
type Outcome struct {
	Input  string
	Result Result
	Err    error
}

// Batch converts many files with a bounded number of concurrent workers.
// Workers share only the Converter (resolver and status store) and Cancel.
type Batch struct {
	Converter *Converter
	Log       *logging.Logger
	Workers   int
	Cancel    *ffmpeg.CancelFlag
	// IsVideo decides the isVideo flag per input; LooksLikeVideo when nil.
	IsVideo func(ctx context.Context, path string) bool
}

// Run converts files using tmpl for every request field except the input
// path, job id and progress callback. A canceled batch stops handing out
// work; running jobs observe the same cancel flag.
func (b *Batch) Run(ctx context.Context, files []string, tmpl Request) (RunStats, []Outcome) {
	log := b.Log
	if log == nil {
		log = logging.Discard()
	}
	workers := b.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(files) {
		workers = max(len(files), 1)
	}
	isVideo := b.IsVideo
	if isVideo == nil {
		isVideo = func(_ context.Context, p string) bool { return LooksLikeVideo(p) }
	}

	var (
		mu       sync.Mutex
		stats    = RunStats{Total: len(files)}
		outcomes = make([]Outcome, len(files))
		next     = make(chan int)
		wg       sync.WaitGroup
	)
	log.Info("Found %d files, %d worker(s)", len(files), workers)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				path := files[i]
				log.Info("[%d/%d] %s", i+1, len(files), filepath.Base(path))

				fi, err := os.Stat(path)
				if err == nil && fi.Size() == 0 {
					log.Warn("Skip (empty file): %s", filepath.Base(path))
					mu.Lock()
					stats.Skipped++
					outcomes[i] = Outcome{Input: path}
					mu.Unlock()
					continue
				}

				req := tmpl
				req.InputPath = path
				req.JobID = ""
				req.Progress = nil
				req.Cancel = b.Cancel
				req.IsVideo = tmpl.IsVideo || isVideo(ctx, path)

				res, err := b.Converter.Convert(ctx, req)

				mu.Lock()
				outcomes[i] = Outcome{Input: path, Result: res, Err: err}
				switch {
				case errors.Is(err, ffmpeg.ErrCanceled):
					stats.Canceled++
				case err != nil:
					stats.Failed++
				default:
					stats.Converted++
					if fi != nil {
						stats.TotalInputBytes += fi.Size()
					}
					stats.TotalOutputBytes += res.Size
					stats.addLyrics(res.Lyrics)
				}
				mu.Unlock()
			}
		}()
	}

dispatch:
	for i := range files {
		if ctx.Err() != nil || b.Cancel.Canceled() {
			log.Warn("Interrupted")
			break dispatch
		}
		select {
		case next <- i:
		case <-ctx.Done():
			log.Warn("Interrupted")
			break dispatch
		}
	}
	close(next)
	wg.Wait()

	logSummary(log, &stats)
	return stats, outcomes
}

func logSummary(log *logging.Logger, stats *RunStats) {
	log.Info("==============================")
	log.Info("Done: %d converted, %d skipped, %d failed, %d canceled",
		stats.Converted, stats.Skipped, stats.Failed, stats.Canceled)
	if l := stats.Lyrics; l.Found+l.NotFound > 0 {
		log.Info("Lyrics: %d found, %d not found, %d embedded, %d sidecar, %d failed",
			l.Found, l.NotFound, l.Embedded, l.Sidecar, l.Failed)
	}
	if stats.Converted == 0 {
		return
	}
	saved := stats.SpaceSaved()
	if saved >= 0 {
		log.Success("Total space saved: %s (input %s -> output %s)",
			display.FormatBytes(saved),
			display.FormatBytes(stats.TotalInputBytes),
			display.FormatBytes(stats.TotalOutputBytes))
	} else {
		log.Warn("Total space saved: %s (overall output is larger)",
			display.FormatBytesWithSign(saved))
	}
}
