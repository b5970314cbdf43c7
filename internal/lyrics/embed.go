package lyrics

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/backmassage/lyricmux/internal/config"
	"github.com/backmassage/lyricmux/internal/ffmpeg"
	"github.com/backmassage/lyricmux/internal/fileutil"
	"github.com/backmassage/lyricmux/internal/legacytag"
	"github.com/backmassage/lyricmux/internal/metadata"
)

// ErrTempMissing means the remux reported success but its temp file is not
// on disk. The original is untouched.
var ErrTempMissing = errors.New("embed temp file missing after remux")

// Logger is the logging surface used by this package.
type Logger interface {
	Warn(string, ...any)
	Debug(string, ...any)
}

type nopLogger struct{}

func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}

// Containers whose muxers accept a lyrics tag.
var embedExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".m4b":  true,
	".mp4":  true,
	".flac": true,
	".ogg":  true,
	".opus": true,
	".mkv":  true,
	".webm": true,
}

// Supported reports whether lyrics can be embedded in path.
func Supported(path string) bool {
	return embedExtensions[strings.ToLower(filepath.Ext(path))]
}

// Embedder writes lyrics into existing media files.
type Embedder struct {
	Config  *config.Config
	LockDir string // empty: fileutil default
	Cancel  ffmpeg.Canceler
	Log     Logger
}

// NewEmbedder returns an Embedder using cfg. log may be nil.
func NewEmbedder(cfg *config.Config, log Logger) *Embedder {
	if log == nil {
		log = nopLogger{}
	}
	return &Embedder{Config: cfg, LockDir: cfg.Output.TempDir, Log: log}
}

// Embed writes text into path's tags. It reports false with a nil error
// when path's format cannot carry lyrics or text is empty. On any error the
// original file is left unchanged and no temp file remains.
//
// For mp3 targets the legacy trailer is rewritten from md afterwards unless
// disabled by config; a trailer failure is logged and does not fail the embed.
func (e *Embedder) Embed(ctx context.Context, path, text string, md metadata.Record) (bool, error) {
	if !Supported(path) {
		return false, nil
	}
	text = strings.TrimSpace(StripTimestamps(text))
	if text == "" {
		return false, nil
	}
	if !fileutil.Exists(path) {
		return false, fmt.Errorf("embed lyrics: %s: %w", path, os.ErrNotExist)
	}

	unlock, err := fileutil.Lock(ctx, e.LockDir, path)
	if err != nil {
		return false, err
	}
	defer unlock()

	tmp := fileutil.TempSibling(path)
	cmd := ffmpeg.BuildEmbed(e.Config, path, tmp, text)
	e.log().Debug("embed: %s", cmd)

	_, err = ffmpeg.Run(ctx, cmd, ffmpeg.RunOptions{
		Cancel:    e.Cancel,
		KillGrace: e.Config.KillGrace(),
		Line:      func(line string) { e.log().Debug("ffmpeg: %s", line) },
	})
	switch {
	case errors.Is(err, ffmpeg.ErrOutputMissing):
		_ = os.Remove(tmp)
		return false, fmt.Errorf("embed lyrics %s: %w: %w", filepath.Base(path), ErrTempMissing, err)
	case err != nil:
		_ = os.Remove(tmp)
		return false, fmt.Errorf("embed lyrics %s: %w", filepath.Base(path), err)
	case !fileutil.Exists(tmp):
		return false, fmt.Errorf("embed lyrics %s: %w", filepath.Base(path), ErrTempMissing)
	}
	if err := fileutil.Publish(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return false, err
	}

	if legacytag.Eligible(path) && e.Config.LegacyTagEnabled() {
		if err := legacytag.Rewrite(path, md, e.Config.Tags.Charset, e.Config.Tags.Comment); err != nil {
			e.log().Warn("Legacy tag rewrite failed for %s: %v", filepath.Base(path), err)
		}
	}
	return true, nil
}

func (e *Embedder) log() Logger {
	if e.Log == nil {
		return nopLogger{}
	}
	return e.Log
}
