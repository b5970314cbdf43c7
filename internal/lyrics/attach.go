package lyrics

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/backmassage/lyricmux/internal/ffmpeg"
	"github.com/backmassage/lyricmux/internal/fileutil"
	"github.com/backmassage/lyricmux/internal/metadata"
)

// AttachOptions selects what Attach does with found lyrics.
type AttachOptions struct {
	Include    bool   // write a sidecar next to the media file
	Embed      bool   // embed into the media file's tags
	LookupPath string // path handed to the Fetcher; the media path when empty
}

// Enabled reports whether either output is requested.
func (o AttachOptions) Enabled() bool { return o.Include || o.Embed }

// Stat is one counted post-processing outcome.
type Stat string

const (
	StatFound    Stat = "found"
	StatNotFound Stat = "not_found"
	StatSidecar  Stat = "sidecar"
	StatEmbedded Stat = "embedded"
	StatFailed   Stat = "failed"
)

// Stats aggregates Stat events.
type Stats struct {
	Found    int `json:"found"`
	NotFound int `json:"not_found"`
	Sidecar  int `json:"sidecar"`
	Embedded int `json:"embedded"`
	Failed   int `json:"failed"`
}

// Add counts one event.
func (s *Stats) Add(st Stat) {
	switch st {
	case StatFound:
		s.Found++
	case StatNotFound:
		s.NotFound++
	case StatSidecar:
		s.Sidecar++
	case StatEmbedded:
		s.Embedded++
	case StatFailed:
		s.Failed++
	}
}

// Attacher looks lyrics up and attaches them to a media file.
type Attacher struct {
	Fetcher  Fetcher
	Embedder *Embedder
}

// Attach looks up lyrics for path and applies opts. It returns the sidecar
// path when one was written or the lyrics source already sits there, else "".
// On cancellation a sidecar created by this call is removed; a file that
// existed beforehand is left alone.
//
// Failures never propagate: each is reported through logFn and counted via
// statsFn (both may be nil). The only error returned is ffmpeg.ErrCanceled
// or the context error, so callers can treat cancellation as such.
func (a *Attacher) Attach(ctx context.Context, path string, md metadata.Record, opts AttachOptions, logFn func(string), statsFn func(Stat)) (string, error) {
	if logFn == nil {
		logFn = func(string) {}
	}
	if statsFn == nil {
		statsFn = func(Stat) {}
	}
	if !opts.Enabled() || a.Fetcher == nil {
		return "", nil
	}

	lookup := opts.LookupPath
	if lookup == "" {
		lookup = path
	}
	found, err := a.Fetcher.Lookup(ctx, lookup, md)
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	switch {
	case errors.Is(err, ErrNotFound) || (err == nil && found.IsZero()):
		statsFn(StatNotFound)
		logFn(fmt.Sprintf("No lyrics found for %s", filepath.Base(lookup)))
		return "", nil
	case err != nil:
		statsFn(StatFailed)
		logFn(fmt.Sprintf("Lyrics lookup failed for %s: %v", filepath.Base(lookup), err))
		return "", nil
	}
	statsFn(StatFound)

	var sidecar string
	created := false
	if opts.Include {
		if target := sidecarPath(path, found); sameFile(target, found.Source) {
			sidecar = target
			statsFn(StatSidecar)
			logFn(fmt.Sprintf("Lyrics file %s already in place", filepath.Base(target)))
		} else {
			existed := fileutil.Exists(target)
			p, err := WriteSidecar(path, found)
			if err != nil {
				statsFn(StatFailed)
				logFn(fmt.Sprintf("Writing lyrics file failed: %v", err))
			} else {
				sidecar, created = p, !existed
				statsFn(StatSidecar)
				logFn(fmt.Sprintf("Lyrics saved to %s", filepath.Base(p)))
			}
		}
	}

	if opts.Embed && a.Embedder != nil {
		ok, err := a.Embedder.Embed(ctx, path, found.Text(), md)
		switch {
		case errors.Is(err, ffmpeg.ErrCanceled) || ctx.Err() != nil:
			if created {
				_ = os.Remove(sidecar)
			}
			return "", ffmpeg.ErrCanceled
		case err != nil:
			statsFn(StatFailed)
			logFn(fmt.Sprintf("Embedding lyrics failed: %v", err))
		case ok:
			statsFn(StatEmbedded)
			logFn(fmt.Sprintf("Lyrics embedded in %s", filepath.Base(path)))
		default:
			logFn(fmt.Sprintf("Format of %s does not support embedded lyrics", filepath.Base(path)))
		}
	}
	return sidecar, nil
}

// WriteSidecar publishes l next to mediaPath: <stem>.lrc for synced
// lyrics, <stem>.txt otherwise.
func WriteSidecar(mediaPath string, l Lyrics) (string, error) {
	body := l.Text()
	if strings.TrimSpace(l.Synced) != "" {
		body = strings.TrimSpace(strings.ReplaceAll(l.Synced, "\r\n", "\n"))
	}
	if body == "" {
		return "", ErrNotFound
	}
	p := sidecarPath(mediaPath, l)
	if err := fileutil.WriteFileAtomic(p, []byte(body+"\n"), 0o644); err != nil {
		return "", err
	}
	return p, nil
}

func sidecarPath(mediaPath string, l Lyrics) string {
	ext := ".txt"
	if strings.TrimSpace(l.Synced) != "" {
		ext = ".lrc"
	}
	return strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath)) + ext
}

// sameFile reports whether a and b name the same file. Paths that cannot
// be stat'ed are compared lexically.
func sameFile(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	ai, aerr := os.Stat(a)
	bi, berr := os.Stat(b)
	if aerr == nil && berr == nil {
		return os.SameFile(ai, bi)
	}
	aa, aerr := filepath.Abs(a)
	ba, berr := filepath.Abs(b)
	return aerr == nil && berr == nil && aa == ba
}
