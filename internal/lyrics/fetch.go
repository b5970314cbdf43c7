package lyrics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/backmassage/lyricmux/internal/metadata"
)

// ErrNotFound is returned by a Fetcher that has nothing for the file.
var ErrNotFound = errors.New("lyrics not found")

// Lyrics is a lookup result. Either field may be empty, not both.
type Lyrics struct {
	Synced string // LRC text with timestamps
	Plain  string
	Source string // file the text was read from, if any
}

// IsZero reports whether l carries no text at all.
func (l Lyrics) IsZero() bool {
	return strings.TrimSpace(l.Synced) == "" && strings.TrimSpace(l.Plain) == ""
}

// Text returns plain lyrics, deriving them from the synced text when no
// plain variant was found.
func (l Lyrics) Text() string {
	if p := strings.TrimSpace(l.Plain); p != "" {
		return StripTimestamps(p)
	}
	return StripTimestamps(l.Synced)
}

// Fetcher looks up lyrics for a media file. Implementations return
// ErrNotFound when they have no match.
type Fetcher interface {
	Lookup(ctx context.Context, mediaPath string, md metadata.Record) (Lyrics, error)
}

// SidecarFetcher reads lyrics from text files next to the media file:
// <stem>.lrc, then <stem>.txt, then "<artist> - <title>" with the same
// extensions. Dirs adds extra directories searched after the media's own.
type SidecarFetcher struct {
	Dirs []string
}

func (f SidecarFetcher) Lookup(ctx context.Context, mediaPath string, md metadata.Record) (Lyrics, error) {
	stems := []string{strings.TrimSuffix(filepath.Base(mediaPath), filepath.Ext(mediaPath))}
	if md.Artist != "" && md.Title != "" {
		stems = append(stems, md.Artist+" - "+md.Title)
	}
	dirs := append([]string{filepath.Dir(mediaPath)}, f.Dirs...)

	for _, dir := range dirs {
		for _, stem := range stems {
			for _, ext := range []string{".lrc", ".txt"} {
				if err := ctx.Err(); err != nil {
					return Lyrics{}, err
				}
				p := filepath.Join(dir, stem+ext)
				b, err := os.ReadFile(p)
				if err != nil {
					continue
				}
				text := strings.TrimSpace(string(b))
				if text == "" {
					continue
				}
				if IsSynced(text) {
					return Lyrics{Synced: text, Source: p}, nil
				}
				return Lyrics{Plain: text, Source: p}, nil
			}
		}
	}
	return Lyrics{}, ErrNotFound
}

// TagFetcher returns lyrics already embedded in the media file's tags.
type TagFetcher struct{}

func (TagFetcher) Lookup(ctx context.Context, mediaPath string, _ metadata.Record) (Lyrics, error) {
	if err := ctx.Err(); err != nil {
		return Lyrics{}, err
	}
	t, err := metadata.ReadTags(mediaPath)
	if err != nil {
		// Unparseable tags carry no lyrics.
		return Lyrics{}, ErrNotFound
	}
	text := strings.TrimSpace(t.Lyrics)
	switch {
	case text == "":
		return Lyrics{}, ErrNotFound
	case IsSynced(text):
		return Lyrics{Synced: text}, nil
	default:
		return Lyrics{Plain: text}, nil
	}
}

// Chain tries each Fetcher in order and returns the first match. Errors
// other than ErrNotFound are remembered and returned when nothing matches.
type Chain []Fetcher

func (c Chain) Lookup(ctx context.Context, mediaPath string, md metadata.Record) (Lyrics, error) {
	var firstErr error
	for _, f := range c {
		l, err := f.Lookup(ctx, mediaPath, md)
		if err == nil && !l.IsZero() {
			return l, nil
		}
		if ctx.Err() != nil {
			return Lyrics{}, ctx.Err()
		}
		if err != nil && !errors.Is(err, ErrNotFound) && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return Lyrics{}, firstErr
	}
	return Lyrics{}, ErrNotFound
}
