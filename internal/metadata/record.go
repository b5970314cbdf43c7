// Package metadata defines the media metadata record shared by the planner,
// the naming templates, the legacy tag encoder and the lyrics lookup.
//
// Records arrive from collaborators as partially trusted free-form text.
// [Record.Clean] must run before a record is used to build process
// arguments or file names.
package metadata

import (
	"strconv"
	"strings"
	"unicode"
)

// maxFieldRunes bounds any single field after cleaning.
const maxFieldRunes = 512

// Record is the descriptive metadata of one media item.
type Record struct {
	Title       string
	Artist      string
	Album       string
	AlbumArtist string
	Year        string
	Genre       string
	Track       int
	Comment     string
}

// IsZero reports whether no field is set.
func (r Record) IsZero() bool {
	return r == Record{}
}

// Clean returns a copy with control characters removed, whitespace runs
// collapsed, fields trimmed and bounded, and out-of-range track numbers
// zeroed. Year keeps only its leading four digits when it starts with them.
func (r Record) Clean() Record {
	out := Record{
		Title:       cleanField(r.Title),
		Artist:      cleanField(r.Artist),
		Album:       cleanField(r.Album),
		AlbumArtist: cleanField(r.AlbumArtist),
		Year:        cleanYear(r.Year),
		Genre:       cleanField(r.Genre),
		Track:       r.Track,
		Comment:     cleanField(r.Comment),
	}
	if out.Track < 0 || out.Track > 255 {
		out.Track = 0
	}
	return out
}

// Merge fills empty fields of r from fallback.
func (r Record) Merge(fallback Record) Record {
	pick := func(a, b string) string {
		if a != "" {
			return a
		}
		return b
	}
	r.Title = pick(r.Title, fallback.Title)
	r.Artist = pick(r.Artist, fallback.Artist)
	r.Album = pick(r.Album, fallback.Album)
	r.AlbumArtist = pick(r.AlbumArtist, fallback.AlbumArtist)
	r.Year = pick(r.Year, fallback.Year)
	r.Genre = pick(r.Genre, fallback.Genre)
	r.Comment = pick(r.Comment, fallback.Comment)
	if r.Track == 0 {
		r.Track = fallback.Track
	}
	return r
}

// Args returns ffmpeg "-metadata key=value" pairs for every non-empty field
// in a stable order. The record should already be cleaned.
func (r Record) Args() []string {
	var args []string
	add := func(key, val string) {
		if val != "" {
			args = append(args, "-metadata", key+"="+val)
		}
	}
	add("title", r.Title)
	add("artist", r.Artist)
	add("album", r.Album)
	add("album_artist", r.AlbumArtist)
	add("date", r.Year)
	add("genre", r.Genre)
	if r.Track > 0 {
		add("track", strconv.Itoa(r.Track))
	}
	add("comment", r.Comment)
	return args
}

func cleanField(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	n := 0
	for _, c := range s {
		if n >= maxFieldRunes {
			break
		}
		switch {
		case unicode.IsSpace(c):
			space = b.Len() > 0
			continue
		case unicode.IsControl(c), c == unicode.ReplacementChar:
			continue
		}
		if space {
			b.WriteByte(' ')
			n++
			space = false
		}
		b.WriteRune(c)
		n++
	}
	return b.String()
}

func cleanYear(s string) string {
	s = cleanField(s)
	if len(s) >= 4 {
		digits := true
		for i := 0; i < 4; i++ {
			if s[i] < '0' || s[i] > '9' {
				digits = false
				break
			}
		}
		if digits {
			return s[:4]
		}
	}
	return s
}
