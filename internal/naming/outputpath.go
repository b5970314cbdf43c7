package naming

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/backmassage/lyricmux/internal/metadata"
)

// DefaultTemplate is used when no filename template is configured.
const DefaultTemplate = "{artist} - {title}"

// maxNameBytes keeps names under common filesystem limits with room for
// a collision suffix and extension.
const maxNameBytes = 200

var rePlaceholder = regexp.MustCompile(`\{([a-z_]+)\}`)

// Runs of separators left behind by empty fields, e.g. " -  - ".
var reDanglingSep = regexp.MustCompile(`(\s*-\s*){2,}`)

var unsafeReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
	"\n", " ",
	"\t", " ",
)

// OutputName renders template with md and returns a filesystem-safe stem.
// Supported placeholders are {title} {artist} {album} {album_artist}
// {year} {genre} and {track} (two digits). When every placeholder is empty,
// or the result is, fallbackStem is used instead.
func OutputName(template string, md metadata.Record, fallbackStem string) string {
	if strings.TrimSpace(template) == "" {
		template = DefaultTemplate
	}
	md = md.Clean()

	filled := 0
	name := rePlaceholder.ReplaceAllStringFunc(template, func(m string) string {
		v, ok := field(md, m[1:len(m)-1])
		if !ok {
			return m
		}
		if v != "" {
			filled++
		}
		return v
	})
	if filled == 0 {
		return Sanitize(fallbackStem)
	}

	name = reDanglingSep.ReplaceAllString(name, " - ")
	name = strings.Trim(name, " -_.")
	if name == "" {
		return Sanitize(fallbackStem)
	}
	return Sanitize(name)
}

func field(md metadata.Record, key string) (string, bool) {
	switch key {
	case "title":
		return md.Title, true
	case "artist":
		return md.Artist, true
	case "album":
		return md.Album, true
	case "album_artist":
		return md.AlbumArtist, true
	case "year":
		return md.Year, true
	case "genre":
		return md.Genre, true
	case "track":
		if md.Track <= 0 {
			return "", true
		}
		return fmt.Sprintf("%02d", md.Track), true
	}
	return "", false
}

// Sanitize replaces path separators and characters most filesystems reject,
// collapses whitespace and truncates to a safe byte length on a rune
// boundary. An empty result becomes "untitled".
func Sanitize(value string) string {
	cleaned := unsafeReplacer.Replace(strings.TrimSpace(value))
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	cleaned = strings.TrimLeft(cleaned, ".")
	if len(cleaned) > maxNameBytes {
		cut := maxNameBytes
		for cut > 0 && !utf8.RuneStart(cleaned[cut]) {
			cut--
		}
		cleaned = strings.TrimSpace(cleaned[:cut])
	}
	if cleaned == "" {
		return "untitled"
	}
	return cleaned
}

// OutputPath joins dir, stem and the format extension (with leading dot).
func OutputPath(dir, stem, ext string) string {
	return filepath.Join(dir, stem+ext)
}
