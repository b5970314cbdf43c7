// Package legacytag reads and writes the fixed 128-byte ID3v1.1-style
// metadata trailer at the end of a media file.
//
// Layout:
//
//	0   3  "TAG"
//	3   30 title
//	33  30 artist
//	63  30 album
//	93  4  year
//	97  28 comment
//	125 1  reserved, always 0
//	126 1  track
//	127 1  genre, always 0xFF (unset)
package legacytag

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/backmassage/lyricmux/internal/metadata"
)

// Size is the trailer length in bytes.
const Size = 128

// GenreUnset is the genre byte written to every trailer.
const GenreUnset = 0xFF

var magic = []byte("TAG")

const (
	offTitle   = 3
	offArtist  = 33
	offAlbum   = 63
	offYear    = 93
	offComment = 97
	offZero    = 125
	offTrack   = 126
	offGenre   = 127

	widthText    = 30
	widthYear    = 4
	widthComment = 28
)

// Tag is the decoded content of one trailer.
type Tag struct {
	Title   string
	Artist  string
	Album   string
	Year    string
	Comment string
	Track   byte
	Genre   byte
}

// FromRecord builds a tag from md. A non-empty comment replaces the
// record's own comment.
func FromRecord(md metadata.Record, comment string) Tag {
	md = md.Clean()
	t := Tag{
		Title:   md.Title,
		Artist:  md.Artist,
		Album:   md.Album,
		Year:    md.Year,
		Comment: md.Comment,
		Genre:   GenreUnset,
	}
	if comment != "" {
		t.Comment = comment
	}
	if md.Track > 0 && md.Track <= 255 {
		t.Track = byte(md.Track)
	}
	return t
}

// Encode serialises t. Auto resolves from the tag's own text.
func Encode(t Tag, cs Charset) [Size]byte {
	if cs == Auto {
		cs = SelectCharset("", t.Title, t.Artist, t.Album, t.Year, t.Comment)
	}
	var b [Size]byte
	copy(b[:3], magic)
	putField(b[offTitle:offTitle+widthText], t.Title, cs)
	putField(b[offArtist:offArtist+widthText], t.Artist, cs)
	putField(b[offAlbum:offAlbum+widthText], t.Album, cs)
	putField(b[offYear:offYear+widthYear], t.Year, cs)
	putField(b[offComment:offComment+widthComment], t.Comment, cs)
	b[offZero] = 0
	b[offTrack] = t.Track
	b[offGenre] = GenreUnset
	return b
}

// putField writes s into dst one byte per rune, stopping at the field width.
func putField(dst []byte, s string, cs Charset) {
	i := 0
	for _, r := range s {
		if i >= len(dst) {
			return
		}
		dst[i] = encodeRune(cs, r)
		i++
	}
}

// Decode parses a trailer block. Auto decodes as Latin-1.
func Decode(b []byte, cs Charset) (Tag, error) {
	if len(b) != Size || !bytes.HasPrefix(b, magic) {
		return Tag{}, errors.New("legacytag: not a trailer block")
	}
	return Tag{
		Title:   getField(b[offTitle:offTitle+widthText], cs),
		Artist:  getField(b[offArtist:offArtist+widthText], cs),
		Album:   getField(b[offAlbum:offAlbum+widthText], cs),
		Year:    getField(b[offYear:offYear+widthYear], cs),
		Comment: getField(b[offComment:offComment+widthComment], cs),
		Track:   b[offTrack],
		Genre:   b[offGenre],
	}, nil
}

// getField decodes a NUL-padded field. Spaces are content.
func getField(b []byte, cs Charset) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	var sb strings.Builder
	for _, c := range b {
		sb.WriteRune(decodeByte(cs, c))
	}
	return sb.String()
}

// WriteFile places the encoded trailer at the end of path. An existing
// trailer is overwritten in place; otherwise the block is appended.
func WriteFile(path string, t Tag, cs Charset) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open for trailer: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return err
	}
	offset := fi.Size()
	if ok, err := hasTrailer(f, fi.Size()); err != nil {
		return err
	} else if ok {
		offset -= Size
	}

	block := Encode(t, cs)
	if _, err := f.WriteAt(block[:], offset); err != nil {
		return fmt.Errorf("write trailer: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync trailer: %w", err)
	}
	return f.Close()
}

// ReadFile returns the trailer at the end of path. found is false when the
// file carries none.
func ReadFile(path string, cs Charset) (t Tag, found bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		return Tag{}, false, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return Tag{}, false, err
	}
	if fi.Size() < Size {
		return Tag{}, false, nil
	}
	b := make([]byte, Size)
	if _, err := f.ReadAt(b, fi.Size()-Size); err != nil {
		return Tag{}, false, err
	}
	if !bytes.HasPrefix(b, magic) {
		return Tag{}, false, nil
	}
	t, err = Decode(b, cs)
	return t, err == nil, err
}

func hasTrailer(r io.ReaderAt, size int64) (bool, error) {
	if size < Size {
		return false, nil
	}
	head := make([]byte, len(magic))
	if _, err := r.ReadAt(head, size-Size); err != nil {
		return false, fmt.Errorf("read trailer: %w", err)
	}
	return bytes.Equal(head, magic), nil
}

// Eligible reports whether path's format carries the trailer.
func Eligible(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".mp3")
}

// Rewrite recomputes the trailer for path from md. charsetOverride and
// comment are the configured string overrides; both may be empty.
func Rewrite(path string, md metadata.Record, charsetOverride, comment string) error {
	t := FromRecord(md, comment)
	cs := SelectCharset(charsetOverride, t.Title, t.Artist, t.Album, t.Year, t.Comment)
	return WriteFile(path, t, cs)
}
