package metadata

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/dhowden/tag"
)

// Tags is what an existing media file already carries.
type Tags struct {
	Record Record
	Lyrics string
	Format string // tag container, e.g. "ID3v2.3", "VORBIS", "MP4"
}

// ReadTags reads the embedded tags of path. A file without any recognised
// tag block yields empty Tags and no error.
func ReadTags(path string) (Tags, error) {
	f, err := os.Open(path)
	if err != nil {
		return Tags{}, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		if errors.Is(err, tag.ErrNoTagsFound) {
			return Tags{}, nil
		}
		return Tags{}, fmt.Errorf("read tags %s: %w", path, err)
	}

	track, _ := m.Track()
	rec := Record{
		Title:       m.Title(),
		Artist:      m.Artist(),
		Album:       m.Album(),
		AlbumArtist: m.AlbumArtist(),
		Genre:       m.Genre(),
		Track:       track,
		Comment:     m.Comment(),
	}
	if y := m.Year(); y > 0 {
		rec.Year = strconv.Itoa(y)
	}
	return Tags{
		Record: rec.Clean(),
		Lyrics: m.Lyrics(),
		Format: string(m.Format()),
	}, nil
}

// FromFile returns the cleaned record embedded in path.
func FromFile(path string) (Record, error) {
	t, err := ReadTags(path)
	return t.Record, err
}
