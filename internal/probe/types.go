package probe

import (
	"strconv"
	"strings"
	"time"

	"github.com/backmassage/lyricmux/internal/metadata"
)

// FormatInfo holds container-level metadata from ffprobe's format section.
type FormatInfo struct {
	Filename   string
	FormatName string
	Duration   float64 // seconds
	Size       int64
	BitRate    int64
	Tags       map[string]string
}

// VideoStream is a picture stream. Cover art shows up as an attached pic.
type VideoStream struct {
	Index         int
	Codec         string
	Width         int
	Height        int
	AvgFrameRate  string
	IsAttachedPic bool
}

type AudioStream struct {
	Index         int
	Codec         string
	Channels      int
	ChannelLayout string
	SampleRate    int
	BitRate       int64
	Language      string
	IsDefault     bool
}

type SubtitleStream struct {
	Index    int
	Codec    string
	Language string
}

// Result is the parsed output of one ffprobe call. Video is the first
// stream that is not an attached picture, nil when there is none.
type Result struct {
	Format    FormatInfo
	Video     *VideoStream
	HasCover  bool
	Audio     []AudioStream
	Subtitles []SubtitleStream
}

// HasVideo reports whether the input carries real video.
func (r *Result) HasVideo() bool { return r != nil && r.Video != nil }

// Duration returns the container duration, 0 when unknown.
func (r *Result) Duration() time.Duration {
	if r == nil || r.Format.Duration <= 0 {
		return 0
	}
	return time.Duration(r.Format.Duration * float64(time.Second))
}

// FrameRate returns the primary video frame rate, 0 when unknown.
func (r *Result) FrameRate() float64 {
	if !r.HasVideo() {
		return 0
	}
	num, den, ok := strings.Cut(r.Video.AvgFrameRate, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !ok {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

// Metadata maps container tags to a cleaned record. ffprobe reports tag
// keys in the container's own case, so lookups are case-insensitive.
func (r *Result) Metadata() metadata.Record {
	if r == nil {
		return metadata.Record{}
	}
	tags := make(map[string]string, len(r.Format.Tags))
	for k, v := range r.Format.Tags {
		tags[strings.ToLower(k)] = v
	}
	rec := metadata.Record{
		Title:       tags["title"],
		Artist:      tags["artist"],
		Album:       tags["album"],
		AlbumArtist: firstNonEmpty(tags["album_artist"], tags["albumartist"]),
		Year:        firstNonEmpty(tags["date"], tags["year"]),
		Genre:       tags["genre"],
		Comment:     tags["comment"],
	}
	if t, _, _ := strings.Cut(tags["track"], "/"); t != "" {
		rec.Track = parseInt(t)
	}
	return rec.Clean()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
