package probe

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Matroska music video: cover art, one h264 stream, two audio tracks and
// a subtitle.
const sampleVideo = `{
  "streams": [
    {
      "index": 0,
      "codec_name": "mjpeg",
      "codec_type": "video",
      "width": 600,
      "height": 600,
      "disposition": { "default": 0, "attached_pic": 1 }
    },
    {
      "index": 1,
      "codec_name": "h264",
      "codec_type": "video",
      "width": 1920,
      "height": 1080,
      "avg_frame_rate": "24000/1001",
      "disposition": { "default": 1, "attached_pic": 0 }
    },
    {
      "index": 2,
      "codec_name": "aac",
      "codec_type": "audio",
      "channels": 2,
      "channel_layout": "stereo",
      "sample_rate": "48000",
      "bit_rate": "192000",
      "disposition": { "default": 1 },
      "tags": { "language": "eng" }
    },
    {
      "index": 3,
      "codec_name": "ac3",
      "codec_type": "audio",
      "channels": 6,
      "sample_rate": "48000",
      "disposition": { "default": 0 },
      "tags": { "language": "tur" }
    },
    {
      "index": 4,
      "codec_name": "subrip",
      "codec_type": "subtitle",
      "tags": { "language": "eng" }
    }
  ],
  "format": {
    "filename": "/music/clip.mkv",
    "format_name": "matroska,webm",
    "duration": "215.500000",
    "size": "52428800",
    "bit_rate": "1946339",
    "tags": { "TITLE": "Clip", "ARTIST": "Band", "DATE": "2011-05-02", "track": "7/12" }
  }
}`

// Audio-only flac with embedded cover.
const sampleAudio = `{
  "streams": [
    { "index": 0, "codec_name": "flac", "codec_type": "audio", "channels": 2, "sample_rate": "44100" },
    { "index": 1, "codec_name": "png", "codec_type": "video", "disposition": { "attached_pic": 1 } }
  ],
  "format": { "filename": "a.flac", "format_name": "flac", "duration": "N/A", "tags": { "album_artist": "Various" } }
}`

func TestParseJSON_Video(t *testing.T) {
	r, err := ParseJSON([]byte(sampleVideo))
	if err != nil {
		t.Fatal(err)
	}
	if !r.HasVideo() || r.Video.Index != 1 || r.Video.Codec != "h264" {
		t.Errorf("Video = %+v", r.Video)
	}
	if !r.HasCover {
		t.Error("HasCover = false")
	}
	if len(r.Audio) != 2 || r.Audio[0].BitRate != 192000 || !r.Audio[0].IsDefault || r.Audio[1].Language != "tur" {
		t.Errorf("Audio = %+v", r.Audio)
	}
	if len(r.Subtitles) != 1 || r.Subtitles[0].Codec != "subrip" {
		t.Errorf("Subtitles = %+v", r.Subtitles)
	}
	if got := r.Duration(); got != 215500*time.Millisecond {
		t.Errorf("Duration = %v", got)
	}
	if fr := r.FrameRate(); fr < 23.97 || fr > 23.98 {
		t.Errorf("FrameRate = %v", fr)
	}
	md := r.Metadata()
	if md.Title != "Clip" || md.Artist != "Band" || md.Year != "2011" || md.Track != 7 {
		t.Errorf("Metadata = %+v", md)
	}
}

func TestParseJSON_AudioOnly(t *testing.T) {
	r, err := ParseJSON([]byte(sampleAudio))
	if err != nil {
		t.Fatal(err)
	}
	if r.HasVideo() {
		t.Error("attached pic counted as video")
	}
	if !r.HasCover || len(r.Audio) != 1 {
		t.Errorf("result = %+v", r)
	}
	if r.Duration() != 0 || r.FrameRate() != 0 {
		t.Errorf("Duration=%v FrameRate=%v, want zeros", r.Duration(), r.FrameRate())
	}
	if md := r.Metadata(); md.AlbumArtist != "Various" {
		t.Errorf("Metadata = %+v", md)
	}
}

func TestParseJSON_Invalid(t *testing.T) {
	if _, err := ParseJSON([]byte("not json")); err == nil {
		t.Error("expected error")
	}
}

func TestNilResult(t *testing.T) {
	var r *Result
	if r.HasVideo() || r.Duration() != 0 || !r.Metadata().IsZero() {
		t.Error("nil result should be empty")
	}
}

func TestProbe_Script(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "ffprobe")
	script := "#!/bin/sh\ncat <<'JSON'\n" + sampleAudio + "\nJSON\n"
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	r, err := Probe(context.Background(), bin, "a.flac")
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Audio) != 1 || r.Audio[0].Codec != "flac" {
		t.Errorf("Audio = %+v", r.Audio)
	}

	fail := filepath.Join(dir, "bad")
	_ = os.WriteFile(fail, []byte("#!/bin/sh\nexit 1\n"), 0o755)
	if _, err := Probe(context.Background(), fail, "a.flac"); err == nil {
		t.Error("expected error from failing ffprobe")
	}
}
