package planner

import (
	"errors"
	"math"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/backmassage/lyricmux/internal/config"
	"github.com/backmassage/lyricmux/internal/metadata"
)

func defaultCfg() *config.Config {
	cfg := config.DefaultConfig()
	return &cfg
}

func TestResolveSampleRate(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		a, b, e string
		want    int
	}{
		{"all empty defaults to 48000", "flac", "", "", "", 48000},
		{"option A wins", "flac", "96000", "44100", "22050", 96000},
		{"malformed A falls to B", "flac", "fast", "44100", "22050", 44100},
		{"env default used last", "flac", "", "", "32000", 32000},
		{"negative skipped", "flac", "-44100", "", "", 48000},
		{"khz suffix", "flac", "44.1kHz", "", "", 44100},
		{"k suffix", "flac", "48k", "", "", 48000},
		{"bare decimal is khz", "flac", "44.1", "", "", 44100},
		{"bare integer is hz", "flac", "48", "", "", 8000},
		{"999 hz clamped low", "flac", "999", "", "", 8000},
		{"500 hz clamped low", "flac", "500", "", "", 8000},
		{"mp3 999 hz", "mp3", "999", "", "", 8000},
		{"mp3 500 hz", "mp3", "500", "", "", 8000},
		{"clamped low", "wav", "1000", "", "", 8000},
		{"clamped high", "wav", "384000", "", "", 192000},
		{"mp3 snaps to 44100", "mp3", "44000", "", "", 44100},
		{"mp3 above set snaps to 48000", "mp3", "96000", "", "", 48000},
		{"mp3 tie goes lower", "mp3", "46050", "", "", 44100},
		{"mp4 capped at 48000", "mp4", "96000", "", "", 48000},
		{"m4a keeps 44100", "m4a", "44100", "", "", 44100},
		{"opus snaps", "opus", "44100", "", "", 48000},
		{"case-insensitive format", "MP3", "22000", "", "", 22050},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveSampleRate(tt.format, tt.a, tt.b, tt.e)
			if got != tt.want {
				t.Errorf("ResolveSampleRate(%q, %q, %q, %q) = %d, want %d", tt.format, tt.a, tt.b, tt.e, got, tt.want)
			}
		})
	}
}

func TestResolveSampleRate_AlwaysLegal(t *testing.T) {
	legal := map[int]bool{}
	for _, r := range mp3SampleRates {
		legal[r] = true
	}
	for r := -1000; r <= 250000; r += 997 {
		s := strconv.Itoa(r)
		if got := ResolveSampleRate("mp3", s, "", ""); !legal[got] {
			t.Fatalf("mp3 rate for %s = %d, not in legal set", s, got)
		}
		if got := ResolveSampleRate("flac", s, "", ""); got < MinSampleRate || got > MaxSampleRate {
			t.Fatalf("flac rate for %s = %d, out of range", s, got)
		}
	}
}

func TestResolveChannels(t *testing.T) {
	tests := []struct {
		format, option string
		want           int
	}{
		{"flac", "mono", 1},
		{"flac", "2", 2},
		{"flac", "5.1", 6},
		{"mp3", "5.1", 2},
		{"flac", "", 0},
		{"flac", "quad", 0},
	}
	for _, tt := range tests {
		if got := ResolveChannels(tt.format, tt.option); got != tt.want {
			t.Errorf("ResolveChannels(%q, %q) = %d, want %d", tt.format, tt.option, got, tt.want)
		}
	}
}

func TestResolveBitrate(t *testing.T) {
	tests := []struct {
		name         string
		format       string
		spec, envDef string
		want         AudioQuality
	}{
		{"plain number", "mp3", "320", "", AudioQuality{Bitrate: "320k"}},
		{"k suffix", "mp3", "256k", "", AudioQuality{Bitrate: "256k"}},
		{"kbps suffix", "m4a", "128kbps", "", AudioQuality{Bitrate: "128k"}},
		{"bits per second", "m4a", "192000", "", AudioQuality{Bitrate: "192k"}},
		{"mp3 clamped", "mp3", "999", "", AudioQuality{Bitrate: "320k"}},
		{"mp3 vbr preset", "mp3", "V2", "", AudioQuality{VBR: "2"}},
		{"vbr only on mp3", "m4a", "V2", "", AudioQuality{Bitrate: "256k"}},
		{"malformed uses env", "ogg", "loud", "160k", AudioQuality{Bitrate: "160k"}},
		{"all malformed uses format default", "opus", "x", "y", AudioQuality{Bitrate: "160k"}},
		{"lossless ignores bitrate", "flac", "320", "", AudioQuality{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveBitrate(tt.format, tt.spec, tt.envDef)
			if got != tt.want {
				t.Errorf("ResolveBitrate(%q, %q, %q) = %+v, want %+v", tt.format, tt.spec, tt.envDef, got, tt.want)
			}
		})
	}
}

func TestResolveAudioCodec(t *testing.T) {
	tests := []struct {
		format, override, aac string
		want                  string
	}{
		{"mp3", "", "aac", "libmp3lame"},
		{"m4a", "", "libfdk_aac", "libfdk_aac"},
		{"m4a", "", "bogus", "aac"},
		{"m4a", "alac", "aac", "alac"},
		{"mp3", "flac", "aac", "libmp3lame"},
		{"mkv", "FLAC", "aac", "flac"},
		{"webm", "", "aac", "libopus"},
	}
	for _, tt := range tests {
		if got := ResolveAudioCodec(tt.format, tt.override, tt.aac); got != tt.want {
			t.Errorf("ResolveAudioCodec(%q, %q, %q) = %q, want %q", tt.format, tt.override, tt.aac, got, tt.want)
		}
	}
}

func TestResolveVideo(t *testing.T) {
	cfg := defaultCfg()

	v := ResolveVideo(cfg, "mp4", "", "")
	if v.Codec != "libx264" || !contains(v.Args, "23") {
		t.Errorf("software default = %+v", v)
	}

	v = ResolveVideo(cfg, "mkv", "nvenc", "19")
	if v.Codec != "h264_nvenc" || !contains(v.Args, "19") {
		t.Errorf("nvenc = %+v", v)
	}

	v = ResolveVideo(cfg, "mp4", "vaapi", "")
	if v.Codec != "h264_vaapi" || !reflect.DeepEqual(v.PreInput, []string{"-vaapi_device", "/dev/dri/renderD128"}) {
		t.Errorf("vaapi = %+v", v)
	}

	v = ResolveVideo(cfg, "webm", "", "")
	if v.Codec != "libvpx-vp9" || !contains(v.Args, "31") {
		t.Errorf("vp9 = %+v", v)
	}

	cfg.FFmpeg.HWAccelEnabled = "false"
	if v = ResolveVideo(cfg, "mp4", "nvenc", ""); v.Codec != "libx264" {
		t.Errorf("disabled hwaccel still chose %q", v.Codec)
	}

	if v = ResolveVideo(defaultCfg(), "mp3", "", ""); v != nil {
		t.Errorf("audio format got video plan %+v", v)
	}
}

func TestResolveHWAccel_AutoIsSoftware(t *testing.T) {
	cfg := defaultCfg()
	cfg.FFmpeg.HWAccel = config.HWAccelAuto
	if got := ResolveHWAccel(cfg, ""); got != config.HWAccelNone {
		t.Errorf("ResolveHWAccel(auto) = %q, want none", got)
	}
	if got := ResolveHWAccel(cfg, "qsv"); got != config.HWAccelQSV {
		t.Errorf("ResolveHWAccel(pref qsv) = %q", got)
	}
	if got := ResolveHWAccel(cfg, "garbage"); got != config.HWAccelNone {
		t.Errorf("ResolveHWAccel(garbage) = %q, want config value", got)
	}
}

func TestDecomposeTempo(t *testing.T) {
	tests := []struct {
		ratio float64
		want  []float64
	}{
		{1.0, []float64{1}},
		{0.25, []float64{0.5, 0.5}},
		{0.3, []float64{0.5, 0.6}},
		{5, []float64{2, 2, 1.25}},
		{24.0 / 25, []float64{0.96}},
	}
	for _, tt := range tests {
		got := DecomposeTempo(tt.ratio)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("DecomposeTempo(%v) = %v, want %v", tt.ratio, got, tt.want)
		}
	}
	for _, bad := range []float64{0, -1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		if got := DecomposeTempo(bad); len(got) != 0 {
			t.Errorf("DecomposeTempo(%v) = %v, want none", bad, got)
		}
	}
}

func TestDecomposeTempo_Properties(t *testing.T) {
	for _, r := range []float64{0.001, 0.0123, 0.49, 0.5, 0.75, 1.0001, 2, 2.5, 17.3, 1000, 123456.789} {
		stages := DecomposeTempo(r)
		product := 1.0
		for _, s := range stages {
			if s < 0.5 || s > 2.0 {
				t.Errorf("ratio %v: stage %v outside [0.5, 2.0]", r, s)
			}
			product *= s
		}
		if rel := math.Abs(product-r) / r; rel > 1e-4 {
			t.Errorf("ratio %v: product %v off by %v", r, product, rel)
		}
		if bound := int(math.Abs(math.Log2(r))) + 2; len(stages) > bound {
			t.Errorf("ratio %v: %d stages, want at most %d", r, len(stages), bound)
		}
	}
}

func TestResolveTempo(t *testing.T) {
	p := ResolveTempo("25-24")
	if p == nil || p.Ratio != 0.96 || !reflect.DeepEqual(p.Stages, []float64{0.96}) {
		t.Fatalf("ResolveTempo(25-24) = %+v", p)
	}
	if got := AtempoChain(p.Stages); got != "atempo=0.96" {
		t.Errorf("AtempoChain = %q", got)
	}
	if got := SetPTSFilter(p.Ratio); got != "setpts=1.041667*PTS" {
		t.Errorf("SetPTSFilter = %q", got)
	}
	if ResolveTempo("") != nil || ResolveTempo("60-1") != nil {
		t.Error("unknown or empty names must resolve to nil")
	}
	if len(TempoNames()) != 8 {
		t.Errorf("TempoNames() = %v", TempoNames())
	}
	if got := AtempoChain([]float64{0.5, 0.6}); got != "atempo=0.5,atempo=0.6" {
		t.Errorf("AtempoChain = %q", got)
	}
}

func TestBuild_UnknownFormat(t *testing.T) {
	_, err := Build(defaultCfg(), Input{Format: "xyz"})
	var ufe *UnknownFormatError
	if !errors.As(err, &ufe) || ufe.Format != "xyz" {
		t.Errorf("Build(xyz) err = %v", err)
	}
}

func TestBuild_AudioWithCover(t *testing.T) {
	cfg := defaultCfg()
	cfg.Audio.DefaultSampleRate = "44100"
	p, err := Build(cfg, Input{
		InputPath: "in.flac",
		Format:    "mp3",
		Bitrate:   "320",
		CoverPath: "cover.jpg",
		Metadata:  metadata.Record{Title: " Song\x00 "},
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.Audio.Codec != "libmp3lame" || p.Audio.Quality.Bitrate != "320k" || p.Audio.SampleRate != 44100 {
		t.Errorf("audio = %+v", p.Audio)
	}
	if !reflect.DeepEqual(p.Maps, []string{"0:a:0", "1:v:0"}) {
		t.Errorf("maps = %q", p.Maps)
	}
	if !contains(p.Disposition, "attached_pic") {
		t.Errorf("disposition = %q", p.Disposition)
	}
	if p.Video != nil {
		t.Errorf("audio target has video plan")
	}
	if p.Metadata.Title != "Song" {
		t.Errorf("metadata not cleaned: %q", p.Metadata.Title)
	}
}

func TestBuild_VideoTargetFromAudioInput(t *testing.T) {
	p, err := Build(defaultCfg(), Input{Format: "mkv", IsVideo: false})
	if err != nil {
		t.Fatal(err)
	}
	if p.Video != nil {
		t.Errorf("video plan for audio-only input: %+v", p.Video)
	}
	if !reflect.DeepEqual(p.Maps, []string{"0:a:0"}) {
		t.Errorf("maps = %q", p.Maps)
	}
}

func TestBuild_VideoWithTempoAndSubs(t *testing.T) {
	p, err := Build(defaultCfg(), Input{
		Format:  "mp4",
		IsVideo: true,
		Tempo:   "25-24",
		Streams: StreamSelection{AudioTracks: []int{1, 2}, Subtitles: true},
		HWAccel: "vaapi",
	})
	if err != nil {
		t.Fatal(err)
	}
	wantMaps := []string{"0:v:0", "0:a:1?", "0:a:2?", "0:s?"}
	if !reflect.DeepEqual(p.Maps, wantMaps) {
		t.Errorf("maps = %q, want %q", p.Maps, wantMaps)
	}
	if p.Subtitles != "mov_text" {
		t.Errorf("subtitles = %q", p.Subtitles)
	}
	if p.Audio.Filters[0] != "atempo=0.96" {
		t.Errorf("audio filters = %q", p.Audio.Filters)
	}
	wantVF := []string{"setpts=1.041667*PTS", "format=nv12", "hwupload"}
	if !reflect.DeepEqual(p.Video.Filters, wantVF) {
		t.Errorf("video filters = %q, want %q", p.Video.Filters, wantVF)
	}
	if !contains(p.Disposition, "-disposition:a:1") {
		t.Errorf("disposition = %q", p.Disposition)
	}
}

func TestBuild_CopyDropsFilters(t *testing.T) {
	p, err := Build(defaultCfg(), Input{Format: "m4a", Codec: "copy", Tempo: "25-24", Bitrate: "128"})
	if err != nil {
		t.Fatal(err)
	}
	if p.Tempo != nil || len(p.Audio.Filters) != 0 || p.Audio.Quality != (AudioQuality{}) || p.Audio.SampleRate != 0 {
		t.Errorf("copy plan = %+v", p.Audio)
	}
}

func TestEstimateSize(t *testing.T) {
	p, _ := Build(defaultCfg(), Input{Format: "mp3", Bitrate: "128"})
	size, ok := EstimateSize(p, 60*time.Second)
	if !ok || size != 960000 {
		t.Errorf("EstimateSize = %d, %v; want 960000, true", size, ok)
	}
	p, _ = Build(defaultCfg(), Input{Format: "flac"})
	if _, ok := EstimateSize(p, time.Minute); ok {
		t.Error("lossless estimate should not be ok")
	}
}

func TestLookupFormat(t *testing.T) {
	for _, name := range []string{"mp3", ".MP3", "aac", "Matroska"} {
		if _, ok := LookupFormat(name); !ok {
			t.Errorf("LookupFormat(%q) not found", name)
		}
	}
	if f, _ := LookupFormat("aac"); f.Ext != ".m4a" {
		t.Errorf("aac ext = %q", f.Ext)
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
