package planner

import (
	"github.com/backmassage/lyricmux/internal/config"
	"github.com/backmassage/lyricmux/internal/metadata"
)

// Format describes one supported target format.
type Format struct {
	Name         string // canonical name, e.g. "m4a"
	Ext          string // output extension including the dot
	Video        bool   // container carries video
	AudioCodec   string // default audio encoder; empty means "use the AAC encoder from config"
	Lossless     bool   // bitrate is meaningless for the default codec
	CoverArt     bool   // supports an attached picture stream
	Subtitles    string // subtitle codec for video targets; empty drops subtitles
	MinKbps      int
	MaxKbps      int
	DefaultKbps  int
	ContainerOpt []string
}

var formats = map[string]Format{
	"mp3":  {Name: "mp3", Ext: ".mp3", AudioCodec: "libmp3lame", CoverArt: true, MinKbps: 32, MaxKbps: 320, DefaultKbps: 192},
	"m4a":  {Name: "m4a", Ext: ".m4a", CoverArt: true, MinKbps: 32, MaxKbps: 512, DefaultKbps: 256, ContainerOpt: []string{"-movflags", "+faststart"}},
	"flac": {Name: "flac", Ext: ".flac", AudioCodec: "flac", Lossless: true, CoverArt: true},
	"wav":  {Name: "wav", Ext: ".wav", AudioCodec: "pcm_s16le", Lossless: true},
	"ogg":  {Name: "ogg", Ext: ".ogg", AudioCodec: "libvorbis", MinKbps: 45, MaxKbps: 500, DefaultKbps: 192},
	"opus": {Name: "opus", Ext: ".opus", AudioCodec: "libopus", MinKbps: 6, MaxKbps: 510, DefaultKbps: 160},
	"mp4":  {Name: "mp4", Ext: ".mp4", Video: true, Subtitles: "mov_text", MinKbps: 32, MaxKbps: 512, DefaultKbps: 192, ContainerOpt: []string{"-movflags", "+faststart"}},
	"mkv":  {Name: "mkv", Ext: ".mkv", Video: true, Subtitles: "copy", MinKbps: 32, MaxKbps: 512, DefaultKbps: 192},
	"webm": {Name: "webm", Ext: ".webm", Video: true, AudioCodec: "libopus", Subtitles: "webvtt", MinKbps: 6, MaxKbps: 510, DefaultKbps: 160},
}

var formatAliases = map[string]string{
	"aac":      "m4a",
	"alac":     "m4a",
	"vorbis":   "ogg",
	"oga":      "ogg",
	"matroska": "mkv",
	"wave":     "wav",
}

// LookupFormat resolves a user-supplied format name (case-insensitive,
// leading dot allowed).
func LookupFormat(name string) (Format, bool) {
	key := normalizeName(name)
	if alias, ok := formatAliases[key]; ok {
		key = alias
	}
	f, ok := formats[key]
	return f, ok
}

// StreamSelection narrows which input streams are carried.
type StreamSelection struct {
	AudioTracks []int // input audio stream ordinals; empty keeps the first (audio targets) or all (video targets)
	Subtitles   bool  // carry subtitle streams on video targets
	NoVideo     bool  // drop video even for video targets
}

// Input is the declarative request the planner resolves.
type Input struct {
	InputPath    string
	OutputPath   string
	Format       string
	Bitrate      string
	IsVideo      bool
	SampleRateA  string // highest-priority sample rate option
	SampleRateB  string // secondary sample rate option
	Channels     string
	Codec        string // audio codec override
	HWAccel      string // hardware-accel preference; empty uses config
	VideoQuality string
	Streams      StreamSelection
	CoverPath    string
	Tempo        string // named frame-rate conversion, e.g. "25-24"
	Metadata     metadata.Record
}

// AudioQuality is a resolved rate-control choice. At most one field is set.
type AudioQuality struct {
	Bitrate string // constant/average bitrate, e.g. "320k"
	VBR     string // encoder quality scale for -q:a
}

// AudioPlan is the resolved audio encoding parameter set.
type AudioPlan struct {
	Codec      string
	Quality    AudioQuality
	SampleRate int
	Channels   int // 0 keeps the source layout
	Filters    []string
}

// VideoPlan is the resolved video encoding parameter set.
type VideoPlan struct {
	Codec    string
	HWAccel  config.HWAccel
	PreInput []string // device init args placed before -i
	Args     []string // rate control and preset args
	Filters  []string
}

// Plan holds every decision needed to build the ffmpeg command for one
// conversion. It is produced by Build and consumed by the ffmpeg package.
type Plan struct {
	InputPath     string
	OutputPath    string
	Format        Format
	Audio         AudioPlan
	Video         *VideoPlan // nil for audio-only outputs
	Maps          []string   // -map specifiers in order
	Subtitles     string     // subtitle codec, empty when none are mapped
	CoverPath     string     // attached picture input, empty when none
	Disposition   []string
	Tempo         *TempoPlan
	Metadata      metadata.Record
	ContainerOpts []string
}
