package pipeline

import (
	"errors"
	"time"

	"github.com/backmassage/lyricmux/internal/ffmpeg"
	"github.com/backmassage/lyricmux/internal/lyrics"
	"github.com/backmassage/lyricmux/internal/metadata"
	"github.com/backmassage/lyricmux/internal/planner"
)

// Sentinel errors for request validation.
var (
	ErrInputNotFound = errors.New("input file not found")
	ErrInputNotFile  = errors.New("input is not a regular file")
)

// Options are the optional conversion knobs.
type Options struct {
	SampleRateA      string // highest-priority sample rate option
	SampleRateB      string
	Channels         string
	Codec            string // audio codec override
	HWAccel          string // hardware-accel preference; "auto" must be resolved by the caller
	VideoQuality     string
	Streams          planner.StreamSelection
	Tempo            string // named frame-rate conversion, see planner.TempoNames
	FilenameTemplate string // empty uses config, then naming.DefaultTemplate
	Lyrics           lyrics.AttachOptions
}

// Request is one conversion job. It is consumed once.
type Request struct {
	InputPath string
	Format    string
	Bitrate   string
	JobID     string // empty: a new id is generated
	Progress  func(percent int)
	Metadata  metadata.Record
	CoverPath string
	IsVideo   bool
	OutputDir string // empty: config output dir, then the input's dir
	TempDir   string // lock files; empty: config temp dir
	Options   Options
	Cancel    *ffmpeg.CancelFlag
}

// Result describes a published conversion.
type Result struct {
	JobID      string
	OutputPath string
	Size       int64
	LyricsPath string
	Lyrics     lyrics.Stats
	Elapsed    time.Duration
}
