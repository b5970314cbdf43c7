package planner

import (
	"fmt"

	"github.com/backmassage/lyricmux/internal/config"
)

// UnknownFormatError reports a target format with no entry in the format
// table. It is the only error Build returns.
type UnknownFormatError struct {
	Format string
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("unsupported target format %q", e.Format)
}

// Build resolves in into a complete Plan. This is the decision matrix the
// orchestrator calls for every conversion.
//
// Flow:
//  1. Look up the target format
//  2. Resolve audio codec, rate control, sample rate and channels
//  3. Resolve the video encoder when the target and input both carry video
//  4. Decide stream maps, subtitles and cover art
//  5. Attach tempo filters, metadata and container options
func Build(cfg *config.Config, in Input) (*Plan, error) {
	f, ok := LookupFormat(in.Format)
	if !ok {
		return nil, &UnknownFormatError{Format: in.Format}
	}

	p := &Plan{
		InputPath:     in.InputPath,
		OutputPath:    in.OutputPath,
		Format:        f,
		Metadata:      in.Metadata.Clean(),
		ContainerOpts: f.ContainerOpt,
	}

	// --- 2. Audio ---
	p.Audio.Codec = ResolveAudioCodec(f.Name, in.Codec, cfg.Audio.AACEncoder)
	if p.Audio.Codec != "copy" {
		p.Audio.SampleRate = ResolveSampleRate(f.Name, in.SampleRateA, in.SampleRateB, cfg.Audio.DefaultSampleRate)
		p.Audio.Channels = ResolveChannels(f.Name, in.Channels)
		if !isLosslessCodec(p.Audio.Codec) {
			p.Audio.Quality = ResolveBitrate(f.Name, in.Bitrate, cfg.Audio.DefaultBitrate)
		}
	}

	// --- 3. Video ---
	wantVideo := f.Video && in.IsVideo && !in.Streams.NoVideo
	if wantVideo {
		p.Video = ResolveVideo(cfg, f.Name, in.HWAccel, in.VideoQuality)
	}

	// --- 4. Streams ---
	if !wantVideo && f.CoverArt && in.CoverPath != "" {
		p.CoverPath = in.CoverPath
	}
	p.Maps, p.Subtitles = BuildMaps(f, in.Streams, wantVideo, p.CoverPath != "")

	// --- 5. Tempo ---
	// Stream copy cannot be filtered, so a tempo request is dropped.
	if p.Audio.Codec != "copy" {
		p.Tempo = ResolveTempo(in.Tempo)
	}
	p.Audio.Filters = BuildAudioFilters(p.Audio, p.Tempo)
	if p.Video != nil {
		p.Video.Filters = BuildVideoFilters(p.Video, p.Tempo)
	}
	p.Disposition = BuildDispositions(p)
	return p, nil
}
