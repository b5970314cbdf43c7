package ffmpeg

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/backmassage/lyricmux/internal/config"
	"github.com/backmassage/lyricmux/internal/planner"
)

// Command is a fully built invocation. OutputPath is the file the process
// is expected to produce; it decides success and is removed on failure.
type Command struct {
	Binary     string
	Args       []string
	OutputPath string
}

// String renders the command for logs, quoting arguments that need it.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, quoteArg(c.Binary))
	for _, a := range c.Args {
		parts = append(parts, quoteArg(a))
	}
	return strings.Join(parts, " ")
}

func quoteArg(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"\\$`*?[]{}()<>|&;#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// preamble is shared by every invocation. Stats stay on: Duration and
// time= markers drive progress.
var preamble = []string{"-hide_banner", "-nostdin", "-y", "-stats"}

// BuildConvert renders plan into a conversion command writing to out.
//
// Skeleton:
//
//	ffmpeg <preamble> [device init] -i IN [-i COVER] -map ... [video] [audio]
//	       [subtitles] -map_metadata 0 <metadata> [dispositions] [container] OUT
func BuildConvert(cfg *config.Config, plan *planner.Plan, out string) Command {
	args := make([]string, 0, 64)
	args = append(args, preamble...)

	// --- Inputs ---
	if plan.Video != nil {
		args = append(args, plan.Video.PreInput...)
	}
	args = append(args, "-i", plan.InputPath)
	if plan.CoverPath != "" {
		args = append(args, "-i", plan.CoverPath)
	}

	// --- Stream maps ---
	for _, m := range plan.Maps {
		args = append(args, "-map", m)
	}

	// --- Video ---
	switch {
	case plan.Video != nil:
		args = append(args, "-c:v", plan.Video.Codec)
		args = append(args, plan.Video.Args...)
		if len(plan.Video.Filters) > 0 {
			args = append(args, "-vf", strings.Join(plan.Video.Filters, ","))
		}
	case plan.CoverPath != "":
		args = append(args, "-c:v", "copy")
	default:
		args = append(args, "-vn")
	}

	// --- Audio ---
	args = appendAudio(args, plan.Audio)

	// --- Subtitles ---
	if plan.Subtitles != "" {
		args = append(args, "-c:s", plan.Subtitles)
	} else {
		args = append(args, "-sn")
	}
	args = append(args, "-dn")

	// --- Metadata ---
	args = append(args, "-map_metadata", "0")
	args = append(args, plan.Metadata.Args()...)
	if plan.Format.Name == "mp3" {
		args = append(args, "-id3v2_version", "3", "-write_id3v1", "0")
	}

	args = append(args, plan.Disposition...)
	args = append(args, plan.ContainerOpts...)
	args = append(args, out)

	return Command{Binary: cfg.FFmpeg.Binary, Args: args, OutputPath: out}
}

func appendAudio(args []string, a planner.AudioPlan) []string {
	args = append(args, "-c:a", a.Codec)
	if a.Codec == "copy" {
		return args
	}
	switch {
	case a.Quality.VBR != "":
		args = append(args, "-q:a", a.Quality.VBR)
	case a.Quality.Bitrate != "":
		args = append(args, "-b:a", a.Quality.Bitrate)
	}
	if a.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(a.SampleRate))
	}
	if a.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(a.Channels))
	}
	if len(a.Filters) > 0 {
		args = append(args, "-af", strings.Join(a.Filters, ","))
	}
	return args
}

// BuildEmbed renders the lyrics remux: every stream is copied unchanged
// and text is written both as a file-level tag and on the first audio
// stream. The muxer is inferred from tmp's extension.
func BuildEmbed(cfg *config.Config, input, tmp, text string) Command {
	args := make([]string, 0, 24)
	args = append(args, preamble...)
	args = append(args,
		"-i", input,
		"-map", "0",
		"-c", "copy",
		"-map_metadata", "0",
		"-metadata", "lyrics="+text,
		"-metadata:s:a:0", "lyrics="+text,
	)
	if strings.EqualFold(filepath.Ext(tmp), ".mp3") {
		// The legacy trailer is written separately after the swap.
		args = append(args, "-id3v2_version", "3", "-write_id3v1", "0")
	}
	args = append(args, tmp)
	return Command{Binary: cfg.FFmpeg.Binary, Args: args, OutputPath: tmp}
}
