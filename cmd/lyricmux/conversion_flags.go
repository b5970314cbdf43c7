package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/backmassage/lyricmux/internal/check"
	"github.com/backmassage/lyricmux/internal/config"
	"github.com/backmassage/lyricmux/internal/logging"
	"github.com/backmassage/lyricmux/internal/lyrics"
	"github.com/backmassage/lyricmux/internal/metadata"
	"github.com/backmassage/lyricmux/internal/pipeline"
	"github.com/backmassage/lyricmux/internal/planner"
	"github.com/backmassage/lyricmux/internal/probe"
)

// conversionFlags are shared by convert and batch.
type conversionFlags struct {
	format     string
	bitrate    string
	outputDir  string
	sampleRate string
	ar         string
	channels   string
	codec      string
	hwaccel    config.HWAccel
	quality    string
	tempo      string
	template   string
	cover      string

	audioTracks []int
	subtitles   bool
	noVideo     bool
	video       bool

	md metadata.Record

	lyrics      bool
	embedLyrics bool
	lyricsDirs  []string

	dryRun bool
}

func (f *conversionFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.format, "format", "f", "", "Target format (mp3, m4a, aac, opus, ogg, flac, wav, mp4, mkv, webm, ...)")
	fs.StringVarP(&f.bitrate, "bitrate", "b", "", "Bitrate (e.g. 320, 256k) or mp3 VBR quality V0-V9")
	fs.StringVarP(&f.outputDir, "output-dir", "o", "", "Output directory (default: config output.dir, then the input's directory)")
	fs.StringVar(&f.sampleRate, "sample-rate", "", "Output sample rate in Hz")
	fs.StringVar(&f.ar, "ar", "", "Secondary sample rate option, used when --sample-rate is unset")
	fs.StringVar(&f.channels, "channels", "", "Output channel count")
	fs.StringVar(&f.codec, "codec", "", "Audio codec override (\"copy\" remuxes the audio stream)")
	fs.Var(config.NewHWAccelValue(&f.hwaccel), "hwaccel", "Video hardware acceleration: none, auto, nvenc, qsv, vaapi, videotoolbox")
	fs.StringVar(&f.quality, "video-quality", "", "Video quality (CRF/QP)")
	fs.StringVar(&f.tempo, "tempo", "", "Frame-rate conversion, e.g. 25-24 or 24-25")
	fs.StringVar(&f.template, "template", "", "Output filename template, e.g. \"{artist} - {title}\"")
	fs.StringVar(&f.cover, "cover", "", "Cover image to attach on audio targets")

	fs.IntSliceVar(&f.audioTracks, "audio-track", nil, "Input audio stream ordinal to keep (repeatable)")
	fs.BoolVar(&f.subtitles, "subtitles", false, "Carry subtitle streams on video targets")
	fs.BoolVar(&f.noVideo, "no-video", false, "Drop video even for video targets")
	fs.BoolVar(&f.video, "video", false, "Treat the input as video without probing")

	fs.StringVar(&f.md.Title, "title", "", "Title tag")
	fs.StringVar(&f.md.Artist, "artist", "", "Artist tag")
	fs.StringVar(&f.md.Album, "album", "", "Album tag")
	fs.StringVar(&f.md.AlbumArtist, "album-artist", "", "Album artist tag")
	fs.StringVar(&f.md.Year, "year", "", "Year tag")
	fs.StringVar(&f.md.Genre, "genre", "", "Genre tag")
	fs.IntVar(&f.md.Track, "track", 0, "Track number")
	fs.StringVar(&f.md.Comment, "comment", "", "Comment tag")

	fs.BoolVar(&f.lyrics, "lyrics", false, "Write a .lrc/.txt lyrics sidecar next to the output")
	fs.BoolVar(&f.embedLyrics, "embed-lyrics", false, "Embed lyrics into the output container")
	fs.StringSliceVar(&f.lyricsDirs, "lyrics-dir", nil, "Extra directory to search for lyrics files (repeatable)")

	fs.BoolVarP(&f.dryRun, "dry-run", "n", false, "Show the planned conversions without running ffmpeg")

	_ = cmd.MarkFlagRequired("format")
}

// request builds the request template. hwaccel "auto" is resolved here,
// once, against the local ffmpeg.
func (f *conversionFlags) request(ctx context.Context, cfg *config.Config) (pipeline.Request, error) {
	format, ok := planner.LookupFormat(strings.ToLower(strings.TrimSpace(f.format)))
	if !ok {
		return pipeline.Request{}, &planner.UnknownFormatError{Format: f.format}
	}
	if _, ok := planner.TempoRatio(f.tempo); f.tempo != "" && !ok {
		return pipeline.Request{}, fmt.Errorf("unknown tempo conversion %q (use one of %s)",
			f.tempo, strings.Join(planner.TempoNames(), ", "))
	}

	hw := f.hwaccel
	if hw == "" {
		hw = cfg.FFmpeg.HWAccel
	}
	// Detection runs test encodes; skip it when nothing will be encoded.
	if format.Video && !f.dryRun {
		hw = check.ResolveAuto(ctx, cfg, hw)
	}
	if hw == config.HWAccelAuto {
		hw = config.HWAccelNone
	}

	lyricsOpts := lyrics.AttachOptions{
		Include: f.lyrics || cfg.Lyrics.Include,
		Embed:   f.embedLyrics || cfg.Lyrics.Embed,
	}
	return pipeline.Request{
		Format:    format.Name,
		Bitrate:   f.bitrate,
		Metadata:  f.md,
		CoverPath: f.cover,
		IsVideo:   f.video,
		OutputDir: f.outputDir,
		TempDir:   cfg.Output.TempDir,
		Options: pipeline.Options{
			SampleRateA:  f.sampleRate,
			SampleRateB:  f.ar,
			Channels:     f.channels,
			Codec:        f.codec,
			HWAccel:      string(hw),
			VideoQuality: f.quality,
			Streams: planner.StreamSelection{
				AudioTracks: f.audioTracks,
				Subtitles:   f.subtitles,
				NoVideo:     f.noVideo,
			},
			Tempo:            f.tempo,
			FilenameTemplate: f.template,
			Lyrics:           lyricsOpts,
		},
	}, nil
}

// fetcher builds the lyrics lookup chain: sidecar files first, then lyrics
// already tagged in the source.
func (f *conversionFlags) fetcher() lyrics.Fetcher {
	return lyrics.Chain{lyrics.SidecarFetcher{Dirs: f.lyricsDirs}, lyrics.TagFetcher{}}
}

// inspect probes path once. ffprobe is authoritative for video detection
// when it is available, otherwise the extension decides. Container tags
// fill metadata the tag reader could not parse.
func inspect(ctx context.Context, cfg *config.Config, log *logging.Logger, path string) (bool, metadata.Record) {
	if !check.HasFFprobe(cfg) {
		log.Debug("%v: %s classified by extension", check.ErrFfprobeNotFound, filepath.Base(path))
		return pipeline.LooksLikeVideo(path), metadata.Record{}
	}
	r, err := probe.Probe(ctx, cfg.FFmpeg.FFprobe, path)
	if err != nil {
		log.Debug("probe %s: %v", filepath.Base(path), err)
		return pipeline.LooksLikeVideo(path), metadata.Record{}
	}
	if r.HasVideo() {
		log.Debug("Probed %s: video at %.3f fps", filepath.Base(path), r.FrameRate())
	}
	return r.HasVideo(), r.Metadata()
}

func isVideo(cfg *config.Config, log *logging.Logger) func(context.Context, string) bool {
	return func(ctx context.Context, path string) bool {
		v, _ := inspect(ctx, cfg, log, path)
		return v
	}
}
