package pipeline

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/backmassage/lyricmux/internal/display"
	"github.com/backmassage/lyricmux/internal/planner"
	"github.com/backmassage/lyricmux/internal/probe"
)

// PreviewRow is a dry-run summary of one planned conversion.
type PreviewRow struct {
	Input      string
	Output     string
	AudioCodec string
	Quality    string
	SampleRate int
	Video      string
	Estimate   int64 // bytes; 0 when unknown
	Command    string
}

// Preview plans req without running it. Duration comes from ffprobe when
// it is available and feeds the size estimate.
func (c *Converter) Preview(ctx context.Context, req Request) (PreviewRow, error) {
	prep, err := c.Prepare(req)
	if err != nil {
		return PreviewRow{}, err
	}
	defer c.Release(req.InputPath, prep)

	p := prep.Plan
	row := PreviewRow{
		Input:      req.InputPath,
		Output:     p.OutputPath,
		AudioCodec: p.Audio.Codec,
		Quality:    qualityLabel(p.Audio.Quality),
		SampleRate: p.Audio.SampleRate,
		Video:      "-",
		Command:    prep.Command.String(),
	}
	if p.Video != nil {
		row.Video = p.Video.Codec
	}
	if pr, err := probe.Probe(ctx, c.cfg.FFmpeg.FFprobe, req.InputPath); err == nil {
		if size, ok := planner.EstimateSize(p, pr.Duration()); ok {
			row.Estimate = size
		}
	} else {
		c.log.Debug("probe %s: %v", filepath.Base(req.InputPath), err)
	}
	return row, nil
}

func qualityLabel(q planner.AudioQuality) string {
	switch {
	case q.VBR != "":
		return "V" + q.VBR
	case q.Bitrate != "":
		if kbps, err := strconv.ParseInt(strings.TrimSuffix(q.Bitrate, "k"), 10, 64); err == nil {
			return display.FormatBitrateLabel(kbps)
		}
		return q.Bitrate
	}
	return "-"
}

// RenderPreview formats rows as a table.
func RenderPreview(rows []PreviewRow) string {
	headers := []string{"Input", "Output", "Audio", "Quality", "Rate", "Video", "Est. size"}
	aligns := []display.Align{display.AlignLeft, display.AlignLeft, display.AlignLeft,
		display.AlignRight, display.AlignRight, display.AlignLeft, display.AlignRight}

	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		rate, est := "-", "?"
		if r.SampleRate > 0 {
			rate = strconv.Itoa(r.SampleRate)
		}
		if r.Estimate > 0 {
			est = display.FormatBytes(r.Estimate)
		}
		out = append(out, []string{
			filepath.Base(r.Input), filepath.Base(r.Output), r.AudioCodec, r.Quality, rate, r.Video, est,
		})
	}
	return display.RenderTable(headers, out, aligns)
}
