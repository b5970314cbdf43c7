package planner

import (
	"strconv"
	"strings"
	"time"
)

// EstimateSize predicts the output size in bytes for an audio-only plan
// with a constant bitrate. Video, VBR and lossless plans report ok=false.
func EstimateSize(p *Plan, duration time.Duration) (size int64, ok bool) {
	if p == nil || p.Video != nil || duration <= 0 {
		return 0, false
	}
	kbps, err := strconv.Atoi(strings.TrimSuffix(p.Audio.Quality.Bitrate, "k"))
	if err != nil || kbps <= 0 {
		return 0, false
	}
	seconds := duration.Seconds()
	if p.Tempo != nil && p.Tempo.Ratio > 0 {
		seconds /= p.Tempo.Ratio
	}
	return int64(float64(kbps) * 1000 / 8 * seconds), true
}
