package planner

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// ffmpeg's atempo filter only accepts factors in [0.5, 2.0].
const (
	minTempoStage = 0.5
	maxTempoStage = 2.0
)

// tempoConversions are the named frame-rate conversions. The speed ratio is
// target/source, so "25-24" (PAL speed-down) slows playback.
var tempoConversions = map[string]struct{ source, target float64 }{
	"24-23.976": {24, 24000.0 / 1001},
	"23.976-24": {24000.0 / 1001, 24},
	"25-24":     {25, 24},
	"24-25":     {24, 25},
	"25-23.976": {25, 24000.0 / 1001},
	"23.976-25": {24000.0 / 1001, 25},
	"30-29.97":  {30, 30000.0 / 1001},
	"29.97-30":  {30000.0 / 1001, 30},
}

// TempoPlan is a resolved speed change.
type TempoPlan struct {
	Name   string
	Ratio  float64
	Stages []float64
}

// TempoNames returns the supported named conversions, sorted.
func TempoNames() []string {
	names := make([]string, 0, len(tempoConversions))
	for n := range tempoConversions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// TempoRatio returns the speed ratio for a named conversion.
func TempoRatio(name string) (float64, bool) {
	c, ok := tempoConversions[strings.TrimSpace(name)]
	if !ok {
		return 0, false
	}
	return c.target / c.source, true
}

// ResolveTempo returns the plan for a named conversion, or nil when the
// name is empty, unknown or decomposes to nothing.
func ResolveTempo(name string) *TempoPlan {
	ratio, ok := TempoRatio(name)
	if !ok {
		return nil
	}
	stages := DecomposeTempo(ratio)
	if len(stages) == 0 {
		return nil
	}
	return &TempoPlan{Name: strings.TrimSpace(name), Ratio: ratio, Stages: stages}
}

// DecomposeTempo splits ratio into atempo stages within [0.5, 2.0] whose
// product is ratio. Each stage is rounded to six decimals. A non-finite or
// non-positive ratio yields no stages.
func DecomposeTempo(ratio float64) []float64 {
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) || ratio <= 0 {
		return nil
	}
	var stages []float64
	remaining := ratio
	for remaining < minTempoStage {
		stages = append(stages, minTempoStage)
		remaining /= minTempoStage
	}
	for remaining > maxTempoStage {
		stages = append(stages, maxTempoStage)
		remaining /= maxTempoStage
	}
	return append(stages, round6(remaining))
}

// AtempoChain renders stages as an ffmpeg audio filter chain.
func AtempoChain(stages []float64) string {
	parts := make([]string, len(stages))
	for i, s := range stages {
		parts[i] = "atempo=" + strconv.FormatFloat(s, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

// SetPTSFilter returns the video filter that retimes frames to match an
// audio speed change of ratio.
func SetPTSFilter(ratio float64) string {
	return "setpts=" + strconv.FormatFloat(round6(1/ratio), 'f', -1, 64) + "*PTS"
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
