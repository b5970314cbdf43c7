package planner

import (
	"strconv"
)

// BuildAudioFilters returns the -af chain: tempo stages first, then
// resampling to the resolved rate and layout. Stream copy takes no filters.
func BuildAudioFilters(a AudioPlan, tempo *TempoPlan) []string {
	if a.Codec == "copy" {
		return nil
	}
	var filters []string
	if tempo != nil {
		filters = append(filters, AtempoChain(tempo.Stages))
	}
	if a.SampleRate > 0 {
		filters = append(filters, "aresample="+strconv.Itoa(a.SampleRate))
	}
	if layout := layoutForChannels(a.Channels); layout != "" {
		filters = append(filters, "aformat=channel_layouts="+layout)
	}
	return filters
}

// BuildVideoFilters returns the -vf chain. Retiming precedes the hardware
// upload suffix, which must come last.
func BuildVideoFilters(v *VideoPlan, tempo *TempoPlan) []string {
	if v == nil {
		return nil
	}
	var filters []string
	if tempo != nil {
		filters = append(filters, SetPTSFilter(tempo.Ratio))
	}
	return append(filters, v.Filters...)
}

func layoutForChannels(ch int) string {
	switch ch {
	case 1:
		return "mono"
	case 2:
		return "stereo"
	case 6:
		return "5.1"
	default:
		return ""
	}
}
