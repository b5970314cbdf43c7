package planner

import (
	"strconv"
)

// BuildMaps decides which input streams reach the output. Audio targets
// take one audio stream (the first selected track, default the first) and
// optionally a cover picture from input 1. Video targets take the first
// video stream, the selected audio tracks (default all) and, when asked,
// subtitles in the container's text codec.
func BuildMaps(f Format, sel StreamSelection, hasVideo, hasCover bool) (maps []string, subtitleCodec string) {
	if !f.Video || !hasVideo || sel.NoVideo {
		maps = []string{audioMap(sel)}
		if hasCover && f.CoverArt {
			maps = append(maps, "1:v:0")
		}
		return maps, ""
	}

	maps = []string{"0:v:0"}
	if len(sel.AudioTracks) == 0 {
		maps = append(maps, "0:a?")
	} else {
		for _, n := range sel.AudioTracks {
			maps = append(maps, "0:a:"+strconv.Itoa(n)+"?")
		}
	}
	if sel.Subtitles && f.Subtitles != "" {
		maps = append(maps, "0:s?")
		subtitleCodec = f.Subtitles
	}
	return maps, subtitleCodec
}

func audioMap(sel StreamSelection) string {
	if len(sel.AudioTracks) > 0 && sel.AudioTracks[0] >= 0 {
		return "0:a:" + strconv.Itoa(sel.AudioTracks[0])
	}
	return "0:a:0"
}
