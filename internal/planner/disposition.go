package planner

import (
	"fmt"
	"strings"
)

// BuildDispositions marks the first mapped audio stream as default and,
// for audio targets with a cover, flags the picture stream as attached_pic
// so players show it as artwork instead of a video track.
func BuildDispositions(p *Plan) []string {
	opts := []string{"-disposition:a:0", "default"}
	if p.Video == nil && p.CoverPath != "" {
		opts = append(opts, "-disposition:v:0", "attached_pic")
	}
	if p.Video != nil {
		audio := 0
		for _, m := range p.Maps {
			if strings.HasPrefix(m, "0:a") {
				audio++
			}
		}
		// Only explicit track selection yields several audio maps.
		for i := 1; i < audio; i++ {
			opts = append(opts, fmt.Sprintf("-disposition:a:%d", i), "0")
		}
	}
	return opts
}
