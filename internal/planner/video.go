package planner

import (
	"strconv"
	"strings"

	"github.com/backmassage/lyricmux/internal/config"
)

// Quality bounds shared by the CRF/QP/CQ scales of the supported encoders.
const (
	minVideoQuality     = 0
	maxVideoQuality     = 51
	defaultVideoQuality = 23
)

// ResolveVideoQuality parses a CRF/QP value, falling back to the
// configured default and then 23. Out-of-range values are clamped.
func ResolveVideoQuality(spec, configured string) int {
	for _, c := range []string{spec, configured} {
		if n, err := strconv.Atoi(strings.TrimSpace(c)); err == nil {
			return clamp(n, minVideoQuality, maxVideoQuality)
		}
	}
	return defaultVideoQuality
}

// ResolveHWAccel picks the accelerator for a conversion. A valid preference
// wins over config; "auto" that survives to this point means software, as
// detection happens at startup. A global disable forces software.
func ResolveHWAccel(cfg *config.Config, pref string) config.HWAccel {
	if !cfg.HWAccelAllowed() {
		return config.HWAccelNone
	}
	hw := cfg.FFmpeg.HWAccel
	if p, ok := config.ParseHWAccel(pref); ok {
		hw = p
	}
	if hw == config.HWAccelAuto || hw == "" {
		return config.HWAccelNone
	}
	return hw
}

// ResolveVideo returns the video encoding plan for a video format.
func ResolveVideo(cfg *config.Config, format, hwPref, quality string) *VideoPlan {
	f, ok := LookupFormat(format)
	if !ok || !f.Video {
		return nil
	}
	hw := ResolveHWAccel(cfg, hwPref)
	q := strconv.Itoa(ResolveVideoQuality(quality, cfg.Video.DefaultQuality))

	if f.Name == "webm" {
		return vp9Plan(cfg, hw, q)
	}
	return h264Plan(cfg, hw, q)
}

func h264Plan(cfg *config.Config, hw config.HWAccel, q string) *VideoPlan {
	switch hw {
	case config.HWAccelNVENC:
		return &VideoPlan{
			Codec:   "h264_nvenc",
			HWAccel: hw,
			Args:    []string{"-preset", "p5", "-rc", "vbr", "-cq", q, "-b:v", "0"},
		}
	case config.HWAccelQSV:
		return &VideoPlan{
			Codec:   "h264_qsv",
			HWAccel: hw,
			Args:    []string{"-preset", "medium", "-global_quality", q},
		}
	case config.HWAccelVAAPI:
		return &VideoPlan{
			Codec:    "h264_vaapi",
			HWAccel:  hw,
			PreInput: []string{"-vaapi_device", cfg.FFmpeg.VAAPIDevice},
			Args:     []string{"-rc_mode", "CQP", "-qp", q},
			Filters:  []string{"format=nv12", "hwupload"},
		}
	case config.HWAccelVideoToolbox:
		return &VideoPlan{
			Codec:   "h264_videotoolbox",
			HWAccel: hw,
			Args:    []string{"-q:v", strconv.Itoa(videoToolboxQuality(q))},
		}
	}
	return &VideoPlan{
		Codec:   "libx264",
		HWAccel: config.HWAccelNone,
		Args:    []string{"-preset", "medium", "-crf", q, "-pix_fmt", "yuv420p"},
	}
}

func vp9Plan(cfg *config.Config, hw config.HWAccel, q string) *VideoPlan {
	switch hw {
	case config.HWAccelVAAPI:
		return &VideoPlan{
			Codec:    "vp9_vaapi",
			HWAccel:  hw,
			PreInput: []string{"-vaapi_device", cfg.FFmpeg.VAAPIDevice},
			Args:     []string{"-rc_mode", "CQP", "-global_quality", q},
			Filters:  []string{"format=nv12", "hwupload"},
		}
	case config.HWAccelQSV:
		return &VideoPlan{
			Codec:   "vp9_qsv",
			HWAccel: hw,
			Args:    []string{"-global_quality", q},
		}
	}
	// libvpx-vp9 constant quality needs -b:v 0. Its CRF scale is 0-63,
	// offset by 8 from the H.264 scale.
	crf := clamp(mustAtoi(q)+8, 0, 63)
	return &VideoPlan{
		Codec:   "libvpx-vp9",
		HWAccel: config.HWAccelNone,
		Args:    []string{"-crf", strconv.Itoa(crf), "-b:v", "0", "-row-mt", "1"},
	}
}

// videoToolboxQuality maps a 0-51 CRF-like value onto VideoToolbox's
// 1-100 scale, where higher is better.
func videoToolboxQuality(q string) int {
	return clamp(100-mustAtoi(q)*100/maxVideoQuality, 1, 100)
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
