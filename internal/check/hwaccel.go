package check

import (
	"context"
	"runtime"

	"github.com/backmassage/lyricmux/internal/config"
)

// Detection order for "auto".
var hwCandidates = []struct {
	accel   config.HWAccel
	encoder string
}{
	{config.HWAccelNVENC, "h264_nvenc"},
	{config.HWAccelVideoToolbox, "h264_videotoolbox"},
	{config.HWAccelQSV, "h264_qsv"},
	{config.HWAccelVAAPI, "h264_vaapi"},
}

// DetectHWAccel resolves "auto" to the first hardware h264 encoder that
// ffmpeg lists and that passes a short test encode. It returns HWNone
// when hardware encoding is disabled or nothing works.
func DetectHWAccel(ctx context.Context, cfg *config.Config) config.HWAccel {
	if !cfg.HWAccelAllowed() {
		return config.HWAccelNone
	}
	bin := resolveBinary(cfg.FFmpeg.Binary)
	if bin == "" {
		return config.HWAccelNone
	}
	dev := renderDevice(cfg.FFmpeg.VAAPIDevice)
	return chooseHWAccel(listEncoders(ctx, bin), dev, runtime.GOOS, func(a config.HWAccel) bool {
		return runSilent(ctx, bin, hwTestArgs(a, dev)...)
	})
}

// ResolveAuto returns pref unchanged unless it is "auto".
func ResolveAuto(ctx context.Context, cfg *config.Config, pref config.HWAccel) config.HWAccel {
	if pref != config.HWAccelAuto {
		return pref
	}
	return DetectHWAccel(ctx, cfg)
}

func chooseHWAccel(encoders map[string]bool, device, goos string, test func(config.HWAccel) bool) config.HWAccel {
	for _, c := range hwCandidates {
		if !encoders[c.encoder] {
			continue
		}
		switch c.accel {
		case config.HWAccelVideoToolbox:
			if goos != "darwin" {
				continue
			}
		case config.HWAccelVAAPI:
			if device == "" {
				continue
			}
		}
		if test(c.accel) {
			return c.accel
		}
	}
	return config.HWAccelNone
}

// hwTestArgs returns a minimal encode of a generated frame.
func hwTestArgs(a config.HWAccel, device string) []string {
	args := []string{"-hide_banner", "-nostdin", "-loglevel", "error"}
	src := []string{"-f", "lavfi", "-i", "color=black:s=256x256:d=0.1"}
	switch a {
	case config.HWAccelVAAPI:
		args = append(args, "-vaapi_device", device)
		args = append(args, src...)
		args = append(args, "-vf", "format=nv12,hwupload", "-c:v", "h264_vaapi")
	case config.HWAccelNVENC:
		args = append(args, src...)
		args = append(args, "-c:v", "h264_nvenc")
	case config.HWAccelQSV:
		args = append(args, src...)
		args = append(args, "-c:v", "h264_qsv")
	case config.HWAccelVideoToolbox:
		args = append(args, src...)
		args = append(args, "-c:v", "h264_videotoolbox")
	}
	return append(args, "-f", "null", "-")
}
