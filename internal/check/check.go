// Package check provides system diagnostics (the check command) and the
// pre-conversion dependency validation used by convert and batch.
package check

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/backmassage/lyricmux/internal/config"
	"github.com/backmassage/lyricmux/internal/display"
)

// Sentinel errors returned by CheckDeps.
var (
	ErrFfmpegNotFound  = errors.New("ffmpeg not found")
	ErrFfprobeNotFound = errors.New("ffprobe not found")
)

// Logger is the minimal logging interface needed by RunCheck.
type Logger interface {
	Info(string, ...any)
	Success(string, ...any)
	Warn(string, ...any)
	Error(string, ...any)
	Debug(string, ...any)
}

// Encoders reported in the diagnostics table, in display order.
var reportedEncoders = []string{
	"libmp3lame", "aac", "libfdk_aac", "aac_at", "flac", "libvorbis", "libopus",
	"libx264", "h264_nvenc", "h264_qsv", "h264_vaapi", "h264_videotoolbox",
	"libvpx-vp9", "vp9_vaapi", "vp9_qsv",
}

// RunCheck runs the interactive check flow and prints a summary table to
// w. It is informational only and does not stop on failure.
func RunCheck(ctx context.Context, cfg *config.Config, log Logger, w io.Writer) {
	log.Info("=== System Check ===")

	var rows [][]string
	add := func(name, status, detail string) {
		rows = append(rows, []string{name, status, detail})
	}

	bin, version, err := toolVersion(ctx, cfg.FFmpeg.Binary)
	if err != nil {
		log.Error("ffmpeg not usable: %v", err)
		add("ffmpeg", "missing", cfg.FFmpeg.Binary)
	} else {
		log.Success("ffmpeg: %s", version)
		add("ffmpeg", "ok", bin)
	}
	if pbin, pversion, perr := toolVersion(ctx, cfg.FFmpeg.FFprobe); perr != nil {
		log.Warn("ffprobe not usable: %v (video detection falls back to the request)", perr)
		add("ffprobe", "missing", cfg.FFmpeg.FFprobe)
	} else {
		log.Success("ffprobe: %s", pversion)
		add("ffprobe", "ok", pbin)
	}

	encoders := map[string]bool{}
	if err == nil {
		encoders = listEncoders(ctx, bin)
	}
	for _, name := range reportedEncoders {
		status := "-"
		if encoders[name] {
			status = "ok"
		}
		add("encoder "+name, status, "")
	}

	dev := renderDevice(cfg.FFmpeg.VAAPIDevice)
	if dev == "" {
		add("render device", "-", "none")
	} else {
		add("render device", "ok", dev)
	}

	hw := config.HWAccelNone
	if err == nil {
		hw = DetectHWAccel(ctx, cfg)
	}
	switch {
	case !cfg.HWAccelAllowed():
		add("hw accel", "disabled", "by configuration")
	case hw == config.HWAccelNone:
		add("hw accel", "-", "software encoding")
	default:
		log.Success("Hardware encoder available: %s", hw)
		add("hw accel", "ok", string(hw))
	}

	if cfg.LegacyTagEnabled() {
		add("legacy tag", "on", charsetLabel(cfg.Tags.Charset))
	} else {
		add("legacy tag", "off", "")
	}
	if cfg.Status.DBPath != "" {
		add("status db", "on", cfg.Status.DBPath)
	}

	fmt.Fprintln(w, display.RenderTable([]string{"Component", "Status", "Detail"}, rows, nil))
}

func charsetLabel(override string) string {
	if strings.TrimSpace(override) == "" {
		return "charset auto"
	}
	return "charset " + strings.ToLower(strings.TrimSpace(override))
}

// CheckDeps verifies that the configured ffmpeg can be launched, directly
// or by bare name via PATH. ffprobe is optional.
func CheckDeps(cfg *config.Config) error {
	if resolveBinary(cfg.FFmpeg.Binary) == "" {
		return fmt.Errorf("%w: %s", ErrFfmpegNotFound, cfg.FFmpeg.Binary)
	}
	return nil
}

// HasFFprobe reports whether the configured ffprobe can be found.
func HasFFprobe(cfg *config.Config) bool {
	return resolveBinary(cfg.FFmpeg.FFprobe) != ""
}

// resolveBinary mirrors the launch fallback: the configured name first,
// then its base name on PATH.
func resolveBinary(binary string) string {
	if binary == "" {
		return ""
	}
	if p, err := exec.LookPath(binary); err == nil {
		return p
	}
	if base := filepath.Base(binary); base != binary {
		if p, err := exec.LookPath(base); err == nil {
			return p
		}
	}
	return ""
}

func toolVersion(ctx context.Context, binary string) (string, string, error) {
	bin := resolveBinary(binary)
	if bin == "" {
		return "", "", exec.ErrNotFound
	}
	out, err := exec.CommandContext(ctx, bin, "-version").Output()
	if err != nil {
		return bin, "", fmt.Errorf("%s -version: %w", bin, err)
	}
	first, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return bin, first, nil
}

func listEncoders(ctx context.Context, bin string) map[string]bool {
	out, err := exec.CommandContext(ctx, bin, "-hide_banner", "-encoders").Output()
	if err != nil {
		return map[string]bool{}
	}
	return parseEncoders(string(out))
}

// parseEncoders extracts encoder names from `ffmpeg -encoders` output:
//
//	A....D aac                  AAC (Advanced Audio Coding)
func parseEncoders(out string) map[string]bool {
	names := map[string]bool{}
	inList := false
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if !inList {
			inList = len(fields) > 0 && strings.HasPrefix(fields[0], "---")
			continue
		}
		if len(fields) >= 2 && len(fields[0]) == 6 {
			names[fields[1]] = true
		}
	}
	return names
}

// renderDevice returns the configured device when present, else the first
// /dev/dri/renderD* node, or "" when none exist.
func renderDevice(configured string) string {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured
		}
	}
	matches, _ := filepath.Glob("/dev/dri/renderD*")
	for _, m := range matches {
		if _, err := os.Stat(m); err == nil {
			return m
		}
	}
	return ""
}

// runSilent runs a command and reports whether it exited 0.
func runSilent(ctx context.Context, name string, args ...string) bool {
	return exec.CommandContext(ctx, name, args...).Run() == nil
}
