// Package config holds runtime configuration: defaults, TOML loading,
// environment fallbacks and validation. The resolved Config is passed
// explicitly to every component; nothing below the CLI reads the
// environment on its own.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// --- Enum types for validated string fields ---

// HWAccel selects the hardware video encoder family.
type HWAccel string

const (
	HWAccelNone         HWAccel = "none"         // Software encoding (libx264 / libvpx-vp9).
	HWAccelAuto         HWAccel = "auto"         // Resolved at startup by the check package.
	HWAccelNVENC        HWAccel = "nvenc"        // NVIDIA NVENC.
	HWAccelQSV          HWAccel = "qsv"          // Intel Quick Sync.
	HWAccelVAAPI        HWAccel = "vaapi"        // VAAPI render node.
	HWAccelVideoToolbox HWAccel = "videotoolbox" // macOS VideoToolbox.
)

// ParseHWAccel maps a user string onto a known HWAccel. Unknown values
// report ok=false so callers can degrade to the configured default.
func ParseHWAccel(s string) (HWAccel, bool) {
	switch HWAccel(strings.ToLower(strings.TrimSpace(s))) {
	case HWAccelNone, "off", "cpu", "software":
		return HWAccelNone, true
	case HWAccelAuto:
		return HWAccelAuto, true
	case HWAccelNVENC, "cuda", "nvidia":
		return HWAccelNVENC, true
	case HWAccelQSV, "intel":
		return HWAccelQSV, true
	case HWAccelVAAPI:
		return HWAccelVAAPI, true
	case HWAccelVideoToolbox, "vt":
		return HWAccelVideoToolbox, true
	}
	return "", false
}

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// FFmpeg configures the external transform executables.
type FFmpeg struct {
	Binary  string  `toml:"binary"`  // Default: "ffmpeg".
	FFprobe string  `toml:"ffprobe"` // Default: "ffprobe".
	HWAccel HWAccel `toml:"hwaccel"` // Default: "none".
	// HWAccelEnabled is a named string toggle; anything that does not parse
	// as a boolean leaves hardware acceleration enabled.
	HWAccelEnabled   string `toml:"hwaccel_enabled"`
	VAAPIDevice      string `toml:"vaapi_device"`       // Default: "/dev/dri/renderD128".
	KillGraceSeconds int    `toml:"kill_grace_seconds"` // Default: 5.
}

// Audio holds environment defaults for the Parameter Normalizer. The values
// stay strings: malformed input degrades to built-in defaults.
type Audio struct {
	DefaultSampleRate string `toml:"default_sample_rate"`
	DefaultBitrate    string `toml:"default_bitrate"`
	AACEncoder        string `toml:"aac_encoder"` // Default: "aac".
}

// Video holds defaults for video targets.
type Video struct {
	DefaultQuality string `toml:"default_quality"` // CRF/QP, default "23".
}

// Tags configures the legacy 128-byte trailer.
type Tags struct {
	LegacyTag string `toml:"legacy_tag"` // "false"/"0"/"off" disables the trailer.
	Charset   string `toml:"charset"`    // "latin1", "latin5" or empty for auto.
	Comment   string `toml:"comment"`    // Written into the comment field.
}

// Lyrics configures default lyrics attach behavior.
type Lyrics struct {
	Include bool `toml:"include"` // Write a sidecar .lrc/.txt next to the output.
	Embed   bool `toml:"embed"`   // Embed the plain text into the container.
}

// Output configures output placement.
type Output struct {
	Dir              string `toml:"dir"`
	TempDir          string `toml:"temp_dir"`
	FilenameTemplate string `toml:"filename_template"` // Default: "{artist} - {title}".
}

// Logging configures log output.
type Logging struct {
	Color   ColorMode `toml:"color"`
	File    string    `toml:"file"`
	Verbose bool      `toml:"verbose"`
}

// Status configures the job-status store.
type Status struct {
	DBPath string `toml:"db_path"` // Empty keeps status in memory.
}

// Batch configures the batch runner.
type Batch struct {
	Workers int `toml:"workers"` // Default: 2.
}

// Config holds all runtime settings. It is populated by [DefaultConfig],
// overlaid by [Load] from a TOML file and environment, and then passed by
// pointer to the packages that need it.
type Config struct {
	FFmpeg  FFmpeg  `toml:"ffmpeg"`
	Audio   Audio   `toml:"audio"`
	Video   Video   `toml:"video"`
	Tags    Tags    `toml:"tags"`
	Lyrics  Lyrics  `toml:"lyrics"`
	Output  Output  `toml:"output"`
	Logging Logging `toml:"logging"`
	Status  Status  `toml:"status"`
	Batch   Batch   `toml:"batch"`
}

// DefaultConfig returns a Config with every default filled in.
func DefaultConfig() Config {
	return Config{
		FFmpeg: FFmpeg{
			Binary:           "ffmpeg",
			FFprobe:          "ffprobe",
			HWAccel:          HWAccelNone,
			VAAPIDevice:      "/dev/dri/renderD128",
			KillGraceSeconds: 5,
		},
		Audio: Audio{
			AACEncoder: "aac",
		},
		Video: Video{
			DefaultQuality: "23",
		},
		Output: Output{
			FilenameTemplate: "{artist} - {title}",
		},
		Logging: Logging{
			Color: ColorAuto,
		},
		Batch: Batch{
			Workers: 2,
		},
	}
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/lyricmux/config.toml")
}

// Load builds a Config from defaults, the TOML file at path (if any) and
// LYRICMUX_* environment fallbacks, then validates it. An empty path uses
// the default location; a missing default file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		p, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	resolved, err := ExpandPath(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(resolved)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// No config file; defaults plus environment.
	default:
		return nil, fmt.Errorf("read config %s: %w", resolved, err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enum fields and numeric bounds.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.FFmpeg.Binary) == "" {
		return errors.New("ffmpeg.binary must not be empty")
	}
	if _, ok := ParseHWAccel(string(c.FFmpeg.HWAccel)); !ok {
		return fmt.Errorf("invalid ffmpeg.hwaccel %q (use none, auto, nvenc, qsv, vaapi or videotoolbox)", c.FFmpeg.HWAccel)
	}
	switch c.Logging.Color {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return fmt.Errorf("invalid logging.color %q (use auto, always or never)", c.Logging.Color)
	}
	if c.Batch.Workers < 1 {
		return errors.New("batch.workers must be at least 1")
	}
	if c.FFmpeg.KillGraceSeconds < 0 {
		return errors.New("ffmpeg.kill_grace_seconds must not be negative")
	}
	return nil
}

// LegacyTagEnabled reports whether the 128-byte trailer should be written.
// Only an explicit false-like value disables it.
func (c *Config) LegacyTagEnabled() bool {
	return parseToggle(c.Tags.LegacyTag, true)
}

// HWAccelAllowed reports whether hardware video encoders may be used.
func (c *Config) HWAccelAllowed() bool {
	return parseToggle(c.FFmpeg.HWAccelEnabled, true)
}

// KillGrace is how long a canceled process gets between the graceful
// interrupt and a forced kill.
func (c *Config) KillGrace() time.Duration {
	return time.Duration(c.FFmpeg.KillGraceSeconds) * time.Second
}

// ExpandPath resolves a leading "~" and returns an absolute, cleaned path.
func ExpandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}

// parseToggle interprets a named string toggle. Unrecognised values fall
// back to def.
func parseToggle(s string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on", "enabled":
		return true
	case "0", "false", "no", "off", "disabled":
		return false
	}
	return def
}
