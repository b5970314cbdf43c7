package config

import (
	"os"
	"strconv"
	"strings"
)

// Environment fallbacks. Each is consulted only when the corresponding
// field is still empty after the TOML overlay.
const (
	EnvFFmpeg         = "LYRICMUX_FFMPEG"
	EnvFFprobe        = "LYRICMUX_FFPROBE"
	EnvSampleRate     = "LYRICMUX_SAMPLE_RATE"
	EnvBitrate        = "LYRICMUX_BITRATE"
	EnvAACEncoder     = "LYRICMUX_AAC_ENCODER"
	EnvHWAccel        = "LYRICMUX_HWACCEL"
	EnvHWAccelEnabled = "LYRICMUX_HWACCEL_ENABLED"
	EnvLegacyTag      = "LYRICMUX_LEGACY_TAG"
	EnvTagCharset     = "LYRICMUX_TAG_CHARSET"
	EnvTagComment     = "LYRICMUX_TAG_COMMENT"
	EnvWorkers        = "LYRICMUX_WORKERS"
)

func (c *Config) normalize() error {
	c.normalizeFFmpeg()
	c.normalizeAudio()
	c.normalizeTags()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if v, ok := os.LookupEnv(EnvWorkers); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			c.Batch.Workers = n
		}
	}
	return nil
}

func (c *Config) normalizeFFmpeg() {
	if v, ok := os.LookupEnv(EnvFFmpeg); ok && strings.TrimSpace(v) != "" {
		c.FFmpeg.Binary = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv(EnvFFprobe); ok && strings.TrimSpace(v) != "" {
		c.FFmpeg.FFprobe = strings.TrimSpace(v)
	}
	c.FFmpeg.Binary = strings.TrimSpace(c.FFmpeg.Binary)
	if c.FFmpeg.Binary == "" {
		c.FFmpeg.Binary = "ffmpeg"
	}
	if strings.TrimSpace(c.FFmpeg.FFprobe) == "" {
		c.FFmpeg.FFprobe = "ffprobe"
	}
	if v, ok := os.LookupEnv(EnvHWAccel); ok {
		if hw, valid := ParseHWAccel(v); valid {
			c.FFmpeg.HWAccel = hw
		}
	}
	if hw, valid := ParseHWAccel(string(c.FFmpeg.HWAccel)); valid {
		c.FFmpeg.HWAccel = hw
	}
	if c.FFmpeg.HWAccelEnabled == "" {
		c.FFmpeg.HWAccelEnabled = os.Getenv(EnvHWAccelEnabled)
	}
}

func (c *Config) normalizeAudio() {
	if c.Audio.DefaultSampleRate == "" {
		c.Audio.DefaultSampleRate = os.Getenv(EnvSampleRate)
	}
	if c.Audio.DefaultBitrate == "" {
		c.Audio.DefaultBitrate = os.Getenv(EnvBitrate)
	}
	if v, ok := os.LookupEnv(EnvAACEncoder); ok && strings.TrimSpace(v) != "" {
		c.Audio.AACEncoder = strings.TrimSpace(v)
	}
	if strings.TrimSpace(c.Audio.AACEncoder) == "" {
		c.Audio.AACEncoder = "aac"
	}
}

func (c *Config) normalizeTags() {
	if c.Tags.LegacyTag == "" {
		c.Tags.LegacyTag = os.Getenv(EnvLegacyTag)
	}
	if c.Tags.Charset == "" {
		c.Tags.Charset = os.Getenv(EnvTagCharset)
	}
	if c.Tags.Comment == "" {
		c.Tags.Comment = os.Getenv(EnvTagComment)
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Output.Dir, err = ExpandPath(c.Output.Dir); err != nil {
		return err
	}
	if c.Output.TempDir, err = ExpandPath(c.Output.TempDir); err != nil {
		return err
	}
	if c.Logging.File, err = ExpandPath(c.Logging.File); err != nil {
		return err
	}
	if c.Status.DBPath, err = ExpandPath(c.Status.DBPath); err != nil {
		return err
	}
	if strings.TrimSpace(c.Output.FilenameTemplate) == "" {
		c.Output.FilenameTemplate = "{artist} - {title}"
	}
	if c.Logging.Color == "" {
		c.Logging.Color = ColorAuto
	}
	return nil
}
