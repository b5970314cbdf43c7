package config

// This file provides flag.Value adapters for the enum-typed fields so the
// CLI can bind them directly with validation at parse time. The Type method
// satisfies pflag.Value as used by cobra.

import (
	"fmt"
)

// Version is shown by --version; override at build time with
// -ldflags "-X github.com/backmassage/lyricmux/internal/config.Version=...".
var Version = "0.1.0-dev"

// NewHWAccelValue binds p as a validated hardware-acceleration flag.
func NewHWAccelValue(p *HWAccel) *HWAccelValue { return &HWAccelValue{p: p} }

// HWAccelValue adapts *HWAccel to flag.Value.
type HWAccelValue struct{ p *HWAccel }

func (h *HWAccelValue) String() string {
	if h.p == nil {
		return ""
	}
	return string(*h.p)
}

func (h *HWAccelValue) Set(s string) error {
	hw, ok := ParseHWAccel(s)
	if !ok {
		return fmt.Errorf("invalid hwaccel %q (use none, auto, nvenc, qsv, vaapi or videotoolbox)", s)
	}
	*h.p = hw
	return nil
}

func (h *HWAccelValue) Type() string { return "hwaccel" }

// NewColorModeValue binds p as a validated color-mode flag.
func NewColorModeValue(p *ColorMode) *ColorModeValue { return &ColorModeValue{p: p} }

// ColorModeValue adapts *ColorMode to flag.Value.
type ColorModeValue struct{ p *ColorMode }

func (c *ColorModeValue) String() string {
	if c.p == nil {
		return ""
	}
	return string(*c.p)
}

func (c *ColorModeValue) Set(s string) error {
	switch ColorMode(s) {
	case ColorAuto, ColorAlways, ColorNever:
		*c.p = ColorMode(s)
		return nil
	}
	return fmt.Errorf("invalid color mode %q (use auto, always or never)", s)
}

func (c *ColorModeValue) Type() string { return "color" }
