package planner

import (
	"math"
	"strconv"
	"strings"
)

// Sample rate bounds and the fallback used when no candidate parses.
const (
	DefaultSampleRate = 48000
	MinSampleRate     = 8000
	MaxSampleRate     = 192000
	mp4MaxSampleRate  = 48000
)

// mp3SampleRates are the rates an MPEG-1/2/2.5 layer III stream can carry.
var mp3SampleRates = []int{8000, 11025, 12000, 16000, 22050, 24000, 32000, 44100, 48000}

// opusSampleRates are the rates libopus accepts natively.
var opusSampleRates = []int{8000, 12000, 16000, 24000, 48000}

// ResolveSampleRate picks the output sample rate. Candidates are tried in
// priority order optionA, optionB, envDefault; the first that parses wins,
// otherwise 48000. The result is clamped to [8000, 192000] and then fitted
// to what the target format can carry. Malformed input never errors.
func ResolveSampleRate(format, optionA, optionB, envDefault string) int {
	rate := DefaultSampleRate
	for _, c := range []string{optionA, optionB, envDefault} {
		if v, ok := parseSampleRate(c); ok {
			rate = v
			break
		}
	}
	rate = clamp(rate, MinSampleRate, MaxSampleRate)

	f, _ := LookupFormat(format)
	switch f.Name {
	case "mp3":
		return snap(rate, mp3SampleRates)
	case "opus", "webm":
		return snap(rate, opusSampleRates)
	case "m4a", "mp4":
		return min(rate, mp4MaxSampleRate)
	}
	return rate
}

// parseSampleRate accepts "44100", "44100hz", "44.1k", "44.1 kHz" and bare
// decimal kHz values such as "44.1". A bare integer is always Hz.
func parseSampleRate(s string) (int, bool) {
	s = strings.ToLower(strings.Join(strings.Fields(s), ""))
	if s == "" {
		return 0, false
	}
	mult := 1.0
	switch {
	case strings.HasSuffix(s, "khz"):
		s, mult = strings.TrimSuffix(s, "khz"), 1000
	case strings.HasSuffix(s, "hz"):
		s = strings.TrimSuffix(s, "hz")
	case strings.HasSuffix(s, "k"):
		s, mult = strings.TrimSuffix(s, "k"), 1000
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, false
	}
	if mult == 1 && f < 1000 && strings.Contains(s, ".") {
		mult = 1000
	}
	v := math.Round(f * mult)
	if v <= 0 || v > math.MaxInt32 {
		return 0, false
	}
	return int(v), true
}

// snap returns the value in the ascending set nearest to v; ties go to the
// lower value.
func snap(v int, set []int) int {
	best := set[0]
	bestDist := abs(v - best)
	for _, s := range set[1:] {
		if d := abs(v - s); d < bestDist {
			best, bestDist = s, d
		}
	}
	return best
}

// ResolveChannels maps a channel option to a count. Zero keeps the source
// layout. mp3 cannot carry more than two channels.
func ResolveChannels(format, option string) int {
	n := 0
	switch strings.ToLower(strings.TrimSpace(option)) {
	case "mono", "1":
		n = 1
	case "stereo", "2":
		n = 2
	case "5.1", "6", "surround":
		n = 6
	}
	if f, _ := LookupFormat(format); f.Name == "mp3" && n > 2 {
		n = 2
	}
	return n
}

// ResolveBitrate resolves the rate-control setting for format. spec is
// tried first, then envDefault, then the format default. Accepted forms are
// "320", "320k", "320kbps", "320 kb/s"; mp3 also takes LAME VBR presets
// "V0" through "V9". Lossless formats return the zero value.
func ResolveBitrate(format, spec, envDefault string) AudioQuality {
	f, ok := LookupFormat(format)
	if !ok || f.Lossless {
		return AudioQuality{}
	}
	for _, c := range []string{spec, envDefault} {
		if q, ok := parseQuality(f, c); ok {
			return q
		}
	}
	return AudioQuality{Bitrate: strconv.Itoa(f.DefaultKbps) + "k"}
}

func parseQuality(f Format, s string) (AudioQuality, bool) {
	s = strings.ToLower(strings.Join(strings.Fields(s), ""))
	if s == "" {
		return AudioQuality{}, false
	}
	if f.Name == "mp3" && len(s) == 2 && s[0] == 'v' && s[1] >= '0' && s[1] <= '9' {
		return AudioQuality{VBR: s[1:]}, true
	}
	for _, suffix := range []string{"kbps", "kb/s", "kbit/s", "k"} {
		if strings.HasSuffix(s, suffix) {
			s = strings.TrimSuffix(s, suffix)
			break
		}
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) || n <= 0 {
		return AudioQuality{}, false
	}
	// Plain bits per second.
	if n >= 8000 {
		n /= 1000
	}
	kbps := clamp(int(math.Round(n)), f.MinKbps, f.MaxKbps)
	return AudioQuality{Bitrate: strconv.Itoa(kbps) + "k"}, true
}

// aacEncoders are the AAC encoders ffmpeg builds commonly ship.
var aacEncoders = map[string]bool{"aac": true, "libfdk_aac": true, "aac_at": true}

// audioCodecs lists the override codecs each format accepts.
var audioCodecs = map[string][]string{
	"mp3":  {"libmp3lame", "copy"},
	"m4a":  {"aac", "libfdk_aac", "aac_at", "alac", "copy"},
	"flac": {"flac", "copy"},
	"wav":  {"pcm_s16le", "pcm_s24le", "pcm_s32le", "pcm_f32le"},
	"ogg":  {"libvorbis", "libopus", "flac", "copy"},
	"opus": {"libopus", "copy"},
	"mp4":  {"aac", "libfdk_aac", "aac_at", "ac3", "copy"},
	"mkv":  {"aac", "libfdk_aac", "aac_at", "ac3", "eac3", "flac", "libopus", "libvorbis", "libmp3lame", "copy"},
	"webm": {"libopus", "libvorbis", "copy"},
}

// ResolveAudioCodec returns the audio encoder for format. An override is
// honoured only when the format can carry it; aacEncoder selects the AAC
// implementation for formats whose default is AAC.
func ResolveAudioCodec(format, override, aacEncoder string) string {
	f, ok := LookupFormat(format)
	if !ok {
		return ""
	}
	override = strings.ToLower(strings.TrimSpace(override))
	if override != "" {
		for _, c := range audioCodecs[f.Name] {
			if c == override {
				return c
			}
		}
	}
	if f.AudioCodec != "" {
		return f.AudioCodec
	}
	if enc := strings.TrimSpace(aacEncoder); aacEncoders[enc] {
		return enc
	}
	return "aac"
}

// isLosslessCodec reports whether bitrate settings do not apply to codec.
func isLosslessCodec(codec string) bool {
	return codec == "flac" || codec == "alac" || codec == "copy" || strings.HasPrefix(codec, "pcm_")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func normalizeName(s string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")
}
