package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		EnvFFmpeg, EnvFFprobe, EnvSampleRate, EnvBitrate, EnvAACEncoder,
		EnvHWAccel, EnvHWAccelEnabled, EnvLegacyTag, EnvTagCharset,
		EnvTagComment, EnvWorkers,
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestValidate_HWAccel(t *testing.T) {
	tests := []struct {
		name    string
		hw      HWAccel
		wantErr bool
	}{
		{"none is valid", HWAccelNone, false},
		{"auto is valid", HWAccelAuto, false},
		{"vaapi is valid", HWAccelVAAPI, false},
		{"alias is valid", "cuda", false},
		{"unknown is invalid", "quantum", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.FFmpeg.HWAccel = tt.hw
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_Bounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Batch.Workers = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() with zero workers: want error")
	}

	cfg = DefaultConfig()
	cfg.Logging.Color = "sometimes"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() with bad color: want error")
	}

	cfg = DefaultConfig()
	cfg.FFmpeg.Binary = "  "
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() with blank binary: want error")
	}
}

func TestParseToggle(t *testing.T) {
	tests := []struct {
		in   string
		def  bool
		want bool
	}{
		{"", true, true},
		{"false", true, false},
		{"OFF", true, false},
		{"0", true, false},
		{"yes", false, true},
		{"maybe", true, true},
		{"maybe", false, false},
	}
	for _, tt := range tests {
		if got := parseToggle(tt.in, tt.def); got != tt.want {
			t.Errorf("parseToggle(%q, %v) = %v, want %v", tt.in, tt.def, got, tt.want)
		}
	}
}

func TestLegacyTagEnabled(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.LegacyTagEnabled() {
		t.Error("LegacyTagEnabled() default = false, want true")
	}
	cfg.Tags.LegacyTag = "no"
	if cfg.LegacyTagEnabled() {
		t.Error("LegacyTagEnabled() with \"no\" = true, want false")
	}
}

func TestLoad_TOMLAndEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[ffmpeg]
binary = "/opt/ffmpeg/bin/ffmpeg"
hwaccel = "nvenc"

[tags]
charset = "latin5"

[batch]
workers = 4
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvSampleRate, "44100")
	t.Setenv(EnvTagComment, "from env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.FFmpeg.Binary != "/opt/ffmpeg/bin/ffmpeg" {
		t.Errorf("Binary = %q", cfg.FFmpeg.Binary)
	}
	if cfg.FFmpeg.HWAccel != HWAccelNVENC {
		t.Errorf("HWAccel = %q, want nvenc", cfg.FFmpeg.HWAccel)
	}
	if cfg.FFmpeg.FFprobe != "ffprobe" {
		t.Errorf("FFprobe = %q, want default", cfg.FFmpeg.FFprobe)
	}
	if cfg.Tags.Charset != "latin5" {
		t.Errorf("Charset = %q", cfg.Tags.Charset)
	}
	if cfg.Audio.DefaultSampleRate != "44100" {
		t.Errorf("DefaultSampleRate = %q, want env value", cfg.Audio.DefaultSampleRate)
	}
	if cfg.Tags.Comment != "from env" {
		t.Errorf("Comment = %q, want env value", cfg.Tags.Comment)
	}
	if cfg.Batch.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Batch.Workers)
	}
}

func TestLoad_FileWinsOverEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[audio]\ndefault_sample_rate = \"22050\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvSampleRate, "44100")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Audio.DefaultSampleRate != "22050" {
		t.Errorf("DefaultSampleRate = %q, want file value", cfg.Audio.DefaultSampleRate)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("Load() of missing explicit file: want error")
	}
}

func TestLoad_BadTOML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[ffmpeg\nbinary="), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() of malformed TOML: want error")
	}
}

func TestHWAccelValue(t *testing.T) {
	var hw HWAccel
	v := NewHWAccelValue(&hw)
	if err := v.Set("intel"); err != nil {
		t.Fatalf("Set(intel) error: %v", err)
	}
	if hw != HWAccelQSV {
		t.Errorf("hw = %q, want qsv", hw)
	}
	if err := v.Set("bogus"); err == nil {
		t.Error("Set(bogus): want error")
	}
	if v.Type() != "hwaccel" {
		t.Errorf("Type() = %q", v.Type())
	}
}
