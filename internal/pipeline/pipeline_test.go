package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/backmassage/lyricmux/internal/config"
	"github.com/backmassage/lyricmux/internal/ffmpeg"
	"github.com/backmassage/lyricmux/internal/jobstatus"
	"github.com/backmassage/lyricmux/internal/legacytag"
	"github.com/backmassage/lyricmux/internal/logging"
	"github.com/backmassage/lyricmux/internal/lyrics"
	"github.com/backmassage/lyricmux/internal/metadata"
	"github.com/backmassage/lyricmux/internal/planner"
)

// okScript reports a 10 s duration, one progress line, then writes the
// output (the last argument).
const okScript = `for a; do out=$a; done
printf '  Duration: 00:00:10.00, start: 0.000000, bitrate: 900 kb/s\n' >&2
printf 'size=1kB time=00:00:05.00 bitrate=1.0kbits/s speed=10x\r' >&2
printf 'converted\n' > "$out"`

func fakeFFmpeg(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(t *testing.T, script string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.FFmpeg.Binary = fakeFFmpeg(t, script)
	cfg.FFmpeg.FFprobe = "/nonexistent/lyricmux-test-ffprobe"
	cfg.FFmpeg.KillGraceSeconds = 1
	cfg.Output.TempDir = t.TempDir()
	return &cfg
}

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("media bytes"), 0o644); err != nil {
		t.Fatalf("touch %s: %v", path, err)
	}
	return path
}

func basenames(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	return out
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

type progressLog struct {
	mu   sync.Mutex
	seen []int
}

func (p *progressLog) add(v int) {
	p.mu.Lock()
	p.seen = append(p.seen, v)
	p.mu.Unlock()
}

// --- Discover ---

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "b.flac")
	touch(t, dir, "a.MP3")
	touch(t, dir, "sub/c.mkv")
	touch(t, dir, "notes.txt")
	touch(t, dir, "cover.jpg")
	touch(t, dir, ".hidden.flac")
	touch(t, dir, ".cache/d.flac")

	files, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	got := strings.Join(basenames(files), ",")
	if got != "a.MP3,b.flac,c.mkv" {
		t.Errorf("Discover = %s", got)
	}
}

func TestDiscover_MissingDir(t *testing.T) {
	if _, err := Discover(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing dir")
	}
}

func TestLooksLikeVideo(t *testing.T) {
	if !LooksLikeVideo("x.MKV") || LooksLikeVideo("x.flac") {
		t.Error("LooksLikeVideo misclassifies")
	}
}

func TestRunStats_SpaceSaved(t *testing.T) {
	s := RunStats{TotalInputBytes: 1000, TotalOutputBytes: 600}
	if got := s.SpaceSaved(); got != 400 {
		t.Errorf("SpaceSaved = %d", got)
	}
	s.TotalOutputBytes = 1500
	if got := s.SpaceSaved(); got != -500 {
		t.Errorf("SpaceSaved = %d", got)
	}
}

// --- Convert ---

func TestConvert_Success(t *testing.T) {
	cfg := testConfig(t, okScript)
	src := t.TempDir()
	in := touch(t, src, "track01.flac")
	if err := os.WriteFile(filepath.Join(src, "track01.lrc"), []byte("[00:01.00]hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(t.TempDir(), "out")

	store := jobstatus.NewMemoryStore()
	c := NewConverter(cfg, logging.Discard(), store, nil)
	var prog progressLog
	res, err := c.Convert(context.Background(), Request{
		InputPath: in,
		Format:    "mp3",
		Bitrate:   "320",
		JobID:     "job-1",
		Progress:  prog.add,
		Metadata:  metadata.Record{Title: "Song", Artist: "Band"},
		OutputDir: outDir,
		Options:   Options{Lyrics: lyrics.AttachOptions{Include: true}},
	})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	wantOut := filepath.Join(outDir, "Band - Song.mp3")
	if res.OutputPath != wantOut {
		t.Errorf("OutputPath = %q, want %q", res.OutputPath, wantOut)
	}
	if res.LyricsPath != filepath.Join(outDir, "Band - Song.lrc") {
		t.Errorf("LyricsPath = %q", res.LyricsPath)
	}
	if res.Size <= 0 || res.JobID != "job-1" {
		t.Errorf("result = %+v", res)
	}
	if got := dirNames(t, outDir); strings.Join(got, ",") != "Band - Song.lrc,Band - Song.mp3" {
		t.Errorf("output dir = %v", got)
	}

	b, _ := os.ReadFile(wantOut)
	if !strings.HasPrefix(string(b), "converted\n") {
		t.Errorf("output content = %q", b)
	}
	tag, found, err := legacytag.ReadFile(wantOut, legacytag.Latin1)
	if err != nil || !found || tag.Title != "Song" || tag.Artist != "Band" {
		t.Errorf("legacy tag = %+v found=%v err=%v", tag, found, err)
	}

	if got := fmt.Sprint(prog.seen); got != "[50 100]" {
		t.Errorf("progress = %v, want [50 100]", prog.seen)
	}

	job, err := store.Get(context.Background(), "job-1")
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != jobstatus.StatusSucceeded || job.Progress != 100 || job.Output != wantOut {
		t.Errorf("job = %+v", job)
	}
	if job.Lyrics.Found != 1 || job.Lyrics.Sidecar != 1 {
		t.Errorf("job lyrics stats = %+v", job.Lyrics)
	}
}

func TestConvert_DeduplicatesOutput(t *testing.T) {
	cfg := testConfig(t, okScript)
	in := touch(t, t.TempDir(), "x.flac")
	outDir := t.TempDir()
	existing := filepath.Join(outDir, "Band - Song.m4a")
	if err := os.WriteFile(existing, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewConverter(cfg, nil, nil, nil)
	res, err := c.Convert(context.Background(), Request{
		InputPath: in, Format: "m4a", OutputDir: outDir,
		Metadata: metadata.Record{Title: "Song", Artist: "Band"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.OutputPath != filepath.Join(outDir, "Band - Song (1).m4a") {
		t.Errorf("OutputPath = %q", res.OutputPath)
	}
	if b, _ := os.ReadFile(existing); string(b) != "keep" {
		t.Errorf("existing file modified: %q", b)
	}
	if _, found, _ := legacytag.ReadFile(res.OutputPath, legacytag.Latin1); found {
		t.Error("m4a output must not get a legacy trailer")
	}
}

func TestConvert_ProcessFailure(t *testing.T) {
	cfg := testConfig(t, `for a; do out=$a; done
echo partial > "$out"
echo "Unknown encoder 'libmp3lame'" >&2
exit 1`)
	in := touch(t, t.TempDir(), "x.flac")
	outDir := t.TempDir()
	store := jobstatus.NewMemoryStore()

	c := NewConverter(cfg, nil, store, nil)
	res, err := c.Convert(context.Background(), Request{InputPath: in, Format: "mp3", OutputDir: outDir, JobID: "j"})
	var ee *ffmpeg.ExitError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %v, want *ffmpeg.ExitError", err)
	}
	if ee.ExitCode != 1 || len(ee.Tail) == 0 {
		t.Errorf("ExitError = %+v", ee)
	}
	if res.OutputPath != "" {
		t.Errorf("OutputPath = %q on failure", res.OutputPath)
	}
	if names := dirNames(t, outDir); len(names) != 0 {
		t.Errorf("files left behind: %v", names)
	}
	job, _ := store.Get(context.Background(), "j")
	if job.Status != jobstatus.StatusFailed || job.Error == "" {
		t.Errorf("job = %+v", job)
	}
}

func TestConvert_CanceledBeforeLaunch(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "ran")
	cfg := testConfig(t, "touch "+marker)
	in := touch(t, t.TempDir(), "x.flac")
	outDir := t.TempDir()

	var flag ffmpeg.CancelFlag
	flag.Cancel()
	flag.Cancel()
	c := NewConverter(cfg, nil, nil, nil)
	res, err := c.Convert(context.Background(), Request{InputPath: in, Format: "mp3", OutputDir: outDir, Cancel: &flag})
	if !errors.Is(err, ffmpeg.ErrCanceled) {
		t.Fatalf("err = %v, want ErrCanceled", err)
	}
	if _, err := os.Stat(marker); err == nil {
		t.Error("ffmpeg was launched after cancel")
	}
	if names := dirNames(t, outDir); len(names) != 0 {
		t.Errorf("files left behind: %v", names)
	}
	job, _ := c.Status().Get(context.Background(), res.JobID)
	if job.Status != jobstatus.StatusCanceled {
		t.Errorf("job status = %s", job.Status)
	}
}

func TestConvert_CanceledDuringRun(t *testing.T) {
	cfg := testConfig(t, okScript)
	in := touch(t, t.TempDir(), "x.flac")
	outDir := t.TempDir()

	var flag ffmpeg.CancelFlag
	c := NewConverter(cfg, nil, nil, nil)
	_, err := c.Convert(context.Background(), Request{
		InputPath: in, Format: "mp3", OutputDir: outDir, Cancel: &flag,
		Progress: func(int) { flag.Cancel() },
	})
	if !errors.Is(err, ffmpeg.ErrCanceled) {
		t.Fatalf("err = %v, want ErrCanceled", err)
	}
	if names := dirNames(t, outDir); len(names) != 0 {
		t.Errorf("files left behind: %v", names)
	}
}

func TestConvert_ValidationErrors(t *testing.T) {
	cfg := testConfig(t, okScript)
	c := NewConverter(cfg, nil, nil, nil)
	ctx := context.Background()

	_, err := c.Convert(ctx, Request{InputPath: filepath.Join(t.TempDir(), "missing.flac"), Format: "mp3"})
	if !errors.Is(err, ErrInputNotFound) {
		t.Errorf("missing input err = %v", err)
	}
	_, err = c.Convert(ctx, Request{InputPath: t.TempDir(), Format: "mp3"})
	if !errors.Is(err, ErrInputNotFile) {
		t.Errorf("directory input err = %v", err)
	}
	in := touch(t, t.TempDir(), "x.flac")
	_, err = c.Convert(ctx, Request{InputPath: in, Format: "midi"})
	var ufe *planner.UnknownFormatError
	if !errors.As(err, &ufe) || ufe.Format != "midi" {
		t.Errorf("unknown format err = %v", err)
	}
}

func TestConvert_FallbackName(t *testing.T) {
	cfg := testConfig(t, okScript)
	in := touch(t, t.TempDir(), "My Input.flac")
	outDir := t.TempDir()

	res, err := NewConverter(cfg, nil, nil, nil).Convert(context.Background(), Request{InputPath: in, Format: "opus", OutputDir: outDir})
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(res.OutputPath) != "My Input.opus" {
		t.Errorf("OutputPath = %q", res.OutputPath)
	}
}

func TestConvert_SameInputTwice(t *testing.T) {
	cfg := testConfig(t, okScript)
	in := touch(t, t.TempDir(), "x.flac")
	outDir := t.TempDir()
	c := NewConverter(cfg, nil, nil, nil)
	req := Request{InputPath: in, Format: "mp3", OutputDir: outDir, Metadata: metadata.Record{Title: "Song", Artist: "Band"}}

	first, err := c.Convert(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Convert(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if first.OutputPath == second.OutputPath {
		t.Fatalf("second conversion reused %q", first.OutputPath)
	}
	if second.OutputPath != filepath.Join(outDir, "Band - Song (1).mp3") {
		t.Errorf("second OutputPath = %q", second.OutputPath)
	}
}

// The source lyrics file is also the sidecar target when converting next
// to the input without renaming.
const crlfLyrics = "[00:01.00]one\r\n[00:02.00]two\r\n"

func TestConvert_SidecarIsLyricsSource(t *testing.T) {
	cfg := testConfig(t, okScript)
	dir := t.TempDir()
	in := touch(t, dir, "song.flac")
	lrc := filepath.Join(dir, "song.lrc")
	if err := os.WriteFile(lrc, []byte(crlfLyrics), 0o644); err != nil {
		t.Fatal(err)
	}

	store := jobstatus.NewMemoryStore()
	res, err := NewConverter(cfg, nil, store, nil).Convert(context.Background(), Request{
		InputPath: in, Format: "mp3", OutputDir: dir, JobID: "j",
		Options: Options{Lyrics: lyrics.AttachOptions{Include: true, Embed: true}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.OutputPath != filepath.Join(dir, "song.mp3") || res.LyricsPath != lrc {
		t.Errorf("result = %+v", res)
	}
	if b, _ := os.ReadFile(lrc); string(b) != crlfLyrics {
		t.Errorf("lyrics source rewritten: %q", b)
	}
	job, _ := store.Get(context.Background(), "j")
	if job.Lyrics.Sidecar != 1 || job.Lyrics.Embedded != 1 {
		t.Errorf("lyrics stats = %+v", job.Lyrics)
	}
}

func TestConvert_CanceledDuringEmbedKeepsLyricsSource(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "embedding")
	cfg := testConfig(t, `for a; do out=$a; done
case "$*" in *lyrics=*) touch `+marker+`; exec sleep 5;; esac
printf 'converted\n' > "$out"`)
	dir := t.TempDir()
	in := touch(t, dir, "song.flac")
	lrc := filepath.Join(dir, "song.lrc")
	if err := os.WriteFile(lrc, []byte(crlfLyrics), 0o644); err != nil {
		t.Fatal(err)
	}

	var flag ffmpeg.CancelFlag
	go func() {
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			if _, err := os.Stat(marker); err == nil {
				break
			}
			time.Sleep(10 * time.Millisecond)
		}
		flag.Cancel()
	}()

	_, err := NewConverter(cfg, nil, nil, nil).Convert(context.Background(), Request{
		InputPath: in, Format: "mp3", OutputDir: dir, Cancel: &flag,
		Options: Options{Lyrics: lyrics.AttachOptions{Include: true, Embed: true}},
	})
	if !errors.Is(err, ffmpeg.ErrCanceled) {
		t.Fatalf("err = %v, want ErrCanceled", err)
	}
	if b, err := os.ReadFile(lrc); err != nil || string(b) != crlfLyrics {
		t.Errorf("lyrics source = %q, %v", b, err)
	}
	if got := dirNames(t, dir); strings.Join(got, ",") != "song.flac,song.lrc" {
		t.Errorf("dir = %v", got)
	}
}

// --- Exposed post-processing entry points ---

func TestRewriteLegacyTag(t *testing.T) {
	cfg := testConfig(t, okScript)
	c := NewConverter(cfg, nil, nil, nil)
	dir := t.TempDir()
	mp3 := touch(t, dir, "a.mp3")
	flac := touch(t, dir, "a.flac")
	md := metadata.Record{Title: "Öğretmen"}

	if !c.RewriteLegacyTag(mp3, md) {
		t.Fatal("RewriteLegacyTag(mp3) = false")
	}
	if !c.RewriteLegacyTag(mp3, md) {
		t.Fatal("second RewriteLegacyTag(mp3) = false")
	}
	fi, _ := os.Stat(mp3)
	if fi.Size() != int64(len("media bytes"))+legacytag.Size {
		t.Errorf("size after two writes = %d", fi.Size())
	}
	tag, _, _ := legacytag.ReadFile(mp3, legacytag.Latin5)
	if tag.Title != "Öğretmen" {
		t.Errorf("title = %q", tag.Title)
	}
	if c.RewriteLegacyTag(flac, md) {
		t.Error("flac is not eligible")
	}

	cfg.Tags.LegacyTag = "0"
	if c.RewriteLegacyTag(mp3, md) {
		t.Error("disabled trailer still written")
	}
	if c.RewriteLegacyTag(filepath.Join(dir, "missing.mp3"), md) {
		t.Error("missing file reported success")
	}
}

func TestAttachLyrics(t *testing.T) {
	cfg := testConfig(t, okScript)
	dir := t.TempDir()
	media := touch(t, dir, "song.ogg")
	if err := os.WriteFile(filepath.Join(dir, "song.txt"), []byte("just words"), 0o644); err != nil {
		t.Fatal(err)
	}
	c := NewConverter(cfg, nil, nil, nil)

	var stats lyrics.Stats
	out := filepath.Join(t.TempDir(), "Copy.ogg")
	touch(t, filepath.Dir(out), "Copy.ogg")
	p := c.AttachLyrics(context.Background(), out, metadata.Record{}, lyrics.AttachOptions{Include: true, LookupPath: media}, nil, stats.Add)
	if p != filepath.Join(filepath.Dir(out), "Copy.txt") {
		t.Errorf("AttachLyrics = %q", p)
	}
	if stats.Found != 1 || stats.Sidecar != 1 {
		t.Errorf("stats = %+v", stats)
	}

	stats = lyrics.Stats{}
	lonely := touch(t, t.TempDir(), "none.ogg")
	if p := c.AttachLyrics(context.Background(), lonely, metadata.Record{}, lyrics.AttachOptions{Include: true}, nil, stats.Add); p != "" {
		t.Errorf("AttachLyrics without lyrics = %q", p)
	}
	if stats.NotFound != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

// --- Preview ---

func TestPreview(t *testing.T) {
	cfg := testConfig(t, okScript)
	in := touch(t, t.TempDir(), "x.flac")
	outDir := t.TempDir()
	c := NewConverter(cfg, nil, nil, nil)
	req := Request{InputPath: in, Format: "mp3", Bitrate: "V2", OutputDir: outDir,
		Metadata: metadata.Record{Title: "T", Artist: "A"}}

	row, err := c.Preview(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(row.Output) != "A - T.mp3" || row.Quality != "V2" || row.AudioCodec != "libmp3lame" {
		t.Errorf("row = %+v", row)
	}
	if !strings.Contains(row.Command, "-q:a 2") {
		t.Errorf("command = %s", row.Command)
	}
	again, _ := c.Preview(context.Background(), req)
	if again.Output != row.Output {
		t.Errorf("preview did not release its claim: %q vs %q", again.Output, row.Output)
	}
	if names := dirNames(t, outDir); len(names) != 0 {
		t.Errorf("preview wrote files: %v", names)
	}

	table := RenderPreview([]PreviewRow{row})
	if !strings.Contains(table, "A - T.mp3") || !strings.Contains(table, "?") {
		t.Errorf("table = %s", table)
	}
}

// --- Batch ---

func TestBatch_Run(t *testing.T) {
	cfg := testConfig(t, okScript)
	src := t.TempDir()
	a := touch(t, src, "a.flac")
	b := touch(t, src, "b.flac")
	empty := filepath.Join(src, "c.flac")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	outDir := t.TempDir()

	batch := &Batch{Converter: NewConverter(cfg, nil, nil, nil), Workers: 2}
	stats, outcomes := batch.Run(context.Background(), []string{a, b, empty}, Request{Format: "mp3", OutputDir: outDir})

	if stats.Total != 3 || stats.Converted != 2 || stats.Skipped != 1 || stats.Failed != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if len(outcomes) != 3 || outcomes[0].Input != a || outcomes[2].Input != empty {
		t.Fatalf("outcomes = %+v", outcomes)
	}
	if filepath.Base(outcomes[0].Result.OutputPath) != "a.mp3" || filepath.Base(outcomes[1].Result.OutputPath) != "b.mp3" {
		t.Errorf("outputs = %q, %q", outcomes[0].Result.OutputPath, outcomes[1].Result.OutputPath)
	}
	if got := strings.Join(dirNames(t, outDir), ","); got != "a.mp3,b.mp3" {
		t.Errorf("output dir = %s", got)
	}
}

func TestBatch_SameNameDoesNotCollide(t *testing.T) {
	cfg := testConfig(t, okScript)
	src := t.TempDir()
	files := []string{touch(t, src, "1.flac"), touch(t, src, "2.flac"), touch(t, src, "3.flac")}
	outDir := t.TempDir()

	batch := &Batch{Converter: NewConverter(cfg, nil, nil, nil), Workers: 3}
	tmpl := Request{Format: "mp3", OutputDir: outDir, Metadata: metadata.Record{Title: "Same", Artist: "Band"}}
	stats, _ := batch.Run(context.Background(), files, tmpl)
	if stats.Converted != 3 {
		t.Fatalf("stats = %+v", stats)
	}
	got := strings.Join(dirNames(t, outDir), ",")
	if got != "Band - Same (1).mp3,Band - Same (2).mp3,Band - Same.mp3" {
		t.Errorf("output dir = %s", got)
	}
}

func TestBatch_Canceled(t *testing.T) {
	cfg := testConfig(t, okScript)
	src := t.TempDir()
	files := []string{touch(t, src, "a.flac"), touch(t, src, "b.flac")}

	var flag ffmpeg.CancelFlag
	flag.Cancel()
	batch := &Batch{Converter: NewConverter(cfg, nil, nil, nil), Workers: 1, Cancel: &flag}
	stats, outcomes := batch.Run(context.Background(), files, Request{Format: "mp3", OutputDir: t.TempDir()})
	if stats.Converted != 0 || stats.Failed != 0 {
		t.Errorf("stats = %+v", stats)
	}
	for _, o := range outcomes {
		if o.Result.OutputPath != "" {
			t.Errorf("canceled batch produced %q", o.Result.OutputPath)
		}
	}
}
