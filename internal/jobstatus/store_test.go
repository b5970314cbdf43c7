package jobstatus

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/backmassage/lyricmux/internal/lyrics"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if err := s.Create(ctx, "job-1", "/in/a.flac"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Create(ctx, "job-2", "/in/b.flac"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	j, err := s.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if j.Status != StatusQueued || j.Input != "/in/a.flac" || j.CreatedAt.IsZero() {
		t.Errorf("new job = %+v", j)
	}

	if err := s.SetStatus(ctx, "job-1", StatusRunning); err != nil {
		t.Fatal(err)
	}
	if err := s.SetProgress(ctx, "job-1", 150); err != nil {
		t.Fatal(err)
	}
	if err := s.SetMessage(ctx, "job-1", "Converting"); err != nil {
		t.Fatal(err)
	}
	stats := lyrics.Stats{Found: 1, Embedded: 1}
	if err := s.SetLyricsStats(ctx, "job-1", stats); err != nil {
		t.Fatal(err)
	}

	j, _ = s.Get(ctx, "job-1")
	if j.Status != StatusRunning || j.Progress != 100 || j.Message != "Converting" || j.Lyrics != stats {
		t.Errorf("updated job = %+v", j)
	}

	if err := s.SetProgress(ctx, "job-2", 40); err != nil {
		t.Fatal(err)
	}
	if err := s.Finish(ctx, "job-2", StatusFailed, "", "exit status 1"); err != nil {
		t.Fatal(err)
	}
	j, _ = s.Get(ctx, "job-2")
	if j.Status != StatusFailed || j.Progress != 40 || j.Error != "exit status 1" || !j.Status.Done() {
		t.Errorf("failed job = %+v", j)
	}
	if err := s.Finish(ctx, "job-1", StatusSucceeded, "/out/a.mp3", ""); err != nil {
		t.Fatal(err)
	}
	j, _ = s.Get(ctx, "job-1")
	if j.Output != "/out/a.mp3" || j.Progress != 100 {
		t.Errorf("finished job = %+v", j)
	}

	list, err := s.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != "job-2" || list[1].ID != "job-1" {
		t.Errorf("List order = %+v", list)
	}
	if list, _ := s.List(ctx, 1); len(list) != 1 {
		t.Errorf("List(1) returned %d jobs", len(list))
	}

	if _, err := s.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) err = %v", err)
	}
	if err := s.SetProgress(ctx, "nope", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetProgress(missing) err = %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	exerciseStore(t, s)

	if err := s.Create(context.Background(), "job-1", "x"); err == nil {
		t.Error("duplicate Create succeeded")
	}
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "jobs.db")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	exerciseStore(t, s)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	j, err := reopened.Get(context.Background(), "job-1")
	if err != nil || j.Status != StatusSucceeded {
		t.Errorf("after reopen: %+v, %v", j, err)
	}
}

func TestNewID(t *testing.T) {
	if a, b := NewID(), NewID(); a == "" || a == b {
		t.Errorf("NewID() = %q, %q", a, b)
	}
}
