// Package jobstatus records per-job conversion state: progress, the last
// log message, lyrics counters and the final outcome.
package jobstatus

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/backmassage/lyricmux/internal/lyrics"
)

// ErrNotFound is returned for an unknown job id.
var ErrNotFound = errors.New("job not found")

// Status is a job's lifecycle position.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// Done reports whether s is final.
func (s Status) Done() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCanceled
}

// Job is one stored record.
type Job struct {
	ID        string
	Input     string
	Output    string
	Status    Status
	Progress  int
	Message   string
	Lyrics    lyrics.Stats
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store persists job state. Implementations are safe for concurrent use.
type Store interface {
	Create(ctx context.Context, id, input string) error
	SetStatus(ctx context.Context, id string, status Status) error
	SetProgress(ctx context.Context, id string, percent int) error
	SetMessage(ctx context.Context, id, message string) error
	SetLyricsStats(ctx context.Context, id string, stats lyrics.Stats) error
	Finish(ctx context.Context, id string, status Status, output, errMsg string) error
	Get(ctx context.Context, id string) (Job, error)
	List(ctx context.Context, limit int) ([]Job, error)
	Close() error
}

// NewID returns a fresh job id.
func NewID() string { return uuid.NewString() }

func clampPercent(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
