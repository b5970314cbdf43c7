package jobstatus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/backmassage/lyricmux/internal/lyrics"
)

// MemoryStore keeps jobs in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	jobs  map[string]*Job
	order []string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*Job)}
}

func (m *MemoryStore) Create(_ context.Context, id, input string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; ok {
		return fmt.Errorf("job %s already exists", id)
	}
	now := time.Now().UTC()
	m.jobs[id] = &Job{ID: id, Input: input, Status: StatusQueued, CreatedAt: now, UpdatedAt: now}
	m.order = append(m.order, id)
	return nil
}

func (m *MemoryStore) update(id string, fn func(*Job)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	fn(j)
	j.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryStore) SetStatus(_ context.Context, id string, status Status) error {
	return m.update(id, func(j *Job) { j.Status = status })
}

func (m *MemoryStore) SetProgress(_ context.Context, id string, percent int) error {
	return m.update(id, func(j *Job) { j.Progress = clampPercent(percent) })
}

func (m *MemoryStore) SetMessage(_ context.Context, id, message string) error {
	return m.update(id, func(j *Job) { j.Message = message })
}

func (m *MemoryStore) SetLyricsStats(_ context.Context, id string, stats lyrics.Stats) error {
	return m.update(id, func(j *Job) { j.Lyrics = stats })
}

func (m *MemoryStore) Finish(_ context.Context, id string, status Status, output, errMsg string) error {
	return m.update(id, func(j *Job) {
		j.Status = status
		j.Output = output
		j.Error = errMsg
		if status == StatusSucceeded {
			j.Progress = 100
		}
	})
}

func (m *MemoryStore) Get(_ context.Context, id string) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return *j, nil
}

// List returns the newest jobs first. limit <= 0 means all.
func (m *MemoryStore) List(_ context.Context, limit int) ([]Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Job
	for i := len(m.order) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, *m.jobs[m.order[i]])
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
