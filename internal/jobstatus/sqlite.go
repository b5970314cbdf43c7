package jobstatus

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/backmassage/lyricmux/internal/lyrics"
)

const schema = `CREATE TABLE IF NOT EXISTS jobs (
    id         TEXT PRIMARY KEY,
    input      TEXT NOT NULL,
    output     TEXT NOT NULL DEFAULT '',
    status     TEXT NOT NULL,
    progress   INTEGER NOT NULL DEFAULT 0,
    message    TEXT NOT NULL DEFAULT '',
    lyrics     TEXT NOT NULL DEFAULT '{}',
    error      TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
)`

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// SQLiteStore persists jobs in a SQLite database so that `lyricmux status`
// can inspect runs from other processes.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create status dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file.
func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil || !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

// update runs an UPDATE for one job; a missing row is ErrNotFound.
func (s *SQLiteStore) update(ctx context.Context, id, set string, args ...any) error {
	query := "UPDATE jobs SET " + set + ", updated_at = ? WHERE id = ?"
	args = append(args, now(), id)
	return retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return nil
	})
}

func (s *SQLiteStore) Create(ctx context.Context, id, input string) error {
	ts := now()
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO jobs (id, input, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			id, input, StatusQueued, ts, ts)
		return err
	})
}

func (s *SQLiteStore) SetStatus(ctx context.Context, id string, status Status) error {
	return s.update(ctx, id, "status = ?", status)
}

func (s *SQLiteStore) SetProgress(ctx context.Context, id string, percent int) error {
	return s.update(ctx, id, "progress = ?", clampPercent(percent))
}

func (s *SQLiteStore) SetMessage(ctx context.Context, id, message string) error {
	return s.update(ctx, id, "message = ?", message)
}

func (s *SQLiteStore) SetLyricsStats(ctx context.Context, id string, stats lyrics.Stats) error {
	b, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return s.update(ctx, id, "lyrics = ?", string(b))
}

func (s *SQLiteStore) Finish(ctx context.Context, id string, status Status, output, errMsg string) error {
	if status == StatusSucceeded {
		return s.update(ctx, id, "status = ?, output = ?, error = ?, progress = 100", status, output, errMsg)
	}
	return s.update(ctx, id, "status = ?, output = ?, error = ?", status, output, errMsg)
}

const selectJob = `SELECT id, input, output, status, progress, message, lyrics, error, created_at, updated_at FROM jobs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(r rowScanner) (Job, error) {
	var (
		j                  Job
		status, lyricsJSON string
		created, updated   string
	)
	if err := r.Scan(&j.ID, &j.Input, &j.Output, &status, &j.Progress, &j.Message,
		&lyricsJSON, &j.Error, &created, &updated); err != nil {
		return Job{}, err
	}
	j.Status = Status(status)
	if lyricsJSON != "" {
		if err := json.Unmarshal([]byte(lyricsJSON), &j.Lyrics); err != nil {
			return Job{}, fmt.Errorf("decode lyrics stats for %s: %w", j.ID, err)
		}
	}
	j.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	j.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return j, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Job, error) {
	j, err := scanJob(s.db.QueryRowContext(ctx, selectJob+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return j, err
}

// List returns the newest jobs first. limit <= 0 means all.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Job, error) {
	query := selectJob + " ORDER BY rowid DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}
