package fileutil

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// lockRetry is how often a contended lock is retried.
const lockRetry = 50 * time.Millisecond

// ErrLocked is returned by TryLock when another writer holds the target.
var ErrLocked = errors.New("target is locked by another writer")

// Lock acquires the single-writer lock for target, waiting until ctx is
// done. Lock files live in lockDir (os.TempDir()/lyricmux-locks when empty)
// and are named by a hash of target's absolute path.
func Lock(ctx context.Context, lockDir, target string) (unlock func(), err error) {
	fl, err := newFlock(lockDir, target)
	if err != nil {
		return nil, err
	}
	ok, err := fl.TryLockContext(ctx, lockRetry)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", target, err)
	}
	if !ok {
		return nil, fmt.Errorf("lock %s: %w", target, ErrLocked)
	}
	return func() { _ = fl.Unlock() }, nil
}

// TryLock acquires the lock without waiting.
func TryLock(lockDir, target string) (unlock func(), err error) {
	fl, err := newFlock(lockDir, target)
	if err != nil {
		return nil, err
	}
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", target, err)
	}
	if !ok {
		return nil, fmt.Errorf("lock %s: %w", target, ErrLocked)
	}
	return func() { _ = fl.Unlock() }, nil
}

func newFlock(lockDir, target string) (*flock.Flock, error) {
	if lockDir == "" {
		lockDir = filepath.Join(os.TempDir(), "lyricmux-locks")
	}
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256([]byte(abs))
	name := hex.EncodeToString(sum[:8]) + ".lock"
	return flock.New(filepath.Join(lockDir, name)), nil
}
