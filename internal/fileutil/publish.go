// Package fileutil holds the filesystem primitives shared by conversion and
// post-processing: temp sibling naming, the two-rename publish/swap, and the
// per-target single-writer lock.
package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// rename is replaced in tests to inject failures.
var rename = os.Rename

// TempSibling returns a hidden, unique path next to target that keeps
// target's extension, so muxers that infer the container from the name
// still work: "dir/.name.1a2b3c4d.tmp.mp3".
func TempSibling(target string) string {
	return sibling(target, "tmp")
}

// BackupSibling returns a hidden, unique backup path next to target.
func BackupSibling(target string) string {
	return sibling(target, "bak")
}

func sibling(target, kind string) string {
	dir, base := filepath.Split(target)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return filepath.Join(dir, "."+stem+"."+id+"."+kind+ext)
}

// Exists reports whether path names an existing regular file.
func Exists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// Swap moves tmp over target without target ever being observably absent:
// target is renamed to a backup, tmp is renamed to target, and the backup
// is restored if the second rename fails. The backup is removed best-effort
// on success. When target does not exist tmp is simply renamed.
func Swap(tmp, target string) error {
	if _, err := os.Lstat(target); errors.Is(err, fs.ErrNotExist) {
		if err := rename(tmp, target); err != nil {
			return fmt.Errorf("publish %s: %w", target, err)
		}
		return nil
	} else if err != nil {
		return err
	}

	backup := BackupSibling(target)
	if err := rename(target, backup); err != nil {
		return fmt.Errorf("back up %s: %w", target, err)
	}
	if err := rename(tmp, target); err != nil {
		if rerr := rename(backup, target); rerr != nil {
			return fmt.Errorf("replace %s: %w (restore failed: %v, original kept at %s)", target, err, rerr, backup)
		}
		return fmt.Errorf("replace %s: %w", target, err)
	}
	_ = os.Remove(backup)
	return nil
}

// Publish flushes tmp to stable storage and swaps it over target.
func Publish(tmp, target string) error {
	if err := syncFile(tmp); err != nil {
		return err
	}
	if err := Swap(tmp, target); err != nil {
		return err
	}
	syncDir(filepath.Dir(target))
	return nil
}

// WriteFileAtomic writes data to a temp sibling and publishes it over path.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp := TempSibling(path)
	if err := os.WriteFile(tmp, data, perm); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := Publish(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func syncFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open %s for sync: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	return f.Close()
}

// syncDir persists the rename; not all platforms support it.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
