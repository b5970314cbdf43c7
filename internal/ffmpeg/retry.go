package ffmpeg

import (
	"errors"
	"io/fs"
	"os/exec"
	"path/filepath"
)

// fallbackBinary decides whether a failed launch gets its single retry.
// Only a missing executable qualifies, and only when the configured binary
// is not already a bare name (that lookup has just failed).
func fallbackBinary(binary string, err error) (string, bool) {
	if !isMissingExecutable(err) {
		return "", false
	}
	base := filepath.Base(binary)
	if base == binary || base == "." || base == string(filepath.Separator) {
		return "", false
	}
	return base, true
}

func isMissingExecutable(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}
