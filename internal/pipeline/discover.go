package pipeline

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Source extensions accepted by batch discovery (lowercase, leading dot).
var mediaExtensions = map[string]bool{
	".mp3": true, ".m4a": true, ".m4b": true, ".aac": true, ".flac": true,
	".wav": true, ".aiff": true, ".aif": true, ".ogg": true, ".oga": true,
	".opus": true, ".wma": true, ".alac": true, ".ape": true, ".wv": true,
	".mp4": true, ".m4v": true, ".mkv": true, ".webm": true, ".mov": true,
	".avi": true, ".flv": true, ".ts": true, ".mpg": true, ".mpeg": true,
}

// Video container extensions; used when ffprobe is unavailable.
var videoExtensions = map[string]bool{
	".mp4": true, ".m4v": true, ".mkv": true, ".webm": true, ".mov": true,
	".avi": true, ".flv": true, ".ts": true, ".mpg": true, ".mpeg": true,
}

// IsMedia reports whether path has a supported source extension.
func IsMedia(path string) bool {
	return mediaExtensions[strings.ToLower(filepath.Ext(path))]
}

// LooksLikeVideo guesses from the extension alone.
func LooksLikeVideo(path string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(path))]
}

// Discover walks inputDir, collects media files, skips hidden directories
// and our own temp/backup siblings, and returns the paths sorted for a
// deterministic processing order.
func Discover(inputDir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(inputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != inputDir && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if IsMedia(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
