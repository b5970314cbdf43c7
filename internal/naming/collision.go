package naming

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// CollisionResolver hands out output paths that neither exist on disk nor
// were claimed earlier in the run, appending " (N)" to the stem as needed.
// Safe for concurrent use by batch workers.
type CollisionResolver struct {
	mu       sync.Mutex
	owners   map[string]string // output path -> input that claimed it
	counters map[string]int    // requested path -> next suffix to try
	exists   func(string) bool
}

// NewCollisionResolver creates a ready-to-use resolver.
func NewCollisionResolver() *CollisionResolver {
	return &CollisionResolver{
		owners:   make(map[string]string),
		counters: make(map[string]int),
		exists:   pathExists,
	}
}

// Resolve claims an output path for input. requested is returned as-is
// when it is free, or owned by input and not yet written.
func (cr *CollisionResolver) Resolve(input, requested string) string {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if cr.free(input, requested) {
		cr.owners[requested] = input
		return requested
	}

	dir := filepath.Dir(requested)
	base := filepath.Base(requested)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	counter := cr.counters[requested]
	if counter == 0 {
		counter = 1
	}
	for {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, counter, ext))
		counter++
		if cr.free(input, candidate) {
			cr.counters[requested] = counter
			cr.owners[candidate] = input
			return candidate
		}
	}
}

// Release drops input's claim on path, e.g. after a failed conversion.
func (cr *CollisionResolver) Release(input, path string) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	if cr.owners[path] == input {
		delete(cr.owners, path)
	}
}

func (cr *CollisionResolver) free(input, path string) bool {
	if owner, ok := cr.owners[path]; ok && owner != input {
		return false
	}
	return !cr.exists(path)
}

// Unique resolves path against the filesystem only.
func Unique(path string) string {
	return NewCollisionResolver().Resolve("", path)
}

func pathExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
