package scanner

import (
	"sync"
	"time"
)

// Entry is the last observed state of a file believed to be recording.
type Entry struct {
	// ModifiedAt is the file mtime at the last observation.
	ModifiedAt time.Time
	// CheckedAt is when the file last went through the pipeline.
	CheckedAt time.Time
	// Size is the file size at the last observation.
	Size int64
}

// Tracker holds the shared in-progress recording state consulted by the
// batch scan, the watch loop, and the completion sweep. All methods are safe
// for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func NewTracker() *Tracker {
	return &Tracker{entries: make(map[string]Entry)}
}

// Get returns the tracked entry for a path.
func (t *Tracker) Get(path string) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[path]
	return entry, ok
}

// Set records or replaces the entry for a path.
func (t *Tracker) Set(path string, entry Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[path] = entry
}

// Touch updates the observed mtime and size for a path without resetting
// its pipeline check time, registering the path when it is new.
func (t *Tracker) Touch(path string, modifiedAt time.Time, size int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry := t.entries[path]
	entry.ModifiedAt = modifiedAt
	entry.Size = size
	t.entries[path] = entry
}

// IsTracked reports whether a path is currently believed to be recording.
func (t *Tracker) IsTracked(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[path]
	return ok
}

// Remove drops the entry for a path.
func (t *Tracker) Remove(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, path)
}

// Snapshot returns a copy of the current entries for iteration outside the lock.
func (t *Tracker) Snapshot() map[string]Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	snapshot := make(map[string]Entry, len(t.entries))
	for path, entry := range t.entries {
		snapshot[path] = entry
	}
	return snapshot
}

// Len returns the number of tracked paths.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
