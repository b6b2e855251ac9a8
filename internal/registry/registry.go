// Package registry tracks which folders are managed repositories and
// persists that state as a single JSON snapshot on disk.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// ErrNotTracked is returned when an operation targets a path that has no
// registry record.
var ErrNotTracked = errors.New("registry: path is not tracked")

// Registry is the in-memory record map plus its snapshot file. All access
// goes through the mutex; callers get copies, never live pointers.
type Registry struct {
	mu     sync.RWMutex
	path   string
	repos  map[string]*Record
	stats  Statistics
	logger *slog.Logger
}

// New creates a registry backed by the snapshot file at path. Call Load
// before use.
func New(path string, logger *slog.Logger) *Registry {
	return &Registry{
		path:   path,
		repos:  make(map[string]*Record),
		logger: logger,
	}
}

// Load reads the snapshot file if it exists. A missing file is a fresh
// start, not an error. A corrupt file is an error so state is never
// silently discarded.
func (r *Registry) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			r.logger.Info("no existing state, starting fresh", "path", r.path)
			return nil
		}
		return fmt.Errorf("read state: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parse state %s: %w", r.path, err)
	}

	for path, rec := range snap.TrackedRepos {
		if rec == nil {
			continue
		}
		if rec.Path == "" {
			rec.Path = path
		}
		if rec.Name == "" {
			rec.Name = filepath.Base(rec.Path)
		}
		if rec.OwnerAccount == "" && rec.LegacyAccount != "" {
			rec.OwnerAccount = rec.LegacyAccount
		}
		rec.LegacyAccount = ""
		r.repos[rec.Path] = rec
	}
	r.stats = snap.Stats

	r.logger.Info("state loaded", "path", r.path, "repos", len(r.repos))
	return nil
}

// Save writes the snapshot atomically: serialize to a temp file in the
// same directory, then rename over the old one.
func (r *Registry) Save() error {
	r.mu.RLock()
	snap := snapshot{
		TrackedRepos: r.repos,
		Stats:        r.stats,
		LastSaved:    time.Now(),
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	r.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close state: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

// Get returns a copy of the record for path.
func (r *Registry) Get(path string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.repos[path]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// FindByName returns a copy of the first record whose folder name matches.
func (r *Registry) FindByName(name string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.repos {
		if rec.Name == name {
			return *rec, true
		}
	}
	return Record{}, false
}

// Has reports whether path is tracked.
func (r *Registry) Has(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.repos[path]
	return ok
}

// Upsert inserts or replaces the record for rec.Path.
func (r *Registry) Upsert(rec *Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *rec
	r.repos[cp.Path] = &cp
}

// Update applies fn to the record for path under the lock. The mutation is
// atomic with respect to concurrent readers and other updates.
func (r *Registry) Update(path string, fn func(*Record)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.repos[path]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotTracked, path)
	}
	fn(rec)
	return nil
}

// Remove drops the record for path, reporting whether it existed.
func (r *Registry) Remove(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.repos[path]
	delete(r.repos, path)
	return ok
}

// List returns copies of all records sorted by name.
func (r *Registry) List() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Record, 0, len(r.repos))
	for _, rec := range r.repos {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Path < out[j].Path
	})
	return out
}

// Len returns the number of tracked repositories.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.repos)
}

// Stats returns a copy of the running totals.
func (r *Registry) Stats() Statistics {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats
}

// UpdateStats applies fn to the running totals under the lock.
func (r *Registry) UpdateStats(fn func(*Statistics)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.stats)
}
