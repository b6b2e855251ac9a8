// Package watcher detects new project folders appearing under the watched
// roots. It uses fsnotify for cross-platform file system event monitoring.
package watcher

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/2003nayan/automated-github-push/internal/config"
	"github.com/2003nayan/automated-github-push/internal/project"
)

// NewProject is emitted when a folder under a watched root settles into
// something that looks like a project.
type NewProject struct {
	// Path is the absolute path of the new folder.
	Path string
	// WatchedPath is the root the folder appeared under.
	WatchedPath *config.WatchedPath
}

// Watcher watches one root directory for new immediate children. Events
// for deeper paths are ignored; only top-level folders become projects.
type Watcher struct {
	root      *config.WatchedPath
	detection config.Detection
	settle    time.Duration
	logger    *slog.Logger

	watcher    *fsnotify.Watcher
	candidates chan NewProject
	done       chan struct{}
	wg         sync.WaitGroup

	mu      sync.Mutex
	running bool
	seen    map[string]struct{}
}

// New creates a watcher for one watched root. The watcher must be started
// with Start() before it will emit candidates.
func New(root *config.WatchedPath, detection config.Detection, settle time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	return &Watcher{
		root:       root,
		detection:  detection,
		settle:     settle,
		logger:     logger.With("root", root.Root()),
		watcher:    fsw,
		candidates: make(chan NewProject, 16),
		done:       make(chan struct{}),
		seen:       make(map[string]struct{}),
	}, nil
}

// Start begins watching the root for new folders.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running for %s", w.root.Root())
	}

	if err := w.watcher.Add(w.root.Root()); err != nil {
		return fmt.Errorf("watch %s: %w", w.root.Root(), err)
	}

	w.running = true
	w.wg.Add(1)
	go w.processEvents()

	w.logger.Info("watching for new projects")
	return nil
}

// Stop stops watching and blocks until the event loop and any pending
// candidate checks have exited. Pending settle timers are abandoned.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	close(w.done)

	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("close watcher: %w", err)
	}

	w.wg.Wait()
	close(w.candidates)
	return nil
}

// Candidates returns the channel that emits new project folders. The
// channel is closed when the watcher is stopped.
func (w *Watcher) Candidates() <-chan NewProject {
	return w.candidates
}

// IsRunning returns true if the watcher is currently running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if path, ok := w.convertEvent(event); ok {
				w.wg.Add(1)
				go w.evaluateCandidate(path)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// convertEvent filters raw fsnotify events down to "a new immediate child
// directory may have appeared". A rename into the root arrives as a Rename
// or Create event depending on platform, so both are accepted.
func (w *Watcher) convertEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return "", false
	}

	if filepath.Dir(event.Name) != w.root.Root() {
		return "", false
	}

	name := filepath.Base(event.Name)
	if project.ShouldIgnore(name, w.detection.IgnorePatterns) {
		return "", false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, dup := w.seen[event.Name]; dup {
		return "", false
	}
	w.seen[event.Name] = struct{}{}

	return event.Name, true
}

// evaluateCandidate waits for the folder to settle, then checks whether it
// qualifies as a project. Folders that vanish during the settle window
// (downloads, editor temp dirs) are dropped, and their dedup entry is
// cleared so a later reappearance gets a fresh look.
func (w *Watcher) evaluateCandidate(path string) {
	defer w.wg.Done()

	select {
	case <-time.After(w.settle):
	case <-w.done:
		return
	}

	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		w.forget(path)
		return
	}

	if !project.IsTrackable(path, w.detection) {
		w.logger.Debug("folder did not qualify as a project", "path", path)
		w.forget(path)
		return
	}

	select {
	case w.candidates <- NewProject{Path: path, WatchedPath: w.root}:
	case <-w.done:
	}
}

func (w *Watcher) forget(path string) {
	w.mu.Lock()
	delete(w.seen, path)
	w.mu.Unlock()
}
