// Package engine orchestrates the backup daemon: it owns the registry,
// drives the folder watchers, runs the periodic sweep, and exposes the
// manual operations the CLI uses.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/2003nayan/automated-github-push/internal/config"
	"github.com/2003nayan/automated-github-push/internal/gitops"
	"github.com/2003nayan/automated-github-push/internal/notify"
	"github.com/2003nayan/automated-github-push/internal/prefs"
	"github.com/2003nayan/automated-github-push/internal/registry"
	"github.com/2003nayan/automated-github-push/internal/watcher"
)

// Git is the subset of the git client the engine needs. *gitops.Client
// satisfies it.
type Git interface {
	IsRepository(ctx context.Context, dir string) bool
	HasRemote(ctx context.Context, dir string) bool
	RemoteURL(ctx context.Context, dir string) (string, error)
	AddRemote(ctx context.Context, dir, url string) error
	Init(ctx context.Context, dir, branch, username, email string) error
	SetLocalIdentity(ctx context.Context, dir, username, email string) error
	HasPendingChanges(ctx context.Context, dir string) (bool, error)
	Sync(ctx context.Context, dir string) error
	LastCommitInfo(ctx context.Context, dir string) (*gitops.CommitInfo, error)
	CommitCount(ctx context.Context, dir string) (int, error)
}

// Hosting is the subset of the GitHub client the engine needs.
// *hosting.Client satisfies it.
type Hosting interface {
	IsAuthenticated(ctx context.Context, account config.Account) bool
	EnsureRepoExists(ctx context.Context, name, description string, account config.Account) (string, error)
	DeleteRepo(ctx context.Context, name string, account config.Account) error
}

// Describer produces a repository description for a local folder.
type Describer func(dir string) string

// Engine ties the pieces together. Construct with New, then either call
// Run for daemon mode or use the manual operations directly.
type Engine struct {
	cfg        *config.Config
	router     *config.Router
	registry   *registry.Registry
	prefs      *prefs.Store
	git        Git
	hosting    Hosting
	describe   Describer
	dispatcher *notify.Dispatcher
	logger     *slog.Logger

	// initialScan suppresses immediate backups while pre-existing folders
	// are being registered at startup; the first sweep picks them up
	initialScan bool

	lockMu      sync.Mutex
	folderLocks map[string]*sync.Mutex

	watchers []*watcher.Watcher
	wg       sync.WaitGroup
}

// Options carries the engine's collaborators.
type Options struct {
	Config     *config.Config
	Registry   *registry.Registry
	Prefs      *prefs.Store
	Git        Git
	Hosting    Hosting
	Describe   Describer
	Dispatcher *notify.Dispatcher
	Logger     *slog.Logger
}

// New assembles an engine. The config must already be validated.
func New(opts Options) *Engine {
	return &Engine{
		cfg:         opts.Config,
		router:      config.NewRouter(opts.Config.WatchedPaths),
		registry:    opts.Registry,
		prefs:       opts.Prefs,
		git:         opts.Git,
		hosting:     opts.Hosting,
		describe:    opts.Describe,
		dispatcher:  opts.Dispatcher,
		logger:      opts.Logger,
		folderLocks: make(map[string]*sync.Mutex),
	}
}

// Run starts the daemon and blocks until ctx is cancelled. On return all
// watchers are stopped, in-flight work has finished, and the registry has
// been saved.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.checkAuth(ctx); err != nil {
		return err
	}

	if err := e.loadState(ctx); err != nil {
		return err
	}

	e.registry.UpdateStats(func(s *registry.Statistics) {
		now := time.Now()
		s.StartTime = &now
	})

	// Register pre-existing projects without backing them up; the first
	// sweep handles their content
	e.initialScan = true
	e.scanRoots(ctx)
	e.initialScan = false

	if err := e.startWatchers(ctx); err != nil {
		e.stopWatchers()
		return err
	}

	e.logger.Info("daemon started",
		"watched_paths", len(e.cfg.WatchedPaths),
		"tracked", e.registry.Len(),
		"backup_interval", e.cfg.Daemon.BackupInterval)

	e.wg.Add(1)
	go e.sweepLoop(ctx)

	<-ctx.Done()

	e.stopWatchers()
	e.wg.Wait()

	if err := e.registry.Save(); err != nil {
		e.logger.Error("final state save failed", "error", err)
	}
	e.logger.Info("daemon stopped")
	return nil
}

// checkAuth verifies every configured account up front. Starting with a
// broken token would let the daemon silently accumulate failures, so a
// bad account is fatal.
func (e *Engine) checkAuth(ctx context.Context) error {
	seen := make(map[string]struct{})
	for i := range e.cfg.WatchedPaths {
		account := e.cfg.WatchedPaths[i].Account
		if _, dup := seen[account.Username]; dup {
			continue
		}
		seen[account.Username] = struct{}{}

		if !e.hosting.IsAuthenticated(ctx, account) {
			return fmt.Errorf("engine: authentication failed for account %s", account.Username)
		}
		e.logger.Info("account authenticated", "account", account.Username)
	}
	return nil
}

// loadState loads the registry and runs the self-healing passes.
func (e *Engine) loadState(ctx context.Context) error {
	if err := e.registry.Load(); err != nil {
		return err
	}

	changed := e.registry.BackfillAccounts(e.router)
	if e.registry.RepairHistory(ctx, e.git) {
		changed = true
	}
	if changed {
		if err := e.registry.Save(); err != nil {
			return fmt.Errorf("engine: save repaired state: %w", err)
		}
	}
	return nil
}

func (e *Engine) startWatchers(ctx context.Context) error {
	for i := range e.cfg.WatchedPaths {
		wp := &e.cfg.WatchedPaths[i]

		w, err := watcher.New(wp, e.cfg.Detection, e.cfg.Daemon.SettleDelay, e.logger)
		if err != nil {
			return err
		}
		if err := w.Start(); err != nil {
			return err
		}
		e.watchers = append(e.watchers, w)

		e.wg.Add(1)
		go e.consumeCandidates(ctx, w)
	}
	return nil
}

func (e *Engine) stopWatchers() {
	for _, w := range e.watchers {
		if err := w.Stop(); err != nil {
			e.logger.Warn("watcher stop failed", "error", err)
		}
	}
	e.watchers = nil
}

func (e *Engine) consumeCandidates(ctx context.Context, w *watcher.Watcher) {
	defer e.wg.Done()

	for candidate := range w.Candidates() {
		if ctx.Err() != nil {
			return
		}
		if err := e.processFolder(ctx, candidate.Path, candidate.WatchedPath); err != nil {
			e.logger.Error("new project processing failed",
				"path", candidate.Path, "error", err)
		}
	}
}

// sweepLoop runs the periodic sweep. The first pass runs right away so
// repositories registered at startup are reconciled without waiting a
// full interval; later waits are chunked so shutdown is never delayed.
func (e *Engine) sweepLoop(ctx context.Context) {
	defer e.wg.Done()

	const chunk = 10 * time.Second

	e.Sweep(ctx)

	next := time.Now().Add(e.cfg.Daemon.BackupInterval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(chunk):
		}

		if time.Now().Before(next) {
			continue
		}
		e.Sweep(ctx)
		next = time.Now().Add(e.cfg.Daemon.BackupInterval)
	}
}

// folderLock returns the mutex serializing operations on one folder, so a
// sweep and a manual backup never interleave on the same repository.
func (e *Engine) folderLock(path string) *sync.Mutex {
	e.lockMu.Lock()
	defer e.lockMu.Unlock()

	mu, ok := e.folderLocks[path]
	if !ok {
		mu = &sync.Mutex{}
		e.folderLocks[path] = mu
	}
	return mu
}

// accountFor resolves the account a tracked record belongs to. Routing by
// path wins; when the folder has left the watched roots, the owner
// denormalized into the record keeps backups working even though
// detection there has stopped.
func (e *Engine) accountFor(rec registry.Record) config.Account {
	if wp := e.router.Resolve(rec.Path); wp != nil {
		return wp.Account
	}
	if wp, err := e.cfg.AccountByName(rec.OwnerAccount); err == nil {
		return wp.Account
	}
	return config.Account{Username: rec.OwnerAccount}
}

// notifyEvent dispatches an event if notifications are enabled for its
// type.
func (e *Engine) notifyEvent(ctx context.Context, event *notify.Event) {
	n := e.cfg.Notifications
	if !n.Enabled || e.dispatcher == nil {
		return
	}
	switch event.Type {
	case notify.EventError:
		if !n.OnError {
			return
		}
	case notify.EventNewProject, notify.EventRepoCreated:
		if !n.OnNewRepo {
			return
		}
	case notify.EventBackupCompleted:
		if event.Success && !n.OnBackupComplete {
			return
		}
		if !event.Success && !n.OnError {
			return
		}
	}
	e.dispatcher.Dispatch(ctx, event)
}
