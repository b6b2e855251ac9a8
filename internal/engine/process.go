package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/2003nayan/automated-github-push/internal/config"
	"github.com/2003nayan/automated-github-push/internal/notify"
	"github.com/2003nayan/automated-github-push/internal/project"
	"github.com/2003nayan/automated-github-push/internal/registry"
)

// scanRoots walks the watched roots and processes every qualifying folder
// that is not yet tracked. Used at startup and at the top of each sweep,
// so projects created while the daemon was down are still picked up.
func (e *Engine) scanRoots(ctx context.Context) {
	for i := range e.cfg.WatchedPaths {
		wp := &e.cfg.WatchedPaths[i]
		root := wp.Root()

		entries, err := os.ReadDir(root)
		if err != nil {
			e.logger.Warn("cannot scan watched path", "root", root, "error", err)
			continue
		}

		for _, entry := range entries {
			if ctx.Err() != nil {
				return
			}
			if !entry.IsDir() {
				continue
			}
			path := filepath.Join(root, entry.Name())
			if e.registry.Has(path) {
				continue
			}
			if project.ShouldIgnore(entry.Name(), e.cfg.Detection.IgnorePatterns) {
				continue
			}
			if !project.IsTrackable(path, e.cfg.Detection) {
				continue
			}
			if err := e.processFolder(ctx, path, wp); err != nil {
				e.logger.Error("scan processing failed", "path", path, "error", err)
			}
		}
	}
}

// processFolder takes a qualifying folder from untracked to tracked:
// initialize git if needed, create or reuse the remote repository, record
// it, and back it up unless the startup scan is still running.
func (e *Engine) processFolder(ctx context.Context, path string, wp *config.WatchedPath) error {
	mu := e.folderLock(path)
	mu.Lock()
	defer mu.Unlock()

	disabled, err := e.prefs.IsDisabled(path)
	if err != nil {
		e.logger.Warn("preference lookup failed", "path", path, "error", err)
	}
	if disabled {
		e.logger.Debug("skipping disabled folder", "path", path)
		return nil
	}

	account := wp.Account
	name := filepath.Base(path)

	fresh := !e.registry.Has(path)
	if fresh {
		e.logger.Info("new project detected",
			"name", name, "path", path, "account", account.Username)
		e.notifyEvent(ctx, notify.NewEvent(notify.EventNewProject).
			WithRepository(name).
			WithAccount(account.Username).
			WithPath(path))
	}

	rec, created, err := e.ensureRepository(ctx, path, account)
	if err != nil {
		if e.registry.Has(path) {
			_ = e.registry.Update(path, func(r *registry.Record) {
				r.MarkFailed(err.Error())
			})
			_ = e.registry.Save()
		}
		e.notifyEvent(ctx, notify.NewEvent(notify.EventError).
			WithRepository(name).
			WithAccount(account.Username).
			WithPath(path).
			WithError(err.Error()))
		return err
	}

	e.registry.Upsert(rec)
	if err := e.registry.Save(); err != nil {
		return err
	}

	// The startup scan registers pre-existing repositories without backing
	// them up; the first sweep reconciles their content. A repository this
	// call just initialized or just gave a remote is pushed right away
	// regardless, so no repository ever sits with an empty remote.
	if e.initialScan && !created {
		return nil
	}
	return e.backupFolder(ctx, path, account, created)
}

// ensureRepository makes path a git repository with a GitHub remote,
// returning the registry record describing it and whether this call did
// any of that work. Existing repositories and remotes are reused, so this
// is safe to call repeatedly.
func (e *Engine) ensureRepository(ctx context.Context, path string, account config.Account) (*registry.Record, bool, error) {
	name := filepath.Base(path)
	created := false

	if !e.git.IsRepository(ctx, path) {
		e.logger.Info("initializing git repository", "path", path)
		if err := e.git.Init(ctx, path, account.DefaultBranch, account.Username, account.AuthorEmail()); err != nil {
			return nil, false, fmt.Errorf("init repository %s: %w", path, err)
		}
		created = true
	}

	rec, tracked := e.registry.Get(path)
	if !tracked {
		rec = *registry.NewRecord(path, account.Username)
	}

	if !e.git.HasRemote(ctx, path) {
		// A repository that predates tracking carries whatever author
		// config is globally active; pin it to the owning account before
		// the first auto-commit
		if err := e.git.SetLocalIdentity(ctx, path, account.Username, account.AuthorEmail()); err != nil {
			return nil, false, fmt.Errorf("set identity for %s: %w", name, err)
		}

		description := ""
		if e.describe != nil {
			description = e.describe(path)
		}

		cloneURL, err := e.hosting.EnsureRepoExists(ctx, name, description, account)
		if err != nil {
			return nil, false, fmt.Errorf("create remote for %s: %w", name, err)
		}
		if err := e.git.AddRemote(ctx, path, cloneURL); err != nil {
			return nil, false, fmt.Errorf("add remote for %s: %w", name, err)
		}

		rec.HasRemote = true
		rec.RemoteURL = cloneURL
		created = true
		e.registry.UpdateStats(func(s *registry.Statistics) { s.ReposCreated++ })
		e.notifyEvent(ctx, notify.NewEvent(notify.EventRepoCreated).
			WithRepository(name).
			WithAccount(account.Owner()).
			WithPath(path))
	} else {
		rec.HasRemote = true
		if url, err := e.git.RemoteURL(ctx, path); err == nil {
			rec.RemoteURL = url
		}
	}

	return &rec, created, nil
}

// backupFolder commits and pushes one tracked folder. A clean tree
// short-circuits to no_changes; firstPush overrides that for a repository
// whose initial commit was just created and has never reached the remote.
// The caller must hold the folder lock or be processFolder.
func (e *Engine) backupFolder(ctx context.Context, path string, account config.Account, firstPush bool) error {
	name := filepath.Base(path)

	changes, err := e.git.HasPendingChanges(ctx, path)
	if err != nil {
		return e.recordFailure(ctx, path, name, account.Username, err)
	}

	if !changes && !firstPush {
		if err := e.registry.Update(path, func(r *registry.Record) {
			r.Status = registry.StatusNoChanges
			r.LastCheck = time.Now()
			r.LastError = ""
		}); err != nil {
			return err
		}
		return e.registry.Save()
	}

	e.notifyEvent(ctx, notify.NewEvent(notify.EventBackupStarted).
		WithRepository(name).
		WithAccount(account.Username).
		WithPath(path))

	if err := e.git.Sync(ctx, path); err != nil {
		return e.recordFailure(ctx, path, name, account.Username, err)
	}

	now := time.Now()
	if err := e.registry.Update(path, func(r *registry.Record) {
		r.MarkSynced(now)
		r.LastCheck = now
	}); err != nil {
		return err
	}
	e.registry.UpdateStats(func(s *registry.Statistics) { s.SuccessfulBackups++ })

	e.notifyEvent(ctx, notify.NewEvent(notify.EventBackupCompleted).
		WithRepository(name).
		WithAccount(account.Username).
		WithPath(path))

	e.logger.Info("backup completed", "name", name, "account", account.Username)
	return e.registry.Save()
}

func (e *Engine) recordFailure(ctx context.Context, path, name, account string, cause error) error {
	e.logger.Error("backup failed", "name", name, "error", cause)

	if err := e.registry.Update(path, func(r *registry.Record) {
		r.MarkFailed(cause.Error())
		r.LastCheck = time.Now()
	}); err != nil {
		return err
	}
	e.registry.UpdateStats(func(s *registry.Statistics) { s.FailedBackups++ })

	e.notifyEvent(ctx, notify.NewEvent(notify.EventBackupCompleted).
		WithRepository(name).
		WithAccount(account).
		WithPath(path).
		WithError(cause.Error()))

	if err := e.registry.Save(); err != nil {
		return err
	}
	return cause
}
