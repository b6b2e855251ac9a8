package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/2003nayan/automated-github-push/internal/registry"
)

// ErrUnknownTarget is returned when a name or path matches no tracked
// repository.
var ErrUnknownTarget = errors.New("engine: no tracked repository matches")

// ErrOutsideWatchedPaths is returned when a folder cannot be routed to an
// account.
var ErrOutsideWatchedPaths = errors.New("engine: folder is not under any watched path")

// resolveTarget accepts either a folder name or a path and returns the
// matching record.
func (e *Engine) resolveTarget(target string) (registry.Record, error) {
	if abs, err := filepath.Abs(target); err == nil {
		if rec, ok := e.registry.Get(abs); ok {
			return rec, nil
		}
	}
	if rec, ok := e.registry.FindByName(target); ok {
		return rec, nil
	}
	return registry.Record{}, fmt.Errorf("%w: %s", ErrUnknownTarget, target)
}

// Backup commits and pushes one repository if it has pending changes.
func (e *Engine) Backup(ctx context.Context, target string) error {
	return e.backupOne(ctx, target)
}

// ForceBackup runs an immediate backup outside the sweep schedule. An
// empty target backs up everything. A clean tree still short-circuits to
// no_changes; "force" bypasses the schedule, not the change check.
func (e *Engine) ForceBackup(ctx context.Context, target string) error {
	if target != "" {
		return e.backupOne(ctx, target)
	}

	var errs []error
	for _, rec := range e.registry.List() {
		if err := e.backupOne(ctx, rec.Path); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rec.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) backupOne(ctx context.Context, target string) error {
	rec, err := e.resolveTarget(target)
	if err != nil {
		return err
	}

	mu := e.folderLock(rec.Path)
	mu.Lock()
	defer mu.Unlock()

	if _, err := os.Stat(rec.Path); err != nil {
		_ = e.registry.Update(rec.Path, func(r *registry.Record) {
			r.Status = registry.StatusMissing
			r.LastCheck = time.Now()
		})
		_ = e.registry.Save()
		return fmt.Errorf("engine: folder is missing: %s", rec.Path)
	}

	return e.backupFolder(ctx, rec.Path, e.accountFor(rec), false)
}

// Add starts tracking a folder explicitly, bypassing the project
// heuristics. The folder must still live under a watched path so later
// sweeps can route it; a non-empty account overrides the owning account.
func (e *Engine) Add(ctx context.Context, path, account string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("engine: not a directory: %s", abs)
	}

	wp := e.router.Resolve(abs)
	if wp == nil {
		return fmt.Errorf("%w: %s", ErrOutsideWatchedPaths, abs)
	}
	if account != "" {
		override, err := e.cfg.AccountByName(account)
		if err != nil {
			return err
		}
		wp = override
	}

	// An explicit add overrides a previous disable
	if err := e.prefs.Enable(abs); err != nil {
		e.logger.Warn("could not clear disable preference", "path", abs, "error", err)
	}

	return e.processFolder(ctx, abs, wp)
}

// Remove stops tracking a folder. The local folder and the remote
// repository are left untouched.
func (e *Engine) Remove(target string) error {
	rec, err := e.resolveTarget(target)
	if err != nil {
		return err
	}

	e.registry.Remove(rec.Path)
	if err := e.prefs.Forget(rec.Path); err != nil {
		e.logger.Warn("could not clear preferences", "path", rec.Path, "error", err)
	}
	e.logger.Info("stopped tracking", "name", rec.Name, "path", rec.Path)
	return e.registry.Save()
}

// Disable keeps a folder tracked but excludes it from automatic backups.
func (e *Engine) Disable(target, reason string) error {
	rec, err := e.resolveTarget(target)
	if err != nil {
		return err
	}
	return e.prefs.Disable(rec.Path, reason)
}

// Enable re-includes a folder in automatic backups.
func (e *Engine) Enable(target string) error {
	rec, err := e.resolveTarget(target)
	if err != nil {
		return err
	}
	return e.prefs.Enable(rec.Path)
}

// DeleteOptions selects what Delete destroys beyond the tracking record.
type DeleteOptions struct {
	DeleteGitHub bool
	DeleteLocal  bool
}

// DeleteResult reports each deletion step independently; one failing step
// does not abort the others.
type DeleteResult struct {
	GitHubDeleted   bool
	LocalDeleted    bool
	TrackingRemoved bool
	Errors          []error
}

// Delete removes a repository: optionally the GitHub remote, optionally
// the local folder, and always the tracking record. The record goes last
// so a partial failure leaves the repository visible for retry.
func (e *Engine) Delete(ctx context.Context, target string, opts DeleteOptions) (DeleteResult, error) {
	var result DeleteResult

	rec, err := e.resolveTarget(target)
	if err != nil {
		return result, err
	}

	mu := e.folderLock(rec.Path)
	mu.Lock()
	defer mu.Unlock()

	if opts.DeleteGitHub {
		wp := e.router.Resolve(rec.Path)
		if wp == nil {
			result.Errors = append(result.Errors,
				fmt.Errorf("%w: cannot resolve account for %s", ErrOutsideWatchedPaths, rec.Path))
		} else if err := e.hosting.DeleteRepo(ctx, rec.Name, wp.Account); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("delete GitHub repo: %w", err))
		} else {
			result.GitHubDeleted = true
			e.logger.Info("deleted GitHub repository", "name", rec.Name)
		}
	}

	if opts.DeleteLocal {
		if err := os.RemoveAll(rec.Path); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("delete local folder: %w", err))
		} else {
			result.LocalDeleted = true
			e.logger.Info("deleted local folder", "path", rec.Path)
		}
	}

	e.registry.Remove(rec.Path)
	if err := e.prefs.Forget(rec.Path); err != nil {
		e.logger.Warn("could not clear preferences", "path", rec.Path, "error", err)
	}
	if err := e.registry.Save(); err != nil {
		result.Errors = append(result.Errors, err)
		return result, errors.Join(result.Errors...)
	}
	result.TrackingRemoved = true

	return result, errors.Join(result.Errors...)
}

// List returns tracked repositories, optionally filtered by owning
// account.
func (e *Engine) List(account string) []registry.Record {
	records := e.registry.List()
	if account == "" {
		return records
	}

	filtered := records[:0]
	for _, rec := range records {
		if rec.OwnerAccount == account {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}

// StatusReport is the daemon overview shown by the status command.
type StatusReport struct {
	Tracked      int                 `json:"tracked"`
	ByStatus     map[string]int      `json:"by_status"`
	WatchedPaths []string            `json:"watched_paths"`
	Stats        registry.Statistics `json:"stats"`
	Disabled     int                 `json:"disabled"`
}

// Status summarizes the registry and running totals.
func (e *Engine) Status() StatusReport {
	report := StatusReport{
		ByStatus:     make(map[string]int),
		WatchedPaths: e.router.Labels(),
		Stats:        e.registry.Stats(),
	}

	for _, rec := range e.registry.List() {
		report.Tracked++
		report.ByStatus[string(rec.Status)]++
	}

	if disabled, err := e.prefs.ListDisabled(); err == nil {
		report.Disabled = len(disabled)
	}
	return report
}
