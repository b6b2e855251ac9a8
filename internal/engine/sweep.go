package engine

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/2003nayan/automated-github-push/internal/notify"
	"github.com/2003nayan/automated-github-push/internal/registry"
)

// SweepResult summarizes one reconciliation pass.
type SweepResult struct {
	Checked   int
	Synced    int
	NoChanges int
	Failed    int
	Missing   int
	Skipped   int
	Duration  time.Duration
}

// Sweep reconciles every tracked repository once: pick up folders that
// appeared since the last pass, then commit and push whatever changed.
// Every record gets its last check timestamp updated, including the ones
// that are skipped or missing, so staleness is always visible in status
// output.
func (e *Engine) Sweep(ctx context.Context) SweepResult {
	started := time.Now()
	e.logger.Info("sweep started", "tracked", e.registry.Len())

	e.scanRoots(ctx)

	var result SweepResult
	for _, rec := range e.registry.List() {
		if ctx.Err() != nil {
			break
		}
		result.Checked++

		mu := e.folderLock(rec.Path)
		mu.Lock()
		outcome := e.sweepOne(ctx, rec)
		mu.Unlock()

		switch outcome {
		case registry.StatusSynced:
			result.Synced++
		case registry.StatusNoChanges:
			result.NoChanges++
		case registry.StatusMissing:
			result.Missing++
		case registry.StatusFailed, registry.StatusError:
			result.Failed++
		default:
			result.Skipped++
		}
	}
	result.Duration = time.Since(started)

	now := time.Now()
	e.registry.UpdateStats(func(s *registry.Statistics) { s.LastSweep = &now })
	if err := e.registry.Save(); err != nil {
		e.logger.Error("sweep state save failed", "error", err)
	}

	e.logger.Info("sweep completed",
		"checked", result.Checked,
		"synced", result.Synced,
		"no_changes", result.NoChanges,
		"failed", result.Failed,
		"missing", result.Missing,
		"duration", result.Duration)

	event := notify.NewEvent(notify.EventSweepCompleted).
		WithExtra("checked", strconv.Itoa(result.Checked)).
		WithExtra("synced", strconv.Itoa(result.Synced)).
		WithExtra("failed", strconv.Itoa(result.Failed))
	if result.Failed > 0 {
		event.WithError(strconv.Itoa(result.Failed) + " repositories failed to sync")
	}
	e.notifyEvent(ctx, event)

	return result
}

// sweepOne reconciles a single record and returns the status it ended in.
// An empty status means the record was skipped by preference.
func (e *Engine) sweepOne(ctx context.Context, rec registry.Record) registry.Status {
	touch := func(status registry.Status, detail string) registry.Status {
		_ = e.registry.Update(rec.Path, func(r *registry.Record) {
			r.Status = status
			r.LastCheck = time.Now()
			r.LastError = detail
		})
		return status
	}

	disabled, err := e.prefs.IsDisabled(rec.Path)
	if err != nil {
		e.logger.Warn("preference lookup failed", "path", rec.Path, "error", err)
	}
	if disabled {
		_ = e.registry.Update(rec.Path, func(r *registry.Record) {
			r.LastCheck = time.Now()
		})
		return ""
	}

	if _, err := os.Stat(rec.Path); err != nil {
		e.logger.Warn("tracked folder is missing", "name", rec.Name, "path", rec.Path)
		return touch(registry.StatusMissing, "")
	}

	account := e.accountFor(rec)
	if err := e.backupFolder(ctx, rec.Path, account, false); err != nil {
		after, _ := e.registry.Get(rec.Path)
		return after.Status
	}

	after, _ := e.registry.Get(rec.Path)
	return after.Status
}
