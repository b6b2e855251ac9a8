package registry

import (
	"context"
	"os"

	"github.com/2003nayan/automated-github-push/internal/config"
	"github.com/2003nayan/automated-github-push/internal/gitops"
)

// History reads commit history from a local repository. *gitops.Client
// satisfies it.
type History interface {
	LastCommitInfo(ctx context.Context, dir string) (*gitops.CommitInfo, error)
	CommitCount(ctx context.Context, dir string) (int, error)
}

// BackfillAccounts fills in the owner account for records that predate
// account routing, using the configured watched paths. Returns true when
// any record changed.
func (r *Registry) BackfillAccounts(router *config.Router) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := false
	for _, rec := range r.repos {
		if rec.OwnerAccount != "" && rec.OwnerAccount != "unknown" {
			continue
		}
		owner := router.ResolveAccount(rec.Path)
		if owner == rec.OwnerAccount {
			continue
		}
		r.logger.Info("backfilled account for tracked repo",
			"repo", rec.Name, "account", owner)
		rec.OwnerAccount = owner
		changed = true
	}
	return changed
}

// RepairHistory reconciles each record's backup counter and timestamp
// against the repository's actual commit history. Stale counters happen
// when a push succeeded but the process died before the snapshot was
// written. A backup timestamp later than the last commit is impossible
// and gets pulled back; an earlier one is a valid record of the last push
// (local commits the daemon never pushed are not backups) and is kept.
// Errors on one repository never block repair of the others. Returns true
// when any record changed.
func (r *Registry) RepairHistory(ctx context.Context, history History) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := false
	for _, rec := range r.repos {
		if _, err := os.Stat(rec.Path); err != nil {
			continue
		}

		count, err := history.CommitCount(ctx, rec.Path)
		if err != nil {
			r.logger.Warn("skipping history repair",
				"repo", rec.Name, "error", err)
			continue
		}
		if count > 0 && rec.BackupCount != count {
			r.logger.Info("repaired backup counter",
				"repo", rec.Name, "recorded", rec.BackupCount, "actual", count)
			rec.BackupCount = count
			changed = true
		}

		last, err := history.LastCommitInfo(ctx, rec.Path)
		if err != nil {
			r.logger.Warn("skipping timestamp repair",
				"repo", rec.Name, "error", err)
			continue
		}
		if last == nil {
			continue
		}
		if rec.LastBackup == nil || rec.LastBackup.After(last.When) {
			when := last.When
			rec.LastBackup = &when
			changed = true
		}
	}
	return changed
}
