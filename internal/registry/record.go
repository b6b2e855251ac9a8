package registry

import (
	"path/filepath"
	"time"
)

// Status is the reconciliation state of a tracked repository. Transitions
// only happen as the result of a reconciliation attempt.
type Status string

const (
	// StatusTracked means the repository has a remote and no pending action
	StatusTracked Status = "tracked"
	// StatusSynced means the last reconciliation pushed changes successfully
	StatusSynced Status = "synced"
	// StatusNoChanges means the last check found nothing to push
	StatusNoChanges Status = "no_changes"
	// StatusFailed means the last sync attempt errored
	StatusFailed Status = "failed"
	// StatusMissing means the folder no longer exists on disk
	StatusMissing Status = "missing"
	// StatusError means an unexpected failure occurred during a check
	StatusError Status = "error"
)

// Record is one tracked repository. Path is the unique key.
type Record struct {
	Path string `json:"path"`
	Name string `json:"name"`

	// OwnerAccount is resolved at creation time and denormalized here so
	// routing decisions survive later config changes
	OwnerAccount string `json:"owner_account"`

	// LegacyAccount carries the pre-rename field of old snapshots; folded
	// into OwnerAccount on load
	LegacyAccount string `json:"account_username,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	LastCheck  time.Time  `json:"last_check,omitzero"`

	// BackupCount counts successful pushes; reconciled against the actual
	// commit history on load
	BackupCount int `json:"backup_count"`

	Status    Status `json:"status"`
	HasRemote bool   `json:"has_remote"`
	RemoteURL string `json:"remote_url,omitempty"`
	LastError string `json:"last_error,omitempty"`
}

// NewRecord creates a record for a freshly tracked folder.
func NewRecord(path, owner string) *Record {
	return &Record{
		Path:         path,
		Name:         filepath.Base(path),
		OwnerAccount: owner,
		CreatedAt:    time.Now(),
		Status:       StatusTracked,
	}
}

// MarkSynced records a successful push.
func (r *Record) MarkSynced(at time.Time) {
	r.Status = StatusSynced
	r.LastBackup = &at
	r.BackupCount++
	r.LastError = ""
}

// MarkFailed records a sync failure.
func (r *Record) MarkFailed(detail string) {
	r.Status = StatusFailed
	r.LastError = detail
}

// MarkError records an unexpected failure during a check.
func (r *Record) MarkError(detail string) {
	r.Status = StatusError
	r.LastError = detail
}

// Statistics are process-wide running totals, persisted best-effort.
type Statistics struct {
	SuccessfulBackups int        `json:"successful_backups"`
	FailedBackups     int        `json:"failed_backups"`
	ReposCreated      int        `json:"repos_created"`
	StartTime         *time.Time `json:"start_time,omitempty"`
	LastSweep         *time.Time `json:"last_sweep,omitempty"`
}

// snapshot is the on-disk document.
type snapshot struct {
	TrackedRepos map[string]*Record `json:"tracked_repos"`
	Stats        Statistics         `json:"stats"`
	LastSaved    time.Time          `json:"last_saved"`
}
