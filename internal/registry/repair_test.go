package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/2003nayan/automated-github-push/internal/config"
	"github.com/2003nayan/automated-github-push/internal/gitops"
)

type fakeHistory struct {
	counts map[string]int
	last   map[string]time.Time
	errs   map[string]error
}

func (f *fakeHistory) CommitCount(_ context.Context, dir string) (int, error) {
	if err := f.errs[dir]; err != nil {
		return 0, err
	}
	return f.counts[dir], nil
}

func (f *fakeHistory) LastCommitInfo(_ context.Context, dir string) (*gitops.CommitInfo, error) {
	if err := f.errs[dir]; err != nil {
		return nil, err
	}
	when, ok := f.last[dir]
	if !ok {
		return nil, nil
	}
	return &gitops.CommitInfo{When: when}, nil
}

func existingDir(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}

func TestBackfillAccounts(t *testing.T) {
	root := t.TempDir()
	proj := filepath.Join(root, "proj")
	require.NoError(t, os.Mkdir(proj, 0o755))

	r := newTestRegistry(t)

	orphan := NewRecord(proj, "")
	r.Upsert(orphan)
	stray := NewRecord("/outside/everything", "unknown")
	r.Upsert(stray)
	settled := NewRecord(filepath.Join(root, "other"), "carol")
	r.Upsert(settled)

	router := config.NewRouter([]config.WatchedPath{
		{Path: root, Account: config.Account{Username: "alice"}},
	})

	require.True(t, r.BackfillAccounts(router))

	got, _ := r.Get(proj)
	require.Equal(t, "alice", got.OwnerAccount)

	// Outside every root stays "unknown" rather than being guessed
	got, _ = r.Get("/outside/everything")
	require.Equal(t, "unknown", got.OwnerAccount)

	// Already-resolved owners are never rewritten
	got, _ = r.Get(filepath.Join(root, "other"))
	require.Equal(t, "carol", got.OwnerAccount)

	// Second pass finds nothing new to change
	require.False(t, r.BackfillAccounts(router))
}

func TestRepairHistory_CounterDrift(t *testing.T) {
	dir := existingDir(t)
	r := newTestRegistry(t)

	rec := NewRecord(dir, "a")
	rec.BackupCount = 5
	r.Upsert(rec)

	history := &fakeHistory{counts: map[string]int{dir: 3}, last: map[string]time.Time{}}
	require.True(t, r.RepairHistory(context.Background(), history))

	got, _ := r.Get(dir)
	require.Equal(t, 3, got.BackupCount)
}

func TestRepairHistory_KeepsEarlierTimestamp(t *testing.T) {
	dir := existingDir(t)
	r := newTestRegistry(t)

	// Commits made outside the daemon land after the last push, so a
	// last_backup older than the newest commit is a valid record and
	// must not be rewritten to the commit time
	pushed := time.Now().Add(-48 * time.Hour)
	rec := NewRecord(dir, "a")
	rec.LastBackup = &pushed
	rec.BackupCount = 2
	r.Upsert(rec)

	newestCommit := time.Now().Add(-time.Hour).Truncate(time.Second)
	history := &fakeHistory{
		counts: map[string]int{dir: 2},
		last:   map[string]time.Time{dir: newestCommit},
	}

	require.False(t, r.RepairHistory(context.Background(), history))

	got, _ := r.Get(dir)
	require.True(t, got.LastBackup.Equal(pushed))
}

func TestRepairHistory_FillsAbsentTimestamp(t *testing.T) {
	dir := existingDir(t)
	r := newTestRegistry(t)
	r.Upsert(NewRecord(dir, "a"))

	when := time.Now().Truncate(time.Second)
	history := &fakeHistory{
		counts: map[string]int{dir: 1},
		last:   map[string]time.Time{dir: when},
	}

	require.True(t, r.RepairHistory(context.Background(), history))

	got, _ := r.Get(dir)
	require.NotNil(t, got.LastBackup)
	require.Equal(t, 1, got.BackupCount)
}

func TestRepairHistory_SkipsMissingFoldersAndErrors(t *testing.T) {
	okDir := existingDir(t)
	brokenDir := existingDir(t)
	r := newTestRegistry(t)

	missing := NewRecord("/gone/forever", "a")
	missing.BackupCount = 9
	r.Upsert(missing)

	broken := NewRecord(brokenDir, "a")
	broken.BackupCount = 9
	r.Upsert(broken)

	good := NewRecord(okDir, "a")
	good.BackupCount = 9
	r.Upsert(good)

	history := &fakeHistory{
		counts: map[string]int{okDir: 4},
		last:   map[string]time.Time{},
		errs:   map[string]error{brokenDir: errors.New("git blew up")},
	}

	// One broken repo does not block repair of the others
	require.True(t, r.RepairHistory(context.Background(), history))

	got, _ := r.Get("/gone/forever")
	require.Equal(t, 9, got.BackupCount)
	got, _ = r.Get(brokenDir)
	require.Equal(t, 9, got.BackupCount)
	got, _ = r.Get(okDir)
	require.Equal(t, 4, got.BackupCount)
}

func TestRepairHistory_CorrectsFutureTimestamp(t *testing.T) {
	dir := existingDir(t)
	r := newTestRegistry(t)

	// Recorded later than the actual last commit, e.g. after a manual
	// state edit; repaired back to ground truth
	recorded := time.Now()
	rec := NewRecord(dir, "a")
	rec.BackupCount = 3
	rec.LastBackup = &recorded
	r.Upsert(rec)

	actual := recorded.Add(-time.Hour).Truncate(time.Second)
	history := &fakeHistory{
		counts: map[string]int{dir: 3},
		last:   map[string]time.Time{dir: actual},
	}

	require.True(t, r.RepairHistory(context.Background(), history))

	got, _ := r.Get(dir)
	require.True(t, got.LastBackup.Equal(actual))
}

func TestRepairHistory_NoChanges(t *testing.T) {
	dir := existingDir(t)
	r := newTestRegistry(t)

	when := time.Now()
	rec := NewRecord(dir, "a")
	rec.BackupCount = 3
	rec.LastBackup = &when
	r.Upsert(rec)

	history := &fakeHistory{
		counts: map[string]int{dir: 3},
		last:   map[string]time.Time{dir: when},
	}

	require.False(t, r.RepairHistory(context.Background(), history))
}
