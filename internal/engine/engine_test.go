package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/2003nayan/automated-github-push/internal/config"
	"github.com/2003nayan/automated-github-push/internal/gitops"
	"github.com/2003nayan/automated-github-push/internal/prefs"
	"github.com/2003nayan/automated-github-push/internal/registry"
)

type repoState struct {
	isRepo    bool
	hasRemote bool
	remoteURL string
	pending   bool
	commits   int
	pushed    int
	last      *gitops.CommitInfo
}

// fakeGit simulates local repository state per directory.
type fakeGit struct {
	mu         sync.Mutex
	repos      map[string]*repoState
	syncErr    map[string]error
	identities map[string]string
}

func newFakeGit() *fakeGit {
	return &fakeGit{
		repos:      make(map[string]*repoState),
		syncErr:    make(map[string]error),
		identities: make(map[string]string),
	}
}

func (g *fakeGit) state(dir string) *repoState {
	st, ok := g.repos[dir]
	if !ok {
		st = &repoState{}
		g.repos[dir] = st
	}
	return st
}

func (g *fakeGit) IsRepository(_ context.Context, dir string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state(dir).isRepo
}

func (g *fakeGit) HasRemote(_ context.Context, dir string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state(dir).hasRemote
}

func (g *fakeGit) RemoteURL(_ context.Context, dir string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state(dir).remoteURL, nil
}

func (g *fakeGit) AddRemote(_ context.Context, dir, url string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	st := g.state(dir)
	st.hasRemote = true
	st.remoteURL = url
	return nil
}

func (g *fakeGit) Init(_ context.Context, dir, _, _, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	st := g.state(dir)
	st.isRepo = true
	st.commits = 1
	st.pending = false
	return nil
}

func (g *fakeGit) HasPendingChanges(_ context.Context, dir string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state(dir).pending, nil
}

func (g *fakeGit) Sync(_ context.Context, dir string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.syncErr[dir]; err != nil {
		return err
	}
	st := g.state(dir)
	if st.pending {
		st.commits++
		st.pending = false
	}
	st.pushed = st.commits
	return nil
}

func (g *fakeGit) SetLocalIdentity(_ context.Context, dir, username, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.identities[dir] = username
	return nil
}

func (g *fakeGit) LastCommitInfo(_ context.Context, dir string) (*gitops.CommitInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state(dir).last, nil
}

func (g *fakeGit) CommitCount(_ context.Context, dir string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state(dir).commits, nil
}

// seedRepo makes dir look like a repository that existed before the
// engine saw it. An empty url means no remote is configured yet.
func (g *fakeGit) seedRepo(dir, url string, commits int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	st := g.state(dir)
	st.isRepo = true
	st.hasRemote = url != ""
	st.remoteURL = url
	st.commits = commits
	if st.hasRemote {
		st.pushed = commits
	}
}

func (g *fakeGit) setPending(dir string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state(dir).pending = true
}

func (g *fakeGit) pushedCommits(dir string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state(dir).pushed
}

// fakeHosting simulates the GitHub side.
type fakeHosting struct {
	mu        sync.Mutex
	authFail  map[string]bool
	existing  map[string]bool
	created   []string
	deleted   []string
	createErr error
	deleteErr error
}

func newFakeHosting() *fakeHosting {
	return &fakeHosting{
		authFail: make(map[string]bool),
		existing: make(map[string]bool),
	}
}

func (h *fakeHosting) IsAuthenticated(_ context.Context, account config.Account) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.authFail[account.Username]
}

func (h *fakeHosting) EnsureRepoExists(_ context.Context, name, _ string, account config.Account) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.createErr != nil {
		return "", h.createErr
	}
	key := account.Owner() + "/" + name
	url := fmt.Sprintf("https://github.com/%s.git", key)
	if h.existing[key] {
		return url, nil
	}
	h.existing[key] = true
	h.created = append(h.created, key)
	return url, nil
}

func (h *fakeHosting) DeleteRepo(_ context.Context, name string, account config.Account) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.deleteErr != nil {
		return h.deleteErr
	}
	h.deleted = append(h.deleted, account.Owner()+"/"+name)
	return nil
}

type fixture struct {
	eng     *Engine
	cfg     *config.Config
	git     *fakeGit
	hosting *fakeHosting
	reg     *registry.Registry
	prefs   *prefs.Store
	root    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	root := t.TempDir()
	stateDir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := &config.Config{
		Version: config.CurrentVersion,
		Daemon: config.Daemon{
			BackupInterval: time.Hour,
			SettleDelay:    10 * time.Millisecond,
			StateFile:      filepath.Join(stateDir, "state.json"),
			PrefsFile:      filepath.Join(stateDir, "prefs.bolt"),
		},
		WatchedPaths: []config.WatchedPath{
			{
				Path:  root,
				Label: "test",
				Account: config.Account{
					Username:          "alice",
					DefaultVisibility: "private",
					DefaultBranch:     "main",
				},
			},
		},
		Detection: config.Detection{
			MinSizeBytes:      64,
			ProjectIndicators: []string{"go.mod", "package.json"},
			CodeExtensions:    []string{".go", ".py"},
			IgnorePatterns:    []string{"node_modules"},
		},
	}
	require.NoError(t, cfg.Validate())

	reg := registry.New(cfg.Daemon.StateFile, logger)
	require.NoError(t, reg.Load())

	store, err := prefs.Open(cfg.Daemon.PrefsFile)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	git := newFakeGit()
	hosting := newFakeHosting()

	eng := New(Options{
		Config:   cfg,
		Registry: reg,
		Prefs:    store,
		Git:      git,
		Hosting:  hosting,
		Logger:   logger,
	})

	return &fixture{
		eng: eng, cfg: cfg, git: git, hosting: hosting,
		reg: reg, prefs: store, root: root,
	}
}

// newProjectDir creates a qualifying project folder under the watched root.
func (f *fixture) newProjectDir(t *testing.T, name string) string {
	t.Helper()
	dir := filepath.Join(f.root, name)
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module "+name+"\n"), 0o644))
	return dir
}

func TestProcessFolder_NewProjectEndToEnd(t *testing.T) {
	f := newFixture(t)
	dir := f.newProjectDir(t, "api")

	err := f.eng.processFolder(context.Background(), dir, &f.cfg.WatchedPaths[0])
	require.NoError(t, err)

	require.True(t, f.git.IsRepository(context.Background(), dir))
	require.Equal(t, []string{"alice/api"}, f.hosting.created)
	require.Equal(t, 1, f.git.pushedCommits(dir))

	rec, ok := f.reg.Get(dir)
	require.True(t, ok)
	require.Equal(t, "alice", rec.OwnerAccount)
	require.True(t, rec.HasRemote)
	require.Equal(t, "https://github.com/alice/api.git", rec.RemoteURL)
	require.Equal(t, registry.StatusSynced, rec.Status)
	require.Equal(t, 1, rec.BackupCount)
	require.Equal(t, 1, f.reg.Stats().ReposCreated)
	require.Equal(t, 1, f.reg.Stats().SuccessfulBackups)
}

func TestProcessFolder_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	dir := f.newProjectDir(t, "api")
	wp := &f.cfg.WatchedPaths[0]

	require.NoError(t, f.eng.processFolder(context.Background(), dir, wp))
	require.NoError(t, f.eng.processFolder(context.Background(), dir, wp))

	require.Len(t, f.hosting.created, 1)
	require.Equal(t, 1, f.reg.Len())
	require.Equal(t, 1, f.reg.Stats().ReposCreated)
}

func TestProcessFolder_RemoteCreationFailure(t *testing.T) {
	f := newFixture(t)
	dir := f.newProjectDir(t, "api")
	f.hosting.createErr = errors.New("api rate limited")

	err := f.eng.processFolder(context.Background(), dir, &f.cfg.WatchedPaths[0])
	require.Error(t, err)

	// No record sticks around for a folder that never got tracked, so the
	// next attempt starts clean
	require.Equal(t, 0, f.reg.Len())

	f.hosting.createErr = nil
	require.NoError(t, f.eng.processFolder(context.Background(), dir, &f.cfg.WatchedPaths[0]))
	require.Equal(t, 1, f.reg.Len())
}

func TestProcessFolder_PreexistingRepoGetsAccountIdentity(t *testing.T) {
	f := newFixture(t)
	dir := f.newProjectDir(t, "api")
	f.git.seedRepo(dir, "", 2)

	require.NoError(t, f.eng.processFolder(context.Background(), dir, &f.cfg.WatchedPaths[0]))

	// The repository predates tracking, so its author config is pinned to
	// the owning account before the remote is wired up
	require.Equal(t, "alice", f.git.identities[dir])

	rec, ok := f.reg.Get(dir)
	require.True(t, ok)
	require.True(t, rec.HasRemote)
	require.Equal(t, registry.StatusSynced, rec.Status)
	require.Equal(t, 2, f.git.pushedCommits(dir))
}

func TestInitialScan_SuppressesOnlyPreexistingRemoteRepos(t *testing.T) {
	f := newFixture(t)
	old := f.newProjectDir(t, "preexisting")
	f.git.seedRepo(old, "https://github.com/alice/preexisting.git", 3)
	fresh := f.newProjectDir(t, "fresh")

	f.eng.initialScan = true
	f.eng.scanRoots(context.Background())
	f.eng.initialScan = false

	// A repository that already had a remote is registered but left alone
	// until the first sweep
	rec, ok := f.reg.Get(old)
	require.True(t, ok)
	require.True(t, rec.HasRemote)
	require.Equal(t, registry.StatusTracked, rec.Status)
	require.Equal(t, 0, rec.BackupCount)

	// A folder the scan just initialized is pushed right away so its
	// remote never sits empty
	rec, ok = f.reg.Get(fresh)
	require.True(t, ok)
	require.Equal(t, registry.StatusSynced, rec.Status)
	require.Equal(t, 1, rec.BackupCount)
	require.Equal(t, 1, f.git.pushedCommits(fresh))

	// The preexisting repository is clean, so the sweep records no_changes
	// without inventing a backup
	result := f.eng.Sweep(context.Background())
	require.Equal(t, 2, result.NoChanges)
	require.Equal(t, 0, result.Synced)

	rec, _ = f.reg.Get(old)
	require.Equal(t, registry.StatusNoChanges, rec.Status)
	require.Equal(t, 0, rec.BackupCount)
	require.Nil(t, rec.LastBackup)
}

func TestScanRoots_SkipsIgnoredAndNonProjects(t *testing.T) {
	f := newFixture(t)
	f.newProjectDir(t, "real")

	require.NoError(t, os.Mkdir(filepath.Join(f.root, "node_modules"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(f.root, ".hidden"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(f.root, "empty"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "loose.txt"), []byte("x"), 0o644))

	f.eng.scanRoots(context.Background())

	require.Equal(t, 1, f.reg.Len())
	_, ok := f.reg.FindByName("real")
	require.True(t, ok)
}

func TestSweep_StatesAndCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wp := &f.cfg.WatchedPaths[0]

	changed := f.newProjectDir(t, "changed")
	clean := f.newProjectDir(t, "clean")
	failing := f.newProjectDir(t, "failing")
	disabled := f.newProjectDir(t, "disabled")
	gone := f.newProjectDir(t, "gone")

	for _, dir := range []string{changed, clean, failing, disabled, gone} {
		require.NoError(t, f.eng.processFolder(ctx, dir, wp))
	}

	f.git.setPending(changed)
	f.git.setPending(failing)
	f.git.syncErr[failing] = errors.New("remote hung up")
	require.NoError(t, f.prefs.Disable(disabled, "on hold"))
	require.NoError(t, os.RemoveAll(gone))

	before := time.Now()
	result := f.eng.Sweep(ctx)

	require.Equal(t, 5, result.Checked)
	require.Equal(t, 1, result.Synced)
	require.Equal(t, 1, result.NoChanges)
	require.Equal(t, 1, result.Failed)
	require.Equal(t, 1, result.Missing)
	require.Equal(t, 1, result.Skipped)

	// Every record's last check moves forward, disabled and missing included
	for _, rec := range f.reg.List() {
		require.False(t, rec.LastCheck.Before(before), "last check not updated for %s", rec.Name)
	}

	rec, _ := f.reg.Get(changed)
	require.Equal(t, registry.StatusSynced, rec.Status)
	require.Equal(t, 2, rec.BackupCount)

	rec, _ = f.reg.Get(clean)
	require.Equal(t, registry.StatusNoChanges, rec.Status)

	rec, _ = f.reg.Get(failing)
	require.Equal(t, registry.StatusFailed, rec.Status)
	require.Contains(t, rec.LastError, "remote hung up")

	rec, _ = f.reg.Get(gone)
	require.Equal(t, registry.StatusMissing, rec.Status)

	require.NotNil(t, f.reg.Stats().LastSweep)
}

func TestSweep_FailureDoesNotBlockOthers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wp := &f.cfg.WatchedPaths[0]

	bad := f.newProjectDir(t, "bad")
	good := f.newProjectDir(t, "good")
	require.NoError(t, f.eng.processFolder(ctx, bad, wp))
	require.NoError(t, f.eng.processFolder(ctx, good, wp))

	f.git.setPending(bad)
	f.git.setPending(good)
	f.git.syncErr[bad] = errors.New("conflict")

	result := f.eng.Sweep(ctx)
	require.Equal(t, 1, result.Failed)
	require.Equal(t, 1, result.Synced)
}

func TestSweep_TrackedFolderOutsideWatchedRoots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A folder tracked under an earlier config but no longer inside any
	// watched root: routing fails, so the owner recorded on the record is
	// what keeps it backed up
	outside := filepath.Join(t.TempDir(), "moved")
	require.NoError(t, os.Mkdir(outside, 0o755))
	f.git.seedRepo(outside, "https://github.com/alice/moved.git", 2)

	rec := registry.NewRecord(outside, "alice")
	rec.HasRemote = true
	rec.RemoteURL = "https://github.com/alice/moved.git"
	f.reg.Upsert(rec)

	f.git.setPending(outside)
	result := f.eng.Sweep(ctx)
	require.Equal(t, 1, result.Synced)
	require.Equal(t, 0, result.Failed)

	after, _ := f.reg.Get(outside)
	require.Equal(t, registry.StatusSynced, after.Status)
	require.Equal(t, 1, after.BackupCount)

	// Manual backup resolves the same way
	f.git.setPending(outside)
	require.NoError(t, f.eng.Backup(ctx, "moved"))
	after, _ = f.reg.Get(outside)
	require.Equal(t, 2, after.BackupCount)
}

func TestBackup_Manual(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dir := f.newProjectDir(t, "api")
	require.NoError(t, f.eng.processFolder(ctx, dir, &f.cfg.WatchedPaths[0]))

	// Clean tree: plain backup is a no-op
	require.NoError(t, f.eng.Backup(ctx, "api"))
	rec, _ := f.reg.Get(dir)
	require.Equal(t, registry.StatusNoChanges, rec.Status)
	require.Equal(t, 1, rec.BackupCount)

	// Dirty tree: backup by name syncs
	f.git.setPending(dir)
	require.NoError(t, f.eng.Backup(ctx, "api"))
	rec, _ = f.reg.Get(dir)
	require.Equal(t, registry.StatusSynced, rec.Status)
	require.Equal(t, 2, rec.BackupCount)

	// Unknown targets are reported
	require.ErrorIs(t, f.eng.Backup(ctx, "nope"), ErrUnknownTarget)
}

func TestForceBackup_CleanTreeIsNoChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dir := f.newProjectDir(t, "api")
	require.NoError(t, f.eng.processFolder(ctx, dir, &f.cfg.WatchedPaths[0]))

	rec, _ := f.reg.Get(dir)
	firstBackup := rec.LastBackup
	require.NotNil(t, firstBackup)

	// Force means outside the schedule, not past the change check: a tree
	// with nothing to commit leaves the backup history untouched
	require.NoError(t, f.eng.ForceBackup(ctx, "api"))
	rec, _ = f.reg.Get(dir)
	require.Equal(t, registry.StatusNoChanges, rec.Status)
	require.Equal(t, 1, rec.BackupCount)
	require.Equal(t, firstBackup, rec.LastBackup)
	require.Equal(t, 1, f.git.pushedCommits(dir))

	// A dirty tree still syncs
	f.git.setPending(dir)
	require.NoError(t, f.eng.ForceBackup(ctx, "api"))
	rec, _ = f.reg.Get(dir)
	require.Equal(t, registry.StatusSynced, rec.Status)
	require.Equal(t, 2, rec.BackupCount)
}

func TestAdd_OutsideWatchedPaths(t *testing.T) {
	f := newFixture(t)
	outside := t.TempDir()

	require.ErrorIs(t, f.eng.Add(context.Background(), outside, ""), ErrOutsideWatchedPaths)
}

func TestAdd_BypassesHeuristicsAndClearsDisable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Empty folder would never pass detection
	dir := filepath.Join(f.root, "scratch")
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.NoError(t, f.prefs.Disable(dir, "was annoying"))

	require.NoError(t, f.eng.Add(ctx, dir, ""))

	rec, ok := f.reg.FindByName("scratch")
	require.True(t, ok)
	require.Equal(t, "alice", rec.OwnerAccount)
	disabled, err := f.prefs.IsDisabled(dir)
	require.NoError(t, err)
	require.False(t, disabled)
}

func TestAdd_UnknownAccountOverride(t *testing.T) {
	f := newFixture(t)
	dir := filepath.Join(f.root, "scratch")
	require.NoError(t, os.Mkdir(dir, 0o755))

	err := f.eng.Add(context.Background(), dir, "nobody")
	require.ErrorIs(t, err, config.ErrAccountNotFound)
}

func TestRemove_KeepsFolderAndRemote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dir := f.newProjectDir(t, "api")
	require.NoError(t, f.eng.processFolder(ctx, dir, &f.cfg.WatchedPaths[0]))

	require.NoError(t, f.eng.Remove("api"))

	require.Equal(t, 0, f.reg.Len())
	require.DirExists(t, dir)
	require.Empty(t, f.hosting.deleted)
}

func TestDelete_AllTargets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dir := f.newProjectDir(t, "api")
	require.NoError(t, f.eng.processFolder(ctx, dir, &f.cfg.WatchedPaths[0]))

	result, err := f.eng.Delete(ctx, "api", DeleteOptions{DeleteGitHub: true, DeleteLocal: true})
	require.NoError(t, err)

	require.True(t, result.GitHubDeleted)
	require.True(t, result.LocalDeleted)
	require.True(t, result.TrackingRemoved)
	require.Equal(t, []string{"alice/api"}, f.hosting.deleted)
	require.NoDirExists(t, dir)
	require.Equal(t, 0, f.reg.Len())
}

func TestDelete_PartialFailureStillRemovesTracking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dir := f.newProjectDir(t, "api")
	require.NoError(t, f.eng.processFolder(ctx, dir, &f.cfg.WatchedPaths[0]))

	f.hosting.deleteErr = errors.New("403 token lacks delete_repo")

	result, err := f.eng.Delete(ctx, "api", DeleteOptions{DeleteGitHub: true, DeleteLocal: true})
	require.Error(t, err)

	require.False(t, result.GitHubDeleted)
	require.True(t, result.LocalDeleted)
	require.True(t, result.TrackingRemoved)
	require.Len(t, result.Errors, 1)
}

func TestCheckAuth_FailsClosed(t *testing.T) {
	f := newFixture(t)
	f.hosting.authFail["alice"] = true

	err := f.eng.checkAuth(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "alice")
}

func TestList_AccountFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.eng.processFolder(ctx, f.newProjectDir(t, "one"), &f.cfg.WatchedPaths[0]))
	require.NoError(t, f.eng.processFolder(ctx, f.newProjectDir(t, "two"), &f.cfg.WatchedPaths[0]))

	require.Len(t, f.eng.List(""), 2)
	require.Len(t, f.eng.List("alice"), 2)
	require.Empty(t, f.eng.List("bob"))
}

func TestStatusReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dir := f.newProjectDir(t, "api")
	require.NoError(t, f.eng.processFolder(ctx, dir, &f.cfg.WatchedPaths[0]))
	require.NoError(t, f.prefs.Disable(dir, ""))

	report := f.eng.Status()
	require.Equal(t, 1, report.Tracked)
	require.Equal(t, 1, report.Disabled)
	require.Equal(t, 1, report.ByStatus["synced"])
	require.Len(t, report.WatchedPaths, 1)
}

func TestStatePersistsAcrossRestart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dir := f.newProjectDir(t, "api")
	require.NoError(t, f.eng.processFolder(ctx, dir, &f.cfg.WatchedPaths[0]))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reloaded := registry.New(f.cfg.Daemon.StateFile, logger)
	require.NoError(t, reloaded.Load())

	rec, ok := reloaded.Get(dir)
	require.True(t, ok)
	require.Equal(t, registry.StatusSynced, rec.Status)
	require.Equal(t, 1, rec.BackupCount)
}
