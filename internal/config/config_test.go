package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	require.Equal(t, 24*time.Hour, cfg.Daemon.BackupInterval)
	require.Equal(t, 30*time.Second, cfg.Daemon.SettleDelay)
	require.Equal(t, int64(1024), cfg.Detection.MinSizeBytes)
	require.Contains(t, cfg.Detection.ProjectIndicators, "go.mod")
	require.Contains(t, cfg.Detection.IgnorePatterns, "node_modules")
	require.True(t, cfg.Notifications.Enabled)
	require.Equal(t, CurrentVersion, cfg.Version)

	// Defaults alone are not a runnable config
	require.ErrorIs(t, cfg.Validate(), ErrNoWatchedPaths)
}

func TestLoad_WatchedPaths(t *testing.T) {
	root := t.TempDir()
	path := writeConfig(t, `
version: 2
daemon:
  backup_interval: 6h
  settle_delay: 10s
watched_paths:
  - path: `+root+`
    label: personal
    account:
      username: alice
      default_visibility: public
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, 6*time.Hour, cfg.Daemon.BackupInterval)
	require.Len(t, cfg.WatchedPaths, 1)

	wp := cfg.WatchedPaths[0]
	require.Equal(t, "alice", wp.Account.Username)
	require.Equal(t, "public", wp.Account.DefaultVisibility)
	require.Equal(t, "main", wp.Account.DefaultBranch)
	require.Equal(t, "alice@users.noreply.github.com", wp.Account.AuthorEmail())
}

func TestValidate_Errors(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(nested, 0o755))

	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name:    "no watched paths",
			cfg:     Config{},
			wantErr: ErrNoWatchedPaths,
		},
		{
			name: "missing username",
			cfg: Config{WatchedPaths: []WatchedPath{
				{Path: root, Account: Account{}},
			}},
			wantErr: ErrMissingUsername,
		},
		{
			name: "bad visibility",
			cfg: Config{WatchedPaths: []WatchedPath{
				{Path: root, Account: Account{Username: "a", DefaultVisibility: "internal"}},
			}},
			wantErr: ErrInvalidVisibility,
		},
		{
			name: "missing root",
			cfg: Config{WatchedPaths: []WatchedPath{
				{Path: filepath.Join(root, "nope"), Account: Account{Username: "a"}},
			}},
			wantErr: ErrWatchedPathMissing,
		},
		{
			name: "nested roots",
			cfg: Config{WatchedPaths: []WatchedPath{
				{Path: root, Account: Account{Username: "a"}},
				{Path: nested, Account: Account{Username: "b"}},
			}},
			wantErr: ErrOverlappingRoots,
		},
		{
			name: "duplicate roots",
			cfg: Config{WatchedPaths: []WatchedPath{
				{Path: root, Account: Account{Username: "a"}},
				{Path: root, Account: Account{Username: "b"}},
			}},
			wantErr: ErrOverlappingRoots,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.cfg.Validate(), tt.wantErr)
		})
	}
}

func TestValidate_DefaultsVisibilityAndBranch(t *testing.T) {
	root := t.TempDir()
	cfg := Config{WatchedPaths: []WatchedPath{
		{Path: root, Account: Account{Username: "a"}},
	}}

	require.NoError(t, cfg.Validate())
	require.Equal(t, "private", cfg.WatchedPaths[0].Account.DefaultVisibility)
	require.Equal(t, "main", cfg.WatchedPaths[0].Account.DefaultBranch)
}

func TestAccount_Owner(t *testing.T) {
	a := Account{Username: "alice"}
	require.Equal(t, "alice", a.Owner())

	a.Organization = "acme"
	require.Equal(t, "alice", a.Owner())

	a.CreateOrgRepos = true
	require.Equal(t, "acme", a.Owner())
}

func TestMigrate_SingleAccountLayout(t *testing.T) {
	root := t.TempDir()
	path := writeConfig(t, `
github:
  username: bob
  default_visibility: private
  use_gh_cli: true
paths:
  code_folder: `+root+`
git:
  default_branch: master
daemon:
  backup_interval: 3600
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Len(t, cfg.WatchedPaths, 1)
	wp := cfg.WatchedPaths[0]
	require.Equal(t, "bob", wp.Account.Username)
	require.True(t, wp.Account.UseGHCLI)
	require.Equal(t, "master", wp.Account.DefaultBranch)
	require.Equal(t, time.Hour, cfg.Daemon.BackupInterval)
	require.Equal(t, CurrentVersion, cfg.Version)

	// The migrated file is rewritten in the current format
	again, err := Load(path)
	require.NoError(t, err)
	require.Len(t, again.WatchedPaths, 1)
	require.Equal(t, "bob", again.WatchedPaths[0].Account.Username)
}

func TestMigrate_SecondsIntervals(t *testing.T) {
	root := t.TempDir()
	path := writeConfig(t, `
daemon:
  backup_interval: 86400
  settle_delay: 30
watched_paths:
  - path: `+root+`
    account:
      username: carol
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 24*time.Hour, cfg.Daemon.BackupInterval)
	require.Equal(t, 30*time.Second, cfg.Daemon.SettleDelay)
}

func TestMigrate_CurrentFormatUntouched(t *testing.T) {
	root := t.TempDir()
	path := writeConfig(t, `
version: 2
watched_paths:
  - path: `+root+`
    account:
      username: dave
`)

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = Load(path)
	require.NoError(t, err)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, before, after)
}
