package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Historical config formats are upgraded at load time, one migration per
// schema version, applied in sequence. Version 0 is the original
// single-account layout (a top-level github block plus paths.code_folder);
// version 1 introduced watched_paths but stored intervals as integer
// seconds. Migration happens once: the loader rewrites the file in the
// current format after a successful upgrade.

type migration struct {
	from  int
	apply func(v *viper.Viper) error
}

var migrations = []migration{
	{from: 0, apply: migrateSingleAccount},
	{from: 1, apply: migrateSecondsIntervals},
}

// detectVersion infers the schema version of a loaded file. Files that
// predate the version key are classified by shape.
func detectVersion(v *viper.Viper) int {
	if v.IsSet("version") {
		return v.GetInt("version")
	}
	if v.IsSet("watched_paths") {
		return 1
	}
	if v.IsSet("github.username") || v.IsSet("paths.code_folder") {
		return 0
	}
	return CurrentVersion
}

// migrate upgrades legacy formats in place. Returns true when anything
// changed so the caller can persist the rewritten file.
func migrate(v *viper.Viper) (bool, error) {
	version := detectVersion(v)
	if version >= CurrentVersion {
		return false, nil
	}

	for _, m := range migrations {
		if version != m.from {
			continue
		}
		if err := m.apply(v); err != nil {
			return false, fmt.Errorf("config: migrate from version %d: %w", m.from, err)
		}
		version = m.from + 1
	}

	if version != CurrentVersion {
		return false, fmt.Errorf("config: unsupported schema version %d", version)
	}

	v.Set("version", CurrentVersion)
	return true, nil
}

// migrateSingleAccount converts the original github/paths blocks into a
// single watched_paths entry.
func migrateSingleAccount(v *viper.Viper) error {
	root := v.GetString("paths.code_folder")
	username := v.GetString("github.username")
	if root == "" || username == "" {
		return fmt.Errorf("legacy config missing paths.code_folder or github.username")
	}

	entry := map[string]any{
		"path":  root,
		"label": "default",
		"account": map[string]any{
			"username":           username,
			"use_gh_cli":         v.GetBool("github.use_gh_cli"),
			"default_visibility": v.GetString("github.default_visibility"),
			"organization":       v.GetString("github.organization"),
			"create_org_repos":   v.GetBool("github.create_org_repos"),
			"default_branch":     v.GetString("git.default_branch"),
		},
	}

	v.Set("watched_paths", []map[string]any{entry})
	return nil
}

// migrateSecondsIntervals converts integer-second intervals to durations.
func migrateSecondsIntervals(v *viper.Viper) error {
	for _, key := range []string{"daemon.backup_interval", "daemon.settle_delay"} {
		if !v.IsSet(key) {
			continue
		}
		switch raw := v.Get(key).(type) {
		case int:
			v.Set(key, (time.Duration(raw) * time.Second).String())
		case int64:
			v.Set(key, (time.Duration(raw) * time.Second).String())
		case float64:
			v.Set(key, (time.Duration(raw) * time.Second).String())
		}
	}
	return nil
}
