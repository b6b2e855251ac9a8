// Package config loads and validates the daemon configuration: the set of
// watched paths with their owning GitHub accounts, project detection rules,
// and daemon scheduling settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/2003nayan/automated-github-push/internal/params"
	"github.com/spf13/viper"
)

// CurrentVersion is the config schema version written by this build.
const CurrentVersion = 2

var (
	ErrNoWatchedPaths     = errors.New("config: no watched paths configured")
	ErrOverlappingRoots   = errors.New("config: watched path roots overlap")
	ErrAccountNotFound    = errors.New("config: account not found")
	ErrInvalidVisibility  = errors.New("config: visibility must be private or public")
	ErrMissingUsername    = errors.New("config: watched path account has no username")
	ErrWatchedPathMissing = errors.New("config: watched path does not exist")
)

// Account identifies a GitHub identity that owns repositories.
type Account struct {
	// Username is the GitHub login the repositories belong to
	Username string `mapstructure:"username" yaml:"username" json:"username"`

	// Email used for git author configuration. Defaults to the GitHub
	// noreply address for Username.
	Email string `mapstructure:"email" yaml:"email,omitempty" json:"email,omitempty"`

	// TokenEnvVar names an environment variable holding the API token.
	// Preferred for multi-account setups.
	TokenEnvVar string `mapstructure:"token_env_var" yaml:"token_env_var,omitempty" json:"token_env_var,omitempty"`

	// UseGHCLI falls back to the gh CLI's stored credentials when no
	// explicit token is available
	UseGHCLI bool `mapstructure:"use_gh_cli" yaml:"use_gh_cli" json:"use_gh_cli"`

	// DefaultVisibility is "private" or "public" for newly created repos
	DefaultVisibility string `mapstructure:"default_visibility" yaml:"default_visibility" json:"default_visibility"`

	// Organization, when CreateOrgRepos is set, owns newly created repos
	// instead of the user account
	Organization   string `mapstructure:"organization" yaml:"organization,omitempty" json:"organization,omitempty"`
	CreateOrgRepos bool   `mapstructure:"create_org_repos" yaml:"create_org_repos" json:"create_org_repos"`

	// DefaultBranch is the branch new repositories are initialized with
	DefaultBranch string `mapstructure:"default_branch" yaml:"default_branch" json:"default_branch"`
}

// Owner returns the GitHub namespace repositories are created under.
func (a Account) Owner() string {
	if a.CreateOrgRepos && a.Organization != "" {
		return a.Organization
	}
	return a.Username
}

// AuthorEmail returns the configured email, or the noreply default.
func (a Account) AuthorEmail() string {
	if a.Email != "" {
		return a.Email
	}
	return fmt.Sprintf("%s@users.noreply.github.com", a.Username)
}

// WatchedPath is an operator-configured root directory plus the account
// identity that owns everything created under it.
type WatchedPath struct {
	// Path is the root directory being watched
	Path string `mapstructure:"path" yaml:"path" json:"path"`

	// Label is a human-readable name for status output
	Label string `mapstructure:"label" yaml:"label,omitempty" json:"label,omitempty"`

	Account Account `mapstructure:"account" yaml:"account" json:"account"`
}

// Root returns the watched path with the home directory expanded and
// symlinks resolved where possible.
func (w WatchedPath) Root() string {
	return normalizePath(w.Path)
}

// Detection holds the project-validity heuristics.
type Detection struct {
	// MinSizeBytes is the minimum folder size for the code-files rule
	MinSizeBytes int64 `mapstructure:"min_size_bytes" yaml:"min_size_bytes" json:"min_size_bytes"`

	// ProjectIndicators are filenames whose presence marks a project
	ProjectIndicators []string `mapstructure:"project_indicators" yaml:"project_indicators" json:"project_indicators"`

	// CodeExtensions are source file extensions used for detection
	CodeExtensions []string `mapstructure:"code_extensions" yaml:"code_extensions" json:"code_extensions"`

	// IgnorePatterns are substrings of folder names to skip entirely
	IgnorePatterns []string `mapstructure:"ignore_patterns" yaml:"ignore_patterns" json:"ignore_patterns"`
}

// Daemon holds scheduling and persistence settings.
type Daemon struct {
	// BackupInterval is the time between periodic sweeps
	BackupInterval time.Duration `mapstructure:"backup_interval" yaml:"backup_interval" json:"backup_interval"`

	// SettleDelay is how long the watcher waits after a new folder
	// appears before validating it
	SettleDelay time.Duration `mapstructure:"settle_delay" yaml:"settle_delay" json:"settle_delay"`

	// StateFile is the registry snapshot location
	StateFile string `mapstructure:"state_file" yaml:"state_file" json:"state_file"`

	// PrefsFile is the operator-preferences database location
	PrefsFile string `mapstructure:"prefs_file" yaml:"prefs_file" json:"prefs_file"`
}

// Notifications controls the event dispatcher.
type Notifications struct {
	Enabled          bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	OnError          bool `mapstructure:"on_error" yaml:"on_error" json:"on_error"`
	OnNewRepo        bool `mapstructure:"on_new_repo" yaml:"on_new_repo" json:"on_new_repo"`
	OnBackupComplete bool `mapstructure:"on_backup_complete" yaml:"on_backup_complete" json:"on_backup_complete"`
}

// Config is the full daemon configuration.
type Config struct {
	Version       int           `mapstructure:"version" yaml:"version" json:"version"`
	Daemon        Daemon        `mapstructure:"daemon" yaml:"daemon" json:"daemon"`
	WatchedPaths  []WatchedPath `mapstructure:"watched_paths" yaml:"watched_paths" json:"watched_paths"`
	Detection     Detection     `mapstructure:"project_detection" yaml:"project_detection" json:"project_detection"`
	Notifications Notifications `mapstructure:"notifications" yaml:"notifications" json:"notifications"`
}

// DefaultConfigFile returns the standard config file location.
func DefaultConfigFile() string {
	return filepath.Join(params.AppdataDir, "config.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("daemon.backup_interval", "24h")
	v.SetDefault("daemon.settle_delay", "30s")
	v.SetDefault("daemon.state_file", params.StateFile())
	v.SetDefault("daemon.prefs_file", params.PrefsFile())

	v.SetDefault("project_detection.min_size_bytes", 1024)
	v.SetDefault("project_detection.project_indicators", []string{
		"package.json", "requirements.txt", "Cargo.toml",
		"go.mod", "pom.xml", "Gemfile", "composer.json",
		"setup.py", "pyproject.toml", "README.md", "Makefile",
	})
	v.SetDefault("project_detection.code_extensions", []string{
		".py", ".js", ".ts", ".jsx", ".tsx", ".java", ".cpp",
		".c", ".h", ".go", ".rs", ".php", ".rb", ".swift",
		".kt", ".cs", ".scala", ".clj", ".hs", ".elm",
	})
	v.SetDefault("project_detection.ignore_patterns", []string{
		"node_modules", "venv", ".venv", "__pycache__",
		".cache", "dist", "build", "target",
		".idea", ".vscode", ".DS_Store",
	})

	v.SetDefault("notifications.enabled", true)
	v.SetDefault("notifications.on_error", true)
	v.SetDefault("notifications.on_new_repo", true)
	v.SetDefault("notifications.on_backup_complete", false)
}

// Load reads the configuration from path, applying defaults and migrating
// legacy formats. A missing file yields the defaults (which will then fail
// validation for lack of watched paths).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	migrated, err := migrate(v)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Version = CurrentVersion

	if migrated {
		// Persist the migrated form so old keys are rewritten once
		if err := cfg.SaveTo(path); err != nil {
			return nil, fmt.Errorf("config: save migrated config: %w", err)
		}
	}

	return &cfg, nil
}

// SaveTo writes the configuration as YAML.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := c.Render()
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks the configuration and returns the first problem found.
// Watched roots must exist and must not overlap; every account needs a
// username and a valid visibility.
func (c *Config) Validate() error {
	if len(c.WatchedPaths) == 0 {
		return ErrNoWatchedPaths
	}

	roots := make([]string, 0, len(c.WatchedPaths))
	for i := range c.WatchedPaths {
		wp := &c.WatchedPaths[i]

		if wp.Account.Username == "" {
			return fmt.Errorf("%w: %s", ErrMissingUsername, wp.Path)
		}

		switch wp.Account.DefaultVisibility {
		case "", "private", "public":
			if wp.Account.DefaultVisibility == "" {
				wp.Account.DefaultVisibility = "private"
			}
		default:
			return fmt.Errorf("%w: %q", ErrInvalidVisibility, wp.Account.DefaultVisibility)
		}

		if wp.Account.DefaultBranch == "" {
			wp.Account.DefaultBranch = "main"
		}

		root := wp.Root()
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("%w: %s", ErrWatchedPathMissing, root)
		}

		roots = append(roots, root)
	}

	// Overlapping roots would make account routing ambiguous, so they are
	// rejected outright rather than resolved by configuration order.
	for i := range roots {
		for j := range roots {
			if i == j {
				continue
			}
			if roots[i] == roots[j] || isUnder(roots[i], roots[j]) {
				return fmt.Errorf("%w: %s and %s", ErrOverlappingRoots, roots[i], roots[j])
			}
		}
	}

	return nil
}

// AccountByName finds the watched path owned by the given username.
func (c *Config) AccountByName(username string) (*WatchedPath, error) {
	for i := range c.WatchedPaths {
		if c.WatchedPaths[i].Account.Username == username {
			return &c.WatchedPaths[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, username)
}

// normalizePath expands ~, makes the path absolute and resolves symlinks
// where the target exists.
func normalizePath(p string) string {
	if strings.HasPrefix(p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}

	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}

	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}

	return abs
}

// isUnder reports whether path is inside root.
func isUnder(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != "."
}
