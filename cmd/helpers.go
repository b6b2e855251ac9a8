package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/2003nayan/automated-github-push/internal/config"
	"github.com/2003nayan/automated-github-push/internal/engine"
	"github.com/2003nayan/automated-github-push/internal/gitops"
	"github.com/2003nayan/automated-github-push/internal/hosting"
	"github.com/2003nayan/automated-github-push/internal/notify"
	"github.com/2003nayan/automated-github-push/internal/prefs"
	"github.com/2003nayan/automated-github-push/internal/registry"
)

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigFile()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildEngine assembles a ready-to-use engine and returns a cleanup
// function that releases its resources. The registry is loaded so one-shot
// commands see current state.
func buildEngine(logger *slog.Logger, asyncNotify bool) (*engine.Engine, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	reg := registry.New(cfg.Daemon.StateFile, logger)
	if err := reg.Load(); err != nil {
		return nil, nil, err
	}

	store, err := prefs.Open(cfg.Daemon.PrefsFile)
	if err != nil {
		return nil, nil, fmt.Errorf("open preferences: %w", err)
	}

	git, err := gitops.NewClient()
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	dispatcher := notify.NewDispatcher(asyncNotify, logger)
	dispatcher.Register(notify.NewLogSender(logger))

	eng := engine.New(engine.Options{
		Config:     cfg,
		Registry:   reg,
		Prefs:      store,
		Git:        git,
		Hosting:    hosting.NewClient(logger),
		Describe:   hosting.DescribeFolder,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	cleanup := func() { _ = store.Close() }
	return eng, cleanup, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Format("2006-01-02 15:04")
}
