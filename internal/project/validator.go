// Package project decides whether a folder is a project worth tracking.
// The checks are pure functions over explicit detection rules so they can
// be used by the scanner, the folder watcher, and one-off commands without
// constructing anything.
package project

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/2003nayan/automated-github-push/internal/config"
)

// sizeScanCap bounds the folder-size walk so huge trees are not scanned in
// full; anything past the cap is treated as substantial.
const sizeScanCap = 100 * 1024 * 1024

// transientNames are folder names that never hold projects.
var transientNames = map[string]struct{}{
	"tmp": {}, "temp": {}, "cache": {}, "logs": {}, "log": {},
	"backup": {}, "backups": {}, "trash": {}, "recycle": {},
}

// ShouldIgnore reports whether dir should be skipped before validation is
// even attempted: hidden folders, configured ignore substrings, and known
// transient names.
func ShouldIgnore(dir string, ignorePatterns []string) bool {
	name := filepath.Base(dir)

	if strings.HasPrefix(name, ".") {
		return true
	}

	lower := strings.ToLower(name)
	for _, pattern := range ignorePatterns {
		if pattern != "" && strings.Contains(lower, strings.ToLower(pattern)) {
			return true
		}
	}

	_, transient := transientNames[lower]
	return transient
}

// IsTrackable reports whether dir qualifies as a project. A folder
// qualifies if it is already a git repository, carries a project indicator
// file, or contains source files together with either enough bytes on disk
// or at least three files.
func IsTrackable(dir string, rules config.Detection) bool {
	if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
		return true
	}

	for _, indicator := range rules.ProjectIndicators {
		if _, err := os.Stat(filepath.Join(dir, indicator)); err == nil {
			return true
		}
	}

	hasCode := hasCodeFiles(dir, rules.CodeExtensions)
	if !hasCode {
		return false
	}

	size, files := folderSize(dir)
	return size >= rules.MinSizeBytes || files >= 3
}

// hasCodeFiles looks for source files at the top level of dir, probing one
// level into non-hidden subdirectories to catch src/-style layouts.
func hasCodeFiles(dir string, extensions []string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}

	for _, entry := range entries {
		if !entry.IsDir() && matchesExtension(entry.Name(), extensions) {
			return true
		}
	}

	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		sub, err := os.ReadDir(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		for _, f := range sub {
			if !f.IsDir() && matchesExtension(f.Name(), extensions) {
				return true
			}
		}
	}

	return false
}

func matchesExtension(name string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	for _, want := range extensions {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}

// folderSize walks dir, totaling file sizes and counting files, stopping
// once the scan cap is exceeded. Walk errors degrade to "substantial":
// the returned size saturates so the minimum-size condition passes rather
// than rejecting a folder we could not inspect.
func folderSize(dir string) (int64, int) {
	var total int64
	var files int

	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		total += info.Size()
		files++
		if total > sizeScanCap {
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return sizeScanCap, files
	}

	return total, files
}
