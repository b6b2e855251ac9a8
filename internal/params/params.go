package params

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/2003nayan/automated-github-push/internal/application"
)

var (
	once       sync.Once
	AppdataDir string
)

func init() {
	once.Do(getAppDataDir)
}

func getAppDataDir() {
	dir, err := application.GetApplicationDirectory()
	if err != nil {
		panic(err)
	}

	AppdataDir = dir

	if err := os.MkdirAll(AppdataDir, os.ModePerm); err != nil {
		panic(err)
	}
}

// StateFile returns the default path of the registry snapshot.
func StateFile() string {
	return filepath.Join(AppdataDir, "state.json")
}

// PrefsFile returns the default path of the preferences database.
func PrefsFile() string {
	return filepath.Join(AppdataDir, "prefs.bolt")
}
