package project

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/2003nayan/automated-github-push/internal/config"
)

func testRules() config.Detection {
	return config.Detection{
		MinSizeBytes:      1024,
		ProjectIndicators: []string{"package.json", "go.mod", "requirements.txt", "README.md"},
		CodeExtensions:    []string{".py", ".go", ".js"},
		IgnorePatterns:    []string{"node_modules", "venv", "__pycache__"},
	}
}

func TestShouldIgnore(t *testing.T) {
	patterns := testRules().IgnorePatterns

	tests := []struct {
		name string
		dir  string
		want bool
	}{
		{name: "hidden folder", dir: ".git", want: true},
		{name: "hidden config dir", dir: ".config", want: true},
		{name: "ignore pattern exact", dir: "node_modules", want: true},
		{name: "ignore pattern substring", dir: "my-node_modules-copy", want: true},
		{name: "ignore pattern case insensitive", dir: "VENV", want: true},
		{name: "transient tmp", dir: "tmp", want: true},
		{name: "transient backups", dir: "Backups", want: true},
		{name: "regular project name", dir: "my-api", want: false},
		{name: "name containing temp substring only as word", dir: "attempt", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ShouldIgnore(tt.dir, patterns))
		})
	}
}

func TestIsTrackable_GitRepo(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))

	require.True(t, IsTrackable(dir, testRules()))
}

func TestIsTrackable_IndicatorFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module x\n"), 0o644))

	require.True(t, IsTrackable(dir, testRules()))
}

func TestIsTrackable_CodeFilesWithSize(t *testing.T) {
	dir := t.TempDir()
	big := strings.Repeat("x", 2048)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.py"), []byte(big), 0o644))

	require.True(t, IsTrackable(dir, testRules()))
}

func TestIsTrackable_CodeFilesWithCount(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.py", "b.txt", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	// Tiny but three files and one is source
	require.True(t, IsTrackable(dir, testRules()))
}

func TestIsTrackable_CodeInSubdirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "src"), 0o755))
	big := strings.Repeat("x", 2048)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "app.go"), []byte(big), 0o644))

	require.True(t, IsTrackable(dir, testRules()))
}

func TestIsTrackable_RejectsNonProjects(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, dir string)
	}{
		{
			name:  "empty folder",
			setup: func(t *testing.T, dir string) {},
		},
		{
			name: "documents only",
			setup: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"),
					[]byte(strings.Repeat("x", 4096)), 0o644))
			},
		},
		{
			name: "single tiny code file",
			setup: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "x.py"), []byte("pass"), 0o644))
			},
		},
		{
			name: "code hidden in dot directory",
			setup: func(t *testing.T, dir string) {
				require.NoError(t, os.Mkdir(filepath.Join(dir, ".hidden"), 0o755))
				require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden", "a.go"),
					[]byte(strings.Repeat("x", 4096)), 0o644))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tt.setup(t, dir)
			require.False(t, IsTrackable(dir, testRules()))
		})
	}
}

func TestFolderSize(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), make([]byte, 100), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b"), make([]byte, 250), 0o644))

	size, files := folderSize(dir)
	require.Equal(t, int64(350), size)
	require.Equal(t, 2, files)
}
