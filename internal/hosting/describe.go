package hosting

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

const maxDescription = 100

// DescribeFolder derives a short repository description from the folder's
// contents: the first meaningful README line, then the go.mod module path,
// then the package.json description, then a generic fallback.
func DescribeFolder(dir string) string {
	if desc := readmeDescription(dir); desc != "" {
		return desc
	}

	if desc := goModuleDescription(dir); desc != "" {
		return desc
	}

	if desc := packageDescription(dir); desc != "" {
		return desc
	}

	return "Auto-backed up project: " + filepath.Base(dir)
}

func goModuleDescription(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return ""
	}

	for _, line := range strings.Split(string(data), "\n") {
		if path, found := strings.CutPrefix(strings.TrimSpace(line), "module "); found {
			return truncate("Go module " + strings.TrimSpace(path))
		}
	}

	return ""
}

func readmeDescription(dir string) string {
	matches, err := filepath.Glob(filepath.Join(dir, "README*"))
	if err != nil || len(matches) == 0 {
		return ""
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		return ""
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if after, found := strings.CutPrefix(line, "# "); found {
			return truncate(strings.TrimSpace(after))
		}
		if !strings.HasPrefix(line, "#") {
			return truncate(line)
		}
	}

	return ""
}

func packageDescription(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return ""
	}

	var pkg struct {
		Description string `json:"description"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return ""
	}

	return truncate(pkg.Description)
}

func truncate(s string) string {
	if len(s) <= maxDescription {
		return s
	}
	return s[:maxDescription] + "..."
}
