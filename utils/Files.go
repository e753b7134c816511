package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// SanitizeFilename expands environment variables and a leading ~ in path,
// then makes it absolute. A path that cannot be absolutized is returned
// expanded as-is.
func SanitizeFilename(path string) string {
	expanded := os.ExpandEnv(path)

	if expanded == "~" || strings.HasPrefix(expanded, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			expanded = filepath.Join(home, strings.TrimPrefix(expanded, "~"))
		}
	}

	abs, err := filepath.Abs(expanded)
	if err != nil {
		return expanded
	}

	return abs
}

// FileExistingAndReadable reports whether path points at a regular file
// that the current process can open for reading.
func FileExistingAndReadable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	if info.IsDir() {
		return false
	}

	file, err := os.Open(path)
	if err != nil {
		return false
	}
	_ = file.Close()

	return true
}
