// Package fs provides file-system backed helpers for jsaudit.
package fs

import (
	"os"
	"path/filepath"
)

// DefaultCacheDir returns the default cache directory for jsaudit.
// Uses XDG_CACHE_HOME if set, otherwise falls back to ~/.cache/jsaudit,
// or system temp directory if home is unavailable.
func DefaultCacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "jsaudit")
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), "jsaudit")
	}
	return filepath.Join(home, ".cache", "jsaudit")
}

// DefaultHistoryPath returns the default JSONL history file location.
func DefaultHistoryPath() string {
	return filepath.Join(DefaultCacheDir(), "history.jsonl")
}
