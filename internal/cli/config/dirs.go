// Package config provides configuration management for the srpweb CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const appName = "srpweb"

// UserConfigDir returns the OS-specific user configuration directory for
// srpweb, e.g. ~/.config/srpweb on Linux.
func UserConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, appName), nil
}

// UserCacheDir returns the OS-specific user cache directory for srpweb,
// e.g. ~/.cache/srpweb on Linux.
func UserCacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user cache directory: %w", err)
	}
	return filepath.Join(cacheDir, appName), nil
}

// EnsureDir creates a directory and its parents with 0700 permissions.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
