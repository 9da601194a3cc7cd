// Package defaults resolves the platform-appropriate data directory used to
// store the launched browser's user-data directory.
//
// Platform paths:
//
//	macOS:   ~/Library/Application Support/browser-stream/
//	Windows: %AppData%\browser-stream\
//	Linux:   ~/.config/browser-stream/
//
// Override with BROWSERSTREAM_DATA_DIR.
package defaults

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// DataDir returns the platform-appropriate data directory.
// Set BROWSERSTREAM_DATA_DIR to override.
func DataDir() (string, error) {
	if dir := os.Getenv("BROWSERSTREAM_DATA_DIR"); dir != "" {
		return dir, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}

	// Linux: lowercase per XDG convention
	// macOS/Windows: title case per platform convention
	if runtime.GOOS == "linux" {
		return filepath.Join(configDir, "browser-stream"), nil
	}
	return filepath.Join(configDir, "browser-stream"), nil
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dir, nil
}
