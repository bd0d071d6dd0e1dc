// Package paths resolves the on-disk locations danuu uses.
// It has no internal imports so any package can depend on it.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

const configFile = "danuu.json"

// BaseDir returns the danuu base directory (~/.danuu).
// DANUU_HOME overrides it.
func BaseDir() (string, error) {
	if dir := os.Getenv("DANUU_HOME"); dir != "" {
		return ExpandTilde(dir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".danuu"), nil
}

// DataPath returns a path within the data directory (~/.danuu/<subpath>).
func DataPath(subpath string) (string, error) {
	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, subpath), nil
}

// ConfigPath returns the active danuu.json path.
// Priority: ./danuu.json > ~/.danuu/danuu.json
// Returns ("", nil) if no config exists; defaults are used in that case.
func ConfigPath() (string, error) {
	if _, err := os.Stat(configFile); err == nil {
		absPath, err := filepath.Abs(configFile)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		return absPath, nil
	}

	globalPath, err := DataPath(configFile)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(globalPath); err == nil {
		return globalPath, nil
	}
	return "", nil
}

// DefaultConfigPath returns where `danuu init` writes a new config.
func DefaultConfigPath() (string, error) {
	return DataPath(configFile)
}

// StatusPath returns the file the running bot publishes its state to.
func StatusPath() (string, error) {
	return DataPath("status.json")
}

// EnsureDir creates a directory if it doesn't exist (0750).
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// EnsureParentDir creates the parent directory of a file path if it doesn't exist.
func EnsureParentDir(filePath string) error {
	return EnsureDir(filepath.Dir(filePath))
}

// ExpandTilde expands a leading ~ to the user's home directory.
func ExpandTilde(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	if len(path) == 1 {
		return home, nil
	}
	return filepath.Join(home, path[1:]), nil
}
