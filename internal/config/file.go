package config

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	. "github.com/Deneth123456789/My-new-bot/internal/logging"
)

// DefaultBackupCount is the number of danuu.json backups kept by WriteFile.
const DefaultBackupCount = 3

// AtomicWriteJSON writes data to path as indented JSON, atomically.
func AtomicWriteJSON(path string, data interface{}, perm os.FileMode) error {
	return writeAtomic(path, perm, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(data); err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return nil
	})
}

// AtomicWrite writes data to path atomically.
func AtomicWrite(path string, data []byte, perm os.FileMode) error {
	return writeAtomic(path, perm, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// writeAtomic fills a temp file next to path and renames it into place,
// so readers see either the old or the new content.
func writeAtomic(path string, perm os.FileMode, fill func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".danuu-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = tmp.Chmod(perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	bw := bufio.NewWriter(tmp)
	if err = fill(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// WriteFile saves cfg to path. An existing file is kept as path.bak and
// older backups shift to .bak.1, .bak.2, ... up to maxBackups files.
func WriteFile(path string, cfg *Config, maxBackups int) error {
	if maxBackups <= 0 {
		maxBackups = DefaultBackupCount
	}

	if prev, err := os.ReadFile(path); err == nil {
		RotateBackups(path, maxBackups)
		if err := os.WriteFile(backupName(path, 0), prev, 0600); err != nil {
			L_warn("config: backup failed, continuing with save", "error", err)
		}
	}

	if err := AtomicWriteJSON(path, cfg, 0600); err != nil {
		return err
	}
	L_debug("config: saved", "path", path)
	return nil
}

// backupName returns path.bak for i == 0 and path.bak.<i> otherwise.
func backupName(path string, i int) string {
	if i == 0 {
		return path + ".bak"
	}
	return fmt.Sprintf("%s.bak.%d", path, i)
}

// RotateBackups frees the .bak slot by shifting each backup one index up.
// The backup at index maxBackups-1 is dropped.
func RotateBackups(path string, maxBackups int) {
	if maxBackups <= 1 {
		return
	}
	last := maxBackups - 1
	if err := os.Remove(backupName(path, last)); err != nil && !os.IsNotExist(err) {
		L_trace("config: failed to drop oldest backup", "error", err)
	}
	for i := last - 1; i >= 0; i-- {
		if err := os.Rename(backupName(path, i), backupName(path, i+1)); err != nil && !os.IsNotExist(err) {
			L_trace("config: failed to rotate backup", "from", backupName(path, i), "error", err)
		}
	}
}
