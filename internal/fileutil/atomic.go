// Package fileutil provides filesystem helpers for robust file operations.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrEmptyPath indicates an empty file path was provided.
var ErrEmptyPath = errors.New("path is empty")

// WriteExclusive durably writes data to path with perm, failing with an error
// matching os.ErrExist if path already exists. Readers never observe a
// partially written file: data is synced to a temp file that is then
// hard-linked into place.
func WriteExclusive(path string, data []byte, perm os.FileMode) error {
	if path == "" {
		return ErrEmptyPath
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmpPath, err := writeTemp(dir, filepath.Base(path), data, perm)
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmpPath) }()

	if err := os.Link(tmpPath, path); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s: %w", path, os.ErrExist)
		}
		return fmt.Errorf("linking file into place: %w", err)
	}

	syncDir(dir)
	return nil
}

// writeTemp writes data to a synced temp file next to the target and returns its path.
func writeTemp(dir, base string, data []byte, perm os.FileMode) (string, error) {
	tmpFile, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	fail := func(step string, err error) (string, error) {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("%s temp file: %w", step, err)
	}

	if _, err := tmpFile.Write(data); err != nil {
		return fail("writing", err)
	}
	if err := tmpFile.Chmod(perm); err != nil {
		return fail("setting permissions on", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fail("syncing", err)
	}
	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("closing temp file: %w", err)
	}

	return tmpPath, nil
}

// syncDir makes the new directory entry durable. Failures are ignored.
func syncDir(dir string) {
	if d, err := os.Open(dir); err == nil { //nolint:gosec // G304: dir is derived from validated path
		_ = d.Sync()
		_ = d.Close()
	}
}
