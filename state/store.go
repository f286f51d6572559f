// Package state persists per-account run state as one JSON document per file
// under a configurable storage root: run status, rotation cursors, the
// used-video set and the force-next override. All writes go through an atomic
// temp-file-then-rename path so a crash never leaves a half-written document.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store manages the per-account state files below a storage root directory.
type Store struct {
	root string
}

// NewStore initializes a Store rooted at the given directory, creating it if
// needed.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the storage root directory.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) path(prefix, suffix string) string {
	return filepath.Join(s.root, prefix+suffix)
}

// readJSON unmarshals the document at path into v. A missing file reports
// os.ErrNotExist so callers can substitute their zero value.
func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// writeJSON atomically replaces the document at path: marshal, write to a
// temp file in the same directory, fsync, rename.
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".rotopress-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
