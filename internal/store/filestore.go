package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps the settings document in a single JSON file. Writes go
// through a temp file and rename so a crash never leaves a torn document.
type FileStore struct {
	path string
}

// NewFileStore builds a store backed by the given path. The parent
// directory is created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the document. A missing file yields an empty snapshot, not an
// error: first run starts unconfigured.
func (f *FileStore) Load(_ context.Context) (Snapshot, error) {
	var snap Snapshot
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			snap.ensureMaps()
			return snap, nil
		}
		return snap, fmt.Errorf("read state file: %w", err)
	}
	if err := json.Unmarshal(raw, &snap); err != nil {
		return snap, fmt.Errorf("decode state file %s: %w", f.path, err)
	}
	snap.ensureMaps()
	return snap, nil
}

// Save atomically replaces the document.
func (f *FileStore) Save(_ context.Context, snap Snapshot) error {
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("write temp state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("close temp state: %w", err)
	}
	if err := os.Rename(name, f.path); err != nil {
		os.Remove(name)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
