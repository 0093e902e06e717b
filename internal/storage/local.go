// internal/storage/local.go
// Package storage implements the local catalog store: a flat JSON document on
// disk holding the ordered record sequence, plus the settings file. The local
// copy is a cache path once a remote mirror is configured, so reads fail soft;
// writes are atomic-by-rename so concurrent readers never observe a partially
// written document.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/sarabot/sara-catalog-go/internal/model"
)

// Store owns the persisted local representation of the catalog and settings.
// All mutating read-modify-write sequences must run inside Lock/Unlock; a
// lost-update race between two simultaneous appends is otherwise possible.
// Read-only callers may Load without the lock and tolerate acceptable
// staleness, since Replace is atomic.
type Store struct {
	catalogPath  string     // Path to the catalog JSON document
	settingsPath string     // Path to the settings JSON file
	mu           sync.Mutex // Process-wide advisory mutation lock
}

// New creates a store rooted at the given catalog and settings paths.
func New(catalogPath, settingsPath string) *Store {
	return &Store{catalogPath: catalogPath, settingsPath: settingsPath}
}

// Lock acquires the process-wide mutation lock, serializing every
// read-modify-write cycle against the catalog.
func (s *Store) Lock() { s.mu.Lock() }

// Unlock releases the mutation lock.
func (s *Store) Unlock() { s.mu.Unlock() }

// Load reads the local catalog document. On any read or parse error it
// returns an empty catalog rather than an error: the local file is a cache,
// not the source of truth once a mirror is configured, and a missing or
// mangled cache must never take queries down.
func (s *Store) Load(ctx context.Context) model.Catalog {
	b, err := os.ReadFile(s.catalogPath)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("catalog read failed, serving empty catalog", "path", s.catalogPath, "error", err)
		}
		return model.Catalog{}
	}

	var catalog model.Catalog
	if err := json.Unmarshal(b, &catalog); err != nil {
		slog.Warn("catalog parse failed, serving empty catalog", "path", s.catalogPath, "error", err)
		return model.Catalog{}
	}
	return catalog
}

// Replace atomically overwrites the local catalog document. The new content
// is written to a temporary file in the same directory, fsynced, then renamed
// over the target, so a crash mid-write can never leave a truncated document
// visible to concurrent readers.
func (s *Store) Replace(ctx context.Context, catalog model.Catalog) error {
	if catalog == nil {
		catalog = model.Catalog{}
	}
	return s.writeAtomic(s.catalogPath, catalog)
}

// LoadSettings reads the settings file, defaulting every field when the file
// is absent or unreadable. auto_forward defaults to false.
func (s *Store) LoadSettings(ctx context.Context) model.Settings {
	var settings model.Settings
	b, err := os.ReadFile(s.settingsPath)
	if err != nil {
		return settings
	}
	if err := json.Unmarshal(b, &settings); err != nil {
		slog.Warn("settings parse failed, using defaults", "path", s.settingsPath, "error", err)
		return model.Settings{}
	}
	return settings
}

// SaveSettings persists the settings synchronously with the same
// atomic-rename strategy as the catalog document.
func (s *Store) SaveSettings(ctx context.Context, settings model.Settings) error {
	return s.writeAtomic(s.settingsPath, settings)
}

// writeAtomic marshals v as indented UTF-8 JSON with non-ASCII characters
// preserved unescaped, then performs the tmp-write/fsync/rename sequence.
func (s *Store) writeAtomic(path string, v interface{}) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // No-op after a successful rename

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s over %s: %w", tmpName, path, err)
	}
	return nil
}
