// internal/storage/local_test.go
// Package storage provides unit tests for the local JSON document store.
package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sarabot/sara-catalog-go/internal/model"
)

// newTestStore creates a store rooted in a per-test temporary directory.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return New(filepath.Join(dir, "catalog.json"), filepath.Join(dir, "settings.json"))
}

// TestLoadMissingFile verifies the fail-soft contract: a store whose
// catalog file does not exist yet loads as an empty catalog, not an error.
func TestLoadMissingFile(t *testing.T) {
	store := newTestStore(t)

	catalog := store.Load(context.Background())
	if len(catalog) != 0 {
		t.Errorf("expected empty catalog from missing file, got %d records", len(catalog))
	}
}

// TestLoadCorruptFile verifies that an unparseable catalog document also
// degrades to an empty catalog so queries keep working.
func TestLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := New(path, filepath.Join(dir, "settings.json"))

	catalog := store.Load(context.Background())
	if len(catalog) != 0 {
		t.Errorf("expected empty catalog from corrupt file, got %d records", len(catalog))
	}
}

// TestReplaceRoundTrip verifies that a replaced catalog loads back
// identically and in the same order.
func TestReplaceRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	in := model.Catalog{
		{Title: "Inception", MsgID: 101},
		{Title: "Interstellar", FileURL: "https://example.com/interstellar"},
	}
	if err := store.Replace(ctx, in); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	out := store.Load(ctx)
	if len(out) != 2 {
		t.Fatalf("loaded %d records, want 2", len(out))
	}
	if out[0].Title != "Inception" || out[0].MsgID != 101 {
		t.Errorf("first record mismatch: %+v", out[0])
	}
	if out[1].FileURL != "https://example.com/interstellar" {
		t.Errorf("second record mismatch: %+v", out[1])
	}
}

// TestReplaceWriteShape verifies the on-disk document format: four-space
// indentation and URLs written without HTML escaping, so the document stays
// diffable and hand-editable.
func TestReplaceWriteShape(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	store := New(path, filepath.Join(dir, "settings.json"))
	ctx := context.Background()

	in := model.Catalog{{Title: "Tenet", FileURL: "https://example.com/a?b=1&c=2"}}
	if err := store.Replace(ctx, in); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(raw)
	if !strings.Contains(content, "\n    ") {
		t.Error("expected four-space indentation in written document")
	}
	if strings.Contains(content, `\u0026`) {
		t.Error("expected ampersand written literally, found HTML escape")
	}
}

// TestReplaceLeavesNoTempFiles verifies the atomic write cleans up after
// itself: only the final documents remain in the directory.
func TestReplaceLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	store := New(path, filepath.Join(dir, "settings.json"))

	if err := store.Replace(context.Background(), model.Catalog{{Title: "Dune", MsgID: 1}}); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "catalog.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("unexpected directory contents after replace: %v", names)
	}
}

// TestSettingsDefault verifies that missing settings load with defaults and
// that a saved value round-trips.
func TestSettingsDefault(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	settings := store.LoadSettings(ctx)
	if settings.AutoForward {
		t.Error("expected auto_forward to default to false")
	}

	settings.AutoForward = true
	if err := store.SaveSettings(ctx, settings); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}
	if got := store.LoadSettings(ctx); !got.AutoForward {
		t.Error("expected auto_forward true after save")
	}
}
