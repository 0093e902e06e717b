// internal/audit/audit_test.go
// Package audit provides unit tests for the in-memory operation log.
package audit

import (
	"context"
	"testing"
	"time"
)

// TestMemoryAppendAssignsSequence verifies entries receive increasing
// sequence numbers in append order.
func TestMemoryAppendAssignsSequence(t *testing.T) {
	log := NewMemory()
	ctx := context.Background()

	for _, op := range []string{"add", "edit", "delete"} {
		if err := log.Append(ctx, Entry{Operation: op, OccurredAt: time.Now().UTC()}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	entries, err := log.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	// Newest first
	if entries[0].Sequence != 3 || entries[2].Sequence != 1 {
		t.Errorf("sequence order wrong: %+v", entries)
	}
	if entries[0].Operation != "delete" {
		t.Errorf("newest entry = %q, want delete", entries[0].Operation)
	}
}

// TestMemoryRecentLimit verifies the limit caps the result at the newest
// entries.
func TestMemoryRecentLimit(t *testing.T) {
	log := NewMemory()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := log.Append(ctx, Entry{Operation: "add"}); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := log.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Sequence != 5 || entries[1].Sequence != 4 {
		t.Errorf("expected the two newest entries, got %+v", entries)
	}
}
