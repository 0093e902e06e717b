// internal/audit/audit.go
// Package audit records the operation log of catalog mutations. Every
// committed mutation produces one entry, giving the admin surface an audit
// trail of who changed what and when. Postgres backs production; a memory
// implementation backs development and tests.
package audit

import (
	"context"
	"sync"
	"time"
)

// Entry is one operation-log record.
type Entry struct {
	Sequence      int64     `json:"sequence"`      // Sequential log position (assigned by the log)
	MutationID    string    `json:"mutationId"`    // ULID of the mutation
	Operation     string    `json:"operation"`     // add, edit, delete, bulk_add, bulk_delete, settings
	Index         int       `json:"index"`         // Catalog position touched, -1 when not positional
	Title         string    `json:"title"`         // Title of the record involved, when there is one
	Reference     string    `json:"reference"`     // Delivery reference involved, rendered as text
	CorrelationID string    `json:"correlationId"` // Request correlation ID
	OccurredAt    time.Time `json:"occurredAt"`    // When the mutation committed
}

// Log is the operation-log contract the mutation API depends on. Append
// failures are logged by callers but never fail a mutation; the audit trail
// is best-effort, like the mirror.
type Log interface {
	// Append stores one entry, assigning its sequence number.
	Append(ctx context.Context, entry Entry) error

	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)

	// Close releases any underlying resources.
	Close()
}

// memoryLog implements Log with an in-process slice. Intended for
// development and testing.
type memoryLog struct {
	mu      sync.Mutex
	entries []Entry
	seq     int64
}

// NewMemory creates an in-memory operation log.
func NewMemory() Log {
	return &memoryLog{}
}

// Append implements Log.
func (m *memoryLog) Append(ctx context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	entry.Sequence = m.seq
	m.entries = append(m.entries, entry)
	return nil
}

// Recent implements Log.
func (m *memoryLog) Recent(ctx context.Context, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.entries) {
		limit = len(m.entries)
	}
	out := make([]Entry, 0, limit)
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

// Close implements Log.
func (m *memoryLog) Close() {}
