// internal/event/nats.go
// Package event provides NATS JetStream implementation for event publishing.
// It streams catalog mutation events so downstream consumers (chat-side
// collaborators, dashboards) can react to changes without polling.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/sarabot/sara-catalog-go/internal/model"
)

// Publisher interface defines the event publishing operations required by
// the catalog service.
type Publisher interface {
	// PublishRecordAdded announces a newly appended catalog record.
	PublishRecordAdded(ctx context.Context, mutationID string, record model.MediaRecord) error

	// PublishRecordEdited announces a full-replace edit at a position.
	PublishRecordEdited(ctx context.Context, mutationID string, index int, record model.MediaRecord) error

	// PublishRecordDeleted announces a positional removal.
	PublishRecordDeleted(ctx context.Context, mutationID string, index int, record model.MediaRecord) error

	// Close closes the publisher connection.
	Close() error
}

// noop is a no-op implementation of Publisher for when NATS is not
// configured. It implements all Publisher methods but does nothing, allowing
// the service to function without event streaming.
type noop struct{}

// Close implements Publisher.
func (n *noop) Close() error { return nil }

// PublishRecordAdded implements Publisher.
func (n *noop) PublishRecordAdded(ctx context.Context, mutationID string, record model.MediaRecord) error {
	return nil
}

// PublishRecordEdited implements Publisher.
func (n *noop) PublishRecordEdited(ctx context.Context, mutationID string, index int, record model.MediaRecord) error {
	return nil
}

// PublishRecordDeleted implements Publisher.
func (n *noop) PublishRecordDeleted(ctx context.Context, mutationID string, index int, record model.MediaRecord) error {
	return nil
}

// natsPub is the NATS JetStream implementation of Publisher.
type natsPub struct {
	nc *nats.Conn            // NATS connection
	js nats.JetStreamContext // JetStream context for stream operations

	// Deduplication fields
	dedup map[string]time.Time // Map of mutation IDs to last publish time
	mutex sync.RWMutex         // Mutex for thread-safe access to the dedup map
}

// NewPublisher creates a publisher for the given NATS URL. An empty URL or a
// failed connection yields a no-op publisher; event streaming is best-effort
// and must never block the mutation path.
// Returns:
//   - Publisher: either a NATS publisher or a no-op publisher
func NewPublisher(url string) Publisher {
	if url == "" {
		return &noop{}
	}

	// Connect to NATS server
	nc, err := nats.Connect(url)
	if err != nil {
		slog.Warn("NATS connect failed, using noop publisher", "error", err)
		return &noop{}
	}

	// Create JetStream context for stream operations
	js, err := nc.JetStream()
	if err != nil {
		slog.Warn("NATS JetStream context creation failed, using noop publisher", "error", err)
		nc.Close()
		return &noop{}
	}

	// Initialize the catalog stream
	if err := initStream(js); err != nil {
		slog.Warn("NATS stream initialization failed, using noop publisher", "error", err)
		nc.Close()
		return &noop{}
	}

	return &natsPub{
		nc:    nc,
		js:    js,
		dedup: make(map[string]time.Time),
	}
}

// initStream initializes the catalog mutation stream.
func initStream(js nats.JetStreamContext) error {
	_, err := js.AddStream(&nats.StreamConfig{
		Name:      "SARA_CATALOG",                // Stream name
		Subjects:  []string{"catalog.records.*"}, // Subjects pattern for mutation events
		Retention: nats.LimitsPolicy,             // Retention policy
		MaxAge:    24 * time.Hour,                // Keep events for 24 hours
		Discard:   nats.DiscardOld,               // Discard old messages when limits reached
		Storage:   nats.FileStorage,              // Use file storage for persistence
	})
	if err != nil {
		return fmt.Errorf("failed to create SARA_CATALOG stream: %w", err)
	}
	return nil
}

// EventEnvelope represents the standard event envelope structure.
// All events published to NATS are wrapped in this envelope for consistency.
type EventEnvelope struct {
	Type          string      `json:"type"`          // Event type identifier
	Version       string      `json:"version"`       // Event schema version
	OccurredAt    time.Time   `json:"occurredAt"`    // When the event occurred
	CorrelationID string      `json:"correlationId"` // Correlation ID for tracing
	MutationID    string      `json:"mutationId"`    // ULID of the originating mutation
	Index         int         `json:"index"`         // Catalog position, -1 for appends
	Payload       interface{} `json:"payload"`       // Event-specific data
}

// Close closes the NATS connection.
func (p *natsPub) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}

// shouldDedup checks if an event should be deduplicated based on the
// 2-minute window keyed on mutation ID.
func (p *natsPub) shouldDedup(key string) bool {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	if lastTime, exists := p.dedup[key]; exists {
		return time.Since(lastTime) < 2*time.Minute
	}
	return false
}

// updateDedup updates the deduplication map with the current time for a
// given key, pruning stale entries to prevent unbounded growth.
func (p *natsPub) updateDedup(key string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	cutoff := time.Now().Add(-5 * time.Minute)
	for k, t := range p.dedup {
		if t.Before(cutoff) {
			delete(p.dedup, k)
		}
	}
	p.dedup[key] = time.Now()
}

// publish wraps a record in the standard envelope and publishes it.
func (p *natsPub) publish(subject, eventType, mutationID string, index int, record model.MediaRecord) error {
	if p.shouldDedup(mutationID) {
		return nil
	}

	envelope := EventEnvelope{
		Type:          eventType,
		Version:       "1.0.0",
		OccurredAt:    time.Now().UTC(),
		CorrelationID: uuid.New().String(),
		MutationID:    mutationID,
		Index:         index,
		Payload:       record,
	}

	b, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	if _, err := p.js.Publish(subject, b); err != nil {
		return err
	}

	p.updateDedup(mutationID)
	return nil
}

// PublishRecordAdded implements Publisher.
func (p *natsPub) PublishRecordAdded(ctx context.Context, mutationID string, record model.MediaRecord) error {
	return p.publish("catalog.records.added", "catalog.records.added", mutationID, -1, record)
}

// PublishRecordEdited implements Publisher.
func (p *natsPub) PublishRecordEdited(ctx context.Context, mutationID string, index int, record model.MediaRecord) error {
	return p.publish("catalog.records.edited", "catalog.records.edited", mutationID, index, record)
}

// PublishRecordDeleted implements Publisher.
func (p *natsPub) PublishRecordDeleted(ctx context.Context, mutationID string, index int, record model.MediaRecord) error {
	return p.publish("catalog.records.deleted", "catalog.records.deleted", mutationID, index, record)
}
