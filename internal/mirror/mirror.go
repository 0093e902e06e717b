// internal/mirror/mirror.go
// Package mirror synchronizes the catalog to a versioned blob store using
// optimistic concurrency: read the current version tag, write new content
// conditioned on that tag. The mirror is a convenience for cross-instance
// durability, not the system of record for a running instance; every caller
// must survive its absence.
package mirror

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/sarabot/sara-catalog-go/internal/model"
)

// VersionTag is an opaque token identifying a specific remote revision.
// For the S3 implementation it is the object ETag.
type VersionTag string

// Errors distinguishing the two mirror failure modes. Conflict means another
// writer updated the remote first and the caller's tag is stale; Unavailable
// covers network, auth, and timeout failures where the local copy must serve.
var (
	ErrConflict    = errors.New("mirror: version tag no longer matches remote")
	ErrUnavailable = errors.New("mirror: remote not available")
)

// Mirror is the versioned blob store contract the catalog core depends on.
type Mirror interface {
	// Fetch retrieves the current remote catalog and its version tag.
	// A reachable store with no catalog object yet yields an empty catalog
	// and an empty tag. Any other failure is reported as ErrUnavailable.
	Fetch(ctx context.Context) (model.Catalog, VersionTag, error)

	// Push conditionally writes the catalog. The write succeeds only while
	// tag still matches the remote's current revision (an empty tag demands
	// that no object exists yet). Returns the new tag on success,
	// ErrConflict on a stale tag, ErrUnavailable otherwise.
	Push(ctx context.Context, catalog model.Catalog, tag VersionTag) (VersionTag, error)
}

// Disabled is a Mirror for deployments without a remote configured. Both
// operations report unavailable, so readers fall back to the local store and
// mutation results keep showing the catalog as not mirrored.
type Disabled struct{}

// Fetch implements Mirror.
func (Disabled) Fetch(ctx context.Context) (model.Catalog, VersionTag, error) {
	return nil, "", ErrUnavailable
}

// Push implements Mirror.
func (Disabled) Push(ctx context.Context, catalog model.Catalog, tag VersionTag) (VersionTag, error) {
	return "", ErrUnavailable
}

// Memory is an in-process Mirror used by tests and development runs. It
// models the conditional-write semantics of the real blob store, including
// revision tags and stale-tag conflicts.
type Memory struct {
	mu      sync.Mutex
	catalog model.Catalog
	tag     VersionTag
	rev     int

	// FailFetch and FailPush force the unavailable condition, letting tests
	// exercise degraded paths. ConflictPush makes every Push report a stale
	// tag, as if another writer races in between Fetch and Push.
	FailFetch    bool
	FailPush     bool
	ConflictPush bool
}

// NewMemory creates an empty in-memory mirror.
func NewMemory() *Memory {
	return &Memory{}
}

// Fetch implements Mirror.
func (m *Memory) Fetch(ctx context.Context) (model.Catalog, VersionTag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailFetch {
		return nil, "", ErrUnavailable
	}
	return m.catalog.Clone(), m.tag, nil
}

// Push implements Mirror.
func (m *Memory) Push(ctx context.Context, catalog model.Catalog, tag VersionTag) (VersionTag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailPush {
		return "", ErrUnavailable
	}
	if m.ConflictPush || tag != m.tag {
		return "", ErrConflict
	}
	m.catalog = catalog.Clone()
	m.rev++
	m.tag = VersionTag("rev-" + strconv.Itoa(m.rev))
	return m.tag, nil
}
