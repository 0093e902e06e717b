// internal/model/catalog.go
// Package model defines the data structures used throughout the catalog service.
// These structures represent the core domain objects for media records, the catalog,
// and the process-wide settings.
package model

import (
	"errors"
)

// MediaRecord represents one media item available for delivery.
// Exactly one delivery reference is populated per record: either MsgID
// (a forwardable position in the source channel) or FileURL (a direct
// link or opaque blob handle). Both fields are kept in the persisted
// JSON shape so the on-disk format stays stable.
type MediaRecord struct {
	Title    string `json:"title"`    // Human-readable name, primary matching key
	Filename string `json:"filename"` // Optional descriptive label, no role in matching
	MsgID    int64  `json:"msg_id"`   // Forward-by-position reference into the source channel
	FileURL  string `json:"file_url"` // Direct link / opaque blob handle
}

// Validation errors returned by MediaRecord.Validate.
var (
	ErrMissingTitle     = errors.New("title is required")
	ErrMissingReference = errors.New("exactly one of msg_id or file_url must be set")
)

// Validate checks the record invariants: a non-empty title and exactly one
// delivery reference. Both-empty and both-populated reference fields are
// rejected; a record must never reach duplicate detection in either state.
func (r MediaRecord) Validate() error {
	if r.Title == "" {
		return ErrMissingTitle
	}
	hasMsgID := r.MsgID > 0
	hasURL := r.FileURL != ""
	if hasMsgID == hasURL {
		return ErrMissingReference
	}
	return nil
}

// HasMsgID reports whether the record carries a forward-by-position reference.
func (r MediaRecord) HasMsgID() bool { return r.MsgID > 0 }

// Catalog is the ordered sequence of media records. Insertion order is
// preserved and doubles as the external addressing scheme: records are
// referenced by position for edit and delete operations.
type Catalog []MediaRecord

// Clone returns a copy of the catalog so mutations never alias a slice
// handed out to a caller.
func (c Catalog) Clone() Catalog {
	out := make(Catalog, len(c))
	copy(out, c)
	return out
}

// Settings is the small process-wide configuration object mutated only
// through the mutation API and persisted synchronously on each change.
type Settings struct {
	AutoForward bool `json:"auto_forward"` // Whether new uploads are auto-relayed to the source channel
}

// AddRecordRequest is the request body for adding a single record.
type AddRecordRequest struct {
	Title    string `json:"title"`
	Filename string `json:"filename"`
	MsgID    int64  `json:"msg_id"`
	FileURL  string `json:"file_url"`
}

// Record converts the request into a MediaRecord.
func (req AddRecordRequest) Record() MediaRecord {
	return MediaRecord{Title: req.Title, Filename: req.Filename, MsgID: req.MsgID, FileURL: req.FileURL}
}

// EditRecordRequest is the request body for a full-replace edit at one
// position. All three mutable fields must be supplied, including the
// unchanged ones; there is no partial-field patch.
type EditRecordRequest struct {
	Title      string `json:"title"`
	Filename   string `json:"filename"`
	MsgID      int64  `json:"msg_id"`
	FileURL    string `json:"file_url"`
	Generation uint64 `json:"generation,omitempty"` // Optional stale-index guard, 0 disables
}

// BulkAddRequest is the request body for adding several candidates in one batch.
type BulkAddRequest struct {
	Records []AddRecordRequest `json:"records"`
}

// BulkDeleteRequest is the request body for deleting several positions in one batch.
type BulkDeleteRequest struct {
	Indices []int `json:"indices"`
}

// MutationResult reports the outcome of a committed mutation. A mutation is
// successful once the local write lands; mirror sync failures are carried
// here so the admin surface can tell the user the change is saved locally
// but not yet mirrored.
type MutationResult struct {
	MutationID   string `json:"mutationId"`            // ULID assigned to this mutation
	Generation   uint64 `json:"generation"`            // Catalog generation after the mutation
	MirrorSynced bool   `json:"mirrorSynced"`          // Whether the remote push succeeded
	MirrorError  string `json:"mirrorError,omitempty"` // Why the push failed, when it did
}

// MatchResponse is the response body for a best-match query. Found is false
// when nothing scored above the acceptance threshold; that is an ordinary
// empty result, not an error.
type MatchResponse struct {
	Found  bool         `json:"found"`
	Score  int          `json:"score,omitempty"`
	Record *MediaRecord `json:"record,omitempty"`
}

// CatalogResponse is the response body for listing the catalog.
type CatalogResponse struct {
	Count      int     `json:"count"`
	Generation uint64  `json:"generation"`
	Records    Catalog `json:"records"`
}
