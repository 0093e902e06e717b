// internal/catalog/service.go
// Package catalog implements the mutation API: the add/edit/delete/bulk
// operations that compose the catalog store, the duplicate engine, and the
// remote mirror adapter into consistent, auditable transactions.
//
// Every mutation walks the same state machine:
//
//	Validated -> DuplicateChecked -> LocalPersisted -> RemoteSynced -> Acknowledged
//
// The local write is the commit point. Once it lands the mutation is
// successful; a remote sync failure is recorded in the mutation result but
// never rolls the local commit back.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/sarabot/sara-catalog-go/internal/audit"
	"github.com/sarabot/sara-catalog-go/internal/event"
	"github.com/sarabot/sara-catalog-go/internal/match"
	"github.com/sarabot/sara-catalog-go/internal/metrics"
	"github.com/sarabot/sara-catalog-go/internal/mirror"
	"github.com/sarabot/sara-catalog-go/internal/model"
	"github.com/sarabot/sara-catalog-go/internal/schema"
	"github.com/sarabot/sara-catalog-go/internal/storage"
)

// Errors returned by the mutation API. Validation failures are reported via
// the model package's errors, wrapped in ErrValidation.
var (
	ErrValidation      = errors.New("catalog: invalid record")
	ErrDuplicate       = errors.New("catalog: record already exists")
	ErrIndexOutOfRange = errors.New("catalog: index out of range")
	ErrStaleIndex      = errors.New("catalog: catalog changed since index was read")
)

// Service owns the catalog mutation path and the read-through query path.
// All mutating sequences run under the store's process-wide lock; queries
// read without it and tolerate acceptable staleness.
type Service struct {
	store     *storage.Store    // Local catalog store, the system of record
	mirror    mirror.Mirror     // Remote versioned blob mirror, best-effort
	validator *schema.Validator // Guards remote documents before they are trusted
	pub       event.Publisher   // Mutation event stream
	oplog     audit.Log         // Mutation audit trail
	metrics   *metrics.Metrics  // Operation counters and latencies

	// generation is bumped on every successful mutation. Positional edits
	// and deletes may pin the generation they read to detect stale indices.
	generation atomic.Uint64
}

// NewService wires the mutation API from its collaborators.
func NewService(store *storage.Store, m mirror.Mirror, validator *schema.Validator, pub event.Publisher, oplog audit.Log, mx *metrics.Metrics) *Service {
	return &Service{
		store:     store,
		mirror:    m,
		validator: validator,
		pub:       pub,
		oplog:     oplog,
		metrics:   mx,
	}
}

// Generation returns the current catalog generation.
func (s *Service) Generation() uint64 { return s.generation.Load() }

// Catalog returns the local catalog and its generation for the admin surface.
func (s *Service) Catalog(ctx context.Context) (model.Catalog, uint64) {
	return s.store.Load(ctx), s.generation.Load()
}

// LoadForQuery returns the catalog used as the matching corpus: remote-first
// so a freshly mirrored catalog from another instance is visible, with the
// local store as fallback when the mirror is unavailable or its content does
// not validate.
func (s *Service) LoadForQuery(ctx context.Context) model.Catalog {
	start := time.Now()
	remote, remoteTag, err := s.mirror.Fetch(ctx)
	if err == nil && remoteTag == "" && len(remote) == 0 {
		// Reachable remote with no catalog object yet
		s.observeMirror("fetch", "empty", start)
		return s.store.Load(ctx)
	}
	if err == nil {
		if verr := s.validator.ValidateCatalog(remote); verr == nil {
			s.observeMirror("fetch", "ok", start)
			return remote
		} else {
			slog.Warn("remote catalog failed validation, falling back to local", "error", verr)
			s.observeMirror("fetch", "invalid", start)
		}
	} else if !errors.Is(err, mirror.ErrUnavailable) {
		slog.Warn("remote catalog fetch failed, falling back to local", "error", err)
		s.observeMirror("fetch", "error", start)
	} else {
		s.observeMirror("fetch", "unavailable", start)
	}
	return s.store.Load(ctx)
}

// Settings returns the current process-wide settings.
func (s *Service) Settings(ctx context.Context) model.Settings {
	return s.store.LoadSettings(ctx)
}

// SetAutoForward updates the auto-forward flag and persists it synchronously.
func (s *Service) SetAutoForward(ctx context.Context, autoForward bool) error {
	s.store.Lock()
	defer s.store.Unlock()

	settings := s.store.LoadSettings(ctx)
	settings.AutoForward = autoForward
	if err := s.store.SaveSettings(ctx, settings); err != nil {
		return fmt.Errorf("persist settings: %w", err)
	}

	s.appendAudit(ctx, audit.Entry{
		MutationID: ulid.Make().String(),
		Operation:  "settings",
		Index:      -1,
		Reference:  strconv.FormatBool(autoForward),
		OccurredAt: time.Now().UTC(),
	})
	return nil
}

// Add validates and appends one record. A candidate colliding with an
// existing record by delivery reference is rejected with ErrDuplicate before
// anything is written.
func (s *Service) Add(ctx context.Context, rec model.MediaRecord) (*model.MutationResult, error) {
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	s.store.Lock()
	defer s.store.Unlock()

	catalog := s.store.Load(ctx)
	if match.IsDuplicate(rec, catalog) {
		s.countMutation("add", "duplicate")
		return nil, ErrDuplicate
	}

	catalog = append(catalog.Clone(), rec)
	result, err := s.commit(ctx, "add", catalog)
	if err != nil {
		return nil, err
	}

	s.appendAudit(ctx, audit.Entry{
		MutationID: result.MutationID,
		Operation:  "add",
		Index:      len(catalog) - 1,
		Title:      rec.Title,
		Reference:  referenceText(rec),
		OccurredAt: time.Now().UTC(),
	})
	s.publishEvent(ctx, func() error { return s.pub.PublishRecordAdded(ctx, result.MutationID, rec) })
	return result, nil
}

// AddFromUpload builds a record from a chat upload and appends it. The
// auto-forward setting decides which reference type the record receives:
// relayed uploads are stored forward-by-position, everything else keeps the
// raw link.
func (s *Service) AddFromUpload(ctx context.Context, title, filename string, msgID int64, link string) (*model.MutationResult, error) {
	rec := model.MediaRecord{Title: title, Filename: filename}
	if s.store.LoadSettings(ctx).AutoForward && msgID > 0 {
		rec.MsgID = msgID
	} else {
		rec.FileURL = link
	}
	return s.Add(ctx, rec)
}

// Edit replaces all three mutable fields at a position. There is no partial
// patch; callers supply the full desired state. An out-of-bounds index fails
// with ErrIndexOutOfRange and leaves the catalog unmodified. A non-zero
// expectedGeneration that no longer matches fails with ErrStaleIndex.
func (s *Service) Edit(ctx context.Context, index int, rec model.MediaRecord, expectedGeneration uint64) (*model.MutationResult, error) {
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	s.store.Lock()
	defer s.store.Unlock()

	if err := s.checkGeneration(expectedGeneration); err != nil {
		return nil, err
	}

	catalog := s.store.Load(ctx)
	if index < 0 || index >= len(catalog) {
		s.countMutation("edit", "index_range")
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(catalog))
	}

	catalog = catalog.Clone()
	catalog[index] = rec
	result, err := s.commit(ctx, "edit", catalog)
	if err != nil {
		return nil, err
	}

	s.appendAudit(ctx, audit.Entry{
		MutationID: result.MutationID,
		Operation:  "edit",
		Index:      index,
		Title:      rec.Title,
		Reference:  referenceText(rec),
		OccurredAt: time.Now().UTC(),
	})
	s.publishEvent(ctx, func() error { return s.pub.PublishRecordEdited(ctx, result.MutationID, index, rec) })
	return result, nil
}

// Delete removes the record at a position. Indices above it shift down by
// one, which is why batch deletes go through BulkDelete instead of looping
// over Delete.
func (s *Service) Delete(ctx context.Context, index int, expectedGeneration uint64) (*model.MutationResult, error) {
	s.store.Lock()
	defer s.store.Unlock()

	if err := s.checkGeneration(expectedGeneration); err != nil {
		return nil, err
	}

	catalog := s.store.Load(ctx)
	if index < 0 || index >= len(catalog) {
		s.countMutation("delete", "index_range")
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(catalog))
	}

	removed := catalog[index]
	catalog = append(catalog[:index:index], catalog[index+1:]...)
	result, err := s.commit(ctx, "delete", catalog)
	if err != nil {
		return nil, err
	}

	s.appendAudit(ctx, audit.Entry{
		MutationID: result.MutationID,
		Operation:  "delete",
		Index:      index,
		Title:      removed.Title,
		Reference:  referenceText(removed),
		OccurredAt: time.Now().UTC(),
	})
	s.publishEvent(ctx, func() error { return s.pub.PublishRecordDeleted(ctx, result.MutationID, index, removed) })
	return result, nil
}

// BulkDelete removes a set of positions in one transaction. The indices are
// processed in descending numeric order internally regardless of input
// order; deleting ascending would shift later indices and corrupt the batch.
// Out-of-range and repeated indices are skipped. Returns how many records
// were actually removed.
func (s *Service) BulkDelete(ctx context.Context, indices []int) (int, *model.MutationResult, error) {
	s.store.Lock()
	defer s.store.Unlock()

	catalog := s.store.Load(ctx).Clone()

	// Descending, deduplicated
	sorted := append([]int(nil), indices...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	deleted := 0
	prev := -1
	var removedTitles []string
	for _, idx := range sorted {
		if idx == prev {
			continue
		}
		prev = idx
		if idx < 0 || idx >= len(catalog) {
			continue
		}
		removedTitles = append(removedTitles, catalog[idx].Title)
		catalog = append(catalog[:idx:idx], catalog[idx+1:]...)
		deleted++
	}

	if deleted == 0 {
		s.countMutation("bulk_delete", "noop")
		return 0, &model.MutationResult{Generation: s.generation.Load(), MirrorSynced: false}, nil
	}

	result, err := s.commit(ctx, "bulk_delete", catalog)
	if err != nil {
		return 0, nil, err
	}

	s.appendAudit(ctx, audit.Entry{
		MutationID: result.MutationID,
		Operation:  "bulk_delete",
		Index:      -1,
		Title:      fmt.Sprintf("%d records", deleted),
		OccurredAt: time.Now().UTC(),
	})
	slog.Info("bulk delete committed", "deleted", deleted, "titles", removedTitles, "mutation_id", result.MutationID)
	return deleted, result, nil
}

// BulkAdd validates and appends a batch of candidates. Each candidate is
// duplicate-checked against the accumulating in-progress catalog, so a
// record added earlier in the batch blocks an identical later one. Invalid
// and duplicate candidates are skipped, not fatal. Returns how many records
// were actually appended.
func (s *Service) BulkAdd(ctx context.Context, recs []model.MediaRecord) (int, *model.MutationResult, error) {
	s.store.Lock()
	defer s.store.Unlock()

	catalog := s.store.Load(ctx).Clone()

	added := 0
	for _, rec := range recs {
		if err := rec.Validate(); err != nil {
			slog.Debug("bulk add: skipping invalid candidate", "title", rec.Title, "error", err)
			continue
		}
		if match.IsDuplicate(rec, catalog) {
			slog.Debug("bulk add: skipping duplicate candidate", "title", rec.Title)
			continue
		}
		catalog = append(catalog, rec)
		added++
	}

	if added == 0 {
		s.countMutation("bulk_add", "noop")
		return 0, &model.MutationResult{Generation: s.generation.Load(), MirrorSynced: false}, nil
	}

	result, err := s.commit(ctx, "bulk_add", catalog)
	if err != nil {
		return 0, nil, err
	}

	s.appendAudit(ctx, audit.Entry{
		MutationID: result.MutationID,
		Operation:  "bulk_add",
		Index:      -1,
		Title:      fmt.Sprintf("%d records", added),
		OccurredAt: time.Now().UTC(),
	})
	return added, result, nil
}

// commit is the LocalPersisted -> RemoteSynced tail of the mutation state
// machine. It must be called with the store lock held. The local replace is
// the commit point: an IO failure there fails the mutation. The subsequent
// mirror push is best-effort; unavailability and version conflicts are
// recorded in the result and logged, never retried, never fatal.
func (s *Service) commit(ctx context.Context, op string, catalog model.Catalog) (*model.MutationResult, error) {
	start := time.Now()
	if err := s.store.Replace(ctx, catalog); err != nil {
		s.countMutation(op, "io_error")
		return nil, fmt.Errorf("persist catalog: %w", err)
	}
	gen := s.generation.Add(1)

	result := &model.MutationResult{
		MutationID: ulid.Make().String(),
		Generation: gen,
	}

	pushStart := time.Now()
	_, tag, err := s.mirror.Fetch(ctx)
	if err == nil {
		_, err = s.mirror.Push(ctx, catalog, tag)
	}
	switch {
	case err == nil:
		result.MirrorSynced = true
		s.observeMirror("push", "ok", pushStart)
	case errors.Is(err, mirror.ErrConflict):
		result.MirrorError = "remote conflict: catalog was updated by another writer"
		slog.Warn("mirror push conflict, local commit stands", "operation", op, "mutation_id", result.MutationID)
		s.observeMirror("push", "conflict", pushStart)
	default:
		result.MirrorError = "remote unavailable"
		slog.Warn("mirror push failed, local commit stands", "operation", op, "mutation_id", result.MutationID, "error", err)
		s.observeMirror("push", "unavailable", pushStart)
	}

	s.countMutation(op, "ok")
	if s.metrics != nil {
		s.metrics.MutationDuration.WithLabelValues(op, "ok").Observe(time.Since(start).Seconds())
	}
	return result, nil
}

// checkGeneration enforces the optional stale-index guard. Zero disables it.
func (s *Service) checkGeneration(expected uint64) error {
	if expected == 0 {
		return nil
	}
	if current := s.generation.Load(); current != expected {
		return fmt.Errorf("%w: have generation %d, expected %d", ErrStaleIndex, current, expected)
	}
	return nil
}

// appendAudit stores an audit entry, logging failures without failing the
// mutation.
func (s *Service) appendAudit(ctx context.Context, entry audit.Entry) {
	if s.oplog == nil {
		return
	}
	if err := s.oplog.Append(ctx, entry); err != nil {
		slog.Warn("audit append failed", "operation", entry.Operation, "error", err)
	}
}

// publishEvent publishes a mutation event, logging failures without failing
// the mutation.
func (s *Service) publishEvent(ctx context.Context, publish func() error) {
	if err := publish(); err != nil {
		slog.Warn("event publish failed", "error", err)
	}
}

// countMutation bumps the mutation counter when metrics are wired.
func (s *Service) countMutation(op, status string) {
	if s.metrics != nil {
		s.metrics.MutationTotal.WithLabelValues(op, status).Inc()
	}
}

// observeMirror records one mirror operation when metrics are wired.
func (s *Service) observeMirror(op, status string, start time.Time) {
	if s.metrics != nil {
		s.metrics.MirrorSyncTotal.WithLabelValues(op, status).Inc()
		s.metrics.MirrorSyncDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
	}
}

// referenceText renders a record's delivery reference for audit entries.
func referenceText(rec model.MediaRecord) string {
	if rec.HasMsgID() {
		return "msg_id:" + strconv.FormatInt(rec.MsgID, 10)
	}
	return rec.FileURL
}
