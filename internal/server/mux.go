// internal/server/mux.go
// Package server implements the HTTP handlers and routing for the catalog
// service. It provides the query surface (match endpoints), the
// token-protected mutation surface, and the operational endpoints for
// health and metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/sarabot/sara-catalog-go/internal/audit"
	"github.com/sarabot/sara-catalog-go/internal/auth"
	"github.com/sarabot/sara-catalog-go/internal/catalog"
	"github.com/sarabot/sara-catalog-go/internal/delivery"
	errordefs "github.com/sarabot/sara-catalog-go/internal/errors"
	"github.com/sarabot/sara-catalog-go/internal/match"
	"github.com/sarabot/sara-catalog-go/internal/metrics"
	"github.com/sarabot/sara-catalog-go/internal/model"
)

// ContextKey is used for context values to avoid collisions when storing
// values in request context.
type ContextKey string

const (
	// ContextKeyCorrelationID stores the unique ID for request tracking.
	ContextKeyCorrelationID ContextKey = "correlationId"

	// MaxAuditEntries caps how many audit entries one request may fetch.
	MaxAuditEntries = 100
)

// Mux handles HTTP requests for the catalog service. It holds the mutation
// service, the match engine, and the token manager guarding the admin
// surface.
type Mux struct {
	mux       *http.ServeMux      // HTTP request multiplexer
	svc       *catalog.Service    // Mutation API and query-path catalog loading
	engine    *match.Engine       // Fuzzy matching over catalog titles
	auth      *auth.Manager       // Password-for-token exchange and validation
	oplog     audit.Log           // Audit trail, read side
	deliverer *delivery.Deliverer // Outbound delivery routing
	metrics   *metrics.Metrics    // Request counters and latencies
}

// NewMux creates a new HTTP mux with all catalog endpoints registered.
func NewMux(svc *catalog.Service, engine *match.Engine, am *auth.Manager, oplog audit.Log, deliverer *delivery.Deliverer) *http.ServeMux {
	m := &Mux{
		mux:       http.NewServeMux(),
		svc:       svc,
		engine:    engine,
		auth:      am,
		oplog:     oplog,
		deliverer: deliverer,
		metrics:   metrics.NewMetrics(),
	}

	// Operational endpoints
	m.mux.HandleFunc("/healthz", m.handleHealthz)
	m.mux.HandleFunc("/readyz", m.handleReadyz)
	m.mux.Handle("/metrics", promhttp.Handler())

	// Token exchange, the only unauthenticated POST
	m.mux.HandleFunc("/v1/auth/token", m.method("POST", m.withMiddleware(m.handleToken, false)))

	// Query surface, read-only and unauthenticated
	m.mux.HandleFunc("/v1/match", m.method("GET", m.withMiddleware(m.handleMatch, false)))
	m.mux.HandleFunc("/v1/match/all", m.method("GET", m.withMiddleware(m.handleMatchAll, false)))

	// Admin surface, bearer-token protected
	m.mux.HandleFunc("/v1/catalog", m.method("GET", m.withMiddleware(m.handleListCatalog, true)))
	m.mux.HandleFunc("/v1/catalog/records", m.method("POST", m.withMiddleware(m.handleAddRecord, true)))
	m.mux.HandleFunc("/v1/catalog/records/upload", m.method("POST", m.withMiddleware(m.handleUpload, true)))
	m.mux.HandleFunc("/v1/deliver", m.method("POST", m.withMiddleware(m.handleDeliver, true)))
	m.mux.HandleFunc("/v1/catalog/records/bulk-add", m.method("POST", m.withMiddleware(m.handleBulkAdd, true)))
	m.mux.HandleFunc("/v1/catalog/records/bulk-delete", m.method("POST", m.withMiddleware(m.handleBulkDelete, true)))
	m.mux.HandleFunc("/v1/catalog/records/", m.withMiddleware(m.handleRecordByIndex, true))
	m.mux.HandleFunc("/v1/settings", m.withMiddleware(m.handleSettings, true))
	m.mux.HandleFunc("/v1/audit", m.method("GET", m.withMiddleware(m.handleAudit, true)))

	return m.mux
}

// method ensures the HTTP method matches the expected method.
func (m *Mux) method(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			err := errordefs.New(errordefs.CAT_BAD_REQUEST, "method not allowed", "")
			m.writeErrorDef(w, err)
			return
		}
		h(w, r)
	}
}

// withMiddleware applies the common middleware: correlation ID assignment,
// optional bearer-token authentication, request logging, and HTTP metrics.
func (m *Mux) withMiddleware(h http.HandlerFunc, requireAuth bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Add correlation ID if not present
		correlationID := r.Header.Get("X-Correlation-Id")
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		r = r.WithContext(context.WithValue(r.Context(), ContextKeyCorrelationID, correlationID))
		w.Header().Set("X-Correlation-Id", correlationID)

		if requireAuth {
			if err := m.validateBearer(r); err != nil {
				var errorDef *errordefs.Error
				if e, ok := err.(*errordefs.Error); ok {
					errorDef = e
					errorDef.CorrelationID = correlationID
				} else {
					errorDef = errordefs.New(errordefs.CAT_AUTHN, err.Error(), correlationID)
				}
				m.writeErrorDef(w, errorDef)
				m.logRequest(r, errorDef.HTTPStatus, time.Since(start), correlationID, err)
				m.countRequest(r, errorDef.HTTPStatus, start)
				return
			}
		}

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		h(sw, r)
		m.logRequest(r, sw.status, time.Since(start), correlationID, nil)
		m.countRequest(r, sw.status, start)
	}
}

// statusWriter captures the response status for logging and metrics.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// validateBearer checks the Authorization header against the token manager.
func (m *Mux) validateBearer(r *http.Request) error {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return errordefs.New(errordefs.CAT_AUTHN, "missing Authorization header", "")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return errordefs.New(errordefs.CAT_AUTHN, "invalid Authorization header format", "")
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	if err := m.auth.Validate(tokenString); err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return errordefs.New(errordefs.CAT_AUTHN, "token expired", "")
		}
		return errordefs.New(errordefs.CAT_AUTHN, "invalid token", "")
	}
	return nil
}

// writeSuccess writes a successful response.
func (m *Mux) writeSuccess(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := map[string]interface{}{
		"data": data,
	}
	_ = json.NewEncoder(w).Encode(response)
}

// writeErrorDef writes an error response using the error definitions package.
func (m *Mux) writeErrorDef(w http.ResponseWriter, err *errordefs.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus)
	response := map[string]interface{}{
		"error": map[string]interface{}{
			"code":          string(err.Code),
			"message":       err.Message,
			"correlationId": err.CorrelationID,
		},
	}
	if err.Details != nil {
		response["error"].(map[string]interface{})["details"] = err.Details
	}
	_ = json.NewEncoder(w).Encode(response)
}

// writeMutationError maps mutation API sentinel errors onto the error
// taxonomy and writes the response.
func (m *Mux) writeMutationError(w http.ResponseWriter, err error, correlationID string) {
	var code errordefs.ErrorCode
	switch {
	case errors.Is(err, catalog.ErrValidation):
		code = errordefs.CAT_VALIDATION
	case errors.Is(err, catalog.ErrDuplicate):
		code = errordefs.CAT_DUPLICATE
	case errors.Is(err, catalog.ErrIndexOutOfRange):
		code = errordefs.CAT_INDEX_RANGE
	case errors.Is(err, catalog.ErrStaleIndex):
		code = errordefs.CAT_STALE_INDEX
	default:
		code = errordefs.CAT_IO
	}
	m.writeErrorDef(w, errordefs.New(code, err.Error(), correlationID))
}

// logRequest logs request details.
func (m *Mux) logRequest(r *http.Request, status int, duration time.Duration, correlationID string, err error) {
	attrs := []slog.Attr{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.Duration("duration", duration),
		slog.String("remote_addr", r.RemoteAddr),
	}
	if correlationID != "" {
		attrs = append(attrs, slog.String("correlation_id", correlationID))
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		slog.LogAttrs(r.Context(), slog.LevelError, "request completed with error", attrs...)
	} else {
		slog.LogAttrs(r.Context(), slog.LevelInfo, "request completed", attrs...)
	}
}

// countRequest records HTTP metrics for one completed request.
func (m *Mux) countRequest(r *http.Request, status int, start time.Time) {
	code := strconv.Itoa(status)
	m.metrics.HTTPRequestTotal.WithLabelValues(r.Method, r.URL.Path, code).Inc()
	m.metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path, code).Observe(time.Since(start).Seconds())
}

// correlationID extracts the correlation ID placed on the context by the
// middleware.
func correlationID(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyCorrelationID).(string); ok {
		return id
	}
	return ""
}

// handleHealthz handles liveness health check requests.
func (m *Mux) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReadyz handles readiness health check requests. The catalog store
// is fail-soft so readiness probes the audit trail, the one dependency that
// can genuinely refuse requests.
func (m *Mux) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if m.oplog != nil {
		if _, err := m.oplog.Recent(ctx, 1); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleToken handles POST /v1/auth/token, exchanging the admin password
// for a short-lived bearer token.
func (m *Mux) handleToken(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		m.writeErrorDef(w, errordefs.New(errordefs.CAT_BAD_REQUEST, "invalid JSON", correlationID(r.Context())))
		return
	}

	token, err := m.auth.Exchange(req.Password)
	if err != nil {
		m.writeErrorDef(w, errordefs.New(errordefs.CAT_AUTHN, "wrong password", correlationID(r.Context())))
		return
	}

	m.writeSuccess(w, http.StatusOK, map[string]interface{}{
		"token":     token,
		"expiresIn": int(auth.DefaultTokenTTL.Seconds()),
	})
}

// handleMatch handles GET /v1/match?q=..., the single best-match query.
// A query nothing matches returns found=false with HTTP 200; absence of a
// match is an ordinary result, not an error.
func (m *Mux) handleMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("catalog-service").Start(r.Context(), "handleMatch")
	defer span.End()

	start := time.Now()
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		span.SetStatus(codes.Error, "q is required")
		m.writeErrorDef(w, errordefs.New(errordefs.CAT_BAD_REQUEST, "q is required", correlationID(ctx)))
		return
	}
	span.SetAttributes(attribute.String("query", query))

	corpus := m.svc.LoadForQuery(ctx)
	rec, score, found := m.engine.FindBest(query, corpus)

	outcome := "miss"
	if found {
		outcome = "hit"
	}
	m.metrics.MatchTotal.WithLabelValues("best", outcome).Inc()
	m.metrics.MatchDuration.WithLabelValues("best", outcome).Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.Bool("found", found), attribute.Int("score", score))

	resp := model.MatchResponse{Found: found}
	if found {
		resp.Score = score
		resp.Record = &rec
	}
	m.writeSuccess(w, http.StatusOK, resp)
}

// handleMatchAll handles GET /v1/match/all?q=...&min_overlap=..., the
// multi-result token-overlap query used for long, descriptive requests.
func (m *Mux) handleMatchAll(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("catalog-service").Start(r.Context(), "handleMatchAll")
	defer span.End()

	start := time.Now()
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		span.SetStatus(codes.Error, "q is required")
		m.writeErrorDef(w, errordefs.New(errordefs.CAT_BAD_REQUEST, "q is required", correlationID(ctx)))
		return
	}

	minOverlap := 0
	if v := r.URL.Query().Get("min_overlap"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			m.writeErrorDef(w, errordefs.New(errordefs.CAT_BAD_REQUEST, "min_overlap must be a positive integer", correlationID(ctx)))
			return
		}
		minOverlap = n
	}

	corpus := m.svc.LoadForQuery(ctx)
	records := model.Catalog{}
	for rec := range m.engine.AllAbove(query, corpus, minOverlap) {
		records = append(records, rec)
	}

	outcome := "miss"
	if len(records) > 0 {
		outcome = "hit"
	}
	m.metrics.MatchTotal.WithLabelValues("all", outcome).Inc()
	m.metrics.MatchDuration.WithLabelValues("all", outcome).Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("results", len(records)))

	m.writeSuccess(w, http.StatusOK, map[string]interface{}{
		"count":   len(records),
		"records": records,
	})
}

// handleListCatalog handles GET /v1/catalog, the admin listing of the local
// catalog with its generation.
func (m *Mux) handleListCatalog(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("catalog-service").Start(r.Context(), "handleListCatalog")
	defer span.End()

	records, generation := m.svc.Catalog(ctx)
	span.SetAttributes(attribute.Int("count", len(records)))

	m.writeSuccess(w, http.StatusOK, model.CatalogResponse{
		Count:      len(records),
		Generation: generation,
		Records:    records,
	})
}

// handleAddRecord handles POST /v1/catalog/records.
func (m *Mux) handleAddRecord(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("catalog-service").Start(r.Context(), "handleAddRecord")
	defer span.End()
	defer r.Body.Close()

	var req model.AddRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		span.SetStatus(codes.Error, "invalid JSON")
		m.writeErrorDef(w, errordefs.New(errordefs.CAT_BAD_REQUEST, "invalid JSON", correlationID(ctx)))
		return
	}
	span.SetAttributes(attribute.String("title", req.Title))

	result, err := m.svc.Add(ctx, req.Record())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		m.writeMutationError(w, err, correlationID(ctx))
		return
	}

	m.writeSuccess(w, http.StatusCreated, result)
}

// handleRecordByIndex dispatches PUT and DELETE /v1/catalog/records/{index}.
func (m *Mux) handleRecordByIndex(w http.ResponseWriter, r *http.Request) {
	indexStr := strings.TrimPrefix(r.URL.Path, "/v1/catalog/records/")
	index, err := strconv.Atoi(indexStr)
	if err != nil || index < 0 {
		m.writeErrorDef(w, errordefs.New(errordefs.CAT_BAD_REQUEST, "index must be a non-negative integer", correlationID(r.Context())))
		return
	}

	switch r.Method {
	case http.MethodPut:
		m.handleEditRecord(w, r, index)
	case http.MethodDelete:
		m.handleDeleteRecord(w, r, index)
	default:
		m.writeErrorDef(w, errordefs.New(errordefs.CAT_BAD_REQUEST, "method not allowed", correlationID(r.Context())))
	}
}

// handleEditRecord handles PUT /v1/catalog/records/{index}, a full replace
// of the record at one position.
func (m *Mux) handleEditRecord(w http.ResponseWriter, r *http.Request, index int) {
	ctx, span := otel.Tracer("catalog-service").Start(r.Context(), "handleEditRecord")
	defer span.End()
	defer r.Body.Close()

	var req model.EditRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		span.SetStatus(codes.Error, "invalid JSON")
		m.writeErrorDef(w, errordefs.New(errordefs.CAT_BAD_REQUEST, "invalid JSON", correlationID(ctx)))
		return
	}
	span.SetAttributes(attribute.Int("index", index))

	rec := model.MediaRecord{Title: req.Title, Filename: req.Filename, MsgID: req.MsgID, FileURL: req.FileURL}
	result, err := m.svc.Edit(ctx, index, rec, req.Generation)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		m.writeMutationError(w, err, correlationID(ctx))
		return
	}

	m.writeSuccess(w, http.StatusOK, result)
}

// handleDeleteRecord handles DELETE /v1/catalog/records/{index}. The
// optional generation query parameter enables the stale-index guard.
func (m *Mux) handleDeleteRecord(w http.ResponseWriter, r *http.Request, index int) {
	ctx, span := otel.Tracer("catalog-service").Start(r.Context(), "handleDeleteRecord")
	defer span.End()

	var generation uint64
	if v := r.URL.Query().Get("generation"); v != "" {
		g, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			m.writeErrorDef(w, errordefs.New(errordefs.CAT_BAD_REQUEST, "generation must be a non-negative integer", correlationID(ctx)))
			return
		}
		generation = g
	}
	span.SetAttributes(attribute.Int("index", index))

	result, err := m.svc.Delete(ctx, index, generation)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		m.writeMutationError(w, err, correlationID(ctx))
		return
	}

	m.writeSuccess(w, http.StatusOK, result)
}

// handleBulkAdd handles POST /v1/catalog/records/bulk-add. Invalid and
// duplicate candidates are skipped; the response reports how many records
// were actually appended.
func (m *Mux) handleBulkAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("catalog-service").Start(r.Context(), "handleBulkAdd")
	defer span.End()
	defer r.Body.Close()

	var req model.BulkAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		span.SetStatus(codes.Error, "invalid JSON")
		m.writeErrorDef(w, errordefs.New(errordefs.CAT_BAD_REQUEST, "invalid JSON", correlationID(ctx)))
		return
	}
	if len(req.Records) == 0 {
		m.writeErrorDef(w, errordefs.New(errordefs.CAT_VALIDATION, "records must not be empty", correlationID(ctx)))
		return
	}
	span.SetAttributes(attribute.Int("candidates", len(req.Records)))

	recs := make([]model.MediaRecord, 0, len(req.Records))
	for _, c := range req.Records {
		recs = append(recs, c.Record())
	}

	added, result, err := m.svc.BulkAdd(ctx, recs)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		m.writeMutationError(w, err, correlationID(ctx))
		return
	}
	span.SetAttributes(attribute.Int("added", added))

	m.writeSuccess(w, http.StatusOK, map[string]interface{}{
		"added":  added,
		"result": result,
	})
}

// handleBulkDelete handles POST /v1/catalog/records/bulk-delete. Indices
// are removed in one transaction; out-of-range and repeated indices are
// skipped.
func (m *Mux) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("catalog-service").Start(r.Context(), "handleBulkDelete")
	defer span.End()
	defer r.Body.Close()

	var req model.BulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		span.SetStatus(codes.Error, "invalid JSON")
		m.writeErrorDef(w, errordefs.New(errordefs.CAT_BAD_REQUEST, "invalid JSON", correlationID(ctx)))
		return
	}
	if len(req.Indices) == 0 {
		m.writeErrorDef(w, errordefs.New(errordefs.CAT_VALIDATION, "indices must not be empty", correlationID(ctx)))
		return
	}
	span.SetAttributes(attribute.Int("candidates", len(req.Indices)))

	deleted, result, err := m.svc.BulkDelete(ctx, req.Indices)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		m.writeMutationError(w, err, correlationID(ctx))
		return
	}
	span.SetAttributes(attribute.Int("deleted", deleted))

	m.writeSuccess(w, http.StatusOK, map[string]interface{}{
		"deleted": deleted,
		"result":  result,
	})
}

// handleUpload handles POST /v1/catalog/records/upload, ingesting an
// upload announcement from the chat side: the caption is parsed into a
// title and optional link, and the auto-forward setting picks the reference
// type.
func (m *Mux) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("catalog-service").Start(r.Context(), "handleUpload")
	defer span.End()
	defer r.Body.Close()

	var req struct {
		Caption  string `json:"caption"`
		Filename string `json:"filename"`
		MsgID    int64  `json:"msg_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		span.SetStatus(codes.Error, "invalid JSON")
		m.writeErrorDef(w, errordefs.New(errordefs.CAT_BAD_REQUEST, "invalid JSON", correlationID(ctx)))
		return
	}

	title, link := delivery.ParseCaption(req.Caption)
	if title == "" {
		m.writeErrorDef(w, errordefs.New(errordefs.CAT_VALIDATION, "caption contains no title", correlationID(ctx)))
		return
	}
	span.SetAttributes(attribute.String("title", title), attribute.Bool("has_link", link != ""))

	result, err := m.svc.AddFromUpload(ctx, title, req.Filename, req.MsgID, link)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		m.writeMutationError(w, err, correlationID(ctx))
		return
	}

	m.writeSuccess(w, http.StatusCreated, result)
}

// handleDeliver handles POST /v1/deliver: resolve a free-text query to its
// best match and route it to the destination chat. A query nothing matches
// reports found=false; a suppressed repeat reports delivered=false.
func (m *Mux) handleDeliver(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("catalog-service").Start(r.Context(), "handleDeliver")
	defer span.End()
	defer r.Body.Close()

	var req struct {
		ChatID   string `json:"chat_id"`
		SenderID string `json:"sender_id"`
		Query    string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		span.SetStatus(codes.Error, "invalid JSON")
		m.writeErrorDef(w, errordefs.New(errordefs.CAT_BAD_REQUEST, "invalid JSON", correlationID(ctx)))
		return
	}
	if req.ChatID == "" || strings.TrimSpace(req.Query) == "" {
		m.writeErrorDef(w, errordefs.New(errordefs.CAT_VALIDATION, "chat_id and query are required", correlationID(ctx)))
		return
	}

	corpus := m.svc.LoadForQuery(ctx)
	rec, score, found := m.engine.FindBest(req.Query, corpus)
	span.SetAttributes(attribute.Bool("found", found), attribute.Int("score", score))

	if !found {
		m.writeSuccess(w, http.StatusOK, map[string]interface{}{
			"found":     false,
			"delivered": false,
		})
		return
	}

	delivered, err := m.deliverer.Deliver(ctx, req.ChatID, req.SenderID, req.Query, rec)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		m.writeErrorDef(w, errordefs.New(errordefs.CAT_INTERNAL, "delivery failed", correlationID(ctx)))
		return
	}

	m.writeSuccess(w, http.StatusOK, map[string]interface{}{
		"found":     true,
		"delivered": delivered,
		"score":     score,
		"record":    rec,
	})
}

// handleSettings dispatches GET and PUT /v1/settings.
func (m *Mux) handleSettings(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("catalog-service").Start(r.Context(), "handleSettings")
	defer span.End()

	switch r.Method {
	case http.MethodGet:
		m.writeSuccess(w, http.StatusOK, m.svc.Settings(ctx))
	case http.MethodPut:
		defer r.Body.Close()
		var req model.Settings
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			span.SetStatus(codes.Error, "invalid JSON")
			m.writeErrorDef(w, errordefs.New(errordefs.CAT_BAD_REQUEST, "invalid JSON", correlationID(ctx)))
			return
		}
		if err := m.svc.SetAutoForward(ctx, req.AutoForward); err != nil {
			span.SetStatus(codes.Error, err.Error())
			m.writeErrorDef(w, errordefs.New(errordefs.CAT_IO, fmt.Sprintf("failed to persist settings: %v", err), correlationID(ctx)))
			return
		}
		m.writeSuccess(w, http.StatusOK, req)
	default:
		m.writeErrorDef(w, errordefs.New(errordefs.CAT_BAD_REQUEST, "method not allowed", correlationID(ctx)))
	}
}

// handleAudit handles GET /v1/audit?limit=..., the most recent mutation
// audit entries, newest first.
func (m *Mux) handleAudit(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("catalog-service").Start(r.Context(), "handleAudit")
	defer span.End()

	limit := 25
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
			if limit > MaxAuditEntries {
				limit = MaxAuditEntries
			}
		}
	}

	if m.oplog == nil {
		m.writeSuccess(w, http.StatusOK, map[string]interface{}{
			"count":   0,
			"entries": []audit.Entry{},
		})
		return
	}

	entries, err := m.oplog.Recent(ctx, limit)
	if err != nil {
		span.SetStatus(codes.Error, "failed to read audit trail")
		m.writeErrorDef(w, errordefs.New(errordefs.CAT_INTERNAL, "failed to read audit trail", correlationID(ctx)))
		return
	}

	m.writeSuccess(w, http.StatusOK, map[string]interface{}{
		"count":   len(entries),
		"entries": entries,
	})
}
