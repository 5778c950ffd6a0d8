// Package handler exposes the catalog and its queries over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/indexer/catalog"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/logger"
)

type SearchExecutor interface {
	Execute(ctx context.Context, document string, plan *parser.QueryPlan, limit int) (*executor.SearchResult, error)
	Fingerprint(document string) (string, error)
}

// Documents is the catalog as the handler uses it.
type Documents interface {
	Get(name string) (*indexer.Engine, error)
	Stats() []indexer.DocumentStats
	Load(name string, r io.Reader) (*indexer.Engine, catalog.Outcome, error)
	Remove(name string) bool
}

// Tracker receives analytics events.
type Tracker interface {
	TrackSearch(event analytics.SearchEvent)
	TrackIndex(event analytics.IndexEvent)
}

type Options struct {
	DefaultLimit    int
	MaxResults      int
	SearchTimeout   time.Duration
	MaxDocumentSize int64
}

type Handler struct {
	executor  SearchExecutor
	documents Documents
	cache     *cache.QueryCache
	tracker   Tracker
	opts      Options
	logger    *slog.Logger
}

// New creates the handler. queryCache and tracker may be nil.
func New(exec SearchExecutor, documents Documents, queryCache *cache.QueryCache, tracker Tracker, opts Options) *Handler {
	return &Handler{
		executor:  exec,
		documents: documents,
		cache:     queryCache,
		tracker:   tracker,
		opts:      opts,
		logger:    slog.Default().With("component", "search-handler"),
	}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/documents", h.ListDocuments)
	mux.HandleFunc("GET /api/v1/documents/{name}", h.GetDocument)
	mux.HandleFunc("PUT /api/v1/documents/{name}", h.PutDocument)
	mux.HandleFunc("DELETE /api/v1/documents/{name}", h.DeleteDocument)
	mux.HandleFunc("GET /api/v1/documents/{name}/search", h.Search)
	mux.HandleFunc("GET /api/v1/documents/{name}/words", h.Words)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /health", h.Health)
}

// Search handles GET /api/v1/documents/{name}/search?op=&q=&limit=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	document := r.PathValue("name")
	ctx := logger.WithDocument(r.Context(), document)
	log := logger.FromContext(ctx)

	q := r.URL.Query()
	limit, err := h.parseLimit(q.Get("limit"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	plan, err := parser.Parse(q.Get("op"), q.Get("q"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, h.opts.SearchTimeout)
	defer cancel()

	var (
		result   *executor.SearchResult
		cacheHit bool
	)
	compute := func() (*executor.SearchResult, error) {
		return h.executor.Execute(ctx, document, plan, limit)
	}
	if h.cache != nil {
		var fingerprint string
		fingerprint, err = h.executor.Fingerprint(document)
		if err == nil {
			key := cache.Key{Document: document, Fingerprint: fingerprint, Plan: plan, Limit: limit}
			result, cacheHit, err = h.cache.GetOrCompute(ctx, key, compute)
		}
	} else {
		result, err = compute()
	}

	latency := time.Since(start)
	event := analytics.SearchEvent{
		Document:  document,
		Operation: string(plan.Operation),
		Terms:     plan.Terms,
		LatencyMs: float64(latency.Microseconds()) / 1000,
		CacheHit:  cacheHit,
		RequestID: logger.RequestID(ctx),
	}
	if err != nil {
		event.Failed = true
		h.track(event)
		h.writeErr(w, r, err)
		return
	}
	event.TotalHits = result.TotalHits
	event.Returned = result.Count
	h.track(event)

	log.Info("search completed",
		"operation", plan.Operation,
		"terms", plan.Terms,
		"total_hits", result.TotalHits,
		"cache_hit", cacheHit,
		"latency", latency,
	)
	h.writeJSON(w, http.StatusOK, result)
}

type wordsResponse struct {
	Document  string            `json:"document"`
	Prefix    string            `json:"prefix"`
	Words     []index.WordCount `json:"words"`
	Total     int               `json:"total"`
	Truncated bool              `json:"truncated,omitempty"`
}

// Words handles GET /api/v1/documents/{name}/words?prefix=&limit=.
func (h *Handler) Words(w http.ResponseWriter, r *http.Request) {
	document := r.PathValue("name")
	engine, err := h.documents.Get(document)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	limit, err := h.parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	prefix := r.URL.Query().Get("prefix")
	words := engine.Words(prefix)
	resp := wordsResponse{Document: document, Prefix: prefix, Words: words, Total: len(words)}
	if len(words) > limit {
		resp.Words = words[:limit]
		resp.Truncated = true
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// ListDocuments handles GET /api/v1/documents.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	stats := h.documents.Stats()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"documents": stats,
		"total":     len(stats),
	})
}

// GetDocument handles GET /api/v1/documents/{name}.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	engine, err := h.documents.Get(r.PathValue("name"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, engine.Stats())
}

// PutDocument handles PUT /api/v1/documents/{name}; the request body is the
// document text. It answers 201 for a new or changed document and 200 when
// the content is unchanged.
func (h *Handler) PutDocument(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if msg := validator.ValidateName(name); msg != "" {
		h.writeErr(w, r, apperrors.Invalid("%s", msg))
		return
	}
	start := time.Now()
	body := http.MaxBytesReader(w, r.Body, h.opts.MaxDocumentSize)
	engine, outcome, err := h.documents.Load(name, body)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		err = fmt.Errorf("%w: limit is %d bytes", apperrors.ErrDocumentTooLarge, tooLarge.Limit)
	}

	event := analytics.IndexEvent{
		Document:  name,
		Status:    string(outcome),
		LatencyMs: float64(time.Since(start).Microseconds()) / 1000,
	}
	if err != nil {
		event.Error = err.Error()
		h.trackIndex(event)
		h.writeErr(w, r, err)
		return
	}
	stats := engine.Stats()
	event.Lines = stats.Lines
	event.UniqueWords = stats.UniqueWords
	event.SizeBytes = stats.SizeBytes
	h.trackIndex(event)

	status := http.StatusCreated
	if outcome == catalog.Unchanged {
		status = http.StatusOK
	}
	h.writeJSON(w, status, map[string]any{
		"outcome":  outcome,
		"document": stats,
	})
}

// DeleteDocument handles DELETE /api/v1/documents/{name}.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !h.documents.Remove(name) {
		h.writeErr(w, r, fmt.Errorf("%q: %w", name, apperrors.ErrDocumentNotFound))
		return
	}
	if h.cache != nil {
		if _, err := h.cache.Invalidate(r.Context(), name); err != nil {
			logger.FromContext(r.Context()).Warn("cache invalidation after delete failed", "document", name, "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"circuit":  h.cache.State().String(),
	})
}

// CacheInvalidate handles POST /api/v1/cache/invalidate[?document=NAME].
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	deleted, err := h.cache.Invalidate(r.Context(), r.URL.Query().Get("document"))
	if err != nil {
		logger.FromContext(r.Context()).Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) parseLimit(s string) (int, error) {
	if s == "" {
		return h.opts.DefaultLimit, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, apperrors.Invalid("limit must be a positive integer")
	}
	return min(n, h.opts.MaxResults), nil
}

func (h *Handler) track(event analytics.SearchEvent) {
	if h.tracker != nil {
		h.tracker.TrackSearch(event)
	}
}

func (h *Handler) trackIndex(event analytics.IndexEvent) {
	if h.tracker != nil {
		h.tracker.TrackIndex(event)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeErr maps err to a status code. Client errors carry their message;
// server errors are logged and answered generically.
func (h *Handler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
		h.writeError(w, status, http.StatusText(status))
		return
	}
	h.writeError(w, status, err.Error())
}
