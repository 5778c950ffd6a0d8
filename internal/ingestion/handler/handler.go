package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/logger"
)

// jsonOverhead is the room left for the JSON envelope around a body of the
// maximum size.
const jsonOverhead = 64 << 10

type Ingester interface {
	Ingest(ctx context.Context, req *ingestion.IngestRequest) (*ingestion.IngestResponse, error)
}

type DocumentReader interface {
	Get(ctx context.Context, id string) (*ingestion.Document, error)
}

type Handler struct {
	ingester    Ingester
	documents   DocumentReader
	maxBodySize int64
	logger      *slog.Logger
}

func New(ingester Ingester, documents DocumentReader, maxBodySize int64) *Handler {
	return &Handler{
		ingester:    ingester,
		documents:   documents,
		maxBodySize: maxBodySize,
		logger:      slog.Default().With("component", "ingestion-handler"),
	}
}

// Ingest handles POST /api/v1/documents.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize+jsonOverhead)
	var req ingestion.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validator.ValidateIngestRequest(&req, h.maxBodySize); err != nil {
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx = logger.WithDocument(ctx, req.Name)
	resp, err := h.ingester.Ingest(ctx, &req)
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("ingestion failed",
			"name", req.Name,
			"error", err,
			"status_code", statusCode,
		)
		h.writeError(w, statusCode, publicMessage(err, "ingestion failed"))
		return
	}
	log.Info("document accepted",
		"doc_id", resp.DocumentID,
		"name", resp.Name,
	)
	h.writeJSON(w, http.StatusAccepted, resp)
}

// Status handles GET /api/v1/documents/{id}.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	doc, err := h.documents.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		if status >= http.StatusInternalServerError {
			logger.FromContext(r.Context()).Error("document lookup failed", "error", err)
		}
		h.writeError(w, status, publicMessage(err, "document lookup failed"))
		return
	}
	h.writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
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

// publicMessage returns the error text for client errors and fallback for
// server errors, whose details stay in the logs.
func publicMessage(err error, fallback string) string {
	if apperrors.HTTPStatusCode(err) < http.StatusInternalServerError {
		return err.Error()
	}
	return fallback
}
