// Package publisher records documents in PostgreSQL and publishes ingest
// events to Kafka for the search service to index. Writes are idempotent
// per idempotency key.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/resilience"
)

// Repository is the document metadata store.
type Repository interface {
	Create(ctx context.Context, doc *ingestion.Document) (string, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*ingestion.Document, error)
	UpdateStatus(ctx context.Context, id, status, reason string) error
}

// EventPublisher writes one event to the ingest topic.
type EventPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Publisher coordinates document persistence and Kafka event production.
type Publisher struct {
	repo     Repository
	producer EventPublisher
	retry    resilience.RetryConfig
	logger   *slog.Logger
}

// New creates a Publisher with the given repository and Kafka producer.
func New(repo Repository, producer EventPublisher, retry resilience.RetryConfig) *Publisher {
	return &Publisher{
		repo:     repo,
		producer: producer,
		retry:    retry,
		logger:   slog.Default().With("component", "publisher"),
	}
}

// Ingest records the document as PENDING and publishes an IngestEvent. A
// repeated idempotency key returns the original document when the content
// matches and ErrIdempotencyConflict when it does not. If the event cannot
// be published after retries the document is marked FAILED.
func (p *Publisher) Ingest(ctx context.Context, req *ingestion.IngestRequest) (*ingestion.IngestResponse, error) {
	log := logger.FromContext(ctx)
	contentHash := indexer.Fingerprint([]byte(req.Body))
	if req.IdempotencyKey != "" {
		existing, err := p.repo.FindByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("checking idempotency key: %w", err)
		}
		if existing != nil {
			if existing.Name != req.Name || existing.ContentHash != contentHash {
				return nil, apperrors.New(apperrors.ErrIdempotencyConflict, http.StatusConflict,
					"idempotency key was used for a different document")
			}
			log.Info("duplicate ingestion detected",
				"idempotency_key", req.IdempotencyKey,
				"existing_id", existing.ID,
			)
			return responseFor(existing.ID, existing.Name, existing.Status, existing.ContentHash), nil
		}
	}

	docID, err := p.repo.Create(ctx, &ingestion.Document{
		Name:           req.Name,
		ContentHash:    contentHash,
		ContentSize:    len(req.Body),
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return nil, err
	}

	event := kafka.Event{
		Key: req.Name,
		Value: ingestion.IngestEvent{
			DocumentID:  docID,
			Name:        req.Name,
			Body:        req.Body,
			ContentHash: contentHash,
			IngestedAt:  time.Now().UTC(),
		},
		RequestID: logger.RequestID(ctx),
	}
	err = resilience.Retry(ctx, "publish-ingest-event", p.retry, func() error {
		err := p.producer.Publish(ctx, event)
		if errors.Is(err, kafka.ErrEncode) {
			return resilience.Permanent(err)
		}
		return err
	})
	if err != nil {
		log.Error("failed to publish ingest event", "doc_id", docID, "error", err)
		if uerr := p.repo.UpdateStatus(context.WithoutCancel(ctx), docID, ingestion.StatusFailed, "publish failed: "+err.Error()); uerr != nil {
			log.Error("failed to mark document failed", "doc_id", docID, "error", uerr)
		}
		return nil, apperrors.Newf(apperrors.ErrUnavailable, http.StatusServiceUnavailable,
			"document %s recorded but could not be queued for indexing", docID)
	}

	log.Info("document queued for indexing",
		"doc_id", docID,
		"name", req.Name,
		"size", len(req.Body),
	)
	return responseFor(docID, req.Name, ingestion.StatusPending, contentHash), nil
}

func responseFor(id, name, status, hash string) *ingestion.IngestResponse {
	return &ingestion.IngestResponse{
		DocumentID:  id,
		Name:        name,
		Status:      status,
		ContentHash: hash,
	}
}
