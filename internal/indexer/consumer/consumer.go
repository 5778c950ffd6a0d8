// Package consumer reads ingest events from Kafka, loads each document into
// the catalog and reports the outcome to the documents table and to
// analytics.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/indexer/catalog"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/resilience"
)

// Loader indexes a document under a name.
type Loader interface {
	Load(name string, body io.Reader) (*indexer.Engine, catalog.Outcome, error)
}

// StatusUpdater records the indexing outcome of a document row.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, id, status, reason string) error
}

// IndexTracker receives index events for analytics.
type IndexTracker interface {
	TrackIndex(event analytics.IndexEvent)
}

// HandleMessage returns a Kafka MessageHandler that loads every ingest event
// into loader. statuses and tracker may be nil. Undecodable and unindexable
// messages are acknowledged: retrying them cannot succeed.
func HandleMessage(loader Loader, statuses StatusUpdater, tracker IndexTracker) kafka.MessageHandler {
	base := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.IngestEvent](value)
		if err != nil {
			base.Error("failed to decode ingest event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		ctx = logger.WithDocument(ctx, event.Name)
		log := logger.FromContext(ctx).With("component", "index-consumer", "doc_id", event.DocumentID)

		start := time.Now()
		engine, outcome, loadErr := loader.Load(event.Name, strings.NewReader(event.Body))
		latency := time.Since(start)

		status, reason := ingestion.StatusIndexed, ""
		if loadErr != nil {
			status, reason = ingestion.StatusFailed, loadErr.Error()
			log.Error("indexing failed", "error", loadErr)
		} else {
			log.Info("document indexed", "outcome", outcome, "duration", latency)
		}

		if statuses != nil && event.DocumentID != "" {
			err := resilience.Retry(ctx, "update-document-status", resilience.RetryConfig{}, func() error {
				err := statuses.UpdateStatus(ctx, event.DocumentID, status, reason)
				if errors.Is(err, apperrors.ErrDocumentNotFound) {
					return resilience.Permanent(err)
				}
				return err
			})
			switch {
			case errors.Is(err, apperrors.ErrDocumentNotFound):
				// The row was deleted; the document is searchable regardless.
				log.Warn("document row missing, status not recorded", "status", status)
			case err != nil:
				return fmt.Errorf("recording status of document %s: %w", event.DocumentID, err)
			}
		}
		if tracker != nil {
			tracker.TrackIndex(indexEvent(event, engine, outcome, reason, latency))
		}
		return nil
	}
}

func indexEvent(event ingestion.IngestEvent, engine *indexer.Engine, outcome catalog.Outcome, reason string, latency time.Duration) analytics.IndexEvent {
	ie := analytics.IndexEvent{
		Document:   event.Name,
		DocumentID: event.DocumentID,
		Status:     string(outcome),
		SizeBytes:  int64(len(event.Body)),
		LatencyMs:  float64(latency.Microseconds()) / 1000,
		Error:      reason,
	}
	if engine != nil {
		stats := engine.Stats()
		ie.Lines = stats.Lines
		ie.UniqueWords = stats.UniqueWords
	}
	return ie
}
