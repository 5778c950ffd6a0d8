// Package ingestion defines the request/response types and Kafka event schemas
// used by the document ingestion pipeline.
package ingestion

import "time"

// Document lifecycle states stored in the documents table.
const (
	StatusPending = "PENDING"
	StatusIndexed = "INDEXED"
	StatusFailed  = "FAILED"
)

// IngestRequest is the JSON body accepted by the ingestion HTTP endpoint.
type IngestRequest struct {
	Name           string `json:"name"`
	Body           string `json:"body"`
	IdempotencyKey string `json:"idempotency_key"`
}

// IngestResponse is returned to the caller after a document is accepted.
type IngestResponse struct {
	DocumentID  string `json:"document_id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	ContentHash string `json:"content_hash"`
}

// IngestEvent is the Kafka message payload produced after a document is
// recorded and ready for indexing.
type IngestEvent struct {
	DocumentID  string    `json:"document_id"`
	Name        string    `json:"name"`
	Body        string    `json:"body"`
	ContentHash string    `json:"content_hash"`
	IngestedAt  time.Time `json:"ingested_at"`
}

// Document is one row of the documents table.
type Document struct {
	ID             string     `json:"document_id"`
	Name           string     `json:"name"`
	ContentHash    string     `json:"content_hash"`
	ContentSize    int        `json:"content_size"`
	IdempotencyKey string     `json:"idempotency_key,omitempty"`
	Status         string     `json:"status"`
	Error          string     `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	IndexedAt      *time.Time `json:"indexed_at,omitempty"`
}
