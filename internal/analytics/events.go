package analytics

import "time"

type EventType string

const (
	EventSearch EventType = "search"
	EventIndex  EventType = "index"
)

// SearchEvent records one answered query.
type SearchEvent struct {
	Type      EventType `json:"type"`
	Document  string    `json:"document"`
	Operation string    `json:"operation"`
	Terms     []string  `json:"terms"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs float64   `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Failed    bool      `json:"failed,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// IndexEvent records one document load. Status is indexed, unchanged or
// failed.
type IndexEvent struct {
	Type        EventType `json:"type"`
	Document    string    `json:"document"`
	DocumentID  string    `json:"document_id,omitempty"`
	Status      string    `json:"status"`
	Lines       int       `json:"lines"`
	UniqueWords int       `json:"unique_words"`
	SizeBytes   int64     `json:"size_bytes"`
	LatencyMs   float64   `json:"latency_ms"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// envelope reads only the discriminator of an encoded event.
type envelope struct {
	Type EventType `json:"type"`
}
