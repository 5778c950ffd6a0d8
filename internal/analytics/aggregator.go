package analytics

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/kafka"
)

// latencyWindow is how many recent latencies percentiles are computed over.
const latencyWindow = 10000

type AggregatedStats struct {
	TotalSearches     int64                     `json:"total_searches"`
	FailedSearches    int64                     `json:"failed_searches"`
	CacheHits         int64                     `json:"cache_hits"`
	CacheMisses       int64                     `json:"cache_misses"`
	ZeroResultCount   int64                     `json:"zero_result_count"`
	Operations        map[string]OperationStats `json:"operations"`
	AvgLatencyMs      float64                   `json:"avg_latency_ms"`
	P50LatencyMs      float64                   `json:"p50_latency_ms"`
	P95LatencyMs      float64                   `json:"p95_latency_ms"`
	P99LatencyMs      float64                   `json:"p99_latency_ms"`
	TopQueries        []QueryCount              `json:"top_queries"`
	ZeroResultQueries []QueryCount              `json:"zero_result_queries"`
	TopDocuments      []QueryCount              `json:"top_documents"`
	DocsIndexed       int64                     `json:"docs_indexed"`
	DocsUnchanged     int64                     `json:"docs_unchanged"`
	DocsFailed        int64                     `json:"docs_failed"`
	QueriesPerMinute  float64                   `json:"queries_per_minute"`
	CapturedAt        time.Time                 `json:"captured_at"`
}

// OperationStats is the per-operation slice of the search counters.
type OperationStats struct {
	Count        int64   `json:"count"`
	ZeroResults  int64   `json:"zero_results"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

type opCounters struct {
	count       int64
	zeroResults int64
	latencySum  float64
}

// Aggregator folds analytics events into running totals. It is fed either
// by a Kafka consumer through HandleEvent or directly by a Collector.
type Aggregator struct {
	mu                sync.Mutex
	totalSearches     int64
	failedSearches    int64
	cacheHits         int64
	cacheMisses       int64
	zeroResults       int64
	ops               map[string]*opCounters
	latencies         []float64
	next              int
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	documentCounts    map[string]int64
	indexStatus       map[string]int64
	startTime         time.Time
	logger            *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		ops:               make(map[string]*opCounters),
		latencies:         make([]float64, 0, 1024),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		documentCounts:    make(map[string]int64),
		indexStatus:       make(map[string]int64),
		startTime:         time.Now(),
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent returns a Kafka MessageHandler that decodes analytics events
// into agg. Undecodable messages are logged and skipped so they do not
// block the partition.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		if err := agg.Decode(value); err != nil {
			agg.logger.Error("failed to decode analytics event", "key", string(key), "error", err)
		}
		return nil
	}
}

// Decode records one JSON-encoded event.
func (a *Aggregator) Decode(value []byte) error {
	env, err := kafka.DecodeJSON[envelope](value)
	if err != nil {
		return err
	}
	switch env.Type {
	case EventSearch:
		event, err := kafka.DecodeJSON[SearchEvent](value)
		if err != nil {
			return err
		}
		a.RecordSearch(event)
	case EventIndex:
		event, err := kafka.DecodeJSON[IndexEvent](value)
		if err != nil {
			return err
		}
		a.RecordIndex(event)
	default:
		a.logger.Warn("unknown analytics event type", "type", env.Type)
	}
	return nil
}

// PublishBatch records events in-process, letting a Collector feed the
// aggregator when Kafka is disabled.
func (a *Aggregator) PublishBatch(_ context.Context, events []kafka.Event) error {
	for _, e := range events {
		switch v := e.Value.(type) {
		case SearchEvent:
			a.RecordSearch(v)
		case IndexEvent:
			a.RecordIndex(v)
		}
	}
	return nil
}

func (a *Aggregator) RecordSearch(event SearchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalSearches++
	a.documentCounts[event.Document]++
	if event.Failed {
		a.failedSearches++
		return
	}
	if event.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}

	op := a.ops[event.Operation]
	if op == nil {
		op = &opCounters{}
		a.ops[event.Operation] = op
	}
	op.count++
	op.latencySum += event.LatencyMs

	query := event.Operation + " " + strings.Join(event.Terms, " ")
	a.queryCounts[query]++
	if event.TotalHits == 0 {
		a.zeroResults++
		op.zeroResults++
		a.zeroResultQueries[query]++
	}

	if len(a.latencies) < latencyWindow {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.next] = event.LatencyMs
		a.next = (a.next + 1) % latencyWindow
	}
}

func (a *Aggregator) RecordIndex(event IndexEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.indexStatus[event.Status]++
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := AggregatedStats{
		TotalSearches:   a.totalSearches,
		FailedSearches:  a.failedSearches,
		CacheHits:       a.cacheHits,
		CacheMisses:     a.cacheMisses,
		ZeroResultCount: a.zeroResults,
		Operations:      make(map[string]OperationStats, len(a.ops)),
		DocsIndexed:     a.indexStatus["indexed"],
		DocsUnchanged:   a.indexStatus["unchanged"],
		DocsFailed:      a.indexStatus["failed"],
		CapturedAt:      time.Now().UTC(),
	}
	for name, op := range a.ops {
		stats.Operations[name] = OperationStats{
			Count:        op.count,
			ZeroResults:  op.zeroResults,
			AvgLatencyMs: op.latencySum / float64(op.count),
		}
	}
	if len(a.latencies) > 0 {
		sorted := make([]float64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Float64s(sorted)

		var sum float64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = sum / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, 10)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, 10)
	stats.TopDocuments = topN(a.documentCounts, 10)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}

	return stats
}

func percentile(sorted []float64, pct int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN returns the n largest counts, ties broken by name.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}

// Restore seeds the counters from a persisted snapshot. Only the top-N
// query lists survive a snapshot, so long-tail query counts start over.
func (a *Aggregator) Restore(s AggregatedStats) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalSearches += s.TotalSearches
	a.failedSearches += s.FailedSearches
	a.cacheHits += s.CacheHits
	a.cacheMisses += s.CacheMisses
	a.zeroResults += s.ZeroResultCount
	for name, op := range s.Operations {
		c := a.ops[name]
		if c == nil {
			c = &opCounters{}
			a.ops[name] = c
		}
		c.count += op.Count
		c.zeroResults += op.ZeroResults
		c.latencySum += op.AvgLatencyMs * float64(op.Count)
	}
	for _, q := range s.TopQueries {
		a.queryCounts[q.Query] += q.Count
	}
	for _, q := range s.ZeroResultQueries {
		a.zeroResultQueries[q.Query] += q.Count
	}
	for _, d := range s.TopDocuments {
		a.documentCounts[d.Query] += d.Count
	}
	a.indexStatus["indexed"] += s.DocsIndexed
	a.indexStatus["unchanged"] += s.DocsUnchanged
	a.indexStatus["failed"] += s.DocsFailed
	a.logger.Info("analytics restored from snapshot", "captured_at", s.CapturedAt, "total_searches", s.TotalSearches)
}
