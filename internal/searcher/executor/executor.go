// Package executor runs parsed queries against documents in the catalog.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/metrics"
)

// Catalog resolves a document name to its engine.
type Catalog interface {
	Get(name string) (*indexer.Engine, error)
}

// SearchResult is the answer to one query. Count is the number of results
// returned; TotalHits counts them before the limit was applied.
type SearchResult struct {
	Document    string           `json:"document"`
	Operation   parser.Operation `json:"operation"`
	Terms       []string         `json:"terms"`
	Count       int              `json:"count"`
	TotalHits   int              `json:"total_hits"`
	Truncated   bool             `json:"truncated,omitempty"`
	Positions   []index.Position `json:"positions,omitempty"`
	Lines       []int            `json:"lines,omitempty"`
	Fingerprint string           `json:"fingerprint"`
	TookMs      float64          `json:"took_ms"`
}

// MarshalJSON emits positions or lines whenever the operation fills them,
// as [] when nothing matched. Count results carry neither.
func (r SearchResult) MarshalJSON() ([]byte, error) {
	type plain SearchResult
	out := struct {
		plain
		Positions *[]index.Position `json:"positions,omitempty"`
		Lines     *[]int            `json:"lines,omitempty"`
	}{plain: plain(r)}
	if r.Positions != nil {
		out.Positions = &r.Positions
	}
	if r.Lines != nil {
		out.Lines = &r.Lines
	}
	return json.Marshal(out)
}

type Executor struct {
	catalog    Catalog
	maxResults int
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// New creates an executor. maxResults caps every limit; m may be nil.
func New(catalog Catalog, maxResults int, m *metrics.Metrics) *Executor {
	return &Executor{
		catalog:    catalog,
		maxResults: maxResults,
		metrics:    m,
		logger:     slog.Default().With("component", "query-executor"),
	}
}

// Execute runs plan against document. A limit of zero or less, or one above
// the executor's cap, is replaced by the cap.
func (e *Executor) Execute(ctx context.Context, document string, plan *parser.QueryPlan, limit int) (*SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("query on %q: %w", document, apperrors.ErrTimeout)
	}
	engine, err := e.catalog.Get(document)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > e.maxResults {
		limit = e.maxResults
	}

	start := time.Now()
	result := &SearchResult{
		Document:    document,
		Operation:   plan.Operation,
		Terms:       plan.Terms,
		Fingerprint: engine.Fingerprint(),
	}
	err = run(engine, plan, result)
	elapsed := time.Since(start)
	e.observe(plan.Operation, result.TotalHits, elapsed, err)
	if err != nil {
		return nil, fmt.Errorf("%s on %q: %w", plan.Operation, document, err)
	}

	if result.Positions != nil && len(result.Positions) > limit {
		result.Positions = result.Positions[:limit]
		result.Truncated = true
	}
	if result.Lines != nil && len(result.Lines) > limit {
		result.Lines = result.Lines[:limit]
		result.Truncated = true
	}
	switch {
	case result.Positions != nil:
		result.Count = len(result.Positions)
	case result.Lines != nil:
		result.Count = len(result.Lines)
	default:
		result.Count = result.TotalHits
	}
	result.TookMs = float64(elapsed.Microseconds()) / 1000

	logger.FromContext(ctx).Debug("query executed",
		"document", document,
		"operation", plan.Operation,
		"terms", plan.Terms,
		"total_hits", result.TotalHits,
		"duration", elapsed,
	)
	return result, nil
}

func run(engine *indexer.Engine, plan *parser.QueryPlan, result *SearchResult) error {
	switch plan.Operation {
	case parser.OpCount:
		n, err := engine.Count(plan.Terms[0])
		if err != nil {
			return err
		}
		result.TotalHits = n
	case parser.OpPhrase:
		positions, err := engine.FindPhrase(plan.Terms)
		if err != nil {
			return err
		}
		result.Positions = nonNil(positions)
		result.TotalHits = len(positions)
	case parser.OpPrefix:
		positions, err := engine.FindPrefix(plan.Terms[0])
		if err != nil {
			return err
		}
		result.Positions = nonNil(positions)
		result.TotalHits = len(positions)
	case parser.OpAll, parser.OpAny:
		find := engine.WordsOnLine
		if plan.Operation == parser.OpAny {
			find = engine.SomeWordsOnLine
		}
		lines, err := find(plan.Terms)
		if err != nil {
			return err
		}
		if lines == nil {
			lines = []int{}
		}
		result.Lines = lines
		result.TotalHits = len(lines)
	default:
		return apperrors.Invalid("unknown operation %q", plan.Operation)
	}
	return nil
}

func (e *Executor) observe(op parser.Operation, hits int, elapsed time.Duration, err error) {
	if e.metrics == nil {
		return
	}
	outcome := "hit"
	switch {
	case err != nil:
		outcome = "error"
	case hits == 0:
		outcome = "zero_result"
	}
	e.metrics.QueriesTotal.WithLabelValues(string(op), outcome).Inc()
	e.metrics.QueryLatency.WithLabelValues(string(op)).Observe(elapsed.Seconds())
	if err == nil {
		e.metrics.QueryResultsCount.WithLabelValues(string(op)).Observe(float64(hits))
	}
}

func nonNil(positions []index.Position) []index.Position {
	if positions == nil {
		return []index.Position{}
	}
	return positions
}

// Fingerprint returns the content fingerprint of document's current
// version, for cache keys.
func (e *Executor) Fingerprint(document string) (string, error) {
	engine, err := e.catalog.Get(document)
	if err != nil {
		return "", err
	}
	return engine.Fingerprint(), nil
}
