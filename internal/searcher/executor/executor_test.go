package executor

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/indexer/catalog"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/metrics"
)

const pets = "The cat sat on the mat.\nThe dog sat on the log!\n"

func newExecutor(t *testing.T, maxResults int) (*Executor, *metrics.Metrics) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	c := catalog.New(1<<20, 1, m)
	_, _, err := c.Load("pets", strings.NewReader(pets))
	require.NoError(t, err)
	return New(c, maxResults, m), m
}

func execute(t *testing.T, e *Executor, op, query string, limit int) *SearchResult {
	t.Helper()
	plan, err := parser.Parse(op, query)
	require.NoError(t, err)
	result, err := e.Execute(context.Background(), "pets", plan, limit)
	require.NoError(t, err)
	return result
}

func TestExecuteOperations(t *testing.T) {
	e, _ := newExecutor(t, 100)

	count := execute(t, e, "count", "the", 0)
	assert.Equal(t, 4, count.Count)
	assert.Equal(t, 4, count.TotalHits)
	assert.Nil(t, count.Positions)
	assert.NotEmpty(t, count.Fingerprint)

	phrase := execute(t, e, "phrase", "sat on", 0)
	assert.Equal(t, []index.Position{{Line: 1, Column: 9}, {Line: 2, Column: 9}}, phrase.Positions)
	assert.Equal(t, 2, phrase.Count)

	prefix := execute(t, e, "prefix", "ma", 0)
	assert.Equal(t, []index.Position{{Line: 1, Column: 20}}, prefix.Positions)

	all := execute(t, e, "all", "cat mat", 0)
	assert.Equal(t, []int{1}, all.Lines)

	anyLines := execute(t, e, "any", "cat dog", 0)
	assert.Equal(t, []int{1, 2}, anyLines.Lines)

	missing := execute(t, e, "count", "fox", 0)
	assert.Zero(t, missing.Count)

	none := execute(t, e, "prefix", "zzz", 0)
	assert.Equal(t, []index.Position{}, none.Positions)
	assert.Zero(t, none.TotalHits)
}

func TestExecuteLimit(t *testing.T) {
	e, _ := newExecutor(t, 3)

	capped := execute(t, e, "prefix", "t", 0)
	assert.Equal(t, 4, capped.TotalHits)
	assert.Equal(t, 3, capped.Count)
	assert.True(t, capped.Truncated)
	assert.Equal(t, index.Position{Line: 1, Column: 1}, capped.Positions[0])

	one := execute(t, e, "any", "cat dog", 1)
	assert.Equal(t, []int{1}, one.Lines)
	assert.True(t, one.Truncated)

	full := execute(t, e, "phrase", "sat on", 10)
	assert.False(t, full.Truncated)
	assert.Len(t, full.Positions, 2)
}

func TestExecuteErrors(t *testing.T) {
	e, _ := newExecutor(t, 100)
	plan, err := parser.Parse("count", "cat")
	require.NoError(t, err)

	_, err = e.Execute(context.Background(), "missing", plan, 0)
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Execute(ctx, "pets", plan, 0)
	assert.ErrorIs(t, err, apperrors.ErrTimeout)
}

func TestExecuteMetrics(t *testing.T) {
	e, m := newExecutor(t, 100)
	execute(t, e, "count", "cat", 0)
	execute(t, e, "count", "fox", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues("count", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues("count", "zero_result")))
}

func TestSearchResultJSONShape(t *testing.T) {
	e, _ := newExecutor(t, 10)

	data, err := json.Marshal(execute(t, e, "phrase", "mat sat", 0))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"positions":[]`)
	assert.NotContains(t, string(data), `"lines"`)

	data, err = json.Marshal(execute(t, e, "any", "zebra", 0))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"lines":[]`)
	assert.NotContains(t, string(data), `"positions"`)

	data, err = json.Marshal(execute(t, e, "count", "zebra", 0))
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"positions"`)
	assert.NotContains(t, string(data), `"lines"`)
	assert.Contains(t, string(data), `"count":0`)

	var back SearchResult
	data, err = json.Marshal(execute(t, e, "phrase", "sat on", 0))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []index.Position{{Line: 1, Column: 9}, {Line: 2, Column: 9}}, back.Positions)
	assert.Equal(t, "phrase", string(back.Operation))
}
