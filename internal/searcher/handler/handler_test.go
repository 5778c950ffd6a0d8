package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/indexer/catalog"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/searcher/executor"
	pkgredis "github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/redis"
)

const pets = "The cat sat on the mat.\nThe dog sat on the log!\n"

type recordingTracker struct {
	mu       sync.Mutex
	searches []analytics.SearchEvent
	indexes  []analytics.IndexEvent
}

func (r *recordingTracker) TrackSearch(e analytics.SearchEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.searches = append(r.searches, e)
}

func (r *recordingTracker) TrackIndex(e analytics.IndexEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexes = append(r.indexes, e)
}

type mapStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (s *mapStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return "", pkgredis.ErrNil
	}
	return v, nil
}

func (s *mapStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = string(value.([]byte))
	return nil
}

func (s *mapStore) FlushByPattern(_ context.Context, _ string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.data))
	s.data = make(map[string]string)
	return n, nil
}

type fixture struct {
	mux     *http.ServeMux
	catalog *catalog.Catalog
	tracker *recordingTracker
	cache   *cache.QueryCache
}

func newFixture(t *testing.T, withCache bool) *fixture {
	t.Helper()
	c := catalog.New(1024, 1, nil)
	_, _, err := c.Load("pets", strings.NewReader(pets))
	require.NoError(t, err)

	var qc *cache.QueryCache
	if withCache {
		qc = cache.New(&mapStore{data: make(map[string]string)}, time.Minute, nil)
	}
	tracker := &recordingTracker{}
	h := New(executor.New(c, 1000, nil), c, qc, tracker, Options{
		DefaultLimit:    100,
		MaxResults:      1000,
		SearchTimeout:   time.Second,
		MaxDocumentSize: 1024,
	})
	mux := http.NewServeMux()
	h.Register(mux)
	return &fixture{mux: mux, catalog: c, tracker: tracker, cache: qc}
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestSearchOperations(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodGet, "/api/v1/documents/pets/search?op=count&q=the", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, decode[executor.SearchResult](t, rec).Count)

	rec = f.do(t, http.MethodGet, "/api/v1/documents/pets/search?op=phrase&q=sat+on", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []index.Position{{Line: 1, Column: 9}, {Line: 2, Column: 9}}, decode[executor.SearchResult](t, rec).Positions)

	rec = f.do(t, http.MethodGet, "/api/v1/documents/pets/search?op=all&q=cat+mat", "")
	assert.Equal(t, []int{1}, decode[executor.SearchResult](t, rec).Lines)

	rec = f.do(t, http.MethodGet, "/api/v1/documents/pets/search?op=any&q=cat+dog&limit=1", "")
	result := decode[executor.SearchResult](t, rec)
	assert.Equal(t, []int{1}, result.Lines)
	assert.Equal(t, 2, result.TotalHits)
	assert.True(t, result.Truncated)

	require.Len(t, f.tracker.searches, 4)
	assert.Equal(t, "count", f.tracker.searches[0].Operation)
	assert.Equal(t, 4, f.tracker.searches[0].TotalHits)
}

func TestSearchEmptyResultsKeepTheirField(t *testing.T) {
	f := newFixture(t, false)
	tests := []struct {
		target  string
		present string
		absent  []string
	}{
		{"/api/v1/documents/pets/search?op=phrase&q=mat+sat", "positions", []string{"lines"}},
		{"/api/v1/documents/pets/search?op=prefix&q=zz", "positions", []string{"lines"}},
		{"/api/v1/documents/pets/search?op=all&q=cat+dog", "lines", []string{"positions"}},
		{"/api/v1/documents/pets/search?op=count&q=zebra", "", []string{"positions", "lines"}},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, tt.target, "")
			require.Equal(t, http.StatusOK, rec.Code)
			body := decode[map[string]json.RawMessage](t, rec)
			if tt.present != "" {
				assert.JSONEq(t, "[]", string(body[tt.present]))
			}
			for _, key := range tt.absent {
				assert.NotContains(t, body, key)
			}
		})
	}
}

func TestSearchErrors(t *testing.T) {
	f := newFixture(t, false)
	tests := []struct {
		target string
		status int
	}{
		{"/api/v1/documents/pets/search?op=grep&q=cat", http.StatusBadRequest},
		{"/api/v1/documents/pets/search?op=count&q=", http.StatusBadRequest},
		{"/api/v1/documents/pets/search?op=count&q=cat+dog", http.StatusBadRequest},
		{"/api/v1/documents/pets/search?op=count&q=cat&limit=-1", http.StatusBadRequest},
		{"/api/v1/documents/missing/search?op=count&q=cat", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := f.do(t, http.MethodGet, tt.target, "")
		assert.Equal(t, tt.status, rec.Code, tt.target)
		assert.Contains(t, decode[map[string]string](t, rec), "error")
	}
	require.Len(t, f.tracker.searches, 1)
	assert.True(t, f.tracker.searches[0].Failed)
}

func TestSearchUsesCache(t *testing.T) {
	f := newFixture(t, true)

	f.do(t, http.MethodGet, "/api/v1/documents/pets/search?op=prefix&q=ma", "")
	rec := f.do(t, http.MethodGet, "/api/v1/documents/pets/search?op=prefix&q=MA", "")
	assert.Equal(t, []index.Position{{Line: 1, Column: 20}}, decode[executor.SearchResult](t, rec).Positions)
	assert.False(t, f.tracker.searches[0].CacheHit)
	assert.True(t, f.tracker.searches[1].CacheHit)

	// New content changes the fingerprint, so the cached answer is bypassed.
	rec = f.do(t, http.MethodPut, "/api/v1/documents/pets", "mad max\n")
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/v1/documents/pets/search?op=prefix&q=ma", "")
	assert.Equal(t, []index.Position{{Line: 1, Column: 1}, {Line: 1, Column: 5}}, decode[executor.SearchResult](t, rec).Positions)

	stats := decode[map[string]any](t, f.do(t, http.MethodGet, "/api/v1/cache/stats", ""))
	assert.Equal(t, 1.0, stats["hits"])
	assert.Equal(t, "closed", stats["circuit"])

	rec = f.do(t, http.MethodPost, "/api/v1/cache/invalidate", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCacheEndpointsDisabled(t *testing.T) {
	f := newFixture(t, false)
	assert.Equal(t, map[string]string{"status": "disabled"}, decode[map[string]string](t, f.do(t, http.MethodGet, "/api/v1/cache/stats", "")))
	assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodPost, "/api/v1/cache/invalidate", "").Code)
}

func TestDocumentLifecycle(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodPut, "/api/v1/documents/notes", "alpha beta\nbeta gamma\n")
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "indexed", body["outcome"])

	rec = f.do(t, http.MethodPut, "/api/v1/documents/notes", "alpha beta\nbeta gamma\n")
	assert.Equal(t, http.StatusOK, rec.Code)

	list := decode[struct {
		Documents []struct {
			Name        string `json:"name"`
			UniqueWords int    `json:"unique_words"`
		} `json:"documents"`
		Total int `json:"total"`
	}](t, f.do(t, http.MethodGet, "/api/v1/documents", ""))
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, "notes", list.Documents[0].Name)
	assert.Equal(t, 3, list.Documents[0].UniqueWords)

	rec = f.do(t, http.MethodGet, "/api/v1/documents/notes", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/v1/documents/notes", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodDelete, "/api/v1/documents/notes", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/v1/documents/notes", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.Len(t, f.tracker.indexes, 2)
	assert.Equal(t, "unchanged", f.tracker.indexes[1].Status)
}

func TestPutDocumentRejects(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodPut, "/api/v1/documents/a%09b", "x")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/v1/documents/big", strings.Repeat("word ", 300))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "failed", f.tracker.indexes[0].Status)
	assert.Equal(t, 1, f.catalog.Len())
}

func TestWords(t *testing.T) {
	f := newFixture(t, false)

	resp := decode[wordsResponse](t, f.do(t, http.MethodGet, "/api/v1/documents/pets/words?prefix=s", ""))
	assert.Equal(t, []index.WordCount{{Word: "sat", Count: 2}}, resp.Words)

	resp = decode[wordsResponse](t, f.do(t, http.MethodGet, "/api/v1/documents/pets/words?limit=2", ""))
	assert.Equal(t, 7, resp.Total)
	assert.Len(t, resp.Words, 2)
	assert.True(t, resp.Truncated)
	assert.Equal(t, "cat", resp.Words[0].Word)

	rec := f.do(t, http.MethodGet, "/api/v1/documents/none/words", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
