package cache

import (
	"context"
	"errors"
	"path"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/searcher/parser"
	pkgredis "github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/resilience"
)

type memoryStore struct {
	mu      sync.Mutex
	data    map[string]string
	failGet bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]string)}
}

func (s *memoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet {
		return "", errors.New("connection refused")
	}
	v, ok := s.data[key]
	if !ok {
		return "", pkgredis.ErrNil
	}
	return v, nil
}

func (s *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = string(value.([]byte))
	return nil
}

func (s *memoryStore) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k := range s.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}

func key(t *testing.T, doc, fingerprint, op, query string) Key {
	t.Helper()
	plan, err := parser.Parse(op, query)
	require.NoError(t, err)
	return Key{Document: doc, Fingerprint: fingerprint, Plan: plan, Limit: 100}
}

func TestGetOrCompute(t *testing.T) {
	c := New(newMemoryStore(), time.Minute, nil)
	k := key(t, "pets", "abc", "count", "cat")
	calls := 0
	compute := func() (*executor.SearchResult, error) {
		calls++
		return &executor.SearchResult{Document: "pets", Count: 1, TotalHits: 1}, nil
	}

	first, hit, err := c.GetOrCompute(context.Background(), k, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, first.Count)

	second, hit, err := c.GetOrCompute(context.Background(), k, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestComputeErrorIsNotCached(t *testing.T) {
	c := New(newMemoryStore(), time.Minute, nil)
	k := key(t, "pets", "abc", "count", "cat")

	_, _, err := c.GetOrCompute(context.Background(), k, func() (*executor.SearchResult, error) {
		return nil, errors.New("boom")
	})
	assert.EqualError(t, err, "boom")

	_, ok := c.Get(context.Background(), k)
	assert.False(t, ok)
}

func TestSingleflight(t *testing.T) {
	c := New(newMemoryStore(), time.Minute, nil)
	k := key(t, "pets", "abc", "phrase", "sat on")
	release := make(chan struct{})
	var calls atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.GetOrCompute(context.Background(), k, func() (*executor.SearchResult, error) {
				calls.Add(1)
				<-release
				return &executor.SearchResult{Count: 2}, nil
			})
			assert.NoError(t, err)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, calls.Load(), int32(10))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestKeys(t *testing.T) {
	base := buildKey(key(t, "pets", "abc", "all", "cat mat"))

	assert.Equal(t, base, buildKey(key(t, "pets", "abc", "all", "MAT cat")))
	assert.NotEqual(t, base, buildKey(key(t, "pets", "def", "all", "cat mat")))
	assert.NotEqual(t, base, buildKey(key(t, "other", "abc", "all", "cat mat")))
	assert.NotEqual(t, base, buildKey(key(t, "pets", "abc", "any", "cat mat")))
	assert.NotEqual(t,
		buildKey(key(t, "pets", "abc", "phrase", "sat on")),
		buildKey(key(t, "pets", "abc", "phrase", "on sat")),
	)
}

func TestInvalidate(t *testing.T) {
	store := newMemoryStore()
	c := New(store, time.Minute, nil)
	result := &executor.SearchResult{Count: 1}
	c.Set(context.Background(), key(t, "a*", "1", "count", "x"), result)
	c.Set(context.Background(), key(t, "b", "1", "count", "x"), result)
	c.Set(context.Background(), key(t, "b", "1", "count", "y"), result)

	n, err := c.Invalidate(context.Background(), "a*")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = c.Invalidate(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestStoreFailureIsAMiss(t *testing.T) {
	store := newMemoryStore()
	store.failGet = true
	c := New(store, time.Minute, nil)

	result, hit, err := c.GetOrCompute(context.Background(), key(t, "pets", "abc", "count", "cat"), func() (*executor.SearchResult, error) {
		return &executor.SearchResult{Count: 3}, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 3, result.Count)
}

func TestBreakerOpensOnStoreFailures(t *testing.T) {
	store := newMemoryStore()
	store.failGet = true
	c := New(store, time.Minute, nil)
	k := key(t, "pets", "abc", "count", "cat")

	for i := 0; i < 5; i++ {
		_, ok := c.Get(context.Background(), k)
		assert.False(t, ok)
	}
	assert.Equal(t, resilience.StateOpen, c.State())

	store.failGet = false
	_, ok := c.Get(context.Background(), k)
	assert.False(t, ok)
	_, misses := c.Stats()
	assert.Equal(t, int64(6), misses)
}
