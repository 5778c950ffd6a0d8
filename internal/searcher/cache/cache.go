// Package cache keeps query results in Redis. Keys include the document's
// content fingerprint, so a re-indexed document never serves stale results.
// Concurrent misses for the same key are computed once, and a circuit
// breaker skips Redis entirely while it is failing.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/resilience"
)

const keyPrefix = "textsearch:"

// Store is the subset of the Redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Key identifies one cached query result.
type Key struct {
	Document    string
	Fingerprint string
	Plan        *parser.QueryPlan
	Limit       int
}

type QueryCache struct {
	store   Store
	breaker *resilience.Breaker
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a cache over store. m may be nil.
func New(store Store, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		store:   store,
		breaker: resilience.NewBreaker("query-cache", resilience.BreakerConfig{}),
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, key Key) (*executor.SearchResult, bool) {
	k := buildKey(key)
	var data string
	found := false
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.store.Get(ctx, k)
		if pkgredis.IsNilError(err) {
			return nil
		}
		found = err == nil
		return err
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Error("cache get failed", "key", k, "error", err)
	}
	if !found {
		c.miss()
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", k, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "document", key.Document, "key", k)
	return &result, true
}

// Set stores result. Failures are logged, never returned: the cache is an
// optimisation and queries succeed without it.
func (c *QueryCache) Set(ctx context.Context, key Key, result *executor.SearchResult) {
	k := buildKey(key)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", k, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.store.Set(ctx, k, data, c.ttl)
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Error("cache set failed", "key", k, "error", err)
	}
}

// GetOrCompute returns the cached result for key, or runs computeFn once
// for all concurrent callers asking for the same key. The bool reports a
// cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	key Key,
	computeFn func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, key); ok {
		return result, true, nil
	}
	val, err, _ := c.group.Do(buildKey(key), func() (any, error) {
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.SearchResult), false, nil
}

// Invalidate removes every cached result, or only those of one document
// when document is non-empty.
func (c *QueryCache) Invalidate(ctx context.Context, document string) (int64, error) {
	pattern := keyPrefix + "*"
	if document != "" {
		pattern = documentPrefix(document) + "*"
	}
	deleted, err := c.store.FlushByPattern(ctx, pattern)
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "document", document, "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// State reports the circuit breaker state guarding the store.
func (c *QueryCache) State() resilience.State {
	return c.breaker.State()
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// buildKey hashes the normalized query. The terms of all and any are sets,
// so their order does not change the key; phrase order does.
func buildKey(key Key) string {
	terms := append([]string(nil), key.Plan.Terms...)
	if key.Plan.Operation == parser.OpAll || key.Plan.Operation == parser.OpAny {
		sort.Strings(terms)
	}
	raw := fmt.Sprintf("%s|%s|%s|limit=%d", key.Fingerprint, key.Plan.Operation, strings.Join(terms, " "), key.Limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", documentPrefix(key.Document), hash[:16])
}

// documentPrefix hashes the name so that glob characters in document names
// cannot widen an invalidation pattern.
func documentPrefix(document string) string {
	hash := sha256.Sum256([]byte(document))
	return fmt.Sprintf("%s%x:", keyPrefix, hash[:8])
}
