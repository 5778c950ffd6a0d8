// Package catalog keeps the set of searchable documents. Each document name
// maps to its own indexer.Engine; engines are built outside the lock and
// swapped in whole, so readers never see a half-built index.
package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/indexer"
	apperrors "github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/metrics"
)

// Outcome reports what Load did with a document.
type Outcome string

const (
	Indexed   Outcome = "indexed"
	Unchanged Outcome = "unchanged"
	Failed    Outcome = "failed"
)

// Catalog maps document names to engines.
type Catalog struct {
	engines     map[string]*indexer.Engine
	mu          sync.RWMutex
	maxSize     int64
	concurrency int
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// New creates an empty catalog. Documents larger than maxSize bytes are
// rejected; concurrency bounds how many documents LoadDir builds at once.
// m may be nil.
func New(maxSize int64, concurrency int, m *metrics.Metrics) *Catalog {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Catalog{
		engines:     make(map[string]*indexer.Engine),
		maxSize:     maxSize,
		concurrency: concurrency,
		metrics:     m,
		logger:      slog.Default().With("component", "catalog"),
	}
}

// Load indexes r under name, replacing any previous version. Content whose
// fingerprint matches the current version is not re-indexed.
func (c *Catalog) Load(name string, r io.Reader) (*indexer.Engine, Outcome, error) {
	if name == "" {
		return nil, Failed, apperrors.Invalid("document name is required")
	}
	limited := &io.LimitedReader{R: r, N: c.maxSize + 1}
	engine, err := indexer.Build(name, limited)
	if err != nil {
		c.record(Failed, nil)
		return nil, Failed, err
	}
	if limited.N <= 0 {
		c.record(Failed, nil)
		return nil, Failed, fmt.Errorf("document %q exceeds %d bytes: %w", name, c.maxSize, apperrors.ErrDocumentTooLarge)
	}

	c.mu.Lock()
	current, ok := c.engines[name]
	if ok && current.Fingerprint() == engine.Fingerprint() {
		c.mu.Unlock()
		c.record(Unchanged, nil)
		c.logger.Debug("document unchanged", "document", name, "fingerprint", engine.Fingerprint())
		return current, Unchanged, nil
	}
	c.engines[name] = engine
	total := len(c.engines)
	c.mu.Unlock()

	c.record(Indexed, engine)
	if c.metrics != nil {
		c.metrics.CatalogDocuments.Set(float64(total))
	}
	stats := engine.Stats()
	c.logger.Info("document loaded",
		"document", name,
		"replaced", ok,
		"lines", stats.Lines,
		"unique_words", stats.UniqueWords,
		"fingerprint", stats.Fingerprint,
	)
	return engine, Indexed, nil
}

// LoadFile indexes the file at path under its base name.
func (c *Catalog) LoadFile(path string) (*indexer.Engine, Outcome, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Failed, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return c.Load(filepath.Base(path), f)
}

// LoadDir indexes every *.txt file in dir, building up to the configured
// concurrency at a time. It returns the number of documents that were
// indexed or replaced. The first failure cancels the remaining builds.
func (c *Catalog) LoadDir(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	var (
		mu     sync.Mutex
		loaded int
	)
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".txt") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, outcome, err := c.LoadFile(path)
			if err != nil {
				return err
			}
			if outcome == Indexed {
				mu.Lock()
				loaded++
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return loaded, err
	}
	c.logger.Info("directory loaded", "dir", dir, "documents", loaded)
	return loaded, nil
}

// Get returns the engine for name, or ErrDocumentNotFound.
func (c *Catalog) Get(name string) (*indexer.Engine, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	engine, ok := c.engines[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, apperrors.ErrDocumentNotFound)
	}
	return engine, nil
}

// Names returns the document names in sorted order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	names := make([]string, 0, len(c.engines))
	for name := range c.engines {
		names = append(names, name)
	}
	c.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Stats returns a snapshot of every document's stats, sorted by name.
func (c *Catalog) Stats() []indexer.DocumentStats {
	c.mu.RLock()
	result := make([]indexer.DocumentStats, 0, len(c.engines))
	for _, engine := range c.engines {
		result = append(result, engine.Stats())
	}
	c.mu.RUnlock()
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Remove drops a document. It reports whether the document existed.
func (c *Catalog) Remove(name string) bool {
	c.mu.Lock()
	_, ok := c.engines[name]
	delete(c.engines, name)
	total := len(c.engines)
	c.mu.Unlock()

	if ok && c.metrics != nil {
		c.metrics.CatalogDocuments.Set(float64(total))
		c.metrics.DocumentUniqueWords.DeleteLabelValues(name)
	}
	if ok {
		c.logger.Info("document removed", "document", name)
	}
	return ok
}

// Len returns the number of documents in the catalog.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.engines)
}

func (c *Catalog) record(outcome Outcome, engine *indexer.Engine) {
	if c.metrics == nil {
		return
	}
	c.metrics.DocumentsIndexed.WithLabelValues(string(outcome)).Inc()
	if engine != nil {
		stats := engine.Stats()
		c.metrics.IndexBuildDuration.Observe(stats.BuildDuration.Seconds())
		c.metrics.DocumentUniqueWords.WithLabelValues(stats.Name).Set(float64(stats.UniqueWords))
	}
}
