// Package indexer builds searchable engines from documents. An Engine owns
// the trie for one document; it is built once, in scan order, and is
// read-only afterwards, so it can be queried from any number of goroutines.
package indexer

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/indexer/tokenizer"
)

// DocumentStats describes a built document index.
type DocumentStats struct {
	Name          string        `json:"name"`
	Lines         int           `json:"lines"`
	Tokens        int           `json:"tokens"`
	UniqueWords   int           `json:"unique_words"`
	Nodes         int           `json:"nodes"`
	SizeBytes     int64         `json:"size_bytes"`
	Fingerprint   string        `json:"fingerprint"`
	BuildDuration time.Duration `json:"build_duration"`
	IndexedAt     time.Time     `json:"indexed_at"`
}

// Engine answers positional queries over one document.
type Engine struct {
	trie  *index.Trie
	stats DocumentStats
}

// countingWriter counts bytes flowing through a TeeReader.
type countingWriter struct {
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}

// Build scans r and indexes every word it contains. The content is hashed
// with xxhash while it is read, so callers can tell whether a document
// changed without keeping its text.
func Build(name string, r io.Reader) (*Engine, error) {
	start := time.Now()
	logger := slog.Default().With("component", "indexer", "document", name)

	digest := xxhash.New()
	size := &countingWriter{}
	src := io.TeeReader(r, io.MultiWriter(digest, size))

	trie := index.New()
	tokens := 0
	lines, err := tokenizer.Scan(src, func(tok tokenizer.Token) error {
		tokens++
		return trie.Add(tok.Term, tok.Line, tok.Column)
	})
	if err != nil {
		return nil, fmt.Errorf("indexing document %q: %w", name, err)
	}

	stats := trie.Stats()
	sum := digest.Sum64()
	e := &Engine{
		trie: trie,
		stats: DocumentStats{
			Name:          name,
			Lines:         lines,
			Tokens:        tokens,
			UniqueWords:   stats.UniqueWords,
			Nodes:         stats.Nodes,
			SizeBytes:     size.n,
			Fingerprint:   strconv.FormatUint(sum, 16),
			BuildDuration: time.Since(start),
			IndexedAt:     time.Now().UTC(),
		},
	}
	logger.Debug("document indexed",
		"lines", lines,
		"tokens", tokens,
		"unique_words", stats.UniqueWords,
		"nodes", stats.Nodes,
		"duration", e.stats.BuildDuration,
	)
	return e, nil
}

// Fingerprint returns the xxhash of the document content as a hex string.
func Fingerprint(content []byte) string {
	return strconv.FormatUint(xxhash.Sum64(content), 16)
}

func (e *Engine) Name() string {
	return e.stats.Name
}

func (e *Engine) Stats() DocumentStats {
	return e.stats
}

func (e *Engine) Fingerprint() string {
	return e.stats.Fingerprint
}

func (e *Engine) Count(word string) (int, error) {
	return e.trie.Count(word)
}

func (e *Engine) FindPhrase(words []string) ([]index.Position, error) {
	return e.trie.FindPhrase(words)
}

func (e *Engine) FindPrefix(prefix string) ([]index.Position, error) {
	return e.trie.FindPrefix(prefix)
}

func (e *Engine) WordsOnLine(words []string) ([]int, error) {
	return e.trie.WordsOnLine(words)
}

func (e *Engine) SomeWordsOnLine(words []string) ([]int, error) {
	return e.trie.SomeWordsOnLine(words)
}

func (e *Engine) Occurrences(word string) ([]index.Position, error) {
	return e.trie.Occurrences(word)
}

func (e *Engine) Words(prefix string) []index.WordCount {
	return e.trie.Words(prefix)
}
