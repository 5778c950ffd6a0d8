// Package index implements the positional word index: a compressed
// (PATRICIA-style) trie over every distinct word of a document, with each
// terminal node owning the list of positions where its word occurs and a
// second, document-order chain threading all occurrences in scan order.
//
// A Trie is built by calling Add once per token in document order. Add is
// not safe for concurrent use. Once building is done the trie is never
// mutated by queries, so any number of goroutines may query it at once.
package index

import (
	"errors"
	"strings"
)

// ErrInvalidArgument reports a caller contract violation: an empty word,
// an empty word list, or a non-positive line or column.
var ErrInvalidArgument = errors.New("invalid argument")

// Trie is an edge-compressed trie of document words. Nodes and occurrences
// are stored in append-only arenas and linked by index.
type Trie struct {
	nodes   []node
	occs    []occurrence
	last    occID
	unique  int
	maxLine int
}

// New returns an empty Trie holding only the root node.
func New() *Trie {
	t := &Trie{last: noOcc}
	t.newNode("", noNode)
	return t
}

// NewWithCapacity returns an empty Trie with arenas pre-sized for roughly
// the given number of tokens.
func NewWithCapacity(tokens int) *Trie {
	t := &Trie{
		nodes: make([]node, 0, tokens/4+1),
		occs:  make([]occurrence, 0, tokens),
		last:  noOcc,
	}
	t.newNode("", noNode)
	return t
}

// UniqueWords returns the number of distinct words indexed.
func (t *Trie) UniqueWords() int {
	return t.unique
}

// Len returns the total number of word occurrences indexed.
func (t *Trie) Len() int {
	return len(t.occs)
}

// Stats reports the trie's size.
func (t *Trie) Stats() Stats {
	return Stats{
		UniqueWords: t.unique,
		Occurrences: len(t.occs),
		Nodes:       len(t.nodes) - 1,
		Lines:       t.maxLine,
	}
}

func normalize(word string) string {
	return strings.ToLower(word)
}

func validateWords(words []string) error {
	if len(words) == 0 {
		return ErrInvalidArgument
	}
	for _, w := range words {
		if w == "" {
			return ErrInvalidArgument
		}
	}
	return nil
}
