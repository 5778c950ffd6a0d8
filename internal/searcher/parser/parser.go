// Package parser turns a raw (operation, query) pair into a QueryPlan the
// executor can run against a document.
package parser

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/errors"
)

type Operation string

const (
	OpCount  Operation = "count"
	OpPhrase Operation = "phrase"
	OpPrefix Operation = "prefix"
	OpAll    Operation = "all"
	OpAny    Operation = "any"
)

// Operations lists every supported operation.
var Operations = []Operation{OpCount, OpPhrase, OpPrefix, OpAll, OpAny}

type QueryPlan struct {
	Operation Operation
	Terms     []string
	RawQuery  string
}

// SingleTerm reports whether the operation takes exactly one term.
func (o Operation) SingleTerm() bool {
	return o == OpCount || o == OpPrefix
}

// ParseOperation accepts the operation names case-insensitively, plus the
// long aliases wordsOnLine and someWordsOnLine.
func ParseOperation(op string) (Operation, error) {
	switch strings.ToLower(strings.TrimSpace(op)) {
	case "count":
		return OpCount, nil
	case "phrase", "findphrase":
		return OpPhrase, nil
	case "prefix", "findprefix":
		return OpPrefix, nil
	case "all", "and", "wordsonline":
		return OpAll, nil
	case "any", "or", "somewordsonline":
		return OpAny, nil
	}
	return "", apperrors.Invalid("unknown operation %q", op)
}

// Parse validates the operation and splits the query into words exactly
// as the document tokenizer does, so "sat-on" is the two terms sat and on.
// Count and prefix take a single word; the rest take one or more.
func Parse(op, query string) (*QueryPlan, error) {
	operation, err := ParseOperation(op)
	if err != nil {
		return nil, err
	}
	plan := &QueryPlan{
		Operation: operation,
		RawQuery:  query,
		Terms:     tokenizer.Terms(query),
	}
	if len(plan.Terms) == 0 {
		return nil, apperrors.Invalid("query %q has no searchable words", query)
	}
	if operation.SingleTerm() && len(plan.Terms) > 1 {
		return nil, apperrors.Invalid("%s takes a single word, got %d", operation, len(plan.Terms))
	}
	return plan, nil
}
