// Package validator provides input validation for ingestion requests. It
// enforces name and body constraints and returns per-field error details.
package validator

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/ingestion"
)

const (
	maxNameLength           = 255
	maxIdempotencyKeyLength = 255
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// ValidateName checks a document name. Names become catalog keys and URL
// path segments, so they may not contain slashes or control characters.
func ValidateName(name string) string {
	switch {
	case strings.TrimSpace(name) == "":
		return "name is required"
	case len(name) > maxNameLength:
		return fmt.Sprintf("name must be at most %d bytes", maxNameLength)
	case name == "." || name == "..":
		return "name must not be a relative path"
	case strings.ContainsAny(name, `/\`):
		return "name must not contain slashes"
	case !utf8.ValidString(name):
		return "name must be valid UTF-8"
	case strings.IndexFunc(name, unicode.IsControl) >= 0:
		return "name must not contain control characters"
	}
	return ""
}

// ValidateIngestRequest checks the name, body and idempotency key of req.
// maxBodySize is the largest body accepted, in bytes.
func ValidateIngestRequest(req *ingestion.IngestRequest, maxBodySize int64) error {
	errs := make(map[string]string)

	if msg := ValidateName(req.Name); msg != "" {
		errs["name"] = msg
	}
	switch {
	case strings.TrimSpace(req.Body) == "":
		errs["body"] = "body is required and must not be empty"
	case int64(len(req.Body)) > maxBodySize:
		errs["body"] = fmt.Sprintf("body must be at most %d bytes", maxBodySize)
	case !utf8.ValidString(req.Body):
		errs["body"] = "body must be valid UTF-8"
	case len(req.Body) < tokenizer.MaxLineLength:
	default:
		if longestLine(req.Body) >= tokenizer.MaxLineLength {
			errs["body"] = fmt.Sprintf("lines must be shorter than %d bytes", tokenizer.MaxLineLength)
		}
	}
	if len(req.IdempotencyKey) > maxIdempotencyKeyLength {
		errs["idempotency_key"] = fmt.Sprintf("idempotency key must be at most %d characters", maxIdempotencyKeyLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func longestLine(body string) int {
	longest := 0
	for line := range strings.SplitSeq(body, "\n") {
		longest = max(longest, len(line))
	}
	return longest
}
