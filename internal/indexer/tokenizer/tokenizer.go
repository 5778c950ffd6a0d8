// Package tokenizer splits document text into positioned words for the
// index. A word is a run of letters that may contain apostrophes between
// letters ("don't", "o'clock"); everything else separates words. Words are
// lower-cased and never stemmed, since the index answers exact matches only.
package tokenizer

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// MaxLineLength is the longest line Scan accepts.
const MaxLineLength = 1024 * 1024

// Token is one word of the document and where it starts. Line and Column
// are 1-based; Column counts runes, not bytes.
type Token struct {
	Term   string
	Line   int
	Column int
}

// Tokenize returns the words of a single line, in order.
func Tokenize(line string, lineNo int) []Token {
	runes := []rune(line)
	tokens := make([]Token, 0, len(runes)/6)
	var word strings.Builder
	start := 0
	flush := func() {
		if word.Len() == 0 {
			return
		}
		tokens = append(tokens, Token{Term: word.String(), Line: lineNo, Column: start + 1})
		word.Reset()
	}
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r):
			if word.Len() == 0 {
				start = i
			}
			word.WriteRune(unicode.ToLower(r))
		case r == '\'':
			// Kept only between letters; a dropped apostrophe does not
			// split the word.
			if word.Len() > 0 && i+1 < len(runes) && unicode.IsLetter(runes[i+1]) {
				word.WriteRune(r)
			}
		default:
			flush()
		}
	}
	flush()
	return tokens
}

// Scan reads r line by line and calls fn for every word in document order.
// It returns the number of lines read. Scanning stops at the first error
// returned by fn.
func Scan(r io.Reader, fn func(Token) error) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineLength)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSuffix(scanner.Text(), "\r")
		for _, tok := range Tokenize(line, lineNo) {
			if err := fn(tok); err != nil {
				return lineNo, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return lineNo, fmt.Errorf("reading line %d: %w", lineNo+1, err)
	}
	return lineNo, nil
}

// Terms returns the normalised words of a query string, in order.
func Terms(query string) []string {
	tokens := Tokenize(query, 1)
	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		terms = append(terms, tok.Term)
	}
	return terms
}

// Normalize returns the first word of term as the index stores it, or ""
// if term holds no letters.
func Normalize(term string) string {
	tokens := Tokenize(term, 1)
	if len(tokens) == 0 {
		return ""
	}
	return tokens[0].Term
}
