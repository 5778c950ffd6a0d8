package tokenizer

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []Token
	}{
		{
			name: "plain words",
			line: "the cat sat on the mat",
			want: []Token{{"the", 3, 1}, {"cat", 3, 5}, {"sat", 3, 9}, {"on", 3, 13}, {"the", 3, 16}, {"mat", 3, 20}},
		},
		{
			name: "punctuation and case",
			line: "Hello, World! (Again)",
			want: []Token{{"hello", 3, 1}, {"world", 3, 8}, {"again", 3, 16}},
		},
		{
			name: "inner apostrophes kept",
			line: "don't o'clock",
			want: []Token{{"don't", 3, 1}, {"o'clock", 3, 7}},
		},
		{
			name: "leading and trailing apostrophes dropped",
			line: "'tis the dogs' bone'",
			want: []Token{{"tis", 3, 2}, {"the", 3, 6}, {"dogs", 3, 10}, {"bone", 3, 16}},
		},
		{
			name: "doubled apostrophe collapses",
			line: "a''b",
			want: []Token{{"a'b", 3, 1}},
		},
		{
			name: "digits separate words",
			line: "abc123def 42",
			want: []Token{{"abc", 3, 1}, {"def", 3, 7}},
		},
		{
			name: "columns count runes",
			line: "café au lait",
			want: []Token{{"café", 3, 1}, {"au", 3, 6}, {"lait", 3, 9}},
		},
		{
			name: "no words",
			line: "  --- 123 ...",
			want: []Token{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.line, 3))
		})
	}
}

func TestScan(t *testing.T) {
	input := "the cat\r\n\nsat on\nthe mat"
	var got []Token
	lines, err := Scan(strings.NewReader(input), func(tok Token) error {
		got = append(got, tok)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, lines)
	assert.Equal(t, []Token{
		{"the", 1, 1}, {"cat", 1, 5},
		{"sat", 3, 1}, {"on", 3, 5},
		{"the", 4, 1}, {"mat", 4, 5},
	}, got)
}

func TestScanStopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	_, err := Scan(strings.NewReader("a b c\nd e"), func(Token) error {
		calls++
		if calls == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, calls)
}

func TestTermsAndNormalize(t *testing.T) {
	assert.Equal(t, []string{"sat", "on", "the"}, Terms("  Sat ON\tthe! "))
	assert.Empty(t, Terms("123 ..."))
	assert.Equal(t, "cat", Normalize("Cat's"[:3]))
	assert.Equal(t, "cat's", Normalize("Cat's"))
	assert.Equal(t, "", Normalize("42"))
}
