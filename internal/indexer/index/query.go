package index

import (
	"fmt"
	"sort"
	"strconv"
)

// Count returns how many times word occurs in the document.
func (t *Trie) Count(word string) (int, error) {
	if word == "" {
		return 0, fmt.Errorf("%w: empty word", ErrInvalidArgument)
	}
	id := t.lookup(word)
	if id == noNode {
		return 0, nil
	}
	return t.nodes[id].count, nil
}

// Occurrences returns every position of word, sorted by line then column.
func (t *Trie) Occurrences(word string) ([]Position, error) {
	if word == "" {
		return nil, fmt.Errorf("%w: empty word", ErrInvalidArgument)
	}
	id := t.lookup(word)
	if id == noNode {
		return []Position{}, nil
	}
	out := t.positions(make([]Position, 0, t.nodes[id].count), id)
	sortPositions(out)
	return out, nil
}

// FindPhrase returns the position of the first word of every place where
// words appear consecutively in the document. Consecutive means adjacent in
// scan order, so a phrase may continue onto the next line.
func (t *Trie) FindPhrase(words []string) ([]Position, error) {
	if err := validateWords(words); err != nil {
		return nil, err
	}
	ids := make([]nodeID, len(words))
	for i, w := range words {
		ids[i] = t.lookup(w)
		if ids[i] == noNode {
			return []Position{}, nil
		}
	}
	if len(ids) == 1 {
		return t.Occurrences(words[0])
	}

	out := make([]Position, 0)
	for o := t.nodes[ids[0]].head; o != noOcc; o = t.occs[o].sameWordNext {
		if t.phraseAt(o, ids) {
			out = append(out, Position{Line: t.occs[o].line, Column: t.occs[o].column})
		}
	}
	sortPositions(out)
	return out, nil
}

// phraseAt reports whether the occurrences following o in document order
// belong to ids[1:], in order.
func (t *Trie) phraseAt(o occID, ids []nodeID) bool {
	cur := o
	for i := 1; i < len(ids); i++ {
		cur = t.hop(cur, 1)
		if cur == noOcc || t.occs[cur].owner != ids[i] {
			return false
		}
	}
	return true
}

// FindPrefix returns the positions of every word that starts with prefix,
// including prefix itself when it is an indexed word.
func (t *Trie) FindPrefix(prefix string) ([]Position, error) {
	if prefix == "" {
		return nil, fmt.Errorf("%w: empty prefix", ErrInvalidArgument)
	}
	start := t.find(normalize(prefix), prefixMatch)
	if start == noNode {
		return []Position{}, nil
	}
	out := make([]Position, 0)
	t.terminals(start, func(id nodeID) {
		out = t.positions(out, id)
	})
	sortPositions(out)
	return out, nil
}

// Words lists the distinct indexed words starting with prefix, in
// lexicographic byte order. An empty prefix lists every word.
func (t *Trie) Words(prefix string) []WordCount {
	start := rootID
	if prefix != "" {
		start = t.find(normalize(prefix), prefixMatch)
		if start == noNode {
			return []WordCount{}
		}
	}
	out := make([]WordCount, 0)
	t.terminals(start, func(id nodeID) {
		out = append(out, WordCount{Word: t.word(id), Count: t.nodes[id].count})
	})
	return out
}

// WordsOnLine returns the lines that contain every one of words. The scan
// is driven by the rarest query word, so its cost follows that word's
// frequency rather than the document size.
func (t *Trie) WordsOnLine(words []string) ([]int, error) {
	if err := validateWords(words); err != nil {
		return nil, err
	}
	query := New()
	rarest := noNode
	for _, w := range words {
		id := t.lookup(w)
		if id == noNode {
			return []int{}, nil
		}
		query.insert(normalize(w), 1, 1)
		if rarest == noNode || t.nodes[id].count < t.nodes[rarest].count {
			rarest = id
		}
	}

	checked := make(map[int]struct{})
	out := make([]int, 0)
	for o := t.nodes[rarest].head; o != noOcc; o = t.occs[o].sameWordNext {
		line := t.occs[o].line
		if _, done := checked[line]; done {
			continue
		}
		checked[line] = struct{}{}
		if t.lineHasAll(o, query) {
			out = append(out, line)
		}
	}
	sort.Ints(out)
	return out, nil
}

// lineHasAll scans the whole line holding o and reports whether every word
// in query appears on it.
func (t *Trie) lineHasAll(o occID, query *Trie) bool {
	line := t.occs[o].line
	first := o
	for prev := t.occs[first].docPrev; prev != noOcc && t.occs[prev].line == line; prev = t.occs[prev].docPrev {
		first = prev
	}
	seen := New()
	for cur := first; cur != noOcc && t.occs[cur].line == line; cur = t.occs[cur].docNext {
		w := t.word(t.occs[cur].owner)
		if query.lookup(w) != noNode {
			seen.insert(w, 1, 1)
		}
	}
	return seen.unique == query.unique
}

// SomeWordsOnLine returns the lines that contain at least one of words.
// Words absent from the document are ignored.
func (t *Trie) SomeWordsOnLine(words []string) ([]int, error) {
	if err := validateWords(words); err != nil {
		return nil, err
	}
	lines := New()
	for _, w := range words {
		id := t.lookup(w)
		if id == noNode {
			continue
		}
		for o := t.nodes[id].head; o != noOcc; o = t.occs[o].sameWordNext {
			lines.insert(strconv.Itoa(t.occs[o].line), 1, 1)
		}
	}
	out := make([]int, 0, lines.unique)
	lines.terminals(rootID, func(id nodeID) {
		n, err := strconv.Atoi(lines.word(id))
		if err == nil {
			out = append(out, n)
		}
	})
	sort.Ints(out)
	return out, nil
}

func sortPositions(ps []Position) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Line != ps[j].Line {
			return ps[i].Line < ps[j].Line
		}
		return ps[i].Column < ps[j].Column
	})
}
