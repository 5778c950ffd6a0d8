package index

// occID addresses an occurrence in the trie's occurrence arena.
type occID int32

const noOcc occID = -1

// Position is a 1-based (line, column) location of a word in the document.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// occurrence is one position of a terminal node's word. It sits on two
// chains: the owner's newest-first per-word chain (sameWordNext) and the
// document-order chain threading every occurrence in ingestion order.
type occurrence struct {
	line         int
	column       int
	owner        nodeID
	sameWordNext occID
	docNext      occID
	docPrev      occID
}

// WordCount pairs a distinct indexed word with its number of occurrences.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Stats summarises the shape of a built trie.
type Stats struct {
	UniqueWords int `json:"unique_words"`
	Occurrences int `json:"occurrences"`
	Nodes       int `json:"nodes"`
	Lines       int `json:"lines"`
}

// record appends an occurrence of the word ending at id and extends both
// chains. The document-order link is made unconditionally, so a word
// repeated back to back still gets two adjacent entries.
func (t *Trie) record(id nodeID, line, column int) {
	oid := occID(len(t.occs))
	n := &t.nodes[id]
	t.occs = append(t.occs, occurrence{
		line:         line,
		column:       column,
		owner:        id,
		sameWordNext: n.head,
		docNext:      noOcc,
		docPrev:      t.last,
	})
	if n.count == 0 {
		t.unique++
	}
	n.count++
	n.head = oid
	if t.last != noOcc {
		t.occs[t.last].docNext = oid
	}
	t.last = oid
	if line > t.maxLine {
		t.maxLine = line
	}
}

// positions collects every occurrence of the word ending at id into dst,
// newest first.
func (t *Trie) positions(dst []Position, id nodeID) []Position {
	for o := t.nodes[id].head; o != noOcc; o = t.occs[o].sameWordNext {
		dst = append(dst, Position{Line: t.occs[o].line, Column: t.occs[o].column})
	}
	return dst
}

// hop walks n steps along the document-order chain from o. It returns noOcc
// if the chain ends first.
func (t *Trie) hop(o occID, n int) occID {
	for ; n > 0 && o != noOcc; n-- {
		o = t.occs[o].docNext
	}
	return o
}
