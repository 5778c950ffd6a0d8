package index

type lookupMode int

const (
	// exactMatch succeeds only when the query ends on a node boundary.
	exactMatch lookupMode = iota
	// prefixMatch also succeeds when the query ends inside an edge, and
	// returns the node whose subtree holds every word with that prefix.
	prefixMatch
)

// find walks the trie along word without mutating it. It returns noNode
// when no node satisfies the mode.
func (t *Trie) find(word string, mode lookupMode) nodeID {
	if word == "" {
		return noNode
	}
	rest := word
	cur := t.nodes[rootID].child
	for cur != noNode {
		label := t.nodes[cur].label
		if rest[0] != label[0] {
			if rest[0] < label[0] {
				return noNode
			}
			cur = t.nodes[cur].next
			continue
		}
		k := commonPrefix(label, rest)
		if k == len(rest) {
			if k == len(label) || mode == prefixMatch {
				return cur
			}
			return noNode
		}
		if k < len(label) {
			return noNode
		}
		rest = rest[k:]
		cur = t.nodes[cur].child
	}
	return noNode
}

// lookup returns the terminal node for word, or noNode if word is not
// indexed.
func (t *Trie) lookup(word string) nodeID {
	id := t.find(normalize(word), exactMatch)
	if id == noNode || t.nodes[id].count == 0 {
		return noNode
	}
	return id
}
