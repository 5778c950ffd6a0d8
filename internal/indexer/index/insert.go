package index

import "fmt"

// Add indexes one occurrence of word at (line, column). Calls must follow
// document scan order (top to bottom, left to right): the document-order
// chain is built from call order alone.
func (t *Trie) Add(word string, line, column int) error {
	if word == "" {
		return fmt.Errorf("%w: empty word", ErrInvalidArgument)
	}
	if line < 1 || column < 1 {
		return fmt.Errorf("%w: position (%d, %d)", ErrInvalidArgument, line, column)
	}
	t.insert(normalize(word), line, column)
	return nil
}

func (t *Trie) insert(rest string, line, column int) {
	cur := t.nodes[rootID].child
	if cur == noNode {
		leaf := t.newNode(rest, rootID)
		t.nodes[rootID].child = leaf
		t.record(leaf, line, column)
		return
	}
	for {
		label := t.nodes[cur].label
		if rest[0] != label[0] {
			if label[0] < rest[0] {
				if next := t.nodes[cur].next; next != noNode {
					cur = next
					continue
				}
				t.slot(cur, rest, false, line, column)
				return
			}
			t.slot(cur, rest, true, line, column)
			return
		}

		k := commonPrefix(label, rest)
		switch {
		case k < len(label) && k < len(rest):
			t.splitTriple(cur, k, rest, line, column)
			return
		case k == len(label) && k == len(rest):
			t.record(cur, line, column)
			return
		case k == len(rest):
			t.splitDouble(cur, rest, line, column)
			return
		}

		// The label is a strict prefix of what remains of the word.
		rest = rest[k:]
		child := t.nodes[cur].child
		if child == noNode {
			leaf := t.newNode(rest, cur)
			t.nodes[cur].child = leaf
			t.record(leaf, line, column)
			return
		}
		cur = child
	}
}

// slot adds a leaf for rest as a sibling of at, before or after it. No
// compression is involved because rest shares no first byte with at.
func (t *Trie) slot(at nodeID, rest string, before bool, line, column int) {
	leaf := t.newNode(rest, t.nodes[at].parent)
	if before {
		t.insertBefore(at, leaf)
	} else {
		t.insertAfter(at, leaf)
	}
	t.record(leaf, line, column)
}

// splitTriple handles a word that diverges from cur's label at byte k > 0.
// A new internal node labelled with the shared prefix takes cur's place;
// cur keeps its suffix and a new leaf holds the word's suffix, both as
// children of the internal node in byte order.
func (t *Trie) splitTriple(cur nodeID, k int, rest string, line, column int) {
	label := t.nodes[cur].label
	internal := t.newNode(label[:k], noNode)
	t.replaceInSiblings(cur, internal)

	t.nodes[cur].label = label[k:]
	t.nodes[cur].parent = internal
	leaf := t.newNode(rest[k:], internal)

	first, second := cur, leaf
	if rest[k] < label[k] {
		first, second = leaf, cur
	}
	t.nodes[internal].child = first
	t.nodes[first].next = second
	t.nodes[second].prev = first
	t.record(leaf, line, column)
}

// splitDouble handles a word that is a strict prefix of cur's label. A new
// terminal node for the word takes cur's place and cur, trimmed to the
// remaining suffix, becomes its only child.
func (t *Trie) splitDouble(cur nodeID, rest string, line, column int) {
	fresh := t.newNode(rest, noNode)
	t.replaceInSiblings(cur, fresh)

	t.nodes[cur].label = t.nodes[cur].label[len(rest):]
	t.nodes[cur].parent = fresh
	t.nodes[fresh].child = cur
	t.record(fresh, line, column)
}

func commonPrefix(a, b string) int {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}
