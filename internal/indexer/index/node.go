package index

import "strings"

// nodeID addresses a node in the trie's node arena.
type nodeID int32

const (
	noNode nodeID = -1
	rootID nodeID = 0
)

// node is one compressed edge of the trie. Structural links are arena
// indices; siblings form a doubly linked list kept in ascending order of
// their labels' first byte.
type node struct {
	label  string
	count  int
	parent nodeID
	child  nodeID
	next   nodeID
	prev   nodeID
	head   occID // newest occurrence of the word ending here
}

func (t *Trie) newNode(label string, parent nodeID) nodeID {
	id := nodeID(len(t.nodes))
	t.nodes = append(t.nodes, node{
		label:  label,
		parent: parent,
		child:  noNode,
		next:   noNode,
		prev:   noNode,
		head:   noOcc,
	})
	return id
}

// replaceInSiblings puts fresh into old's exact position: same parent,
// same neighbours, and the parent's first-child pointer if old held it.
// old is left detached.
func (t *Trie) replaceInSiblings(old, fresh nodeID) {
	o := &t.nodes[old]
	f := &t.nodes[fresh]
	f.parent = o.parent
	f.prev = o.prev
	f.next = o.next
	if o.prev != noNode {
		t.nodes[o.prev].next = fresh
	} else {
		t.nodes[o.parent].child = fresh
	}
	if o.next != noNode {
		t.nodes[o.next].prev = fresh
	}
	o.prev = noNode
	o.next = noNode
}

// insertBefore links fresh into the sibling list immediately before at.
func (t *Trie) insertBefore(at, fresh nodeID) {
	a := &t.nodes[at]
	f := &t.nodes[fresh]
	f.parent = a.parent
	f.next = at
	f.prev = a.prev
	if a.prev != noNode {
		t.nodes[a.prev].next = fresh
	} else {
		t.nodes[a.parent].child = fresh
	}
	a.prev = fresh
}

// insertAfter links fresh into the sibling list immediately after at.
func (t *Trie) insertAfter(at, fresh nodeID) {
	a := &t.nodes[at]
	f := &t.nodes[fresh]
	f.parent = a.parent
	f.prev = at
	f.next = a.next
	if a.next != noNode {
		t.nodes[a.next].prev = fresh
	}
	a.next = fresh
}

// word rebuilds the string spelled by the path from the root to id.
func (t *Trie) word(id nodeID) string {
	size := 0
	depth := 0
	for n := id; n != noNode; n = t.nodes[n].parent {
		size += len(t.nodes[n].label)
		depth++
	}
	parts := make([]string, depth)
	for n := id; n != noNode; n = t.nodes[n].parent {
		depth--
		parts[depth] = t.nodes[n].label
	}
	var b strings.Builder
	b.Grow(size)
	for _, p := range parts {
		b.WriteString(p)
	}
	return b.String()
}
