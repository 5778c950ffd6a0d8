package index

// walk visits start and every node below it in pre-order, parents before
// children and siblings in byte order. It follows child, sibling and parent
// links only and never steps outside start's subtree.
func (t *Trie) walk(start nodeID, visit func(id nodeID)) {
	cur := start
	for {
		visit(cur)
		if child := t.nodes[cur].child; child != noNode {
			cur = child
			continue
		}
		for cur != start && t.nodes[cur].next == noNode {
			cur = t.nodes[cur].parent
		}
		if cur == start {
			return
		}
		cur = t.nodes[cur].next
	}
}

// terminals calls fn for every word-terminating node under start.
func (t *Trie) terminals(start nodeID, fn func(id nodeID)) {
	t.walk(start, func(id nodeID) {
		if t.nodes[id].count > 0 {
			fn(id)
		}
	})
}
