package bptree

import "sort"

// upperBound returns the index of the first element strictly greater than
// key (or len(keys) if none), matching std::upper_bound semantics.
func upperBound(keys []float32, key float32) int {
	return sort.Search(len(keys), func(i int) bool { return keys[i] > key })
}

// lowerBound returns the index of the first element >= key (or len(keys)
// if none), matching std::lower_bound semantics.
func lowerBound(keys []float32, key float32) int {
	return sort.Search(len(keys), func(i int) bool { return keys[i] >= key })
}

// traverseToLeaf descends from the root choosing, at each internal node,
// the child at lowerBound(keys, key), so a key equal to a separator
// descends left and still reaches equal keys that a run of duplicates left
// in the leaf before the separator; at the leaf it returns the lowerBound
// position of key. Returns ok=false only when the tree is empty.
func (t *Tree) traverseToLeaf(key float32) (leaf *leafNode, idx int, ok bool) {
	if t.root == nil {
		return nil, 0, false
	}
	cur := t.root
	for {
		in, isInternal := cur.(*internalNode)
		if !isInternal {
			break
		}
		cur = in.children[lowerBound(in.keys, key)]
	}
	l := cur.(*leafNode)
	return l, lowerBound(l.keys, key), true
}

// SearchRange returns the ids of every point whose continuous attribute
// lies in [l, r], ascending by key (ties in key order in leaf-storage
// order). Returns an empty slice for an empty tree, an inverted interval
// (l > r), or an interval with no matching key.
func (t *Tree) SearchRange(l, r float32) []uint32 {
	if l > r {
		return nil
	}

	leaf, idx, ok := t.traverseToLeaf(l)
	if !ok {
		return nil
	}
	if idx == len(leaf.keys) {
		leaf = leaf.next
		idx = 0
	}
	if leaf == nil {
		return nil
	}

	var result []uint32
	for leaf != nil {
		for i := idx; i < len(leaf.keys); i++ {
			if leaf.keys[i] > r {
				return result
			}
			result = append(result, leaf.dataIds[i])
		}
		leaf = leaf.next
		idx = 0
	}
	return result
}

// Keys walks the leaf chain left-to-right, yielding every (key, id) pair in
// ascending key order. Used by tests to check the sort-consistency
// invariant; not needed on the query path.
func (t *Tree) Keys() [][2]any {
	if t.root == nil {
		return nil
	}
	leaf := t.firstLeaf()
	var out [][2]any
	for leaf != nil {
		for i, k := range leaf.keys {
			out = append(out, [2]any{k, leaf.dataIds[i]})
		}
		leaf = leaf.next
	}
	return out
}

// Depths returns the depth (root = 0) of every leaf reachable from the
// root, for the depth-uniformity invariant.
func (t *Tree) Depths() []int {
	if t.root == nil {
		return nil
	}
	var depths []int
	var walk func(n node, depth int)
	walk = func(n node, depth int) {
		if in, isInternal := n.(*internalNode); isInternal {
			for _, c := range in.children {
				walk(c, depth+1)
			}
			return
		}
		depths = append(depths, depth)
	}
	walk(t.root, 0)
	return depths
}

// LeafCount returns the number of leaves in the tree, for metrics and
// diagnostics.
func (t *Tree) LeafCount() int {
	if t.root == nil {
		return 0
	}
	n := 0
	for leaf := t.firstLeaf(); leaf != nil; leaf = leaf.next {
		n++
	}
	return n
}

func (t *Tree) firstLeaf() *leafNode {
	cur := t.root
	for {
		in, isInternal := cur.(*internalNode)
		if !isInternal {
			return cur.(*leafNode)
		}
		cur = in.children[0]
	}
}
