// Package bptree implements the bulk-loaded, read-only B+-tree that
// serves the range-filter step: mapping the scalar continuous attribute to
// the sorted set of point ids whose value lies in a query's [l, r] window.
package bptree

// node is a tagged-sum model: leaf and internal nodes share no fields that
// matter, so each gets its own type and only leafNode carries
// dataIds/next, only internalNode carries children.
type node interface {
	isLeaf() bool
}

// leafNode holds a run of (key, id) pairs in ascending key order plus a
// weak link to the next leaf for sequential range scans. next does not
// own its target — the owning chain runs top-down from the root.
type leafNode struct {
	keys    []float32
	dataIds []uint32
	next    *leafNode
}

func (*leafNode) isLeaf() bool { return true }

// internalNode holds len(keys)+1 children; children[i] holds keys <=
// keys[i] for i < len(keys), and children[i+1] holds keys >= keys[i]. Keys
// equal to a separator sit on both sides of it only when a run of
// duplicates spans a leaf boundary.
type internalNode struct {
	keys     []float32
	children []node
}

func (*internalNode) isLeaf() bool { return false }

// Tree is a bulk-loaded, read-only B+-tree over a dataset's continuous
// attribute. The zero value (via Bulk on an empty dataset) has no root and
// answers every query with an empty result.
type Tree struct {
	order int
	root  node
}

// Order returns the tree's configured order (leaves hold up to 2*order
// keys).
func (t *Tree) Order() int { return t.order }

// Empty reports whether the tree has no root, i.e. was bulk-loaded over an
// empty dataset.
func (t *Tree) Empty() bool { return t.root == nil }
