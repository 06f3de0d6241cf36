package bptree

import "sort"

// keyID pairs a continuous-attribute key with the dataset id it came from,
// for the initial sort step of bulk load.
type keyID struct {
	key float32
	id  uint32
}

// Bulk builds a read-only tree over keys (the continuous attribute for
// dataset ids 0..len(keys)-1) using the given order and fill factor.
//
// order must be >= 1; fillFactor in (0, 1] controls how full each leaf is
// packed (desiredKeysPerLeaf = floor(2*order*fillFactor)). A zero-length
// keys slice produces a tree with no root.
func Bulk(keys []float32, order int, fillFactor float64) *Tree {
	if order < 1 {
		order = 1
	}
	if fillFactor <= 0 || fillFactor > 1 {
		fillFactor = 1.0
	}
	if len(keys) == 0 {
		return &Tree{order: order}
	}

	pairs := make([]keyID, len(keys))
	for i, k := range keys {
		pairs[i] = keyID{key: k, id: uint32(i)}
	}
	// Sort is stable in effect: ties retain input (id) order.
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })

	maxKeysPerLeaf := 2 * order
	desired := int(float64(maxKeysPerLeaf) * fillFactor)
	if desired < 1 {
		desired = 1
	}

	leaves, parentKeys := buildLeaves(pairs, desired)
	if len(leaves) == 1 {
		return &Tree{order: order, root: leaves[0]}
	}

	level := make([]node, len(leaves))
	for i, l := range leaves {
		level[i] = l
	}

	for len(level) > 1 {
		level, parentKeys = buildParentLevel(level, parentKeys, order)
	}

	return &Tree{order: order, root: level[0]}
}

// buildLeaves packs consecutive (key, id) pairs into leaves of desired
// entries each, links them left-to-right, and collects the first key of
// every non-first leaf as a separator candidate for the level above.
func buildLeaves(pairs []keyID, desired int) ([]*leafNode, []float32) {
	var leaves []*leafNode
	var parentKeys []float32

	for i := 0; i < len(pairs); {
		leaf := &leafNode{}
		end := i + desired
		if end > len(pairs) {
			end = len(pairs)
		}
		leaf.keys = make([]float32, 0, end-i)
		leaf.dataIds = make([]uint32, 0, end-i)
		for ; i < end; i++ {
			leaf.keys = append(leaf.keys, pairs[i].key)
			leaf.dataIds = append(leaf.dataIds, pairs[i].id)
		}
		if len(leaves) > 0 {
			leaves[len(leaves)-1].next = leaf
		}
		leaves = append(leaves, leaf)
		if i < len(pairs) {
			parentKeys = append(parentKeys, pairs[i].key)
		}
	}
	return leaves, parentKeys
}

// buildParentLevel packs sibling nodes from the current level into parents
// accepting up to 2*order+1 children and 2*order separators. When filling
// the last key slot of a parent would consume a separator while more than
// one sibling remains beyond this parent's reach, that separator is
// promoted to the next level instead — preserving the invariant that every
// separator appears exactly once across all ancestor levels.
func buildParentLevel(level []node, parentKeys []float32, order int) ([]node, []float32) {
	var nextLevel []node
	var newParentKeys []float32

	i := 0
	for i < len(level) {
		internal := &internalNode{}
		internal.children = append(internal.children, level[i])
		i++

		for j := 0; j < 2*order && i < len(level); j++ {
			if j == 2*order-1 && i < len(level)-1 {
				break
			}
			internal.keys = append(internal.keys, parentKeys[i-1])
			internal.children = append(internal.children, level[i])
			i++
		}

		nextLevel = append(nextLevel, internal)
		if i < len(level)-1 {
			newParentKeys = append(newParentKeys, parentKeys[i-1])
		}
	}

	return nextLevel, newParentKeys
}
