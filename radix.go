package netagents

// Compressed prefix tree, after github.com/armon/go-radix. Names are only
// ever added during a simulation, so there is no deletion.

import (
	"iter"
	"slices"
	"strings"
)

type radixLeaf[T any] struct {
	key string
	val T
}

type radixEdge[T any] struct {
	label byte
	node  *radixNode[T]
}

type radixNode[T any] struct {
	leaf   *radixLeaf[T]
	prefix string
	// sorted by label so walks are in lexical order.
	edges []radixEdge[T]
}

func (n *radixNode[T]) edgeIndex(label byte) (int, bool) {
	return slices.BinarySearchFunc(n.edges, label, func(e radixEdge[T], l byte) int {
		return int(e.label) - int(l)
	})
}

func (n *radixNode[T]) child(label byte) *radixNode[T] {
	if idx, ok := n.edgeIndex(label); ok {
		return n.edges[idx].node
	}
	return nil
}

func (n *radixNode[T]) setChild(label byte, child *radixNode[T]) {
	idx, ok := n.edgeIndex(label)
	if ok {
		n.edges[idx].node = child
		return
	}
	n.edges = slices.Insert(n.edges, idx, radixEdge[T]{label: label, node: child})
}

// radixTree maps names to values and supports ordered prefix scans.
type radixTree[T any] struct {
	root radixNode[T]
	size int
}

func (t *radixTree[T]) Len() int {
	return t.size
}

// Insert stores val under key unless key is already present, in which case
// it returns false and leaves the tree untouched.
func (t *radixTree[T]) Insert(key string, val T) bool {
	n := &t.root
	search := key
	for {
		if search == "" {
			if n.leaf != nil {
				return false
			}
			n.leaf = &radixLeaf[T]{key: key, val: val}
			t.size++
			return true
		}

		next := n.child(search[0])
		if next == nil {
			n.setChild(search[0], &radixNode[T]{
				leaf:   &radixLeaf[T]{key: key, val: val},
				prefix: search,
			})
			t.size++
			return true
		}

		common := commonPrefixLen(search, next.prefix)
		if common == len(next.prefix) {
			n = next
			search = search[common:]
			continue
		}

		// Split next at the divergence point.
		split := &radixNode[T]{prefix: search[:common]}
		n.setChild(search[0], split)
		next.prefix = next.prefix[common:]
		split.setChild(next.prefix[0], next)

		leaf := &radixLeaf[T]{key: key, val: val}
		search = search[common:]
		if search == "" {
			split.leaf = leaf
		} else {
			split.setChild(search[0], &radixNode[T]{leaf: leaf, prefix: search})
		}
		t.size++
		return true
	}
}

func (t *radixTree[T]) Get(key string) (val T, found bool) {
	n := &t.root
	search := key
	for search != "" {
		n = n.child(search[0])
		if n == nil || !strings.HasPrefix(search, n.prefix) {
			return val, false
		}
		search = search[len(n.prefix):]
	}
	if n.leaf == nil {
		return val, false
	}
	return n.leaf.val, true
}

// WalkPrefix yields every entry whose key starts with prefix, in lexical
// order.
func (t *radixTree[T]) WalkPrefix(prefix string) iter.Seq2[string, T] {
	return func(yield func(string, T) bool) {
		n := &t.root
		search := prefix
		for search != "" {
			n = n.child(search[0])
			if n == nil {
				return
			}
			if strings.HasPrefix(search, n.prefix) {
				search = search[len(n.prefix):]
				continue
			}
			if !strings.HasPrefix(n.prefix, search) {
				return
			}
			break
		}
		walkRadix(n, yield)
	}
}

func walkRadix[T any](n *radixNode[T], yield func(string, T) bool) bool {
	if n.leaf != nil && !yield(n.leaf.key, n.leaf.val) {
		return false
	}
	for _, e := range n.edges {
		if !walkRadix(e.node, yield) {
			return false
		}
	}
	return true
}

func commonPrefixLen(a, b string) int {
	limit := min(len(a), len(b))
	i := 0
	for i < limit && a[i] == b[i] {
		i++
	}
	return i
}
