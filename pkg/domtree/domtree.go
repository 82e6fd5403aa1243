// Package domtree flattens a tree into document order so that "the nearest
// preceding node matching X" becomes a backward scan from a known index.
package domtree

// Flat is a preorder listing of a tree with a node -> position index.
type Flat[N comparable] struct {
	nodes []N
	index map[N]int
}

// Flatten walks root depth-first in document order using children to list
// each node's direct children.
func Flatten[N comparable](root N, children func(N) []N) *Flat[N] {
	f := &Flat[N]{index: make(map[N]int)}

	stack := []N{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		f.index[n] = len(f.nodes)
		f.nodes = append(f.nodes, n)

		kids := children(n)
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
	return f
}

// Len returns the number of nodes
func (f *Flat[N]) Len() int {
	return len(f.nodes)
}

// At returns the node at position i
func (f *Flat[N]) At(i int) N {
	return f.nodes[i]
}

// IndexOf returns the document position of n
func (f *Flat[N]) IndexOf(n N) (int, bool) {
	i, ok := f.index[n]
	return i, ok
}

// Preceding returns the closest node before from (exclusive) accepted by match.
func (f *Flat[N]) Preceding(from N, match func(N) bool) (N, bool) {
	var zero N
	i, ok := f.index[from]
	if !ok {
		return zero, false
	}
	for j := i - 1; j >= 0; j-- {
		if match(f.nodes[j]) {
			return f.nodes[j], true
		}
	}
	return zero, false
}
