package core

import (
	"container/heap"
	"slices"
)

// topK keeps the k best values seen so far under compare, where
// compare(a, b) < 0 means a ranks ahead of b. The heap root is the
// worst value retained, so each Add is O(log k).
type topK[T any] struct {
	k     int
	items rankHeap[T]
}

func newTopK[T any](k int, compare func(a, b T) int) *topK[T] {
	return &topK[T]{k: k, items: rankHeap[T]{compare: compare}}
}

// Add offers a value to the selector.
func (t *topK[T]) Add(v T) {
	if t.items.Len() < t.k {
		heap.Push(&t.items, v)
		return
	}
	if t.items.compare(v, t.items.data[0]) < 0 {
		t.items.data[0] = v
		heap.Fix(&t.items, 0)
	}
}

// Result returns the retained values, best first.
func (t *topK[T]) Result() []T {
	out := slices.Clone(t.items.data)
	slices.SortFunc(out, t.items.compare)
	return out
}

// rankHeap is a heap whose root is the lowest-ranked element.
type rankHeap[T any] struct {
	data    []T
	compare func(a, b T) int
}

func (h rankHeap[T]) Len() int           { return len(h.data) }
func (h rankHeap[T]) Less(i, j int) bool { return h.compare(h.data[i], h.data[j]) > 0 }
func (h rankHeap[T]) Swap(i, j int)      { h.data[i], h.data[j] = h.data[j], h.data[i] }

func (h *rankHeap[T]) Push(x any) {
	h.data = append(h.data, x.(T))
}

func (h *rankHeap[T]) Pop() any {
	old := h.data
	n := len(old)
	v := old[n-1]
	h.data = old[:n-1]
	return v
}
