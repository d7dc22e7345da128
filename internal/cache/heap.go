// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

package cache

// BoundedHeap keeps the best Cap items seen so far according to a ranking
// function. Internally it is a min-heap on that ranking: the root is the
// weakest retained item, so a new candidate only has to beat the root.
//
// Offer is O(log Cap) and memory stays O(Cap) regardless of how many items
// are offered. BoundedHeap is not safe for concurrent use; callers that
// share one across goroutines must synchronize.
type BoundedHeap[T any] struct {
	items  []T
	better func(a, b T) bool
	cap    int
}

// NewBoundedHeap creates a heap retaining at most capacity items.
// better(a, b) must report whether a ranks strictly ahead of b and must
// define a strict weak ordering.
func NewBoundedHeap[T any](capacity int, better func(a, b T) bool) *BoundedHeap[T] {
	if capacity < 0 {
		capacity = 0
	}
	initial := capacity
	if initial > 64 {
		initial = 64
	}
	return &BoundedHeap[T]{
		items:  make([]T, 0, initial),
		better: better,
		cap:    capacity,
	}
}

// Offer considers item for inclusion. It returns true if the item was kept.
func (h *BoundedHeap[T]) Offer(item T) bool {
	if h.cap == 0 {
		return false
	}

	if len(h.items) < h.cap {
		h.items = append(h.items, item)
		h.bubbleUp(len(h.items) - 1)
		return true
	}

	// Full: replace the weakest only if the candidate ranks ahead of it.
	if !h.better(item, h.items[0]) {
		return false
	}
	h.items[0] = item
	h.bubbleDown(0)
	return true
}

// Len returns the number of retained items.
func (h *BoundedHeap[T]) Len() int {
	return len(h.items)
}

// Cap returns the retention limit.
func (h *BoundedHeap[T]) Cap() int {
	return h.cap
}

// Weakest returns the lowest-ranked retained item.
func (h *BoundedHeap[T]) Weakest() (T, bool) {
	var zero T
	if len(h.items) == 0 {
		return zero, false
	}
	return h.items[0], true
}

// Drain empties the heap and returns its items best-first.
func (h *BoundedHeap[T]) Drain() []T {
	n := len(h.items)
	out := make([]T, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = h.pop()
	}
	return out
}

// Reset discards all retained items, keeping the allocated capacity.
func (h *BoundedHeap[T]) Reset() {
	var zero T
	for i := range h.items {
		h.items[i] = zero
	}
	h.items = h.items[:0]
}

// pop removes and returns the weakest item. Caller guarantees Len() > 0.
func (h *BoundedHeap[T]) pop() T {
	var zero T
	n := len(h.items) - 1
	root := h.items[0]
	h.items[0] = h.items[n]
	h.items[n] = zero
	h.items = h.items[:n]
	if n > 0 {
		h.bubbleDown(0)
	}
	return root
}

// weaker reports whether items[i] ranks behind items[j].
func (h *BoundedHeap[T]) weaker(i, j int) bool {
	return h.better(h.items[j], h.items[i])
}

func (h *BoundedHeap[T]) bubbleUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.weaker(i, parent) {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *BoundedHeap[T]) bubbleDown(i int) {
	n := len(h.items)
	for {
		weakest := i
		left := 2*i + 1
		right := 2*i + 2

		if left < n && h.weaker(left, weakest) {
			weakest = left
		}
		if right < n && h.weaker(right, weakest) {
			weakest = right
		}

		if weakest == i {
			return
		}

		h.items[i], h.items[weakest] = h.items[weakest], h.items[i]
		i = weakest
	}
}
