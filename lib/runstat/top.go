// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package runstat

import (
	"container/heap"
	"slices"
)

// Top returns the n greatest items under compare, greatest first.
// Memory is bounded by n: a min-heap holds the current best n and
// each further item either replaces the heap minimum or is dropped.
// The result is deterministic when compare is a total order.
func Top[T any](items []T, n int, compare func(a, b T) int) []T {
	if n <= 0 {
		return nil
	}
	best := &boundedHeap[T]{compare: compare}
	for _, item := range items {
		if best.Len() < n {
			heap.Push(best, item)
			continue
		}
		if compare(item, best.items[0]) > 0 {
			best.items[0] = item
			heap.Fix(best, 0)
		}
	}
	result := best.items
	slices.SortFunc(result, func(a, b T) int { return compare(b, a) })
	return result
}

// boundedHeap is a min-heap under compare.
type boundedHeap[T any] struct {
	items   []T
	compare func(a, b T) int
}

func (h *boundedHeap[T]) Len() int           { return len(h.items) }
func (h *boundedHeap[T]) Less(i, j int) bool { return h.compare(h.items[i], h.items[j]) < 0 }
func (h *boundedHeap[T]) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *boundedHeap[T]) Push(x any)         { h.items = append(h.items, x.(T)) }

func (h *boundedHeap[T]) Pop() any {
	last := h.items[len(h.items)-1]
	h.items = h.items[:len(h.items)-1]
	return last
}
