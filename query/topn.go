package query

import (
	"container/heap"
	"sort"
)

// Hit is one scored document: its name, its position in the index's
// global document ordering, and the number of query terms it matched.
type Hit struct {
	Name         string
	GlobalColumn int
	Score        uint16
}

// less orders hits the way the bounded top-N heap wants its root: the
// worst hit first, so popping the root always evicts the worst one.
// Ties break by ascending GlobalColumn, matching the deterministic
// ascending (block_id, column_id) tie-break the original priority queue
// used (original_source/cobs/util/addressable_priority_queue.hpp).
func less(a, b Hit) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.GlobalColumn > b.GlobalColumn
}

type hitHeap []Hit

func (h hitHeap) Len() int            { return len(h) }
func (h hitHeap) Less(i, j int) bool  { return less(h[i], h[j]) }
func (h hitHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *hitHeap) Push(x interface{}) { *h = append(*h, x.(Hit)) }
func (h *hitHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// TopN collects the n best hits from hits (by descending score, ties
// broken by ascending GlobalColumn) in O(len(hits) log n) using a
// bounded min-heap, then returns them sorted best-first. n <= 0 means
// return every hit, sorted.
func TopN(hits []Hit, n int) []Hit {
	if n <= 0 || n >= len(hits) {
		out := append([]Hit(nil), hits...)
		sortDescending(out)
		return out
	}

	h := make(hitHeap, 0, n)
	heap.Init(&h)
	for _, hit := range hits {
		if len(h) < n {
			heap.Push(&h, hit)
			continue
		}
		if less(h[0], hit) {
			h[0] = hit
			heap.Fix(&h, 0)
		}
	}

	out := append([]Hit(nil), h...)
	sortDescending(out)
	return out
}

// sortDescending orders hits best score first, ascending GlobalColumn on
// ties — the same ordering less() imposes on the heap, just the other
// direction.
func sortDescending(hits []Hit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].GlobalColumn < hits[j].GlobalColumn
	})
}
