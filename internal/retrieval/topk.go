// Package retrieval ranks embedded summaries against a query vector.
package retrieval

import (
	"container/heap"
	"math"
	"sort"

	"github.com/ishaan812/treeqa/internal/embedding"
)

// DefaultK is the number of summaries retrieved per question.
const DefaultK = 15

// Result is a retrieved summary and its similarity to the query.
type Result struct {
	Path  string
	Text  string
	Score float64
}

// Cosine returns dot(a, b) / (|a| |b|). It is 0 when either vector has zero
// magnitude or the lengths differ.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := a[i], b[i]
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// TopK scores every candidate against query and returns the k best.
func TopK(query []float64, candidates []embedding.Candidate, k int) []Result {
	scored := make([]Result, len(candidates))
	for i, c := range candidates {
		scored[i] = Result{Path: c.Path, Text: c.Text, Score: Cosine(query, c.Vector)}
	}
	return SelectTopK(scored, k)
}

// SelectTopK keeps the k highest-scoring results using a min-heap of size k.
// Once the heap is full a result replaces the minimum only when its score is
// strictly greater. The output is sorted by descending score; equal scores
// keep their input order.
func SelectTopK(scored []Result, k int) []Result {
	if k <= 0 {
		return nil
	}
	h := make(minHeap, 0, min(k, len(scored)))
	for i, r := range scored {
		e := entry{Result: r, seq: i}
		if h.Len() < k {
			heap.Push(&h, e)
			continue
		}
		if r.Score > h[0].Score {
			h[0] = e
			heap.Fix(&h, 0)
		}
	}

	sort.Slice(h, func(i, j int) bool {
		if h[i].Score != h[j].Score {
			return h[i].Score > h[j].Score
		}
		return h[i].seq < h[j].seq
	})
	out := make([]Result, len(h))
	for i, e := range h {
		out[i] = e.Result
	}
	return out
}

type entry struct {
	Result
	seq int
}

// minHeap orders by score, then evicts the latest of equal scores first so
// earlier results win ties.
type minHeap []entry

func (h minHeap) Len() int { return len(h) }
func (h minHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	return h[i].seq > h[j].seq
}
func (h minHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)   { *h = append(*h, x.(entry)) }
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}
