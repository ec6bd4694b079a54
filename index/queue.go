package index

import "math"

// better reports whether a ranks before b: higher score first, NaN last,
// lower id on ties.
func better(a, b Candidate) bool {
	an, bn := math.IsNaN(float64(a.Score)), math.IsNaN(float64(b.Score))
	if an != bn {
		return bn
	}
	if !an && a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.ID < b.ID
}

// topK is a bounded binary heap keeping the best k candidates.
// The worst retained candidate sits at the root.
// It does NOT implement container/heap to avoid interface overhead.
type topK struct {
	k     int
	items []Candidate
}

func newTopK(k int) *topK {
	return &topK{k: k, items: make([]Candidate, 0, min(k, 1024))}
}

// push offers c to the heap.
func (h *topK) push(c Candidate) {
	if len(h.items) < h.k {
		h.items = append(h.items, c)
		h.siftUp(len(h.items) - 1)
		return
	}
	if better(c, h.items[0]) {
		h.items[0] = c
		h.siftDown(0)
	}
}

// less orders the heap so that the worst candidate is on top.
func (h *topK) less(i, j int) bool {
	return better(h.items[j], h.items[i])
}

func (h *topK) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(i, parent) {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *topK) siftDown(i int) {
	n := len(h.items)
	for {
		left := 2*i + 1
		if left >= n {
			return
		}
		smallest := left
		if right := left + 1; right < n && h.less(right, left) {
			smallest = right
		}
		if !h.less(smallest, i) {
			return
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}

// sorted drains the heap into best-first order.
func (h *topK) sorted() []Candidate {
	out := make([]Candidate, len(h.items))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = h.items[0]
		last := len(h.items) - 1
		h.items[0] = h.items[last]
		h.items = h.items[:last]
		h.siftDown(0)
	}
	return out
}
