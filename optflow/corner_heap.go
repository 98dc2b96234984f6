package optflow

// cornerCandidate is a local maximum of corner response
type cornerCandidate struct {
	point Point
	score float64
	// raster position, used to break ties deterministically
	order int
}

// Same trick as container/heap without interface conversions, but max-heap by score

type cornerHeap []*cornerCandidate

func (h cornerHeap) Len() int { return len(h) }
func (h cornerHeap) Less(i, j int) bool {
	if h[i].score == h[j].score {
		return h[i].order < h[j].order
	}
	return h[i].score > h[j].score
}
func (h cornerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

// Push pushes the element x onto the heap.
// The complexity is O(log n) where n = h.Len().
func (h *cornerHeap) Push(x *cornerCandidate) {
	*h = append(*h, x)
	h.up(h.Len() - 1)
}

// Pop removes and returns the strongest candidate from the heap.
// The complexity is O(log n) where n = h.Len().
func (h *cornerHeap) Pop() *cornerCandidate {
	n := h.Len() - 1
	h.Swap(0, n)
	h.down(0, n)
	heapSize := len(*h)
	lastNode := (*h)[heapSize-1]
	*h = (*h)[0 : heapSize-1]
	return lastNode
}

func (h cornerHeap) up(j int) {
	for {
		i := (j - 1) / 2
		if i == j || !h.Less(j, i) {
			break
		}
		h.Swap(i, j)
		j = i
	}
}

func (h cornerHeap) down(i0, n int) bool {
	i := i0
	for {
		j1 := 2*i + 1
		if j1 >= n || j1 < 0 {
			break
		}
		j := j1
		if j2 := j1 + 1; j2 < n && h.Less(j2, j1) {
			j = j2
		}
		if !h.Less(j, i) {
			break
		}
		h.Swap(i, j)
		i = j
	}
	return i > i0
}
