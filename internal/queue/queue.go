// Package queue provides the bounded top-k priority queue used by the
// brute-force search scan.
package queue

// Item is an entry in the priority queue.
// Value-based to avoid pointer indirection on the scan hot path.
type Item struct {
	Slot     uint32  // Storage slot of the candidate
	Distance float32 // Priority of the item in the queue
}

// TopK keeps the k items with the smallest distance seen so far.
// Internally a max-heap ordered by distance, so the current worst candidate
// sits at the root and can be evicted in O(log k).
type TopK struct {
	k     int
	items []Item
}

// NewTopK creates a TopK collector for up to k items. k must be positive.
func NewTopK(k int) *TopK {
	return &TopK{
		k:     k,
		items: make([]Item, 0, k),
	}
}

// Len returns the number of items currently held.
func (q *TopK) Len() int { return len(q.items) }

// Worst returns the largest distance currently held.
// Only valid when Len() > 0.
func (q *TopK) Worst() float32 { return q.items[0].Distance }

// Full reports whether k items are held.
func (q *TopK) Full() bool { return len(q.items) == q.k }

// Push offers an item. When full, the item replaces the current worst
// candidate only if it is closer.
func (q *TopK) Push(item Item) {
	if len(q.items) < q.k {
		q.items = append(q.items, item)
		q.siftUp(len(q.items) - 1)
		return
	}
	if item.Distance >= q.items[0].Distance {
		return
	}
	q.items[0] = item
	q.siftDown(0)
}

// Drain removes and returns all items ordered by ascending distance,
// ties broken by ascending slot. The queue is empty afterwards.
func (q *TopK) Drain() []Item {
	out := make([]Item, len(q.items))
	for i := len(q.items) - 1; i >= 0; i-- {
		out[i] = q.pop()
	}
	return out
}

func (q *TopK) pop() Item {
	n := len(q.items)
	root := q.items[0]
	last := q.items[n-1]
	q.items = q.items[:n-1]
	if n-1 > 0 {
		q.items[0] = last
		q.siftDown(0)
	}
	return root
}

func (q *TopK) less(i, j int) bool {
	if q.items[i].Distance != q.items[j].Distance {
		return q.items[i].Distance > q.items[j].Distance
	}
	return q.items[i].Slot > q.items[j].Slot
}

func (q *TopK) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !q.less(i, p) {
			return
		}
		q.items[i], q.items[p] = q.items[p], q.items[i]
		i = p
	}
}

func (q *TopK) siftDown(i int) {
	n := len(q.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		if r := l + 1; r < n && q.less(r, l) {
			best = r
		}
		if !q.less(best, i) {
			return
		}
		q.items[i], q.items[best] = q.items[best], q.items[i]
		i = best
	}
}
