package feed

import (
	"container/heap"

	"consensus-trader/internal/models"
)

type cursor struct {
	ticks []models.Tick
	pos   int
}

func (c *cursor) head() models.Tick {
	return c.ticks[c.pos]
}

type cursorHeap []*cursor

func (h cursorHeap) Len() int { return len(h) }

func (h cursorHeap) Less(i, j int) bool {
	a, b := h[i].head(), h[j].head()
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.Symbol < b.Symbol
}

func (h cursorHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *cursorHeap) Push(x interface{}) {
	*h = append(*h, x.(*cursor))
}

func (h *cursorHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Merge interleaves per-symbol tick histories into one stream ordered by
// timestamp. Each input must already be sorted. Equal timestamps are
// ordered by symbol so replays are deterministic.
func Merge(streams ...[]models.Tick) []models.Tick {
	h := make(cursorHeap, 0, len(streams))
	total := 0
	for _, ticks := range streams {
		if len(ticks) == 0 {
			continue
		}
		h = append(h, &cursor{ticks: ticks})
		total += len(ticks)
	}
	heap.Init(&h)

	merged := make([]models.Tick, 0, total)
	for h.Len() > 0 {
		c := h[0]
		merged = append(merged, c.head())
		c.pos++
		if c.pos == len(c.ticks) {
			heap.Pop(&h)
		} else {
			heap.Fix(&h, 0)
		}
	}
	return merged
}
