package timeline

import (
	"container/heap"

	"github.com/najoast/simactor/core"
)

// event is a scheduled envelope. seq keeps equal-time events in the order
// they were scheduled.
type event struct {
	at  core.Time
	seq uint64
	env core.Envelope
}

// eventHeap is a min-heap of events ordered by (at, seq).
type eventHeap []event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	ev := old[n-1]
	old[n-1] = event{}
	*h = old[:n-1]
	return ev
}

// eventQueue wraps eventHeap with a typed API.
type eventQueue struct {
	h   eventHeap
	seq uint64
}

func (q *eventQueue) push(at core.Time, env core.Envelope) {
	q.seq++
	heap.Push(&q.h, event{at: at, seq: q.seq, env: env})
}

func (q *eventQueue) peek() (event, bool) {
	if len(q.h) == 0 {
		return event{}, false
	}
	return q.h[0], true
}

func (q *eventQueue) pop() event {
	return heap.Pop(&q.h).(event)
}

func (q *eventQueue) len() int {
	return len(q.h)
}

func (q *eventQueue) clear() {
	clear(q.h)
	q.h = q.h[:0]
}
