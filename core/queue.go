package core

// envelopeQueue is a FIFO of envelopes backed by a slice.
type envelopeQueue struct {
	items []Envelope
	head  int
}

func (q *envelopeQueue) push(env Envelope) {
	q.items = append(q.items, env)
}

func (q *envelopeQueue) pop() (Envelope, bool) {
	if q.head >= len(q.items) {
		return Envelope{}, false
	}

	env := q.items[q.head]
	q.items[q.head] = Envelope{}
	q.head++

	// Reclaim the consumed prefix once it dominates the backing array
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	} else if q.head > 64 && q.head*2 > len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}

	return env, true
}

func (q *envelopeQueue) len() int {
	return len(q.items) - q.head
}
