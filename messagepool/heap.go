package messagepool

import (
	"container/heap"

	"golang.org/x/exp/constraints"
)

// entry is a single (key, id) pair stored in one of the pool's priority
// queues. The id always breaks ties between equal keys, which is what
// makes heap layout deterministic across replicas that insert messages in
// the same order.
type entry[K constraints.Ordered] struct {
	key K
	id  MessageId
}

// deadlineQueue is a min-heap of (deadline, id), earliest deadline first.
type deadlineQueue []entry[CoarseTime]

func (q deadlineQueue) Len() int { return len(q) }

func (q deadlineQueue) Less(i, j int) bool {
	if q[i].key != q[j].key {
		return q[i].key < q[j].key
	}
	return q[i].id < q[j].id
}

func (q deadlineQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *deadlineQueue) Push(x any) {
	*q = append(*q, x.(entry[CoarseTime]))
}

func (q *deadlineQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	*q = old[:n-1]
	return e
}

// peek returns the head of the queue without removing it.
func (q deadlineQueue) peek() (entry[CoarseTime], bool) {
	if len(q) == 0 {
		return entry[CoarseTime]{}, false
	}
	return q[0], true
}

// sizeQueue is a max-heap of (size, id), largest size first.
type sizeQueue []entry[int]

func (q sizeQueue) Len() int { return len(q) }

func (q sizeQueue) Less(i, j int) bool {
	if q[i].key != q[j].key {
		return q[i].key > q[j].key
	}
	return q[i].id < q[j].id
}

func (q sizeQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *sizeQueue) Push(x any) {
	*q = append(*q, x.(entry[int]))
}

func (q *sizeQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	*q = old[:n-1]
	return e
}

// retainDeadlines keeps only entries of q for which keep returns true, preserving
// heap order (it's a valid heap before and after, since it's rebuilt).
func retainDeadlines(q *deadlineQueue, keep func(MessageId) bool) {
	filtered := (*q)[:0]
	for _, e := range *q {
		if keep(e.id) {
			filtered = append(filtered, e)
		}
	}
	*q = filtered
	heap.Init(q)
}

func retainSizes(q *sizeQueue, keep func(MessageId) bool) {
	filtered := (*q)[:0]
	for _, e := range *q {
		if keep(e.id) {
			filtered = append(filtered, e)
		}
	}
	*q = filtered
	heap.Init(q)
}
