package messagepool

import (
	"container/heap"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/slices"
)

func TestDeadlineQueue_MinHeapOrder(t *testing.T) {
	var q deadlineQueue
	heap.Init(&q)
	heap.Push(&q, entry[CoarseTime]{key: 30, id: 3})
	heap.Push(&q, entry[CoarseTime]{key: 10, id: 1})
	heap.Push(&q, entry[CoarseTime]{key: 20, id: 2})

	var popped []CoarseTime
	for q.Len() > 0 {
		e := heap.Pop(&q).(entry[CoarseTime])
		popped = append(popped, e.key)
	}
	assert.True(t, slices.IsSorted(popped))
}

func TestDeadlineQueue_TiesBreakOnId(t *testing.T) {
	var q deadlineQueue
	heap.Init(&q)
	heap.Push(&q, entry[CoarseTime]{key: 10, id: 5})
	heap.Push(&q, entry[CoarseTime]{key: 10, id: 2})
	heap.Push(&q, entry[CoarseTime]{key: 10, id: 8})

	first := heap.Pop(&q).(entry[CoarseTime])
	assert.Equal(t, MessageId(2), first.id)
}

func TestSizeQueue_MaxHeapOrder(t *testing.T) {
	var q sizeQueue
	heap.Init(&q)
	heap.Push(&q, entry[int]{key: 10, id: 1})
	heap.Push(&q, entry[int]{key: 300, id: 2})
	heap.Push(&q, entry[int]{key: 50, id: 3})

	first := heap.Pop(&q).(entry[int])
	assert.Equal(t, 300, first.key)
	second := heap.Pop(&q).(entry[int])
	assert.Equal(t, 50, second.key)
	third := heap.Pop(&q).(entry[int])
	assert.Equal(t, 10, third.key)
}

func TestRetainDeadlines_DropsStale(t *testing.T) {
	var q deadlineQueue
	heap.Init(&q)
	heap.Push(&q, entry[CoarseTime]{key: 10, id: 1})
	heap.Push(&q, entry[CoarseTime]{key: 20, id: 2})
	heap.Push(&q, entry[CoarseTime]{key: 30, id: 3})

	live := map[MessageId]bool{2: true}
	retainDeadlines(&q, func(id MessageId) bool { return live[id] })

	assert.Equal(t, 1, q.Len())
	assert.Equal(t, MessageId(2), q[0].id)
}
