package core

import (
	"container/heap"
	"errors"
)

// ErrQueueEmpty is returned when Pop() or Peek() is called on an empty queue.
var ErrQueueEmpty = errors.New("ready queue is empty")

// ReadyQueue is a min-heap of idle task indices for one phase of a job.
// Pop always yields the lowest index, which matches a front-to-back scan
// for the first idle task. It is not safe for concurrent use; the job
// service lock guards it.
type ReadyQueue struct {
	h indexHeap
}

// NewReadyQueue returns a queue holding indices 0..n-1.
func NewReadyQueue(n int) *ReadyQueue {
	h := make(indexHeap, n)
	for i := range h {
		h[i] = i
	}
	heap.Init(&h)
	return &ReadyQueue{h: h}
}

func (q *ReadyQueue) Push(index int) {
	heap.Push(&q.h, index)
}

func (q *ReadyQueue) Pop() (int, error) {
	if q.h.Len() == 0 {
		return -1, ErrQueueEmpty
	}
	return heap.Pop(&q.h).(int), nil
}

func (q *ReadyQueue) Peek() (int, error) {
	if q.h.Len() == 0 {
		return -1, ErrQueueEmpty
	}
	return q.h[0], nil
}

func (q *ReadyQueue) Len() int {
	return q.h.Len()
}

// indexHeap satisfies heap.Interface.
type indexHeap []int

func (h indexHeap) Len() int           { return len(h) }
func (h indexHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h indexHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *indexHeap) Push(x any) {
	*h = append(*h, x.(int))
}

func (h *indexHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
