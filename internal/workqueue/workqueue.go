// Package workqueue implements a bounded-concurrency, priority-ordered work
// queue (spec §4.4): each of the pipeline's four queues (data loading,
// image decoding, image processing, image decompressing) is one Queue,
// configured with its own concurrency limit. Submitted items run in
// priority order, highest first, with a priority change re-sorting the
// item in place rather than requiring a new submission (spec §5).
package workqueue

import (
	"container/heap"
	"sync"
)

// item is one queued unit of work.
type item struct {
	seq       uint64 // insertion order, used to break priority ties FIFO
	priority  int32
	index     int // heap index, maintained by heap.Interface
	run       func()
	cancelled bool
}

// itemHeap is a max-heap on priority, min-heap on seq for ties.
type itemHeap []*item

func (h itemHeap) Len() int { return len(h) }
func (h itemHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h itemHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *itemHeap) Push(x any) {
	it := x.(*item)
	it.index = len(*h)
	*h = append(*h, it)
}
func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*h = old[:n-1]
	return it
}

// Queue runs submitted work items with a fixed concurrency limit, always
// starting the highest-priority pending item next.
type Queue struct {
	mu       sync.Mutex
	pending  itemHeap
	nextSeq  uint64
	inflight int
	limit    int
	closed   bool
}

// New returns a Queue that runs at most limit items concurrently. limit <=
// 0 is treated as 1.
func New(limit int) *Queue {
	if limit <= 0 {
		limit = 1
	}
	return &Queue{limit: limit}
}

// Handle lets a caller adjust or cancel a submitted item before it starts
// running. Once an item has started, Cancel and SetPriority are no-ops;
// the running work is expected to observe its own context for
// cancellation.
type Handle struct {
	q  *Queue
	it *item
}

// Submit enqueues run to execute once a concurrency slot is free, at the
// given priority. Returns a [Handle] for later priority changes or
// cancellation while still pending.
func (q *Queue) Submit(priority int32, run func()) Handle {
	q.mu.Lock()
	it := &item{priority: priority, run: run, seq: q.nextSeq}
	q.nextSeq++
	heap.Push(&q.pending, it)
	q.mu.Unlock()

	q.dispatch()
	return Handle{q: q, it: it}
}

// SetPriority re-sorts h's item if it is still pending.
func (h Handle) SetPriority(priority int32) {
	q := h.q
	q.mu.Lock()
	defer q.mu.Unlock()
	if h.it.index < 0 || h.it.cancelled {
		return
	}
	h.it.priority = priority
	heap.Fix(&q.pending, h.it.index)
}

// Cancel removes h's item from the queue if it hasn't started running yet.
// Returns true if the cancellation took effect.
func (h Handle) Cancel() bool {
	q := h.q
	q.mu.Lock()
	defer q.mu.Unlock()
	if h.it.index < 0 || h.it.cancelled {
		return false
	}
	h.it.cancelled = true
	heap.Remove(&q.pending, h.it.index)
	return true
}

// dispatch starts as many pending items as available concurrency allows.
func (q *Queue) dispatch() {
	for {
		q.mu.Lock()
		if q.closed || q.inflight >= q.limit || q.pending.Len() == 0 {
			q.mu.Unlock()
			return
		}
		it := heap.Pop(&q.pending).(*item)
		q.inflight++
		q.mu.Unlock()

		go func() {
			defer q.finish()
			it.run()
		}()
	}
}

func (q *Queue) finish() {
	q.mu.Lock()
	q.inflight--
	q.mu.Unlock()
	q.dispatch()
}

// Len reports the number of items currently pending (not yet running).
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Len()
}

// Inflight reports the number of items currently running.
func (q *Queue) Inflight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inflight
}

// Close marks the queue closed: pending items already dispatched continue,
// but dispatch stops starting new ones. Intended for pipeline shutdown.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}
