package checker

import (
	"container/heap"
	"sync"
)

// workQueue is the shared, thread-safe priority work queue keyed by
// CheckRequest.NextCheck ascending. It supports the "join" semantics of a
// Python Queue: Push marks one task outstanding, Done acknowledges it, and
// Join blocks until none remain outstanding. A re-enqueue performed before
// the original item's Done call (as the rate-limit reaction does) keeps the
// outstanding count from ever touching zero prematurely.
type workQueue struct {
	mu   sync.Mutex
	cond *sync.Cond
	heap requestHeap
	wg   sync.WaitGroup
}

func newWorkQueue() *workQueue {
	q := &workQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push enqueues req and marks one task outstanding.
func (q *workQueue) Push(req CheckRequest) {
	q.wg.Add(1)
	q.mu.Lock()
	heap.Push(&q.heap, req)
	q.mu.Unlock()
	q.cond.Signal()
}

// Pop blocks until a request is available and returns it.
func (q *workQueue) Pop() CheckRequest {
	q.mu.Lock()
	for len(q.heap) == 0 {
		q.cond.Wait()
	}
	req := heap.Pop(&q.heap).(CheckRequest)
	q.mu.Unlock()
	return req
}

// Done acknowledges completion of one outstanding task.
func (q *workQueue) Done() {
	q.wg.Done()
}

// Join blocks until every pushed task has been acknowledged via Done.
func (q *workQueue) Join() {
	q.wg.Wait()
}

// requestHeap implements container/heap.Interface, ordering by NextCheck
// ascending (earliest first).
type requestHeap []CheckRequest

func (h requestHeap) Len() int { return len(h) }

func (h requestHeap) Less(i, j int) bool {
	return h[i].NextCheck.Before(h[j].NextCheck)
}

func (h requestHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *requestHeap) Push(x any) {
	*h = append(*h, x.(CheckRequest))
}

func (h *requestHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
