package engine

import (
	"context"
	"sync"

	"github.com/datallboy/godl/internal/domain"
)

type workItem struct {
	req    domain.DownloadRequest
	ticket uint64
}

// workQueue is the FIFO of admitted requests. Its lock is independent of the
// registry's.
type workQueue struct {
	mu    sync.Mutex
	items []workItem

	// wake holds at most one pending signal
	wake chan struct{}
}

func newWorkQueue() *workQueue {
	return &workQueue{wake: make(chan struct{}, 1)}
}

func (q *workQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
		// Signal already pending, no need to block
	}
}

func (q *workQueue) push(item workItem) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()

	q.signal()
}

func (q *workQueue) tryPop() (workItem, bool) {
	q.mu.Lock()
	if len(q.items) == 0 {
		q.mu.Unlock()
		return workItem{}, false
	}

	item := q.items[0]
	q.items[0] = workItem{}
	q.items = q.items[1:]
	more := len(q.items) > 0
	q.mu.Unlock()

	// Pass the baton so another idle worker picks up the rest
	if more {
		q.signal()
	}
	return item, true
}

// pop blocks until an item is available or ctx is done.
func (q *workQueue) pop(ctx context.Context) (workItem, bool) {
	for {
		if item, ok := q.tryPop(); ok {
			return item, true
		}

		select {
		case <-q.wake:
		case <-ctx.Done():
			return workItem{}, false
		}
	}
}

// remove drops the queued item admitted as id under ticket. Items of the
// same identity admitted under another ticket stay queued.
func (q *workQueue) remove(id string, ticket uint64) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.items[:0]
	removed := 0
	for _, it := range q.items {
		if it.ticket == ticket && it.req.Identity() == id {
			removed++
			continue
		}
		kept = append(kept, it)
	}
	for i := len(kept); i < len(q.items); i++ {
		q.items[i] = workItem{}
	}
	q.items = kept
	return removed
}

func (q *workQueue) clear() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
}

func (q *workQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// snapshot returns a copy of the queued requests in order.
func (q *workQueue) snapshot() []domain.DownloadRequest {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]domain.DownloadRequest, len(q.items))
	for i, it := range q.items {
		out[i] = it.req
	}
	return out
}
