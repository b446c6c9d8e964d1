package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/datallboy/godl/internal/domain"
)

// slot is the status of one worker. Only its owning worker binds and
// releases it; other goroutines may only set the cancelled flag.
type slot struct {
	mu     sync.Mutex
	busy   bool
	req    domain.DownloadRequest
	ticket uint64
	cancel context.CancelFunc

	cancelled atomic.Bool
}

// bind claims item for this slot if its identity is still registered under the
// same ticket. Holding the slot lock across the check means a Cancel either
// sees the claim or the claim sees the removal, never neither.
func (s *slot) bind(parent context.Context, item workItem, reg *registry) (context.Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !reg.holds(item.req.Identity(), item.ticket) {
		return nil, false
	}

	ctx, cancel := context.WithCancel(parent)
	s.busy = true
	s.req = item.req
	s.ticket = item.ticket
	s.cancel = cancel
	s.cancelled.Store(false)

	// Stop may have run between the pop and the claim
	if parent.Err() != nil {
		s.cancelled.Store(true)
	}

	return ctx, true
}

func (s *slot) release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.busy = false
	s.req = domain.DownloadRequest{}
	s.ticket = 0
	s.cancel = nil
}

// cancelIf marks the slot when it is processing id under ticket.
func (s *slot) cancelIf(id string, ticket uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.busy || s.ticket != ticket || s.req.Identity() != id {
		return false
	}
	s.cancelled.Store(true)
	if s.cancel != nil {
		s.cancel()
	}
	return true
}

// stop marks the slot cancelled whatever it is doing.
func (s *slot) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelled.Store(true)
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *slot) isCancelled() bool {
	return s.cancelled.Load()
}

func (s *slot) current() (domain.DownloadRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.req, s.busy
}
