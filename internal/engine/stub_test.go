package engine

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/datallboy/godl/internal/domain"
)

type stubResponse struct {
	status int
	body   string
	err    error
	size   int64

	// When set, Get writes body, reports on started and then waits for gate
	// or cancellation before returning.
	gate    chan struct{}
	started chan struct{}
}

type stubTransport struct {
	mu        sync.Mutex
	responses map[string]stubResponse
	calls     []string
	opened    int
	closed    int
	openErr   error
}

func newStubTransport() *stubTransport {
	return &stubTransport{responses: make(map[string]stubResponse)}
}

func (s *stubTransport) on(url string, r stubResponse) {
	s.mu.Lock()
	s.responses[url] = r
	s.mu.Unlock()
}

func (s *stubTransport) lookup(url string) stubResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, url)
	r, ok := s.responses[url]
	if !ok {
		return stubResponse{status: 404}
	}
	return r
}

func (s *stubTransport) called(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == url {
			n++
		}
	}
	return n
}

func (s *stubTransport) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return s.openErr
	}
	s.opened++
	return nil
}

func (s *stubTransport) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *stubTransport) ContentLength(ctx context.Context, url string) (int64, error) {
	r := s.lookup(url)
	if r.err != nil {
		return 0, r.err
	}
	if r.status != 200 {
		return 0, domain.NewError(domain.KindForStatus(r.status), r.status, nil)
	}
	return r.size, nil
}

func (s *stubTransport) Get(ctx context.Context, url string, w io.Writer) (int, error) {
	r := s.lookup(url)
	if r.err != nil {
		return 0, r.err
	}

	if r.body != "" {
		if _, err := io.WriteString(w, r.body); err != nil {
			return 0, fmt.Errorf("%w: %v", domain.ErrTransportPerform, err)
		}
	}

	if r.started != nil {
		close(r.started)
	}

	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			// Mimic the next chunk arriving after cancellation
			if _, err := io.WriteString(w, "more"); err != nil {
				return 0, fmt.Errorf("%w: %v", domain.ErrTransportPerform, err)
			}
			return 0, fmt.Errorf("%w: %v", domain.ErrTransportPerform, ctx.Err())
		}
	}

	return r.status, nil
}

type stubExtractor struct {
	mu    sync.Mutex
	calls [][2]string
	err   error
}

func (e *stubExtractor) Extract(ctx context.Context, archivePath, targetDir string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, [2]string{archivePath, targetDir})
	return e.err
}

func (e *stubExtractor) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

type collector struct {
	ch chan domain.Outcome
}

func newCollector() *collector {
	return &collector{ch: make(chan domain.Outcome, 32)}
}

func (c *collector) OnOutcome(o domain.Outcome) { c.ch <- o }

func (c *collector) next(t *testing.T) domain.Outcome {
	t.Helper()
	select {
	case o := <-c.ch:
		return o
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for outcome")
		return domain.Outcome{}
	}
}

func (c *collector) none(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case o := <-c.ch:
		t.Fatalf("unexpected outcome: %+v", o)
	case <-time.After(wait):
	}
}
