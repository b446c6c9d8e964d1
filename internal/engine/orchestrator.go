package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/datallboy/godl/internal/domain"
	"github.com/datallboy/godl/internal/infra/logger"
)

const DefaultDigestMaxBytes = 64 * 1024

type Options struct {
	// DigestMaxBytes caps how much of a digest response is kept.
	DigestMaxBytes int64
}

// Orchestrator admits download requests, runs them on a fixed pool of workers
// and reports one outcome per dispatched request to the request's sink.
type Orchestrator struct {
	transport domain.Transport
	extractor domain.Extractor
	log       *logger.Logger
	digestMax int64

	// lifecycle serializes Start and Stop. mu guards the running state and
	// is held for reading during admission and cancellation.
	lifecycle sync.Mutex
	mu        sync.RWMutex
	running   bool
	workers   int
	slots     []*slot
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	registry *registry
	queue    *workQueue
}

func New(transport domain.Transport, extractor domain.Extractor, log *logger.Logger, opts Options) *Orchestrator {
	if log == nil {
		log = logger.Discard()
	}
	if opts.DigestMaxBytes <= 0 {
		opts.DigestMaxBytes = DefaultDigestMaxBytes
	}
	return &Orchestrator{
		transport: transport,
		extractor: extractor,
		log:       log,
		digestMax: opts.DigestMaxBytes,
		registry:  newRegistry(),
		queue:     newWorkQueue(),
	}
}

// Start launches workers. A running orchestrator is stopped first. Zero
// workers is allowed: only FetchSize and FetchBody work then.
func (o *Orchestrator) Start(workers int) error {
	if workers < 0 {
		return domain.NewError(domain.KindInvalidArgument, 0, fmt.Errorf("worker count %d is negative", workers))
	}

	o.lifecycle.Lock()
	defer o.lifecycle.Unlock()

	if o.Running() {
		o.log.Info("Orchestrator already running, restarting")
		o.stop()
	}

	if opener, ok := o.transport.(domain.Opener); ok {
		if err := opener.Open(); err != nil {
			return fmt.Errorf("failed to open transport: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	slots := make([]*slot, workers)
	for i := range slots {
		slots[i] = &slot{}
	}

	o.mu.Lock()
	o.running = true
	o.workers = workers
	o.slots = slots
	o.cancel = cancel
	o.mu.Unlock()

	for i, s := range slots {
		o.wg.Add(1)
		go func(id int, s *slot) {
			defer o.wg.Done()
			o.runWorker(ctx, id, s)
		}(i+1, s)
	}

	if workers == 0 {
		o.log.Warn("Orchestrator started with 0 workers, asynchronous downloads are disabled")
	} else {
		o.log.Info("Orchestrator started with %d worker(s)", workers)
	}
	return nil
}

// Stop cancels every slot, joins the workers and drops whatever is still
// queued. Safe to call repeatedly. Must not be called from a sink.
func (o *Orchestrator) Stop() {
	o.lifecycle.Lock()
	defer o.lifecycle.Unlock()
	o.stop()
}

func (o *Orchestrator) stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.running = false
	o.cancel()
	for _, s := range o.slots {
		s.stop()
	}
	o.mu.Unlock()

	// Workers may still deliver outcomes; admission is already closed
	o.wg.Wait()

	dropped := o.queue.len()
	o.queue.clear()
	o.registry.clear()

	o.mu.Lock()
	o.slots = nil
	o.workers = 0
	o.cancel = nil
	o.mu.Unlock()

	if opener, ok := o.transport.(domain.Opener); ok {
		if err := opener.Close(); err != nil {
			o.log.Warn("Failed to close transport: %v", err)
		}
	}

	o.log.Info("Orchestrator stopped (%d queued request(s) dropped)", dropped)
}

// Submit admits req. A nil error means the request will produce exactly one
// outcome on its sink.
func (o *Orchestrator) Submit(req domain.DownloadRequest) error {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if !o.running {
		return domain.ErrNotRunning
	}
	if o.workers == 0 {
		return domain.ErrPoolDisabled
	}
	if err := req.Validate(); err != nil {
		return err
	}

	ticket, ok := o.registry.add(req.Identity())
	if !ok {
		o.log.Debug("Rejected duplicate request %s", req)
		return domain.ErrDuplicate
	}

	o.queue.push(workItem{req: req, ticket: ticket})
	o.log.Debug("Queued %s", req)
	return nil
}

// Cancel withdraws the request with req's identity. A queued request vanishes
// without an outcome; one already being processed ends as stopped unless it
// has already succeeded.
func (o *Orchestrator) Cancel(req domain.DownloadRequest) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if !o.running || o.workers == 0 {
		o.log.Warn("Cancel %s ignored, no workers running", req)
		return
	}

	id := req.Identity()
	ticket, registered := o.registry.remove(id)

	// Only the admission removed above is withdrawn; a request re-submitted
	// with the same identity since then holds a newer ticket.
	removed, marked := 0, 0
	if registered {
		removed = o.queue.remove(id, ticket)
		for _, s := range o.slots {
			if s.cancelIf(id, ticket) {
				marked++
			}
		}
	}

	o.log.Info("Cancel %s: %d queued removed, %d active stopped", req, removed, marked)
}

// FetchSize asks the transport for the content length of url on the caller's
// goroutine. The returned status is 200 on success.
func (o *Orchestrator) FetchSize(ctx context.Context, url string) (int64, int, error) {
	if !o.Running() {
		return 0, 0, domain.NewError(domain.KindStopped, 0, domain.ErrNotRunning)
	}
	if err := domain.ValidateURL(url); err != nil {
		return 0, 0, err
	}

	size, err := o.transport.ContentLength(ctx, url)
	if err != nil {
		de := asDomainError(err)
		return 0, de.StatusCode, de
	}
	return size, 200, nil
}

// FetchBody streams url into w on the caller's goroutine.
func (o *Orchestrator) FetchBody(ctx context.Context, url string, w io.Writer) (int, error) {
	if !o.Running() {
		return 0, domain.NewError(domain.KindStopped, 0, domain.ErrNotRunning)
	}
	if err := domain.ValidateURL(url); err != nil {
		return 0, err
	}
	if w == nil {
		return 0, domain.NewError(domain.KindInvalidArgument, 0, errors.New("writer is required"))
	}

	status, err := o.transport.Get(ctx, url, w)
	if err != nil {
		return 0, asDomainError(err)
	}
	if status != 200 {
		return status, domain.NewError(domain.KindForStatus(status), status, nil)
	}
	return status, nil
}

func asDomainError(err error) *domain.Error {
	var de *domain.Error
	if errors.As(err, &de) {
		return de
	}
	return domain.NewError(domain.KindOf(err), 0, err)
}

func (o *Orchestrator) Running() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.running
}

func (o *Orchestrator) Workers() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.workers
}

// Pending is the number of admitted requests not yet claimed by a worker.
func (o *Orchestrator) Pending() int {
	return o.queue.len()
}

// Queued returns the admitted requests not yet claimed, oldest first.
func (o *Orchestrator) Queued() []domain.DownloadRequest {
	return o.queue.snapshot()
}

// Active returns the requests currently bound to a worker.
func (o *Orchestrator) Active() []domain.DownloadRequest {
	o.mu.RLock()
	slots := o.slots
	o.mu.RUnlock()

	var out []domain.DownloadRequest
	for _, s := range slots {
		if req, busy := s.current(); busy {
			out = append(out, req)
		}
	}
	return out
}
