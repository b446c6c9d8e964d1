package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/datallboy/godl/internal/domain"
)

var errNoExtractor = errors.New("no extractor configured")

// result is the working state of one request before it becomes an Outcome.
type result struct {
	kind    domain.ErrorKind
	status  int
	err     error
	skipped bool
	bytes   int64
}

// runWorker pulls requests until ctx is done. Each worker owns exactly one
// slot for its whole lifetime.
func (o *Orchestrator) runWorker(ctx context.Context, id int, s *slot) {
	o.log.Debug("Worker %d started", id)
	defer o.log.Debug("Worker %d stopped", id)

	for {
		if ctx.Err() != nil {
			return
		}

		item, ok := o.queue.pop(ctx)
		if !ok {
			return
		}

		jobCtx, ok := s.bind(ctx, item, o.registry)
		if !ok {
			// Cancelled (or superseded) while queued
			o.log.Debug("Worker %d: %s was removed before it started", id, item.req)
			continue
		}

		res := o.process(jobCtx, s, item.req)
		o.complete(s, item, res)
	}
}

func (o *Orchestrator) process(ctx context.Context, s *slot, req domain.DownloadRequest) result {
	if s.isCancelled() {
		return result{kind: domain.KindStopped}
	}

	var res result
	transfer := true

	if req.HasDigest() {
		res, transfer = o.checkDigest(ctx, req)
	}

	if transfer {
		if s.isCancelled() {
			return result{kind: domain.KindStopped}
		}
		res = o.transfer(ctx, s, req)
	}

	if res.kind == domain.KindSuccess && req.Extract {
		if err := o.extract(ctx, req); err != nil {
			res = result{kind: domain.KindExtract, err: err, bytes: res.bytes, skipped: res.skipped}
		}
	}

	return res
}

func (o *Orchestrator) transfer(ctx context.Context, s *slot, req domain.DownloadRequest) result {
	if err := os.MkdirAll(filepath.Dir(req.Destination), 0755); err != nil {
		return result{kind: domain.KindCreateFile, err: fmt.Errorf("failed to create destination directory: %w", err)}
	}

	pw, err := createPart(req.PartPath(), s)
	if err != nil {
		return result{kind: domain.KindCreateFile, err: err}
	}

	status, err := o.transport.Get(ctx, req.URL, pw)
	if err != nil {
		pw.discard()
		return result{kind: domain.KindOf(err), err: err, bytes: pw.n}
	}

	if status != 200 {
		pw.discard()
		return result{kind: domain.KindForStatus(status), status: status, bytes: pw.n}
	}

	if err := pw.commit(req.Destination); err != nil {
		return result{kind: domain.KindRenameFile, err: err, bytes: pw.n}
	}

	return result{kind: domain.KindSuccess, status: status, bytes: pw.n}
}

func (o *Orchestrator) extract(ctx context.Context, req domain.DownloadRequest) error {
	if o.extractor == nil {
		return errNoExtractor
	}
	return o.extractor.Extract(ctx, req.Destination, filepath.Dir(req.Destination))
}

// complete turns res into the request's outcome, deregisters the identity and
// only then hands the outcome to the sink, so a sink may re-submit the same
// request straight away.
func (o *Orchestrator) complete(s *slot, item workItem, res result) {
	req := item.req

	if res.kind != domain.KindSuccess && s.isCancelled() {
		res.kind = domain.KindStopped
		res.err = nil
	}

	out := domain.Outcome{
		ID:          ksuid.New().String(),
		Tag:         req.Tag,
		StatusCode:  res.status,
		Kind:        res.kind,
		URL:         req.URL,
		Destination: req.Destination,
		Skipped:     res.skipped,
		Bytes:       res.bytes,
		FinishedAt:  time.Now(),
	}

	switch {
	case res.err != nil:
		out.Detail = res.err.Error()
	case res.kind != domain.KindSuccess:
		out.Detail = res.kind.String()
	}

	switch {
	case out.Succeeded():
		o.log.Info("Download %s success", req)
	case out.Kind == domain.KindStopped:
		o.log.Info("Download %s been stopped", req)
	default:
		o.log.Warn("Download %s failed: %s", req, out.Detail)
	}

	o.registry.release(req.Identity(), item.ticket)
	s.release()

	if req.Sink != nil {
		req.Sink.OnOutcome(out)
	}
}
