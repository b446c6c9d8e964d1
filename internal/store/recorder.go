package store

import (
	"context"
	"time"

	"github.com/datallboy/godl/internal/domain"
	"github.com/datallboy/godl/internal/infra/logger"
)

// Recorder persists every outcome it is handed. It runs on the delivery
// goroutine, so a slow database never stalls a worker.
type Recorder struct {
	store   Store
	log     *logger.Logger
	timeout time.Duration
}

func NewRecorder(s Store, log *logger.Logger) *Recorder {
	if log == nil {
		log = logger.Discard()
	}
	return &Recorder{store: s, log: log, timeout: 10 * time.Second}
}

func (r *Recorder) HandleOutcome(o domain.Outcome) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.store.SaveOutcome(ctx, o); err != nil {
		r.log.Error("Failed to record outcome for %s: %v", o.URL, err)
	}
}
