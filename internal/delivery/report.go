package delivery

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/datallboy/godl/internal/domain"
	"github.com/datallboy/godl/internal/infra/logger"
)

// ReportWriter appends one block per outcome:
//
//	[url, destination]    <kind text>
type ReportWriter struct {
	mu sync.Mutex
	w  io.Writer
	c  io.Closer
}

func NewReportWriter(w io.Writer) *ReportWriter {
	return &ReportWriter{w: w}
}

// CreateReport truncates (or creates) the report file at path.
func CreateReport(path string) (*ReportWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create report %s: %w", path, err)
	}
	return &ReportWriter{w: f, c: f}, nil
}

func (r *ReportWriter) HandleOutcome(o domain.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "\n[%s, %s]    %s\n\n", o.URL, o.Destination, o.Kind)
}

func (r *ReportWriter) Close() error {
	if r.c == nil {
		return nil
	}
	return r.c.Close()
}

// LogConsumer writes each outcome to the application log.
func LogConsumer(log *logger.Logger) Consumer {
	return ConsumerFunc(func(o domain.Outcome) {
		if o.Succeeded() {
			log.Info("[%s] %s -> %s: %s (status %d, %d bytes)", o.ID, o.URL, o.Destination, o.Kind, o.StatusCode, o.Bytes)
			return
		}
		log.Warn("[%s] %s -> %s: %s (status %d) %s", o.ID, o.URL, o.Destination, o.Kind, o.StatusCode, o.Detail)
	})
}
