package transport

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"
)

var errTooSlow = errors.New("transfer speed stayed below the low speed limit")

// watchdog aborts a transfer whose throughput stays below limit bytes per
// second for a whole window. Transfers have no wall-clock timeout.
type watchdog struct {
	read   atomic.Int64
	cancel context.CancelCauseFunc
	done   chan struct{}
}

// startWatchdog returns a context that is cancelled with errTooSlow when the
// watched reader stalls. A non-positive limit or window disables the check.
func startWatchdog(parent context.Context, limit int64, window time.Duration) (*watchdog, context.Context) {
	ctx, cancel := context.WithCancelCause(parent)
	w := &watchdog{cancel: cancel, done: make(chan struct{})}

	if limit <= 0 || window <= 0 {
		return w, ctx
	}

	threshold := float64(limit) * window.Seconds()

	go func() {
		ticker := time.NewTicker(window)
		defer ticker.Stop()

		var last int64
		for {
			select {
			case <-w.done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				cur := w.read.Load()
				if float64(cur-last) < threshold {
					cancel(errTooSlow)
					return
				}
				last = cur
			}
		}
	}()

	return w, ctx
}

func (w *watchdog) wrap(r io.Reader) io.Reader {
	return &countingReader{r: r, n: &w.read}
}

func (w *watchdog) stop() {
	close(w.done)
	w.cancel(nil)
}

type countingReader struct {
	r io.Reader
	n *atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}
