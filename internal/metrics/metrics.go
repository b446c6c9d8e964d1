// Package metrics exposes Prometheus collectors for the download
// orchestrator. All methods are safe on a nil *Metrics so callers can run
// without metrics.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/datallboy/godl/internal/domain"
)

// Source is the read-only view of the orchestrator the gauges sample.
type Source interface {
	Pending() int
	Active() []domain.DownloadRequest
	Workers() int
}

type Metrics struct {
	registry *prometheus.Registry

	outcomesTotal    *prometheus.CounterVec
	bytesTotal       prometheus.Counter
	skippedTotal     prometheus.Counter
	submissionsTotal *prometheus.CounterVec
	fetchesTotal     *prometheus.CounterVec
}

// New builds the collectors on a private registry, together with the Go
// runtime and process collectors.
func New(namespace string) *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.outcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcomes_total",
			Help:      "Delivered download outcomes by kind.",
		},
		[]string{"kind"},
	)

	m.bytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "downloaded_bytes_total",
		Help:      "Bytes written to destination files.",
	})

	m.skippedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "digest_skips_total",
		Help:      "Downloads skipped because the remote digest matched.",
	})

	m.submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Submit calls by admission result.",
		},
		[]string{"result"},
	)

	m.fetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_fetches_total",
			Help:      "Synchronous size and body fetches by operation and kind.",
		},
		[]string{"operation", "kind"},
	)

	m.registry.MustRegister(
		m.outcomesTotal,
		m.bytesTotal,
		m.skippedTotal,
		m.submissionsTotal,
		m.fetchesTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Watch registers gauges that sample src on every scrape.
func (m *Metrics) Watch(namespace string, src Source) {
	if m == nil {
		return
	}

	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Admitted requests waiting for a worker.",
		}, func() float64 { return float64(src.Pending()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_downloads",
			Help:      "Requests currently bound to a worker.",
		}, func() float64 { return float64(len(src.Active())) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers",
			Help:      "Size of the worker pool.",
		}, func() float64 { return float64(src.Workers()) }),
	)
}

// HandleOutcome lets Metrics sit behind the result channel as a consumer.
func (m *Metrics) HandleOutcome(o domain.Outcome) {
	if m == nil {
		return
	}
	m.outcomesTotal.WithLabelValues(o.Kind.Label()).Inc()
	if o.Bytes > 0 {
		m.bytesTotal.Add(float64(o.Bytes))
	}
	if o.Skipped {
		m.skippedTotal.Inc()
	}
}

// RecordSubmit counts one Submit call by its result.
func (m *Metrics) RecordSubmit(err error) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(submitResult(err)).Inc()
}

// RecordFetch counts one FetchSize or FetchBody call.
func (m *Metrics) RecordFetch(operation string, err error) {
	if m == nil {
		return
	}
	m.fetchesTotal.WithLabelValues(operation, domain.KindOf(err).Label()).Inc()
}

func submitResult(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, domain.ErrDuplicate):
		return "duplicate"
	case errors.Is(err, domain.ErrNotRunning):
		return "not_running"
	case errors.Is(err, domain.ErrPoolDisabled):
		return "pool_disabled"
	case domain.KindOf(err) == domain.KindInvalidArgument:
		return "invalid"
	default:
		return "error"
	}
}
