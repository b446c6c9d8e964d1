package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datallboy/godl/internal/domain"
)

type fakeSource struct {
	pending int
	active  []domain.DownloadRequest
	workers int
}

func (f fakeSource) Pending() int                     { return f.pending }
func (f fakeSource) Active() []domain.DownloadRequest { return f.active }
func (f fakeSource) Workers() int                     { return f.workers }

func TestHandleOutcome(t *testing.T) {
	m := New("godl")

	m.HandleOutcome(domain.Outcome{Kind: domain.KindSuccess, Bytes: 100})
	m.HandleOutcome(domain.Outcome{Kind: domain.KindSuccess, StatusCode: 200, Skipped: true})
	m.HandleOutcome(domain.Outcome{Kind: domain.KindResponse4xx, StatusCode: 404})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.outcomesTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomesTotal.WithLabelValues("4xx_failure")))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.bytesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skippedTotal))
}

func TestRecordSubmit(t *testing.T) {
	m := New("godl")

	m.RecordSubmit(nil)
	m.RecordSubmit(domain.ErrDuplicate)
	m.RecordSubmit(domain.ErrDuplicate)
	m.RecordSubmit(domain.ErrPoolDisabled)
	m.RecordSubmit(domain.DownloadRequest{}.Validate())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissionsTotal.WithLabelValues("accepted")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.submissionsTotal.WithLabelValues("duplicate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissionsTotal.WithLabelValues("pool_disabled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissionsTotal.WithLabelValues("invalid")))
}

func TestRecordFetch(t *testing.T) {
	m := New("godl")
	m.RecordFetch("size", nil)
	m.RecordFetch("body", domain.NewError(domain.KindResponse5xx, 502, nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetchesTotal.WithLabelValues("size", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetchesTotal.WithLabelValues("body", "5xx_failure")))
}

func TestWatchGauges(t *testing.T) {
	m := New("godl")
	m.Watch("godl", fakeSource{
		pending: 3,
		active:  []domain.DownloadRequest{{URL: "a"}, {URL: "b"}},
		workers: 4,
	})

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, f := range families {
		if f.GetMetric()[0].GetGauge() != nil {
			values[f.GetName()] = f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	assert.Equal(t, 3.0, values["godl_queue_depth"])
	assert.Equal(t, 2.0, values["godl_active_downloads"])
	assert.Equal(t, 4.0, values["godl_workers"])
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.HandleOutcome(domain.Outcome{})
	m.RecordSubmit(nil)
	m.RecordFetch("size", nil)
	m.Watch("godl", fakeSource{})
	assert.Nil(t, m.Registry())
}
