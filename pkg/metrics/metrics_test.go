package metrics

import (
	"testing"
	"time"

	"curiousqa/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopWhenDisabled(t *testing.T) {
	m := New(config.MetricsConfig{Enabled: false}, prometheus.NewRegistry())
	_, ok := m.(noopRecorder)
	assert.True(t, ok, "should return the no-op recorder when disabled")

	// Ensure no-op methods don't panic
	m.IncRequestsTotal("/", 200)
	m.ObserveRequestDuration("/", time.Millisecond)
	m.IncExports(ResultOK)
	m.ObserveExportDuration(time.Second)
	m.AddPages(3)
	m.ObserveRecords(10)
	m.IncExportCacheHits()
	m.IncExportCacheMisses()
	m.IncExportCacheErrors()
}

func TestRecorderWhenEnabled(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(config.MetricsConfig{Enabled: true}, reg)

	m.IncRequestsTotal("/download/", 200)
	m.IncRequestsTotal("/download/", 502)
	m.IncRequestsTotal("/download/", 504)
	m.IncExports(ResultOK)
	m.IncExports(ResultUpstream)
	m.AddPages(4)
	m.ObserveRecords(2)
	m.IncExportCacheHits()
	m.IncExportCacheErrors()

	rec := m.(*prometheusRecorder)
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.requestsTotal.WithLabelValues("/download/", "2xx")))
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.requestsTotal.WithLabelValues("/download/", "5xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.exportsTotal.WithLabelValues(ResultUpstream)))
	assert.Equal(t, 4.0, testutil.ToFloat64(rec.pagesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.exportCacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.exportCacheErrors))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["curiousqa_exports_total"])
	assert.True(t, names["curiousqa_export_records"])
}

func TestHTTPStatusBucket(t *testing.T) {
	assert.Equal(t, "2xx", httpStatusBucket(204))
	assert.Equal(t, "4xx", httpStatusBucket(400))
	assert.Equal(t, "5xx", httpStatusBucket(502))
}
