package metrics

import (
	"time"

	"curiousqa/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder receives the exporter's operational measurements
type Recorder interface {
	IncRequestsTotal(route string, status int)
	ObserveRequestDuration(route string, duration time.Duration)
	IncExports(result string)
	ObserveExportDuration(duration time.Duration)
	AddPages(n int)
	ObserveRecords(n int)
	IncExportCacheHits()
	IncExportCacheMisses()
	IncExportCacheErrors()
}

// Export results
const (
	ResultOK       = "ok"
	ResultUpstream = "upstream_error"
	ResultInvalid  = "invalid_input"
	ResultError    = "error"
)

type prometheusRecorder struct {
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	exportsTotal      *prometheus.CounterVec
	exportDuration    prometheus.Histogram
	pagesTotal        prometheus.Counter
	recordsPerExport  prometheus.Histogram
	exportCacheHits   prometheus.Counter
	exportCacheMisses prometheus.Counter
	exportCacheErrors prometheus.Counter
}

// New registers the exporter's collectors on reg, or returns a no-op
// recorder when metrics are disabled.
func New(cfg config.MetricsConfig, reg prometheus.Registerer) Recorder {
	if !cfg.Enabled {
		return Noop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &prometheusRecorder{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "curiousqa_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"route", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "curiousqa_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),

		exportsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "curiousqa_exports_total",
			Help: "Total number of exports by result",
		}, []string{"result"}),

		exportDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "curiousqa_export_duration_seconds",
			Help:    "Time spent walking the profile API and building an export",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),

		pagesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "curiousqa_upstream_pages_total",
			Help: "Total number of profile pages fetched from the API",
		}),

		recordsPerExport: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "curiousqa_export_records",
			Help:    "Question/answer rows per export",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),

		exportCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "curiousqa_export_cache_hits_total",
			Help: "Total number of exports served from the export cache",
		}),

		exportCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "curiousqa_export_cache_misses_total",
			Help: "Total number of export cache misses",
		}),

		exportCacheErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "curiousqa_export_cache_errors_total",
			Help: "Total number of finished exports the export cache could not store",
		}),
	}
}

func (m *prometheusRecorder) IncRequestsTotal(route string, status int) {
	m.requestsTotal.WithLabelValues(route, httpStatusBucket(status)).Inc()
}

func (m *prometheusRecorder) ObserveRequestDuration(route string, duration time.Duration) {
	m.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func (m *prometheusRecorder) IncExports(result string) {
	m.exportsTotal.WithLabelValues(result).Inc()
}

func (m *prometheusRecorder) ObserveExportDuration(duration time.Duration) {
	m.exportDuration.Observe(duration.Seconds())
}

func (m *prometheusRecorder) AddPages(n int) {
	m.pagesTotal.Add(float64(n))
}

func (m *prometheusRecorder) ObserveRecords(n int) {
	m.recordsPerExport.Observe(float64(n))
}

func (m *prometheusRecorder) IncExportCacheHits() {
	m.exportCacheHits.Inc()
}

func (m *prometheusRecorder) IncExportCacheMisses() {
	m.exportCacheMisses.Inc()
}

func (m *prometheusRecorder) IncExportCacheErrors() {
	m.exportCacheErrors.Inc()
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// Noop returns a recorder that discards everything
func Noop() Recorder {
	return noopRecorder{}
}

type noopRecorder struct{}

func (noopRecorder) IncRequestsTotal(_ string, _ int)                 {}
func (noopRecorder) ObserveRequestDuration(_ string, _ time.Duration) {}
func (noopRecorder) IncExports(_ string)                              {}
func (noopRecorder) ObserveExportDuration(_ time.Duration)            {}
func (noopRecorder) AddPages(_ int)                                   {}
func (noopRecorder) ObserveRecords(_ int)                             {}
func (noopRecorder) IncExportCacheHits()                              {}
func (noopRecorder) IncExportCacheMisses()                            {}
func (noopRecorder) IncExportCacheErrors()                            {}
