package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline's Prometheus collectors. They live on a private
// registry because each invocation is a short-lived process that flushes to a
// node_exporter textfile rather than serving /metrics.
type Metrics struct {
	registry *prometheus.Registry

	PagesFetched    prometheus.Counter
	RequestDuration *prometheus.HistogramVec
	Records         *prometheus.CounterVec
	LastSuccess     *prometheus.GaugeVec
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		PagesFetched: factory.NewCounter(prometheus.CounterOpts{
			Name: "certsync_finder_pages_total",
			Help: "Product-finder pages fetched",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "certsync_finder_request_duration_seconds",
			Help:    "Duration of product-finder requests by outcome",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"outcome"}), // outcome: "ok", "http_error", "network_error"
		Records: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "certsync_records_total",
			Help: "Records processed by pipeline stage",
		}, []string{"stage"}), // stage: "normalized", "dropped", "upserted", "exported", "purged"
		LastSuccess: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "certsync_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run per operation",
		}, []string{"operation"}),
	}
}

// Registry exposes the underlying registry for tests and exporters.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// IncrementPages records one fetched page.
func (m *Metrics) IncrementPages() {
	if m != nil {
		m.PagesFetched.Inc()
	}
}

// ObserveRequest records the duration of one upstream request.
func (m *Metrics) ObserveRequest(outcome string, d time.Duration) {
	if m != nil {
		m.RequestDuration.WithLabelValues(outcome).Observe(d.Seconds())
	}
}

// AddRecords adds n to the counter for a pipeline stage.
func (m *Metrics) AddRecords(stage string, n int) {
	if m != nil && n > 0 {
		m.Records.WithLabelValues(stage).Add(float64(n))
	}
}

// MarkSuccess stamps the completion time of an operation.
func (m *Metrics) MarkSuccess(operation string, at time.Time) {
	if m != nil {
		m.LastSuccess.WithLabelValues(operation).Set(float64(at.Unix()))
	}
}

// WriteTextfile atomically writes the registry in text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
