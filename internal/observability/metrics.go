// Package observability holds the portal's Prometheus collectors.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records pipeline activity. A nil *Metrics records nothing.
type Metrics struct {
	pipelineRequests *prometheus.CounterVec
	pipelineDuration prometheus.Histogram
	catalogLoads     *prometheus.CounterVec
	executorQueries  *prometheus.CounterVec
	translations     *prometheus.CounterVec
}

// NewMetrics registers collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		pipelineRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_pipeline_requests_total",
			Help: "Questions handled by outcome",
		}, []string{"outcome"}),
		pipelineDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "portal_pipeline_duration_seconds",
			Help:    "End-to-end question latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		}),
		catalogLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_catalog_loads_total",
			Help: "Catalog loads by origin",
		}, []string{"source"}),
		executorQueries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_executor_queries_total",
			Help: "Semantic query attempts by channel and status",
		}, []string{"channel", "status"}),
		translations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_translations_total",
			Help: "Question translations by result",
		}, []string{"result"}),
	}
}

// CatalogLoaded counts a catalog load from origin.
func (m *Metrics) CatalogLoaded(origin string) {
	if m == nil {
		return
	}
	m.catalogLoads.WithLabelValues(origin).Inc()
}

// Translation counts a translation result.
func (m *Metrics) Translation(result string) {
	if m == nil {
		return
	}
	m.translations.WithLabelValues(result).Inc()
}

// ExecutorQuery counts one channel attempt.
func (m *Metrics) ExecutorQuery(channel, status string) {
	if m == nil {
		return
	}
	m.executorQueries.WithLabelValues(channel, status).Inc()
}

// PipelineRequest counts a handled question and observes its latency.
func (m *Metrics) PipelineRequest(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.pipelineRequests.WithLabelValues(outcome).Inc()
	m.pipelineDuration.Observe(elapsed.Seconds())
}
