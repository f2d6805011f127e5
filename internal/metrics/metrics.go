// Package metrics exposes Prometheus instrumentation for the ingestion
// pipeline and search path.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for document processing and search.
type Metrics struct {
	// DocumentsProcessedTotal counts upload outcomes by result code.
	// The label is "processed" on success or the failure code
	// (empty_document, extraction_failure, ...) otherwise.
	DocumentsProcessedTotal *prometheus.CounterVec

	// ProcessingDuration tracks end-to-end upload pipeline latency.
	ProcessingDuration prometheus.Histogram

	// SearchesTotal counts term context searches served.
	SearchesTotal prometheus.Counter

	// SearchDuration tracks search latency including query embedding.
	SearchDuration prometheus.Histogram

	// RPCRequestsTotal counts JSON-RPC requests by method.
	RPCRequestsTotal *prometheus.CounterVec
}

// New creates and registers the metrics, once per process.
//
// sync.Once guards against "duplicate metrics collector registration"
// panics when multiple components request the metrics.
//
// All metrics are prefixed with "lexai_".
func New() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			DocumentsProcessedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "lexai_documents_processed_total",
					Help: "Total number of document uploads by outcome",
				},
				[]string{"outcome"},
			),

			ProcessingDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "lexai_processing_duration_seconds",
					Help:    "Duration of the document processing pipeline in seconds",
					Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
				},
			),

			SearchesTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "lexai_searches_total",
					Help: "Total number of term context searches served",
				},
			),

			SearchDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "lexai_search_duration_seconds",
					Help:    "Duration of term context searches in seconds",
					Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
				},
			),

			RPCRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "lexai_rpc_requests_total",
					Help: "Total number of JSON-RPC requests by method",
				},
				[]string{"method"},
			),
		}
	})
	return globalMetrics
}
