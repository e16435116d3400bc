package httpapi

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for the affectd API.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	RecordsIngestedTotal *prometheus.CounterVec
	FusionsTotal         prometheus.Counter
	CrisisDetectedTotal  *prometheus.CounterVec
	WellnessScoresTotal  prometheus.Counter
}

// NewMetrics creates and registers the Prometheus metrics.
//
// sync.Once guards registration so repeated construction cannot panic
// with a duplicate collector.
//
// All metrics are prefixed with "affectd_".
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			RequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "affectd_http_requests_total",
					Help: "Total HTTP requests by method, path and status",
				},
				[]string{"method", "path", "status"},
			),

			RequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "affectd_http_request_duration_seconds",
					Help:    "HTTP request duration in seconds by method and path",
					Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
				},
				[]string{"method", "path"},
			),

			RecordsIngestedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "affectd_records_ingested_total",
					Help: "Total emotion records accepted into subject histories",
				},
				[]string{"modality"},
			),

			FusionsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "affectd_fusions_total",
					Help: "Total multimodal fusion computations",
				},
			),

			CrisisDetectedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "affectd_crisis_detected_total",
					Help: "Total messages classified at a non-none crisis level",
				},
				[]string{"level"},
			),

			WellnessScoresTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "affectd_wellness_scores_total",
					Help: "Total wellness score computations",
				},
			),
		}
	})
	return globalMetrics
}
