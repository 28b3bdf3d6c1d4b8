package http

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the relay service.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	RelaySubmissionsTotal *prometheus.CounterVec
	RelayErrorsTotal      *prometheus.CounterVec
	RelayGasUsed          prometheus.Histogram
	RelayBatchSize        prometheus.Histogram
}

var (
	metricsInstance *Metrics
	metricsOnce     sync.Once
)

// GetMetrics returns the process-wide metrics registry, creating it on
// first use. Registration is idempotent across servers in one process.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "relay_http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "relay_http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
				},
				[]string{"method", "path", "status"},
			),
			RelaySubmissionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "relay_submissions_total",
					Help: "Relay submissions by outcome",
				},
				[]string{"outcome"},
			),
			RelayErrorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "relay_errors_total",
					Help: "Relay validation and submission errors by code",
				},
				[]string{"code"},
			),
			RelayGasUsed: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "relay_gas_used",
					Help:    "Gas consumed by confirmed relay transactions",
					Buckets: prometheus.ExponentialBuckets(21000, 2, 9),
				},
			),
			RelayBatchSize: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "relay_batch_size",
					Help:    "Number of calls per relayed batch",
					Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
				},
			),
		}
	})
	return metricsInstance
}
