package newsapi

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus instruments for provider calls.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics registers the provider metrics once per process.
//
//   - newsd_provider_requests_total{endpoint,result}
//   - newsd_provider_request_duration_seconds{endpoint}
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			RequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "newsd_provider_requests_total",
					Help: "Total news provider requests by outcome",
				},
				[]string{"endpoint", "result"},
			),
			RequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "newsd_provider_request_duration_seconds",
					Help:    "News provider request latency",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"endpoint"},
			),
		}
	})
	return globalMetrics
}

func (m *Metrics) observe(endpoint, result string, start time.Time) {
	m.RequestsTotal.WithLabelValues(endpoint, result).Inc()
	m.RequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
