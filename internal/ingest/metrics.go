package ingest

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus instruments for ingestion.
type Metrics struct {
	// ArticlesTotal counts processed records by result: created, existing, failed.
	ArticlesTotal *prometheus.CounterVec
}

// NewMetrics registers newsd_ingest_articles_total once per process.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			ArticlesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "newsd_ingest_articles_total",
					Help: "Total articles processed by ingestion",
				},
				[]string{"result"},
			),
		}
	})
	return globalMetrics
}
