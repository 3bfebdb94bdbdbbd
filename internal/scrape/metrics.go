package scrape

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	monthsTotal  *prometheus.CounterVec
	rowsTotal    *prometheus.CounterVec
	recordsTotal prometheus.Counter
	monthLatency prometheus.Histogram
	lastSuccess  prometheus.Gauge
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		monthsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leaveplan",
			Name:      "months_total",
			Help:      "Months processed, by result (ok, empty, error).",
		}, []string{"result"}),
		rowsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leaveplan",
			Name:      "rows_total",
			Help:      "Planning rows seen, by result (ok, skipped, error).",
		}, []string{"result"}),
		recordsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "leaveplan",
			Name:      "records_total",
			Help:      "Day records produced.",
		}),
		monthLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "leaveplan",
			Name:      "month_duration_seconds",
			Help:      "Time spent collecting and resolving one month.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		lastSuccess: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "leaveplan",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that collected at least one month.",
		}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}
