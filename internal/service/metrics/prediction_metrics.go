package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	PredictionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "predictelligence",
			Subsystem: "prediction",
			Name:      "latency_seconds",
			Help:      "Latency of prediction endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	PredictionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "predictelligence",
			Subsystem: "prediction",
			Name:      "errors_total",
			Help:      "Errors by prediction endpoint",
		},
		[]string{"endpoint"},
	)

	PredictionCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "predictelligence",
			Subsystem: "prediction",
			Name:      "cache_hits_total",
			Help:      "Response cache hits by prediction endpoint",
		},
		[]string{"endpoint"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(PredictionLatency, PredictionErrors, PredictionCacheHits)
	})
}
