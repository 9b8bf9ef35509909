package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cyclesTotal     *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	signalsTotal    *prometheus.CounterVec
	confidence      prometheus.Gauge
	modelCycles     prometheus.Gauge
	latency         *prometheus.HistogramVec
	predictedPrice  *prometheus.GaugeVec
	degradedFetches prometheus.Counter
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		cyclesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predictelligence_cycles_total",
				Help: "Total number of pipeline cycles completed",
			},
			[]string{"outcome"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predictelligence_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		signalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predictelligence_signals_total",
				Help: "Total number of signals emitted by recommendation",
			},
			[]string{"signal"},
		),
		confidence: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "predictelligence_confidence_pct",
				Help: "Current pipeline confidence percentage",
			},
		),
		modelCycles: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "predictelligence_model_cycles",
				Help: "Number of training cycles applied to the model",
			},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "predictelligence_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		predictedPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "predictelligence_predicted_price",
				Help: "Last predicted price per property type",
			},
			[]string{"property_type"},
		),
		degradedFetches: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "predictelligence_degraded_fetches_total",
				Help: "Macro fetches that fell back to defaults or stale data",
			},
		),
	}
}

// RecordCycle records a completed pipeline cycle.
func (r *Recorder) RecordCycle(outcome string) {
	r.cyclesTotal.WithLabelValues(outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordSignal records an emitted recommendation.
func (r *Recorder) RecordSignal(signal string) {
	r.signalsTotal.WithLabelValues(signal).Inc()
}

// RecordConfidence records the current confidence percentage.
func (r *Recorder) RecordConfidence(pct float64) {
	r.confidence.Set(pct)
}

// RecordModelCycles records the model's training cycle count.
func (r *Recorder) RecordModelCycles(n int) {
	r.modelCycles.Set(float64(n))
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordPredictedPrice records the last predicted price for a property type.
func (r *Recorder) RecordPredictedPrice(propertyType string, price float64) {
	r.predictedPrice.WithLabelValues(propertyType).Set(price)
}

// RecordDegradedFetch records a macro fetch that used fallback data.
func (r *Recorder) RecordDegradedFetch() {
	r.degradedFetches.Inc()
}
