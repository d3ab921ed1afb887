package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements the valuation metrics on Prometheus.
type Recorder struct {
	valuations      *prometheus.CounterVec
	classifications *prometheus.CounterVec
	estimates       *prometheus.HistogramVec
	errorsTotal     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

// New registers the collectors on reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		valuations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autovalue_valuations_total",
				Help: "Valuations by result",
			},
			[]string{"result"},
		),
		classifications: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autovalue_classifications_total",
				Help: "Completed valuations by pricing band and health grade",
			},
			[]string{"band", "grade"},
		),
		estimates: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "autovalue_estimated_price",
				Help:    "Distribution of estimated prices",
				Buckets: prometheus.ExponentialBuckets(1000, 1.6, 14),
			},
			[]string{"make"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autovalue_errors_total",
				Help: "Errors by kind",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "autovalue_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordValuation(result string) {
	r.valuations.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordClassification(band, grade string) {
	r.classifications.WithLabelValues(band, grade).Inc()
}

func (r *Recorder) RecordEstimate(makeName string, price float64) {
	r.estimates.WithLabelValues(makeName).Observe(price)
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
