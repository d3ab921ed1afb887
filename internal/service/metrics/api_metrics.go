package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// APIMetrics tracks valuation endpoints by outcome code.
type APIMetrics struct {
	Latency *prometheus.HistogramVec
	Errors  *prometheus.CounterVec
	Limited *prometheus.CounterVec
}

func NewAPIMetrics(reg prometheus.Registerer) *APIMetrics {
	f := promauto.With(reg)
	return &APIMetrics{
		Latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "autovalue",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of valuation endpoints",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		Errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autovalue",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by valuation endpoint and code",
		}, []string{"endpoint", "code"}),
		Limited: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autovalue",
			Subsystem: "api",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		}, []string{"endpoint"}),
	}
}
