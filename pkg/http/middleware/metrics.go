package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records request count, latency, in-flight and response size per route.
// The collectors are registered on reg; nil leaves them unregistered.
func Metrics(reg prometheus.Registerer) echo.MiddlewareFunc {
	f := promauto.With(reg)
	requests := f.NewCounterVec(prometheus.CounterOpts{
		Name: "autovalue_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"route", "method", "status"})
	duration := f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "autovalue_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"route", "method", "class"})
	inFlight := f.NewGaugeVec(prometheus.GaugeOpts{
		Name: "autovalue_http_in_flight_requests",
		Help: "Current number of in-flight HTTP requests",
	}, []string{"route"})
	size := f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "autovalue_http_response_size_bytes",
		Help:    "HTTP response size in bytes",
		Buckets: []float64{200, 500, 1_000, 2_000, 5_000, 10_000, 50_000, 100_000},
	}, []string{"route", "method"})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route, method := routeLabel(c), c.Request().Method
			inFlight.WithLabelValues(route).Inc()
			defer inFlight.WithLabelValues(route).Dec()

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
			duration.WithLabelValues(route, method, statusClass(status)).Observe(time.Since(start).Seconds())
			size.WithLabelValues(route, method).Observe(float64(c.Response().Size))
			return nil
		}
	}
}

func statusClass(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
