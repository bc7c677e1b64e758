package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studyflow",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, route pattern, and status code.",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration observes request latency by method and route.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "studyflow",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// MasteryUpdatesTotal counts BKT observations by outcome.
	MasteryUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studyflow",
			Name:      "mastery_updates_total",
			Help:      "Total BKT mastery updates by observed outcome.",
		},
		[]string{"outcome"},
	)

	// DropoutPredictionsTotal counts computed dropout predictions by risk level.
	DropoutPredictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studyflow",
			Name:      "dropout_predictions_total",
			Help:      "Total dropout predictions computed, by risk level.",
		},
		[]string{"level"},
	)
)

// RegisterMetrics installs the collectors on the given registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		MasteryUpdatesTotal,
		DropoutPredictionsTotal,
	)
}

// MetricsMiddleware records request counts and latencies. Routes are labelled
// by their registered pattern, not the raw path, to keep cardinality bounded.
func MetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		route := c.Route().Path
		method := c.Method()
		status := strconv.Itoa(c.Response().StatusCode())

		HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
		HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())

		return err
	}
}
