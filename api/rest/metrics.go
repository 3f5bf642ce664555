package rest

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// serverMetrics counts API evaluations on a registry private to the server.
type serverMetrics struct {
	registry    *prometheus.Registry
	evaluations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

func newServerMetrics() *serverMetrics {
	m := &serverMetrics{
		registry: prometheus.NewRegistry(),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quality_gate",
			Subsystem: "api",
			Name:      "evaluations_total",
			Help:      "Evaluations served, by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "quality_gate",
			Subsystem: "api",
			Name:      "evaluation_duration_seconds",
			Help:      "Time spent evaluating a request.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"endpoint"}),
	}
	m.registry.MustRegister(m.evaluations, m.duration)
	return m
}

// observe records one evaluation. outcome is a verdict status, "passed",
// "failed" or "error".
func (m *serverMetrics) observe(endpoint, outcome string, started time.Time) {
	m.evaluations.WithLabelValues(endpoint, outcome).Inc()
	m.duration.WithLabelValues(endpoint).Observe(time.Since(started).Seconds())
}

func (m *serverMetrics) handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
