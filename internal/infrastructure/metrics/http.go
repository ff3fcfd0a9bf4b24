package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPMiddleware cuenta peticiones y mide su duración por ruta registrada.
func HTTPMiddleware(reg prometheus.Registerer, service string) fiber.Handler {
	f := promauto.With(reg)
	requests := f.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Peticiones HTTP atendidas",
	}, []string{"service", "method", "path", "status"})
	duration := f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duración de las peticiones HTTP en segundos",
		Buckets: prometheus.DefBuckets,
	}, []string{"service", "method", "path", "status"})

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		path := "unknown"
		if r := c.Route(); r != nil && r.Path != "" {
			path = r.Path
		}
		labels := []string{service, c.Method(), path, strconv.Itoa(status)}
		requests.WithLabelValues(labels...).Inc()
		duration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		return err
	}
}
