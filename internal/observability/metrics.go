// Package observability exposes Prometheus metrics for builds and the dev server.
package observability

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fluxbase-eu/jsbundle/cli/bundler"
)

// Metrics holds all Prometheus metrics for jsbundle
type Metrics struct {
	registry *prometheus.Registry

	// Build metrics
	buildsTotal   *prometheus.CounterVec
	buildDuration prometheus.Histogram
	bundleBytes   prometheus.Gauge
	bundledFiles  prometheus.Gauge
	missingFiles  prometheus.Gauge
	lastBuildTime prometheus.Gauge

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Live reload metrics
	liveReloadClients prometheus.Gauge
	reloadsSentTotal  prometheus.Counter
}

// NewMetrics creates all metrics on reg. A nil reg gets a fresh registry with
// the Go and process collectors.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		buildsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jsbundle_builds_total",
				Help: "Total number of bundle builds",
			},
			[]string{"status"},
		),
		buildDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "jsbundle_build_duration_seconds",
				Help:    "Bundle build duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),
		bundleBytes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "jsbundle_bundle_bytes",
				Help: "Size of the last successful bundle in bytes",
			},
		),
		bundledFiles: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "jsbundle_bundled_files",
				Help: "Manifest entries included in the last successful bundle",
			},
		),
		missingFiles: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "jsbundle_missing_files",
				Help: "Manifest entries skipped in the last successful bundle because they do not exist",
			},
		),
		lastBuildTime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "jsbundle_last_build_timestamp_seconds",
				Help: "Unix time of the last successful bundle",
			},
		),

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jsbundle_http_requests_total",
				Help: "Total number of HTTP requests served by the dev server",
			},
			[]string{"method", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jsbundle_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "status"},
		),

		liveReloadClients: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "jsbundle_livereload_clients",
				Help: "Current number of connected live reload clients",
			},
		),
		reloadsSentTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "jsbundle_livereload_messages_total",
				Help: "Total number of reload messages sent to browsers",
			},
		),
	}
}

// RecordBuild records the outcome of one build. result may be nil when err is set.
func (m *Metrics) RecordBuild(result *bundler.Result, duration time.Duration, err error) {
	m.buildDuration.Observe(duration.Seconds())

	if err != nil || result == nil {
		m.buildsTotal.WithLabelValues("error").Inc()
		return
	}

	m.buildsTotal.WithLabelValues("success").Inc()
	m.bundleBytes.Set(float64(result.TotalBytes))
	m.bundledFiles.Set(float64(result.Bundled()))
	m.missingFiles.Set(float64(len(result.Missing())))
	m.lastBuildTime.SetToCurrentTime()
}

// SetLiveReloadClients updates the connected client gauge
func (m *Metrics) SetLiveReloadClients(n int) {
	m.liveReloadClients.Set(float64(n))
}

// RecordReloadSent counts a reload message delivered to one client
func (m *Metrics) RecordReloadSent() {
	m.reloadsSentTotal.Inc()
}

// MetricsMiddleware returns a Fiber middleware that collects HTTP metrics
func (m *Metrics) MetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		method := c.Method()

		err := c.Next()

		// The error handler sets the status after middleware returns
		code := c.Response().StatusCode()
		if err != nil {
			code = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
		}
		status := statusClass(code)
		m.httpRequestsTotal.WithLabelValues(method, status).Inc()
		m.httpRequestDuration.WithLabelValues(method, status).Observe(time.Since(start).Seconds())

		return err
	}
}

// Handler returns a Fiber handler that exposes Prometheus metrics
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// Registry returns the registry the metrics are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// statusClass returns the HTTP status class (2xx, 3xx, 4xx, 5xx)
func statusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
