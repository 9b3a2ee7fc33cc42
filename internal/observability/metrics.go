package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by the console HTTP surface and its backend calls.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	backendCallsTotal   *prometheus.CounterVec
	backendCallDuration *prometheus.HistogramVec
	listLoadsTotal      *prometheus.CounterVec
	staleLoadsDiscarded prometheus.Counter
	bannersPushedTotal  *prometheus.CounterVec
	consolesActive      prometheus.Gauge
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dispatch_console",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "dispatch_console",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		backendCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dispatch_console",
				Name:      "backend_calls_total",
				Help:      "Total number of backend API calls by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		backendCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "dispatch_console",
				Name:      "backend_call_duration_seconds",
				Help:      "Backend API call duration in seconds grouped by operation.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"operation"},
		),
		listLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dispatch_console",
				Name:      "list_loads_total",
				Help:      "Total number of notification list loads by trigger and result.",
			},
			[]string{"trigger", "result"},
		),
		staleLoadsDiscarded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "dispatch_console",
				Name:      "stale_loads_discarded_total",
				Help:      "Total number of list responses dropped because a newer load was issued.",
			},
		),
		bannersPushedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dispatch_console",
				Name:      "banners_pushed_total",
				Help:      "Total number of transient banners shown by level.",
			},
			[]string{"level"},
		),
		consolesActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "dispatch_console",
				Name:      "consoles_active",
				Help:      "Current number of live console sessions.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.backendCallsTotal,
		m.backendCallDuration,
		m.listLoadsTotal,
		m.staleLoadsDiscarded,
		m.bannersPushedTotal,
		m.consolesActive,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) ObserveBackendCall(operation string, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	op := normalizeLabel(operation)
	m.backendCallsTotal.WithLabelValues(op, normalizeLabel(outcome)).Inc()

	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.backendCallDuration.WithLabelValues(op).Observe(seconds)
}

func (m *Metrics) IncListLoad(trigger string, result string) {
	if m == nil {
		return
	}
	m.listLoadsTotal.WithLabelValues(normalizeLabel(trigger), normalizeLabel(result)).Inc()
}

func (m *Metrics) IncStaleLoadDiscarded() {
	if m == nil {
		return
	}
	m.staleLoadsDiscarded.Inc()
}

func (m *Metrics) IncBannerPushed(level string) {
	if m == nil {
		return
	}
	m.bannersPushedTotal.WithLabelValues(normalizeLabel(level)).Inc()
}

func (m *Metrics) IncConsolesActive() {
	if m == nil {
		return
	}
	m.consolesActive.Inc()
}

func (m *Metrics) DecConsolesActive() {
	if m == nil {
		return
	}
	m.consolesActive.Dec()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
