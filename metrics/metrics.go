// Package metrics holds the Prometheus collectors for layout, detail cache and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application.
// A nil *Collector is valid and records nothing.
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// Layout metrics
	LayoutPasses   *prometheus.CounterVec
	LayoutDuration prometheus.Histogram
	LayoutNodes    prometheus.Gauge

	// Detail cache metrics
	CacheHits     prometheus.Counter
	CacheMisses   prometheus.Counter
	CacheFailures prometheus.Counter

	// Provider metrics
	ProviderRequests *prometheus.CounterVec

	// View sessions
	ActiveViews prometheus.Gauge

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewCollector creates a collector with its own registry, so tests can build
// as many as they like without duplicate registration.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		LayoutPasses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "layout_passes_total",
				Help:      "Total number of layout passes",
			},
			[]string{"mode"},
		),
		LayoutDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "layout_duration_seconds",
				Help:      "Layout pass duration in seconds",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
			},
		),
		LayoutNodes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "layout_nodes",
				Help:      "Number of nodes placed by the most recent layout pass",
			},
		),
		CacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "detail_cache_hits_total",
				Help:      "Total number of detail cache hits",
			},
		),
		CacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "detail_cache_misses_total",
				Help:      "Total number of detail cache misses",
			},
		),
		CacheFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "detail_fetch_failures_total",
				Help:      "Total number of failed detail fetches",
			},
		),
		ProviderRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_requests_total",
				Help:      "Total number of tree and detail provider requests",
			},
			[]string{"operation", "status"},
		),
		ActiveViews: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_views",
				Help:      "Number of open server-side view sessions",
			},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(
		c.LayoutPasses,
		c.LayoutDuration,
		c.LayoutNodes,
		c.CacheHits,
		c.CacheMisses,
		c.CacheFailures,
		c.ProviderRequests,
		c.ActiveViews,
		c.HTTPRequests,
		c.HTTPDuration,
	)
	return c
}

// Registry returns the registry backing this collector.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveLayout records one layout pass.
func (c *Collector) ObserveLayout(mode string, nodes int, d time.Duration) {
	if c == nil {
		return
	}
	c.LayoutPasses.WithLabelValues(mode).Inc()
	c.LayoutDuration.Observe(d.Seconds())
	c.LayoutNodes.Set(float64(nodes))
}

// CacheHit counts a detail served from the cache.
func (c *Collector) CacheHit() {
	if c != nil {
		c.CacheHits.Inc()
	}
}

// CacheMiss counts a detail lookup that went to the provider.
func (c *Collector) CacheMiss() {
	if c != nil {
		c.CacheMisses.Inc()
	}
}

// CacheFailure counts a failed detail fetch.
func (c *Collector) CacheFailure() {
	if c != nil {
		c.CacheFailures.Inc()
	}
}

// ProviderRequest counts a provider call by operation and outcome.
func (c *Collector) ProviderRequest(operation string, err error) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.ProviderRequests.WithLabelValues(operation, status).Inc()
}

// ViewOpened and ViewClosed track server-side view sessions.
func (c *Collector) ViewOpened() {
	if c != nil {
		c.ActiveViews.Inc()
	}
}

func (c *Collector) ViewClosed() {
	if c != nil {
		c.ActiveViews.Dec()
	}
}

// ObserveHTTP records one HTTP request.
func (c *Collector) ObserveHTTP(method, route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
