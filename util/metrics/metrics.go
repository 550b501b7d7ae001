// Package metrics registers the portal's Prometheus collectors and
// exposes a gin middleware that records per-request HTTP metrics.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	upstreamFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_upstream_fetches_total",
			Help: "Outbound calls to the CMS and application backend.",
		},
		[]string{"upstream", "outcome"},
	)
)

var initOnce sync.Once

// Init registers collectors in the default registry. Safe to call more
// than once; restarts reuse the registered collectors.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, upstreamFetchesTotal)
	})
}

// ObserveUpstream counts one outbound fetch. outcome is "ok", "error"
// or "http_<status>".
func ObserveUpstream(upstream, outcome string) {
	upstreamFetchesTotal.WithLabelValues(upstream, outcome).Inc()
}

// Handler returns the /metrics endpoint handler.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// Middleware records count and latency per request. The route template
// (not the raw URL) is used as the path label to bound cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}
