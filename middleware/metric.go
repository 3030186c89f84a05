package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// unmatchedRoute labels requests that hit no registered route, keeping
// raw URLs out of the label set.
const unmatchedRoute = "unmatched"

var (
	// RequestsTotal counts finished requests by method, route pattern and
	// status code.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bvstock",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served, by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration observes handler latency per method and route pattern.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bvstock",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP handler latency, by method and route.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)
)

// InitMetrics registers the HTTP collectors and any extra ones on reg.
func InitMetrics(reg prometheus.Registerer, extra ...prometheus.Collector) {
	reg.MustRegister(append([]prometheus.Collector{RequestsTotal, RequestDuration}, extra...)...)
}

func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		method := c.Request.Method

		RequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		RequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
