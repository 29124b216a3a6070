package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors exported by the API.
type Metrics struct {
	requests        *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	reportsRendered *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tally_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tally_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		reportsRendered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tally_reports_rendered_total",
			Help: "PDF reports rendered, by kind (fresh or snapshot).",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.requests, m.duration, m.reportsRendered)
	return m
}

// Middleware records request count and latency. Routes are labelled by their
// registered pattern so ids never leak into label values.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// ReportRendered counts one rendered PDF of the given kind.
func (m *Metrics) ReportRendered(kind string) {
	if m == nil {
		return
	}
	m.reportsRendered.WithLabelValues(kind).Inc()
}
