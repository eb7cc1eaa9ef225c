package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors:
// - http_requests_total: requests by path, method and status code
// - http_request_duration_seconds: request latency by path and method
// - contacts_created_total: contacts stored by the service
// - contacts_rejected_total: create requests with a payload that could not be decoded
var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "HTTP requests by path, method and status."},
		[]string{"path", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request latency in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"path", "method"},
	)
	ContactsCreated  = prometheus.NewCounter(prometheus.CounterOpts{Name: "contacts_created_total", Help: "Contacts created."})
	ContactsRejected = prometheus.NewCounter(prometheus.CounterOpts{Name: "contacts_rejected_total", Help: "Create requests rejected as malformed."})
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPLatency, ContactsCreated, ContactsRejected)
}

// Handler returns a middleware that records request count and latency.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			// unmatched route, keep the label set bounded
			path = "unmatched"
		}
		HTTPLatency.WithLabelValues(path, c.Request.Method).Observe(time.Since(start).Seconds())
		HTTPRequests.WithLabelValues(path, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Exposer returns the standard Prometheus scrape handler.
func Exposer() gin.HandlerFunc { return gin.WrapH(promhttp.Handler()) }
