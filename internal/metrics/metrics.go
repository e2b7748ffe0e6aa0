package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the service's prometheus registry and instruments.
type Metrics struct {
	registry        *prometheus.Registry
	mutationsTotal  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New builds a registry with process/go collectors plus service instruments.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mutationsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inventa",
		Name:      "mutations_total",
		Help:      "Coordinated mutations by operation and outcome.",
	}, []string{"operation", "outcome"})

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "inventa",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method, route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	registry.MustRegister(mutationsTotal, requestDuration)

	return &Metrics{
		registry:        registry,
		mutationsTotal:  mutationsTotal,
		requestDuration: requestDuration,
	}
}

// ObserveMutation records one coordinated mutation outcome. It satisfies the
// inventory service's MutationObserver.
func (m *Metrics) ObserveMutation(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "rejected"
	}
	m.mutationsTotal.WithLabelValues(operation, outcome).Inc()
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RequestTimer is gin middleware observing request latency per route.
func (m *Metrics) RequestTimer() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(started).Seconds())
	}
}
