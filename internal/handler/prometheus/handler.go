package prometheus

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwalitptl/register-api/pkg/metrics"
)

type Handler struct {
	gatherer prometheus.Gatherer
	metrics  *metrics.Metrics
}

// New serves the metrics gathered by g and records HTTP metrics into m.
// A nil g uses the default gatherer.
func New(g prometheus.Gatherer, m *metrics.Metrics) *Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return &Handler{
		gatherer: g,
		metrics:  m,
	}
}

// Middleware records request duration and counts per route template, so
// path parameters do not explode label cardinality.
func (h *Handler) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		labels := []string{c.Request.Method, path, strconv.Itoa(status)}

		h.metrics.RequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		h.metrics.RequestTotal.WithLabelValues(labels...).Inc()
		if status >= 400 {
			h.metrics.ErrorTotal.WithLabelValues(labels...).Inc()
		}
	}
}

func (h *Handler) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
}
