package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EngagementOperations counts like/repost mutations by outcome
	// (ok, conflict, not_found, invalid, error).
	EngagementOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialfeed_engagement_operations_total",
		Help: "Total like/unlike/repost/unrepost operations by result",
	}, []string{"action", "result"})

	FeedPagesServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialfeed_feed_pages_served_total",
		Help: "Total feed pages served by feed kind",
	}, []string{"kind"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "socialfeed_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// GinMiddleware records request latency keyed by the matched route pattern.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
