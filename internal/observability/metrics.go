package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "project_chat_http_requests_total",
			Help: "Total number of HTTP requests processed by the chat service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "project_chat_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	realtimeActiveConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "project_chat_realtime_active_connections",
			Help: "Number of active realtime connections.",
		},
		[]string{"transport"},
	)
	realtimeEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "project_chat_realtime_events_total",
			Help: "Total number of realtime connection events.",
		},
		[]string{"transport", "event"},
	)
	messagesPublishedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "project_chat_messages_published_total",
			Help: "Total number of chat messages persisted and broadcast.",
		},
	)
	messagesRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "project_chat_messages_rejected_total",
			Help: "Total number of rejected message sends.",
		},
		[]string{"reason"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "project_chat_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		realtimeActiveConnections,
		realtimeEventsTotal,
		messagesPublishedTotal,
		messagesRejectedTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncRealtimeActive(transport string) {
	realtimeActiveConnections.WithLabelValues(transport).Inc()
}

func DecRealtimeActive(transport string) {
	realtimeActiveConnections.WithLabelValues(transport).Dec()
}

func IncRealtimeEvent(transport, event string) {
	realtimeEventsTotal.WithLabelValues(transport, event).Inc()
}

func IncMessagePublished() {
	messagesPublishedTotal.Inc()
}

func IncMessageRejected(reason string) {
	messagesRejectedTotal.WithLabelValues(reason).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
