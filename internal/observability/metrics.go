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
			Name: "chatd_http_requests_total",
			Help: "Total number of HTTP requests processed by chatd.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatd_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatd_realtime_active_connections",
			Help: "Number of open realtime websocket connections.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatd_realtime_events_total",
			Help: "Total number of realtime connection events.",
		},
		[]string{"event"},
	)
	realtimeDeliveriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatd_realtime_deliveries_total",
			Help: "Total number of realtime frames written to subscribers.",
		},
	)
	documentsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatd_documents_created_total",
			Help: "Total number of documents created.",
		},
		[]string{"database", "collection"},
	)
	filesUploadedBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatd_files_uploaded_bytes_total",
			Help: "Total bytes uploaded to buckets.",
		},
		[]string{"bucket"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatd_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		realtimeDeliveriesTotal,
		documentsCreatedTotal,
		filesUploadedBytes,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

func AddRealtimeDeliveries(n int) {
	realtimeDeliveriesTotal.Add(float64(n))
}

func IncDocumentCreated(databaseID, collectionID string) {
	documentsCreatedTotal.WithLabelValues(databaseID, collectionID).Inc()
}

func AddFileUploaded(bucketID string, size int64) {
	filesUploadedBytes.WithLabelValues(bucketID).Add(float64(size))
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
