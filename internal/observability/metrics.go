package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	connectedClients prometheus.Gauge
	activeSessions   prometheus.Gauge

	commentsTotal         *prometheus.CounterVec
	commentAppendDuration prometheus.Histogram
	sessionLoadDuration   prometheus.Histogram

	broadcastDeliveries prometheus.Counter
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			connectedClients: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Namespace: "beaver",
					Name:      "connected_clients",
					Help:      "Current number of connected websocket clients.",
				},
			),
			activeSessions: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Namespace: "beaver",
					Name:      "active_sessions",
					Help:      "Current number of sessions held in the registry.",
				},
			),
			commentsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "beaver",
					Name:      "comments_total",
					Help:      "Total comment append attempts by status.",
				},
				[]string{"status"},
			),
			commentAppendDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: "beaver",
					Name:      "comment_append_duration_seconds",
					Help:      "Durable comment append duration in seconds.",
					Buckets:   prometheus.DefBuckets,
				},
			),
			sessionLoadDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: "beaver",
					Name:      "session_load_duration_seconds",
					Help:      "Session history load duration in seconds.",
					Buckets:   prometheus.DefBuckets,
				},
			),
			broadcastDeliveries: prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "beaver",
					Name:      "broadcast_deliveries_total",
					Help:      "Total per-recipient broadcast deliveries.",
				},
			),
		}

		prometheus.MustRegister(
			m.connectedClients,
			m.activeSessions,
			m.commentsTotal,
			m.commentAppendDuration,
			m.sessionLoadDuration,
			m.broadcastDeliveries,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func SetConnectedClients(count int) {
	getMetrics().connectedClients.Set(float64(count))
}

func SetActiveSessions(count int) {
	getMetrics().activeSessions.Set(float64(count))
}

func RecordCommentAppend(duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.commentsTotal.WithLabelValues(status).Inc()
	m.commentAppendDuration.Observe(duration.Seconds())
}

func RecordSessionLoad(duration time.Duration) {
	getMetrics().sessionLoadDuration.Observe(duration.Seconds())
}

func RecordBroadcastDeliveries(recipients int) {
	getMetrics().broadcastDeliveries.Add(float64(recipients))
}
