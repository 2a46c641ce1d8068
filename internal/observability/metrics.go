package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	exchangeRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zbxctl",
			Subsystem: "exchange",
			Name:      "total",
			Help:      "Framed exchanges with the server by outcome.",
		},
		[]string{"outcome"},
	)
	exchangeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "zbxctl",
			Subsystem: "exchange",
			Name:      "duration_seconds",
			Help:      "Exchange round trip duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
	exchangeBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zbxctl",
			Subsystem: "exchange",
			Name:      "bytes_total",
			Help:      "Payload bytes moved by exchanges.",
		},
		[]string{"direction"},
	)
	proxyRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zbxctl",
			Subsystem: "proxy",
			Name:      "requests_total",
			Help:      "Proxy requests by request kind and result.",
		},
		[]string{"request", "success"},
	)
	reconcileRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zbxctl",
			Subsystem: "reconcile",
			Name:      "rows_total",
			Help:      "Configuration rows seen by the reconciler.",
		},
		[]string{"section", "result"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zbxctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "zbxctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			exchangeRequests,
			exchangeDuration,
			exchangeBytes,
			proxyRequests,
			reconcileRows,
			httpRequests,
			httpDuration,
		)
	})
}

func RecordExchange(outcome string, duration time.Duration, sent, received int) {
	RegisterMetrics()
	exchangeRequests.WithLabelValues(outcome).Inc()
	exchangeDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	exchangeBytes.WithLabelValues("sent").Add(float64(sent))
	exchangeBytes.WithLabelValues("received").Add(float64(received))
}

func RecordProxyRequest(request string, success bool) {
	RegisterMetrics()
	proxyRequests.WithLabelValues(request, strconv.FormatBool(success)).Inc()
}

// RecordReconcileRows adds n rows for section under result (kept, disabled, invalid, ...).
func RecordReconcileRows(section, result string, n int) {
	if n <= 0 {
		return
	}
	RegisterMetrics()
	reconcileRows.WithLabelValues(section, result).Add(float64(n))
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}
