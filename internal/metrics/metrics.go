package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_admin_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "billing_admin_http_request_duration_seconds",
			Help:    "Histogram of response durations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	// RemoteQueries counts remote executions by outcome
	RemoteQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_admin_remote_queries_total",
			Help: "Number of remote SQL executions by outcome",
		},
		[]string{"outcome"},
	)

	RemoteQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "billing_admin_remote_query_duration_seconds",
			Help:    "Duration of remote SQL executions, connect included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
)

// Init registers the collectors with the default registry
func Init() {
	prometheus.MustRegister(RequestCount, RequestDuration, RemoteQueries, RemoteQueryDuration)
}
