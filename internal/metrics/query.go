// Package metrics holds the Prometheus collectors of the service.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "content_query"

// Query pipeline metrics.
var (
	ParamsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "params_dropped_total",
			Help:      "Request parameters dropped because they are not allow-listed",
		},
		[]string{"param"},
	)

	ParamsCoercedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "params_coerced_total",
			Help:      "Restricted parameters replaced by a fallback or clamped",
		},
		[]string{"param"},
	)

	ItemsRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_rejected_total",
			Help:      "Result items removed by the post-query policy check",
		},
	)

	EngineErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_errors_total",
			Help:      "Query engine failures answered with an empty result",
		},
	)

	EngineDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "engine_duration_seconds",
			Help:      "Query engine execution time in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	SearchBackendTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_backend_requests_total",
			Help:      "Alternate search backend calls",
		},
		[]string{"backend", "status"},
	)

	IndexedPostsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "indexed_posts_total",
			Help:      "Posts written to the local search index",
		},
	)
)

var queryMetricsRegistered bool

// RegisterQueryMetrics registers the query pipeline metrics. Must be called once from main.
func RegisterQueryMetrics() {
	if queryMetricsRegistered {
		return
	}
	prometheus.MustRegister(ParamsDroppedTotal)
	prometheus.MustRegister(ParamsCoercedTotal)
	prometheus.MustRegister(ItemsRejectedTotal)
	prometheus.MustRegister(EngineErrorsTotal)
	prometheus.MustRegister(EngineDuration)
	prometheus.MustRegister(SearchBackendTotal)
	prometheus.MustRegister(IndexedPostsTotal)
	queryMetricsRegistered = true
}
