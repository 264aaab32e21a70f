// internal/common/metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealclient_api_requests_total",
			Help: "Total number of backend requests by operation and status",
		},
		[]string{"operation", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dealclient_api_request_duration_seconds",
			Help:    "Duration of backend requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealclient_cache_hits_total",
			Help: "Queries served from the tag cache",
		},
		[]string{"endpoint"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealclient_cache_misses_total",
			Help: "Queries that required a network fetch",
		},
		[]string{"endpoint"},
	)

	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealclient_cache_invalidations_total",
			Help: "Tags invalidated by successful mutations",
		},
		[]string{"tag_type"},
	)

	CacheRefetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealclient_cache_refetches_total",
			Help: "Active queries re-fetched after invalidation",
		},
		[]string{"endpoint"},
	)

	WizardTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealclient_wizard_transitions_total",
			Help: "Deal wizard state transitions",
		},
		[]string{"from", "to"},
	)

	SessionState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dealclient_session_state",
			Help: "1 for the current session state, 0 otherwise",
		},
		[]string{"state"},
	)
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
