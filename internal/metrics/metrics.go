package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors are created eagerly so callers never see nil; Register exposes
// them on the default registry.
var (
	OAuthExchanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ytmanager_oauth_exchanges_total",
			Help: "Authorization-code exchanges, by result.",
		},
		[]string{"result"},
	)

	TokenRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ytmanager_token_refreshes_total",
			Help: "Access-token refresh attempts, by result.",
		},
		[]string{"result"},
	)

	DuplicateCodes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ytmanager_oauth_duplicate_codes_total",
			Help: "Authorization codes discarded as duplicates.",
		},
	)

	AnalyticsFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ytmanager_analytics_fetch_failures_total",
			Help: "Per-channel analytics fetches that failed.",
		},
	)

	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ytmanager_analytics_cache_hits_total",
			Help: "Analytics reports served from Redis.",
		},
	)

	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ytmanager_analytics_cache_misses_total",
			Help: "Analytics reports not found in Redis.",
		},
	)

	AggregationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ytmanager_aggregation_duration_seconds",
			Help:    "Revenue aggregation duration, by grouping.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"grouping"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ytmanager_http_request_duration_seconds",
			Help:    "HTTP request duration, by method and status.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)
)

// Register adds every collector to the default registry. Call once.
func Register() {
	prometheus.MustRegister(
		OAuthExchanges,
		TokenRefreshes,
		DuplicateCodes,
		AnalyticsFailures,
		CacheHits,
		CacheMisses,
		AggregationDuration,
		RequestDuration,
	)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
