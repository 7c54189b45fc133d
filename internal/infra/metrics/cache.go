package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(linkCacheRequestsTotal) }

var linkCacheRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "link_cache_requests_total",
		Help: "Tracks link cache hits, misses and search errors.",
	},
	[]string{"result"}, // 'hit', 'miss', 'search_error'
)

func IncLinkCache(result string) {
	linkCacheRequestsTotal.WithLabelValues(norm(result)).Inc()
}
