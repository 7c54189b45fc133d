package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(quotaCallsTotal) }

var quotaCallsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "search_quota_calls_total",
		Help: "Monthly search quota consumption attempts by outcome.",
	},
	[]string{"outcome"}, // 'consumed', 'denied'
)

func IncQuota(outcome string) {
	quotaCallsTotal.WithLabelValues(norm(outcome)).Inc()
}
