package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobsProcessedTotal, lowQualityFinalizationsTotal) }

var jobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "generation_jobs_processed_total",
		Help: "Total number of generation jobs finished, labeled by terminal status.",
	},
	[]string{"status"}, // 'completed', 'failed', 'cancelled'
)

var lowQualityFinalizationsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "generation_low_quality_finalizations_total",
		Help: "Jobs finalized with a score below the retry threshold because no budget remained.",
	},
)

func IncJobProcessed(status string) {
	jobsProcessedTotal.WithLabelValues(norm(status)).Inc()
}

func IncLowQualityFinalization() {
	lowQualityFinalizationsTotal.Inc()
}
