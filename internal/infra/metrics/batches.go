package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(batchesCreatedTotal, batchItemsTotal, batchesFinishedTotal) }

var (
	batchesCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "batches_created_total",
			Help: "Total bulk batches accepted.",
		},
	)

	batchItemsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "batch_items_total",
			Help: "Total items submitted across all batches.",
		},
	)

	batchesFinishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batches_finished_total",
			Help: "Batches that reached a terminal status.",
		},
		[]string{"status"}, // 'completed', 'failed'
	)
)

func IncBatchCreated(items int) {
	batchesCreatedTotal.Inc()
	batchItemsTotal.Add(float64(items))
}

func IncBatchFinished(status string) {
	batchesFinishedTotal.WithLabelValues(norm(status)).Inc()
}
