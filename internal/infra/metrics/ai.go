package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(generationCallsLatencyMs, improvementPassesTotal) }

var (
	generationCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "generation_calls_latency_ms",
			Help:    "Text-generation provider call latency distribution in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2000, 4000, 8000, 15000, 30000},
		},
		[]string{"model", "success"},
	)

	improvementPassesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "generation_improvement_passes_total",
			Help: "Count of bounded quality-improvement passes requested.",
		},
	)
)

func ObserveGenerationCall(model string, d time.Duration, success bool) {
	generationCallsLatencyMs.WithLabelValues(norm(model), strconv.FormatBool(success)).
		Observe(float64(d / time.Millisecond))
}

func IncImprovementPass() {
	improvementPassesTotal.Inc()
}
