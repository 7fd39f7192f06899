package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline and cache Prometheus metrics.
var (
	EnvelopeCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "envelope_cache_total",
			Help:      "Envelope cache lookups and writes",
		},
		[]string{"result"}, // "hit" / "miss" / "stored" / "exists" / "error"
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"stage"},
	)

	StageDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_degraded_total",
			Help:      "Recovered stage failures",
		},
		[]string{"stage"},
	)

	PipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by outcome",
		},
		[]string{"outcome"}, // "ok" / "degraded" / "cache_hit" / "shared" / "error"
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers Prometheus pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(EnvelopeCacheTotal)
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(StageDegradedTotal)
	prometheus.MustRegister(PipelineRunsTotal)
	pipelineMetricsRegistered = true
}
