package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "styletelling"

// Oracle Prometheus metrics.
var (
	OracleRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_requests_total",
			Help:      "Total number of oracle requests",
		},
		[]string{"provider", "model", "stage", "status"},
	)

	OracleRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oracle_request_duration_seconds",
			Help:      "Oracle request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"provider", "model", "stage"},
	)

	OracleTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_tokens_total",
			Help:      "Total oracle tokens consumed",
		},
		[]string{"provider", "model", "type"}, // "prompt" / "completion"
	)

	OracleCostUSDTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_cost_usd_total",
			Help:      "Estimated oracle spend in USD",
		},
		[]string{"model", "stage"},
	)

	OracleErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_errors_total",
			Help:      "Total oracle errors",
		},
		[]string{"provider", "model", "error_type"},
	)

	OracleBudgetTokensRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "oracle_budget_tokens_remaining",
			Help:      "Remaining token budget",
		},
		[]string{"provider", "period"},
	)
)

var oracleMetricsRegistered bool

// RegisterOracleMetrics registers Prometheus oracle metrics. Must be called once from main.
func RegisterOracleMetrics() {
	if oracleMetricsRegistered {
		return
	}
	prometheus.MustRegister(OracleRequestsTotal)
	prometheus.MustRegister(OracleRequestDuration)
	prometheus.MustRegister(OracleTokensTotal)
	prometheus.MustRegister(OracleCostUSDTotal)
	prometheus.MustRegister(OracleErrorsTotal)
	prometheus.MustRegister(OracleBudgetTokensRemaining)
	oracleMetricsRegistered = true
}
