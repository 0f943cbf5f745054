package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// namespace defines the global prefix for all metrics (gatehouse_...).
const namespace = "gatehouse"

var (
	// HTTPReqDuration measures the latency of HTTP requests.
	// Metric: gatehouse_http_handling_seconds
	HTTPReqDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_handling_seconds",
		Help:      "Time taken to handle HTTP requests",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	// HTTPReqTotal counts HTTP requests by status code.
	// Metric: gatehouse_http_requests_total
	HTTPReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests",
	}, []string{"method", "path", "code"})

	// EvaluationsTotal counts flag evaluations by decision. The flag name is
	// deliberately not a label: flag cardinality is operator-controlled and
	// unbounded.
	// Metric: gatehouse_flag_evaluations_total
	EvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "flag_evaluations_total",
		Help:      "Total flag evaluations",
	}, []string{"decision"})

	// FlagCacheHits counts flag cache hits across L1 and L2.
	FlagCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "flag_cache_hits_total",
		Help:      "Total flag cache hits",
	})

	// FlagCacheMisses counts full cache misses that fell through to the store.
	FlagCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "flag_cache_misses_total",
		Help:      "Total flag cache misses",
	})
)

// RecordEvaluation increments the evaluation counter for a decision.
func RecordEvaluation(decision bool) {
	if decision {
		EvaluationsTotal.WithLabelValues("on").Inc()
		return
	}
	EvaluationsTotal.WithLabelValues("off").Inc()
}
