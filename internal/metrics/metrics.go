// Package metrics holds the Prometheus collectors shared by the evaluation pipeline.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	itemAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qabench_item_attempts_total",
			Help: "Ask-then-judge attempts made by the item evaluator",
		},
		[]string{"model"},
	)

	itemFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qabench_item_failures_total",
			Help: "Items that exhausted every attempt",
		},
		[]string{"model"},
	)

	itemsEvaluated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qabench_items_evaluated_total",
			Help: "Items evaluated, by verdict",
		},
		[]string{"model", "correct"},
	)

	runAccuracy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "qabench_run_accuracy",
			Help: "Accuracy of the most recent completed run (0.0-1.0)",
		},
		[]string{"model", "benchmark"},
	)

	runs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qabench_runs_total",
			Help: "Runs finished, by outcome",
		},
		[]string{"outcome"},
	)

	judgeLossy = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qabench_judge_lossy_total",
			Help: "Verdicts inferred from unparsable judge output",
		},
	)

	persist = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qabench_persist_total",
			Help: "Result store writes, by record kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	capabilitySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qabench_capability_seconds",
			Help:    "Latency of model and judge calls",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		},
		[]string{"kind"},
	)

	rateLimitWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qabench_ratelimit_wait_seconds",
			Help:    "Time model calls spent waiting for a rate limit slot",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		},
		[]string{"route"},
	)
)

// Capability kinds observed by CapabilityLatency.
const (
	KindAnswer = "answer"
	KindJudge  = "judge"
)

// ItemAttempt counts one ask-then-judge attempt.
func ItemAttempt(model string) {
	itemAttempts.WithLabelValues(model).Inc()
}

// ItemFailed counts an item that exhausted its attempts.
func ItemFailed(model string) {
	itemFailures.WithLabelValues(model).Inc()
}

// ItemEvaluated counts a finished item by verdict.
func ItemEvaluated(model string, correct bool) {
	itemsEvaluated.WithLabelValues(model, strconv.FormatBool(correct)).Inc()
}

// RunFinished records a run outcome ("completed", "error", "cancelled", "timeout").
func RunFinished(outcome string) {
	runs.WithLabelValues(outcome).Inc()
}

// RunAccuracy records the accuracy of a completed run.
func RunAccuracy(model, benchmark string, accuracy float64) {
	runAccuracy.WithLabelValues(model, benchmark).Set(accuracy)
}

// JudgeLossy counts a verdict inferred by substring matching.
func JudgeLossy() {
	judgeLossy.Inc()
}

// Persisted records a store write.
func Persisted(kind string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	persist.WithLabelValues(kind, outcome).Inc()
}

// CapabilityLatency records how long a model or judge call took.
func CapabilityLatency(kind string, seconds float64) {
	capabilitySeconds.WithLabelValues(kind).Observe(seconds)
}

// RateLimitWait records how long a call waited before it was admitted.
func RateLimitWait(route string, seconds float64) {
	rateLimitWait.WithLabelValues(route).Observe(seconds)
}

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
