// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rwatoken"

var (
	// Tokenizations counts finished tokenize calls by outcome.
	Tokenizations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tokenization",
		Name:      "total",
		Help:      "Tokenization attempts by outcome",
	}, []string{"mode", "outcome"})

	// LedgerSubmitDuration observes submit-and-wait latency.
	LedgerSubmitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "submit_duration_seconds",
		Help:      "Time from submission to a terminal ledger result",
		Buckets:   []float64{0.5, 1, 2, 4, 8, 15, 30, 60, 120},
	}, []string{"transaction_type", "result"})

	// LockConflicts counts refused lock acquisitions.
	LockConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "lock",
		Name:      "conflicts_total",
		Help:      "Tokenization lock acquisitions refused because the key was held",
	})

	// RateLimited counts calls rejected by the per-caller limiter.
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rate_limiter",
		Name:      "rejected_total",
		Help:      "Tokenization attempts rejected by the rate limiter",
	})

	// RateLimiterDegraded counts calls let through because the cache failed.
	RateLimiterDegraded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rate_limiter",
		Name:      "degraded_total",
		Help:      "Rate limit checks that failed open on cache errors",
	})

	// BookkeepingFailures counts failed persistence steps after ledger success.
	BookkeepingFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "bookkeeping",
		Name:      "failures_total",
		Help:      "Persistence steps that failed after a validated issuance",
	}, []string{"step", "criticality"})

	// ReconciliationQueue counts queued and resolved reconciliation tasks.
	ReconciliationQueue = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reconciliation",
		Name:      "tasks_total",
		Help:      "Reconciliation tasks by transition",
	}, []string{"transition"})
)

// Throttled counts requests refused by the per-IP front-door throttle.
var Throttled = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "throttled_total",
	Help:      "Requests refused by the per-IP throttle",
})
