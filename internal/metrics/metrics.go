// Package metrics provides the centralized Prometheus metrics registry for
// the wager engine.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	OptimizationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wager_engine",
		Name:      "optimizations_total",
		Help:      "Total number of optimization passes by outcome",
	}, []string{"outcome"})
	RecommendationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wager_engine",
		Name:      "recommendations_total",
		Help:      "Total number of recommendations emitted by wager type",
	}, []string{"wager_type"})
	CombinationsDroppedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wager_engine",
		Name:      "combinations_dropped_total",
		Help:      "Total number of combinations dropped for missing market quotes",
	}, []string{"wager_type"})
	BetsRecordedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wager_engine",
		Name:      "bets_recorded_total",
		Help:      "Total number of transactions recorded in the ledger",
	})
	DuplicateBetsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wager_engine",
		Name:      "duplicate_bets_total",
		Help:      "Total number of record calls ignored as duplicates",
	})
	SettlementsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wager_engine",
		Name:      "settlements_total",
		Help:      "Total number of transactions settled by outcome",
	}, []string{"outcome"})
	FeedErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wager_engine",
		Name:      "feed_errors_total",
		Help:      "Total number of external feed lookup failures",
	}, []string{"feed"})
)

// Gauge metrics
var (
	CurrentBalance = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "wager_engine",
		Name:      "current_balance",
		Help:      "Current bankroll balance in currency units",
	})
	PendingTransactions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "wager_engine",
		Name:      "pending_transactions",
		Help:      "Number of transactions awaiting settlement",
	})
)

// Histogram metrics
var (
	OptimizationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "wager_engine",
		Name:      "optimization_duration_seconds",
		Help:      "Duration of full optimization passes",
		Buckets:   prometheus.DefBuckets,
	})
	FeedLookupDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "wager_engine",
		Name:      "feed_lookup_duration_seconds",
		Help:      "Duration of external feed lookups",
		Buckets:   prometheus.DefBuckets,
	}, []string{"feed"})
)

// Registry returns the process-wide registry, registering all metrics on
// first use.
func Registry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			OptimizationsTotal,
			RecommendationsTotal,
			CombinationsDroppedTotal,
			BetsRecordedTotal,
			DuplicateBetsTotal,
			SettlementsTotal,
			FeedErrorsTotal,
			CurrentBalance,
			PendingTransactions,
			OptimizationDuration,
			FeedLookupDuration,
		)
	})
	return registry
}

// Handler returns an HTTP handler serving the registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry(), promhttp.HandlerOpts{})
}
