// Package metrics provides the centralized Prometheus metrics registry for
// the odds engine.
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
	CyclesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "darkhorses",
		Name:      "live_cycles_total",
		Help:      "Total number of live odds collection cycles",
	})
	CycleFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "darkhorses",
		Name:      "live_cycle_failures_total",
		Help:      "Total number of failed live odds collection cycles",
	})
	OddsWrittenTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "darkhorses",
		Name:      "odds_written_total",
		Help:      "Total number of odds rows written, by disposition",
	}, []string{"disposition"})
	OddsSkippedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "darkhorses",
		Name:      "odds_skipped_total",
		Help:      "Total number of unchanged odds skipped by change detection",
	})
	APIRequestErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "darkhorses",
		Name:      "api_request_errors_total",
		Help:      "Total number of Racing API request errors",
	})
	HistoricalRecordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "darkhorses",
		Name:      "historical_records_total",
		Help:      "Total number of reconciled historical records, by disposition",
	}, []string{"disposition"})
	HistoricalDatesProcessedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "darkhorses",
		Name:      "historical_dates_processed_total",
		Help:      "Total number of dates processed by the backfill",
	})
)

// Gauge metrics
var (
	UpcomingRaces = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "darkhorses",
		Name:      "upcoming_races",
		Help:      "Number of races currently inside the collection window",
	})
	NextCycleInterval = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "darkhorses",
		Name:      "next_cycle_interval_seconds",
		Help:      "Interval chosen for the next collection cycle",
	})
	ConsecutiveFailures = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "darkhorses",
		Name:      "consecutive_cycle_failures",
		Help:      "Current run of consecutive failed cycles",
	})
	BackfillCoverage = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "darkhorses",
		Name:      "backfill_coverage_ratio",
		Help:      "Fraction of expected dates present in the historical table",
	})
)

// Histogram metrics
var (
	CycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "darkhorses",
		Name:      "live_cycle_duration_seconds",
		Help:      "Duration of live odds collection cycles in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	DateReconcileDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "darkhorses",
		Name:      "historical_date_duration_seconds",
		Help:      "Duration of reconciling a single date in seconds",
		Buckets:   []float64{1, 5, 10, 30, 60, 300, 600},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(CyclesTotal)
		registry.MustRegister(CycleFailuresTotal)
		registry.MustRegister(OddsWrittenTotal)
		registry.MustRegister(OddsSkippedTotal)
		registry.MustRegister(APIRequestErrorsTotal)
		registry.MustRegister(HistoricalRecordsTotal)
		registry.MustRegister(HistoricalDatesProcessedTotal)

		registry.MustRegister(UpcomingRaces)
		registry.MustRegister(NextCycleInterval)
		registry.MustRegister(ConsecutiveFailures)
		registry.MustRegister(BackfillCoverage)

		registry.MustRegister(CycleDuration)
		registry.MustRegister(DateReconcileDuration)
	})
	return registry
}

// Handler returns an HTTP handler serving the registry
func Handler() http.Handler {
	return promhttp.HandlerFor(InitRegistry(), promhttp.HandlerOpts{})
}
