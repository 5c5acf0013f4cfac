// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Scan metrics
	SlotsProcessed       prometheus.Counter
	SlotsAbsent          prometheus.Counter
	TransactionsAnalyzed prometheus.Counter
	TransactionsSkipped  *prometheus.CounterVec
	ArbitragesDetected   *prometheus.CounterVec
	CurrentSlot          prometheus.Gauge

	// Latency metrics
	SlotFetchLatency prometheus.Histogram
	RPCCallLatency   *prometheus.HistogramVec
	RPCRetries       *prometheus.CounterVec

	// Cache metrics
	CacheRequests *prometheus.CounterVec

	// Run metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance registered with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "arbscan"
	}
	factory := promauto.With(reg)

	return &Metrics{
		SlotsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "slots_processed_total",
			Help:      "Total number of slots analyzed",
		}),
		SlotsAbsent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "slots_absent_total",
			Help:      "Total number of skipped slots with no block",
		}),
		TransactionsAnalyzed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "transactions_analyzed_total",
			Help:      "Total number of transactions run through detection",
		}),
		TransactionsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "transactions_skipped_total",
			Help:      "Total number of transactions skipped by reason",
		}, []string{"reason"}),
		ArbitragesDetected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "arbitrages_detected_total",
			Help:      "Total number of arbitrage records by path length",
		}, []string{"path_length"}),
		CurrentSlot: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "current_slot",
			Help:      "Slot currently being analyzed",
		}),

		SlotFetchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "slot_fetch_latency_seconds",
			Help:      "Time waiting for a slot to be available for analysis",
			Buckets:   prometheus.DefBuckets,
		}),
		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_retries_total",
			Help:      "Total number of retried RPC calls by method",
		}, []string{"method"}),

		CacheRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Slot cache lookups by result",
		}, []string{"result"}),

		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "runs_total",
			Help:      "Total number of scan runs by status",
		}, []string{"status"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Scan run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}),

		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", prometheus.DefaultRegisterer)

// RecordSlot records one analyzed slot.
func RecordSlot(slot uint64, fetchSeconds float64) {
	DefaultMetrics.SlotsProcessed.Inc()
	DefaultMetrics.CurrentSlot.Set(float64(slot))
	DefaultMetrics.SlotFetchLatency.Observe(fetchSeconds)
}

// RecordAbsentSlot records a slot without a block.
func RecordAbsentSlot() {
	DefaultMetrics.SlotsAbsent.Inc()
}

// RecordTransactions records analyzed transactions.
func RecordTransactions(n int) {
	DefaultMetrics.TransactionsAnalyzed.Add(float64(n))
}

// RecordSkippedTransaction records a transaction excluded from detection.
func RecordSkippedTransaction(reason string) {
	DefaultMetrics.TransactionsSkipped.WithLabelValues(reason).Inc()
}

// RecordArbitrage records one detected arbitrage.
func RecordArbitrage(pathLength string) {
	DefaultMetrics.ArbitragesDetected.WithLabelValues(pathLength).Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordRPCRetry records one retried RPC attempt.
func RecordRPCRetry(method string) {
	DefaultMetrics.RPCRetries.WithLabelValues(method).Inc()
}

// RecordCache records a cache lookup result ("hit", "miss", "error").
func RecordCache(result string) {
	DefaultMetrics.CacheRequests.WithLabelValues(result).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordRun records a finished scan run.
func RecordRun(status string, durationSeconds float64) {
	DefaultMetrics.RunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.RunDuration.Observe(durationSeconds)
}
