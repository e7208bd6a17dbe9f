package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TransactionsCommitted counts update transactions whose closure returned
	// nil and were durably committed in-memory.
	TransactionsCommitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kvdb_transactions_committed_total",
			Help: "Total number of committed update transactions",
		},
	)

	// TransactionsRolledBack counts update transactions whose closure
	// returned an error and were rolled back.
	TransactionsRolledBack = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kvdb_transactions_rolled_back_total",
			Help: "Total number of rolled back update transactions",
		},
	)

	// ReadTransactionsTotal counts read-only transactions.
	ReadTransactionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kvdb_read_transactions_total",
			Help: "Total number of read transactions",
		},
	)

	// TransactionDuration observes wall-clock time spent running the Read or
	// Update closure; the rollback, commit, and any durable flush that follow
	// the closure are not included.
	TransactionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kvdb_transaction_duration_seconds",
			Help:    "Duration of Read/Update calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"}, // "read" | "update"
	)

	// StorageFlushesTotal counts full-log rewrites performed by Save.
	StorageFlushesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kvdb_storage_flushes_total",
			Help: "Total number of full persistence-log rewrites (Save calls)",
		},
	)

	// StorageFlushDuration observes the time a full log rewrite takes.
	StorageFlushDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kvdb_storage_flush_duration_seconds",
			Help:    "Time taken to rewrite the persistence log in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// StorageAppendErrorsTotal counts durable-append failures observed while
	// flushing pending effects under the Always sync policy.
	StorageAppendErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kvdb_storage_append_errors_total",
			Help: "Total number of persistence backend append failures",
		},
	)

	// StoreKeysTotal reports the current key count of the live map.
	StoreKeysTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "kvdb_store_keys",
			Help: "Current number of keys in the live store",
		},
	)
)

func init() {
	prometheus.MustRegister(TransactionsCommitted)
	prometheus.MustRegister(TransactionsRolledBack)
	prometheus.MustRegister(ReadTransactionsTotal)
	prometheus.MustRegister(TransactionDuration)
	prometheus.MustRegister(StorageFlushesTotal)
	prometheus.MustRegister(StorageFlushDuration)
	prometheus.MustRegister(StorageAppendErrorsTotal)
	prometheus.MustRegister(StoreKeysTotal)
}

// Handler returns the Prometheus HTTP handler, for hosts that want to expose
// these counters; kvdb itself never starts an HTTP server.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
