package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "evmlogindexer"

var (
	dbQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_queries_total",
			Help:      "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	dbQueryTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_query_duration_seconds",
			Help:      "Duration of database queries",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	crawlCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crawl_cycles_total",
			Help:      "Crawl cycles per address by outcome (synced, caught_up, failed)",
		},
		[]string{"address", "outcome"},
	)

	logsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logs_stored_total",
			Help:      "Total number of logs persisted by the crawler",
		},
		[]string{"address"},
	)

	lastSyncedBlock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_synced_block",
			Help:      "Checkpoint block number per address",
		},
		[]string{"address"},
	)

	dispatchedRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatched_rows_total",
			Help:      "Pending log rows dispatched by outcome (processed, failed)",
		},
		[]string{"outcome"},
	)

	dispatchTime = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Time taken to dispatch one batch of pending logs",
			Buckets:   prometheus.DefBuckets,
		},
	)

	pendingRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_rows",
			Help:      "Pending log rows seen by the last count query",
		},
	)

	uptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Application uptime in seconds",
		},
	)

	goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "goroutines",
			Help:      "Number of active goroutines",
		},
	)

	startTime = time.Now()
)

// ObserveDBQuery records one store round-trip.
func ObserveDBQuery(operation string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	dbQueries.WithLabelValues(operation, status).Inc()
	dbQueryTime.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func CrawlCycleInc(address string, outcome string) {
	crawlCycles.WithLabelValues(address, outcome).Inc()
}

func LogsStoredInc(address string, count int) {
	logsStored.WithLabelValues(address).Add(float64(count))
}

func LastSyncedBlockSet(address string, block uint64) {
	lastSyncedBlock.WithLabelValues(address).Set(float64(block))
}

func DispatchedRowsInc(processed, failed int) {
	dispatchedRows.WithLabelValues("processed").Add(float64(processed))
	dispatchedRows.WithLabelValues("failed").Add(float64(failed))
}

func BatchDuration(duration time.Duration) {
	dispatchTime.Observe(duration.Seconds())
}

func PendingRowsSet(count int64) {
	pendingRows.Set(float64(count))
}

// UpdateSystemMetrics refreshes runtime gauges.
func UpdateSystemMetrics() {
	uptime.Set(time.Since(startTime).Seconds())
	goroutines.Set(float64(runtime.NumGoroutine()))
}
