// Package metrics provides Prometheus metrics for the ingestion pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExportsLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vinpipe_exports_loaded_total",
			Help: "Store export load attempts by outcome",
		},
		[]string{"store", "status"},
	)

	RowsNormalized = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vinpipe_rows_normalized",
			Help: "Canonical rows produced by the last load of each store",
		},
		[]string{"store"},
	)

	LoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vinpipe_load_duration_seconds",
			Help:    "Time taken to read and normalize one store export",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"store"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vinpipe_cache_lookups_total",
			Help: "Export cache lookups by result",
		},
		[]string{"result"},
	)

	ReportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vinpipe_report_duration_seconds",
			Help:    "Time taken to build a full inventory report",
			Buckets: prometheus.DefBuckets,
		},
	)

	EditsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vinpipe_edits_applied_total",
			Help: "Edited rows merged into the inventory by kind",
		},
		[]string{"kind"},
	)

	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vinpipe_downloads_total",
			Help: "Export downloads and bucket transfers by outcome",
		},
		[]string{"source", "store", "status"},
	)
)

// RecordLoad records one store load.
func RecordLoad(store, status string, rows int, duration time.Duration) {
	ExportsLoaded.WithLabelValues(store, status).Inc()
	LoadDuration.WithLabelValues(store).Observe(duration.Seconds())
	if status == "ok" {
		RowsNormalized.WithLabelValues(store).Set(float64(rows))
	}
}

// RecordCache records an export cache hit or miss.
func RecordCache(hit bool) {
	if hit {
		CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	CacheLookups.WithLabelValues("miss").Inc()
}

// RecordReport records a full report build.
func RecordReport(duration time.Duration) {
	ReportDuration.Observe(duration.Seconds())
}

// RecordEdits records merged edits.
func RecordEdits(updated, inserted int) {
	EditsApplied.WithLabelValues("updated").Add(float64(updated))
	EditsApplied.WithLabelValues("inserted").Add(float64(inserted))
}

// RecordDownload records one download or bucket transfer.
func RecordDownload(source, store string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DownloadsTotal.WithLabelValues(source, store, status).Inc()
}

// Timer is a helper for measuring duration.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
