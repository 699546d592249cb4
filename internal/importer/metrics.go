package importer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts import activity for the operational endpoint. One
// instance per process; register against the default registry.
type Metrics struct {
	FilesProcessed prometheus.Counter
	FilesFailed    prometheus.Counter
	RecordsMerged  prometheus.Counter
	RowsFailed     prometheus.Counter
	ImportDuration prometheus.Histogram
}

// NewMetrics registers and returns the importer's metric set.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FilesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "mda_import_files_processed_total",
			Help: "Report files parsed and merged successfully.",
		}),
		FilesFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "mda_import_files_failed_total",
			Help: "Report files skipped as malformed or unreadable.",
		}),
		RecordsMerged: factory.NewCounter(prometheus.CounterOpts{
			Name: "mda_import_records_merged_total",
			Help: "Measurement records merged into the session store.",
		}),
		RowsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "mda_import_rows_failed_total",
			Help: "Report rows that failed normalization.",
		}),
		ImportDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mda_import_duration_seconds",
			Help:    "Wall time of folder imports.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}
}
