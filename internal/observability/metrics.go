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
	// Ingestion metrics
	RecordsRead       prometheus.Counter
	PurchasesInserted prometheus.Counter
	DuplicatesSkipped prometheus.Counter
	InvalidRecords    prometheus.Counter
	IngestionWarnings prometheus.Counter

	// Snapshot metrics
	SnapshotRunsTotal *prometheus.CounterVec
	SnapshotDuration  prometheus.Histogram
	PointsComputed    prometheus.Counter
	FXWarnings        prometheus.Counter
	ReportsGenerated  prometheus.Counter

	// Pricing metrics
	SpotRequestsTotal *prometheus.CounterVec
	TicksReceived     prometheus.Counter

	// HTTP metrics
	HTTPRequestDuration *prometheus.HistogramVec

	// Health metrics
	LastSuccessfulSnapshot prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
// Call it once per process; repeated registration panics.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "dca_tracker"
	}

	return &Metrics{
		RecordsRead: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "records_read_total",
			Help:      "Total number of purchase records read from sources",
		}),
		PurchasesInserted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "purchases_inserted_total",
			Help:      "Total number of purchases stored",
		}),
		DuplicatesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "duplicates_skipped_total",
			Help:      "Total number of duplicate purchases skipped",
		}),
		InvalidRecords: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "invalid_records_total",
			Help:      "Total number of records rejected during ingestion",
		}),
		IngestionWarnings: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "warnings_total",
			Help:      "Total number of coercion warnings during ingestion",
		}),

		// Snapshot metrics
		SnapshotRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "runs_total",
			Help:      "Total number of snapshot runs by status",
		}, []string{"status"}),
		SnapshotDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "duration_seconds",
			Help:      "Snapshot run duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		PointsComputed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "points_computed_total",
			Help:      "Total number of performance points computed",
		}),
		FXWarnings: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "fx_warnings_total",
			Help:      "Total number of FX degradation warnings emitted",
		}),
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "reports_generated_total",
			Help:      "Total number of reports written",
		}),

		// Pricing metrics
		SpotRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "spot_requests_total",
			Help:      "Total number of spot price requests by status",
		}, []string{"status"}),
		TicksReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "ticks_received_total",
			Help:      "Total number of live price ticks received",
		}),

		// HTTP metrics
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds by handler",
			Buckets:   prometheus.DefBuckets,
		}, []string{"handler"}),

		// Health metrics
		LastSuccessfulSnapshot: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_snapshot_timestamp",
			Help:      "Unix timestamp of the last successful snapshot run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
