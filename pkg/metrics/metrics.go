package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters of a single pipeline run on its own registry.
type Metrics struct {
	Registry *prometheus.Registry

	RowsRead        prometheus.Counter
	RowsExcluded    *prometheus.CounterVec
	CustomersScored prometheus.Counter
	RowsExported    *prometheus.CounterVec
	ExportFailures  *prometheus.CounterVec
	StageDuration   *prometheus.HistogramVec
}

// New registers the run metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		RowsRead: f.NewCounter(prometheus.CounterOpts{
			Name: "rfm_rows_read_total",
			Help: "Raw transaction rows read from the input file",
		}),
		RowsExcluded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rfm_rows_excluded_total",
			Help: "Rows dropped by the cleaner",
		}, []string{"reason"}),
		CustomersScored: f.NewCounter(prometheus.CounterOpts{
			Name: "rfm_customers_scored_total",
			Help: "Customers that received an RFM score",
		}),
		RowsExported: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rfm_rows_exported_total",
			Help: "Score rows durably written per destination",
		}, []string{"destination"}),
		ExportFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rfm_export_failures_total",
			Help: "Failed exports per destination",
		}, []string{"destination"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rfm_stage_duration_seconds",
			Help:    "Duration of each pipeline stage",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage"}),
	}
}

// ObserveStage records the time elapsed since start for stage.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
