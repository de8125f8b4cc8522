package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the scan pipeline.
type Metrics struct {
	ScansTotal   *prometheus.CounterVec
	ScansDropped prometheus.Counter
	ScanDuration prometheus.Histogram
}

// New creates a Metrics instance with all scan pipeline metrics registered.
func New() *Metrics {
	return &Metrics{
		ScansTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "acredita_scans_total",
			Help: "Total scan attempts by mode and outcome",
		}, []string{"modo", "outcome"}),
		ScansDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "acredita_scans_dropped_total",
			Help: "Scans dropped by the per-device single-flight guard",
		}),
		ScanDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "acredita_scan_duration_seconds",
			Help:    "Duration of the full scan pipeline (resolve through log write)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementScan records a completed scan attempt.
func (m *Metrics) IncrementScan(modo, outcome string) {
	m.ScansTotal.WithLabelValues(modo, outcome).Inc()
}

// IncrementDropped records a duplicate-frame drop.
func (m *Metrics) IncrementDropped() {
	m.ScansDropped.Inc()
}

// ObserveScan records the duration of a scan pipeline.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveScan(start time.Time) {
	m.ScanDuration.Observe(time.Since(start).Seconds())
}
