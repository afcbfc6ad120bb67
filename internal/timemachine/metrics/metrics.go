package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the time machine read paths.
type Metrics struct {
	// Snapshot refreshes, by outcome ("ok", "error").
	SnapshotRefreshes *prometheus.CounterVec

	// Events held by the current snapshot.
	SnapshotSize prometheus.Gauge

	// Stats bundle computation latency.
	StatsLatency prometheus.Histogram

	// Live replay sessions.
	ReplaySessions prometheus.Gauge

	// Generated reports, by kind.
	ReportsGenerated *prometheus.CounterVec
}

// New creates a Metrics instance with all time machine metrics registered.
func New() *Metrics {
	return &Metrics{
		SnapshotRefreshes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pitlog_snapshot_refreshes_total",
			Help: "Total event snapshot refreshes by outcome",
		}, []string{"outcome"}),

		SnapshotSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pitlog_snapshot_events",
			Help: "Events held by the current snapshot",
		}),

		StatsLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pitlog_stats_compute_duration_seconds",
			Help:    "Duration of the aggregation stats computation",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),

		ReplaySessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pitlog_replay_sessions",
			Help: "Live replay sessions",
		}),

		ReportsGenerated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pitlog_reports_generated_total",
			Help: "Total generated reports by kind",
		}, []string{"kind"}),
	}
}

// IncRefresh records one snapshot refresh outcome.
func (m *Metrics) IncRefresh(outcome string) {
	if m != nil {
		m.SnapshotRefreshes.WithLabelValues(outcome).Inc()
	}
}

// SetSnapshotSize records the current snapshot size.
func (m *Metrics) SetSnapshotSize(n int) {
	if m != nil {
		m.SnapshotSize.Set(float64(n))
	}
}

// ObserveStats records a stats computation duration in seconds.
func (m *Metrics) ObserveStats(seconds float64) {
	if m != nil {
		m.StatsLatency.Observe(seconds)
	}
}

// SetReplaySessions records the live session count.
func (m *Metrics) SetReplaySessions(n int) {
	if m != nil {
		m.ReplaySessions.Set(float64(n))
	}
}

// IncReport records one generated report.
func (m *Metrics) IncReport(kind string) {
	if m != nil {
		m.ReportsGenerated.WithLabelValues(kind).Inc()
	}
}
