package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the event ingestion path.
type Metrics struct {
	// Events accepted into the log, by category and type.
	EventsLogged *prometheus.CounterVec

	// Ingestion soft failures, by reason ("unauthenticated", "invalid", "store").
	LogFailures *prometheus.CounterVec

	// Append latency including the change notification.
	AppendLatency prometheus.Histogram
}

// New creates a Metrics instance with all ingestion metrics registered.
func New() *Metrics {
	return &Metrics{
		EventsLogged: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pitlog_events_logged_total",
			Help: "Total events accepted into the activity log",
		}, []string{"category", "type"}),

		LogFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pitlog_event_log_failures_total",
			Help: "Total ingestion soft failures by reason",
		}, []string{"reason"}),

		AppendLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pitlog_event_append_duration_seconds",
			Help:    "Duration of event append including change notification",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
	}
}

// IncLogged records one accepted event.
func (m *Metrics) IncLogged(category, eventType string) {
	if m != nil {
		m.EventsLogged.WithLabelValues(category, eventType).Inc()
	}
}

// IncFailure records one ingestion soft failure.
func (m *Metrics) IncFailure(reason string) {
	if m != nil {
		m.LogFailures.WithLabelValues(reason).Inc()
	}
}

// ObserveAppend records an append duration in seconds.
func (m *Metrics) ObserveAppend(seconds float64) {
	if m != nil {
		m.AppendLatency.Observe(seconds)
	}
}
