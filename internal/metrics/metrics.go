package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the reconciliation sweeps.
// Construct it once per process; promauto panics on double registration.
type Metrics struct {
	// SweepRunsTotal counts sweep executions by kind and outcome.
	SweepRunsTotal *prometheus.CounterVec

	// ShiftsAutoClosedTotal counts shifts closed by a sweep, by reason.
	ShiftsAutoClosedTotal *prometheus.CounterVec

	// IdlePeriodsOpenedTotal counts idle periods opened by idle detection.
	IdlePeriodsOpenedTotal prometheus.Counter

	// OutboxEventsPublishedTotal counts lifecycle events relayed to Kafka.
	OutboxEventsPublishedTotal *prometheus.CounterVec
}

func New(namespace string) *Metrics {
	return &Metrics{
		SweepRunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sweep_runs_total",
				Help:      "Total sweep executions by kind and outcome",
			},
			[]string{"sweep", "outcome"},
		),

		ShiftsAutoClosedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "shifts_auto_closed_total",
				Help:      "Shifts closed automatically, by closure reason",
			},
			[]string{"reason"},
		),

		IdlePeriodsOpenedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "idle_periods_opened_total",
				Help:      "Idle periods opened by idle detection",
			},
		),

		OutboxEventsPublishedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outbox_events_published_total",
				Help:      "Outbox events relayed to Kafka, by status",
			},
			[]string{"status"},
		),
	}
}

func (m *Metrics) IncSweepRun(sweep, outcome string) {
	if m == nil {
		return
	}
	m.SweepRunsTotal.WithLabelValues(sweep, outcome).Inc()
}

func (m *Metrics) IncAutoClosed(reason string) {
	if m == nil {
		return
	}
	m.ShiftsAutoClosedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncIdleOpened() {
	if m == nil {
		return
	}
	m.IdlePeriodsOpenedTotal.Inc()
}

func (m *Metrics) IncOutboxPublished(status string) {
	if m == nil {
		return
	}
	m.OutboxEventsPublishedTotal.WithLabelValues(status).Inc()
}
