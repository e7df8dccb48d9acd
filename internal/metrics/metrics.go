// Package metrics provides Prometheus metrics for the bot.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/p-blackswan/afkbot/internal/autodelete"
)

// Metrics holds all Prometheus metrics for the bot.
type Metrics struct {
	UpdatesTotal        *prometheus.CounterVec
	CommandsTotal       *prometheus.CounterVec
	PresenceTransitions *prometheus.CounterVec
	AwayUsers           prometheus.Gauge
	RegistrationsTotal  *prometheus.CounterVec
	DeletionsTotal      *prometheus.CounterVec
	PendingDeletions    prometheus.Gauge
	SweepDuration       prometheus.Histogram
	SweepFaultsTotal    prometheus.Counter
	BroadcastDeliveries *prometheus.CounterVec
	ErrorsTotal         *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		UpdatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "afkbot_updates_total",
				Help: "Total number of updates received by kind.",
			},
			[]string{"kind"},
		),
		CommandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "afkbot_commands_total",
				Help: "Total number of commands handled by command and status.",
			},
			[]string{"command", "status"},
		),
		PresenceTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "afkbot_presence_transitions_total",
				Help: "Total number of presence changes by direction.",
			},
			[]string{"direction"},
		),
		AwayUsers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "afkbot_away_users",
				Help: "Number of users currently marked away.",
			},
		),
		RegistrationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "afkbot_deletion_registrations_total",
				Help: "Total number of auto-delete registrations by outcome.",
			},
			[]string{"outcome"},
		),
		DeletionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "afkbot_deletions_total",
				Help: "Total number of deletion attempts by outcome.",
			},
			[]string{"outcome"},
		),
		PendingDeletions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "afkbot_pending_deletions",
				Help: "Number of messages waiting to be deleted.",
			},
		),
		SweepDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "afkbot_sweep_duration_seconds",
				Help:    "Duration of auto-delete sweep passes.",
				Buckets: prometheus.DefBuckets,
			},
		),
		SweepFaultsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "afkbot_sweep_faults_total",
				Help: "Total number of sweep passes that failed or panicked.",
			},
		),
		BroadcastDeliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "afkbot_broadcast_deliveries_total",
				Help: "Total number of broadcast deliveries by target and result.",
			},
			[]string{"target", "result"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "afkbot_errors_total",
				Help: "Total errors by module and type.",
			},
			[]string{"module", "type"},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.UpdatesTotal,
		m.CommandsTotal,
		m.PresenceTransitions,
		m.AwayUsers,
		m.RegistrationsTotal,
		m.DeletionsTotal,
		m.PendingDeletions,
		m.SweepDuration,
		m.SweepFaultsTotal,
		m.BroadcastDeliveries,
		m.ErrorsTotal,
	)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordUpdate counts an incoming update.
func (m *Metrics) RecordUpdate(kind string) {
	m.UpdatesTotal.WithLabelValues(kind).Inc()
}

// RecordCommand counts a handled command.
func (m *Metrics) RecordCommand(command, status string) {
	m.CommandsTotal.WithLabelValues(command, status).Inc()
}

// RecordPresence counts a transition to "away" or "back".
func (m *Metrics) RecordPresence(direction string) {
	m.PresenceTransitions.WithLabelValues(direction).Inc()
}

// SetAwayUsers sets the away gauge.
func (m *Metrics) SetAwayUsers(n int) {
	m.AwayUsers.Set(float64(n))
}

// SetPendingDeletions sets the deletion queue gauge.
func (m *Metrics) SetPendingDeletions(n int) {
	m.PendingDeletions.Set(float64(n))
}

// RecordBroadcast counts one broadcast delivery.
func (m *Metrics) RecordBroadcast(target string, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.BroadcastDeliveries.WithLabelValues(target, result).Inc()
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(module, errType string) {
	m.ErrorsTotal.WithLabelValues(module, errType).Inc()
}

// ObserveRegistration implements autodelete.Observer.
func (m *Metrics) ObserveRegistration(o autodelete.Outcome) {
	m.RegistrationsTotal.WithLabelValues(string(o)).Inc()
}

// ObserveDeletion implements autodelete.Observer.
func (m *Metrics) ObserveDeletion(o autodelete.DeleteOutcome) {
	m.DeletionsTotal.WithLabelValues(string(o)).Inc()
}

// ObserveSweep implements autodelete.Observer.
func (m *Metrics) ObserveSweep(d time.Duration, err error) {
	m.SweepDuration.Observe(d.Seconds())
	if err != nil {
		m.SweepFaultsTotal.Inc()
	}
}

var _ autodelete.Observer = (*Metrics)(nil)
