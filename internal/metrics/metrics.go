// Package metrics exposes Prometheus collectors for the alarm pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the alarm pipeline collectors.
type Metrics struct {
	registry             prometheus.Registerer
	evaluationTicks      *prometheus.CounterVec
	tasksFired           *prometheus.CounterVec
	duplicatesSuppressed prometheus.Counter
	persistenceErrors    *prometheus.CounterVec
	playbackErrors       prometheus.Counter
	activeAlarm          prometheus.Gauge
}

// New registers the collectors on the given Registerer (DefaultRegisterer
// when nil) under the vk7days namespace.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		registry: reg,
		evaluationTicks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vk7days",
				Name:      "evaluation_ticks_total",
				Help:      "Total number of due-task evaluation passes",
			},
			[]string{"context"},
		),
		tasksFired: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vk7days",
				Name:      "tasks_fired_total",
				Help:      "Total number of fired task occurrences",
			},
			[]string{"channel"},
		),
		duplicatesSuppressed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "vk7days",
				Name:      "duplicates_suppressed_total",
				Help:      "Occurrences found already marked fired at dispatch time",
			},
		),
		persistenceErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vk7days",
				Name:      "persistence_errors_total",
				Help:      "Schedule and ledger persistence failures",
			},
			[]string{"op"},
		),
		playbackErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "vk7days",
				Name:      "playback_errors_total",
				Help:      "Audio playback failures",
			},
		),
		activeAlarm: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "vk7days",
				Name:      "active_alarm",
				Help:      "1 while an alarm playback loop is active",
			},
		),
	}

	reg.MustRegister(
		m.evaluationTicks,
		m.tasksFired,
		m.duplicatesSuppressed,
		m.persistenceErrors,
		m.playbackErrors,
		m.activeAlarm,
	)

	return m
}

func (m *Metrics) RecordTick(context string) {
	m.evaluationTicks.WithLabelValues(context).Inc()
}

func (m *Metrics) RecordFire(channel string) {
	m.tasksFired.WithLabelValues(channel).Inc()
}

func (m *Metrics) RecordDuplicateSuppressed() {
	m.duplicatesSuppressed.Inc()
}

func (m *Metrics) RecordPersistenceError(op string) {
	m.persistenceErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) RecordPlaybackError() {
	m.playbackErrors.Inc()
}

func (m *Metrics) SetAlarmActive(active bool) {
	if active {
		m.activeAlarm.Set(1)
	} else {
		m.activeAlarm.Set(0)
	}
}
