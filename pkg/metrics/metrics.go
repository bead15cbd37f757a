// Package metrics owns the prometheus collectors of the daemon.
package metrics

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	BusMessages        *prometheus.CounterVec
	CommandsPublished  *prometheus.CounterVec
	PublishFailures    prometheus.Counter
	SensorWrites       *prometheus.CounterVec
	Alerts             *prometheus.CounterVec
	OfflineTransitions prometheus.Counter
	EventsDropped      prometheus.Counter
	GraceIgnored       prometheus.Counter
}

// New registers every collector on reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BusMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "envctl",
			Name:      "bus_messages_total",
			Help:      "Inbound bus messages by kind.",
		}, []string{"kind"}),
		CommandsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "envctl",
			Name:      "commands_published_total",
			Help:      "Commands handed to the bus by directive.",
		}, []string{"directive"}),
		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "envctl",
			Name:      "publish_failures_total",
			Help:      "Publishes rejected by the bus client.",
		}),
		SensorWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "envctl",
			Name:      "sensor_writes_total",
			Help:      "Sensor samples by storage outcome (stored, throttled, failed).",
		}, []string{"result"}),
		Alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "envctl",
			Name:      "alerts_total",
			Help:      "Alerts by outcome (dispatched, suppressed, failed).",
		}, []string{"result"}),
		OfflineTransitions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "envctl",
			Name:      "offline_transitions_total",
			Help:      "Controllers marked offline by the liveness sweep.",
		}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "envctl",
			Name:      "events_dropped_total",
			Help:      "Inbound messages dropped because the event queue was full.",
		}),
		GraceIgnored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "envctl",
			Name:      "grace_ignored_total",
			Help:      "Liveness signals ignored during the startup grace window.",
		}),
	}

	reg.MustRegister(
		m.BusMessages,
		m.CommandsPublished,
		m.PublishFailures,
		m.SensorWrites,
		m.Alerts,
		m.OfflineTransitions,
		m.EventsDropped,
		m.GraceIgnored,
	)
	return m
}

// NewNop returns collectors registered nowhere.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
