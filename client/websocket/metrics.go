package websocket

import (
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "bybit_ws"

// Metrics holds the prometheus collectors updated by sessions. All sessions
// sharing a Metrics are told apart by the "session" label, see
// SessionParams.Name. A nil *Metrics is valid and records nothing.
type Metrics struct {
	framesReceived   *prometheus.CounterVec
	eventsDispatched *prometheus.CounterVec
	controlSent      *prometheus.CounterVec
	exits            *prometheus.CounterVec
	connects         *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. If reg is
// nil, the collectors are created but not registered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		framesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_received_total",
			Help:      "Frames received, by kind.",
		}, []string{"session", "kind"}),

		eventsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_dispatched_total",
			Help:      "Events handed to the handler.",
		}, []string{"session"}),

		controlSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "control_frames_sent_total",
			Help:      "Control frames sent, by op.",
		}, []string{"session", "op"}),

		exits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "session_exits_total",
			Help:      "Event loop exits, by reason.",
		}, []string{"session", "reason"}),

		connects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "connects_total",
			Help:      "Connection attempts, by status.",
		}, []string{"session", "status"}),
	}

	if reg != nil {
		for _, c := range m.collectors() {
			if err := reg.Register(c); err != nil {
				return nil, errors.Annotatef(err, "registering metrics")
			}
		}
	}

	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.framesReceived,
		m.eventsDispatched,
		m.controlSent,
		m.exits,
		m.connects,
	}
}

func (m *Metrics) frameReceived(session, kind string) {
	if m == nil {
		return
	}
	m.framesReceived.WithLabelValues(session, kind).Inc()
}

func (m *Metrics) eventDispatched(session string) {
	if m == nil {
		return
	}
	m.eventsDispatched.WithLabelValues(session).Inc()
}

func (m *Metrics) controlFrameSent(session, op string) {
	if m == nil {
		return
	}
	m.controlSent.WithLabelValues(session, op).Inc()
}

func (m *Metrics) sessionExited(session string, reason ExitReason) {
	if m == nil {
		return
	}
	m.exits.WithLabelValues(session, reason.String()).Inc()
}

func (m *Metrics) connectAttempted(session string, err error) {
	if m == nil {
		return
	}

	status := "ok"
	if err != nil {
		status = "error"
	}
	m.connects.WithLabelValues(session, status).Inc()
}
