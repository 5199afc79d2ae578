package dromos

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "dromos"

// Dispatch outcomes used as the outcome label of dromos_dispatch_total.
const (
	outcomeOK                = "ok"
	outcomeNotFound          = "not_found"
	outcomeError             = "error"
	outcomeContractViolation = "contract_violation"
)

// Metrics holds the Prometheus collectors of a Server. A nil *Metrics records
// nothing.
type Metrics struct {
	dispatchTotal    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	sessionsTotal    prometheus.Counter
	sessionsActive   prometheus.Gauge
	messagesReceived prometheus.Counter
	messagesSent     prometheus.Counter
	handlerFaults    *prometheus.CounterVec
	fatalFaults      *prometheus.CounterVec
}

// NewMetrics creates the server collectors and registers them with
// registerer. If registerer is nil the default registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)
	return &Metrics{
		dispatchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "dispatch_total",
				Help:      "Total number of dispatched requests by transport and outcome",
			},
			[]string{"transport", "outcome"},
		),
		dispatchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests from receipt to finalization",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		sessionsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "websocket_sessions_total",
				Help:      "Total number of accepted websocket sessions",
			},
		),
		sessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "websocket_sessions_active",
				Help:      "Number of currently open websocket sessions",
			},
		),
		messagesReceived: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "websocket_messages_received_total",
				Help:      "Total number of text messages received from peers",
			},
		),
		messagesSent: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "websocket_messages_sent_total",
				Help:      "Total number of text messages sent to peers",
			},
		),
		handlerFaults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "handler_faults_total",
				Help:      "Total number of errors and panics returned by message handlers",
			},
			[]string{"stage"},
		),
		fatalFaults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "fatal_faults_total",
				Help:      "Total number of panics that escaped fault isolation",
			},
			[]string{"stage"},
		),
	}
}

func (m *Metrics) dispatched(transport, outcome string) {
	if m == nil {
		return
	}
	m.dispatchTotal.WithLabelValues(transport, outcome).Inc()
}

func (m *Metrics) httpFinished(outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.dispatchTotal.WithLabelValues("http", outcome).Inc()
	m.dispatchDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

func (m *Metrics) sessionOpened() {
	if m == nil {
		return
	}
	m.sessionsTotal.Inc()
	m.sessionsActive.Inc()
}

func (m *Metrics) sessionClosed() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}

func (m *Metrics) messageReceived() {
	if m == nil {
		return
	}
	m.messagesReceived.Inc()
}

func (m *Metrics) messageSent() {
	if m == nil {
		return
	}
	m.messagesSent.Inc()
}

func (m *Metrics) handlerFault(stage string) {
	if m == nil {
		return
	}
	m.handlerFaults.WithLabelValues(stage).Inc()
}

func (m *Metrics) fault(stage string) {
	if m == nil {
		return
	}
	m.fatalFaults.WithLabelValues(stage).Inc()
}
