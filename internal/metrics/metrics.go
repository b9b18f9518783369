package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments the realtime hub and the connection ledger. All methods
// are nil-safe so components can run uninstrumented in tests.
type Metrics struct {
	connectionsActive prometheus.Gauge
	roomsActive       prometheus.Gauge
	messagesTotal     prometheus.Counter
	persistFailures   prometheus.Counter
	requestsCreated   *prometheus.CounterVec
	requestsReviewed  *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "devconnect_ws_connections_active",
			Help: "Current number of live websocket connections.",
		}),
		roomsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "devconnect_chat_rooms_active",
			Help: "Rooms with at least one local member.",
		}),
		messagesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "devconnect_chat_messages_total",
			Help: "Chat messages accepted for broadcast.",
		}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "devconnect_chat_persist_failures_total",
			Help: "Message log appends that failed after broadcast.",
		}),
		requestsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devconnect_connection_requests_total",
			Help: "Connection requests created, by initial status.",
		}, []string{"status"}),
		requestsReviewed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devconnect_connection_reviews_total",
			Help: "Connection request reviews, by outcome.",
		}, []string{"status"}),
	}

	reg.MustRegister(
		m.connectionsActive,
		m.roomsActive,
		m.messagesTotal,
		m.persistFailures,
		m.requestsCreated,
		m.requestsReviewed,
	)
	return m
}

func (m *Metrics) IncConnections() {
	if m == nil {
		return
	}
	m.connectionsActive.Inc()
}

func (m *Metrics) DecConnections() {
	if m == nil {
		return
	}
	m.connectionsActive.Dec()
}

func (m *Metrics) SetRooms(n int) {
	if m == nil {
		return
	}
	m.roomsActive.Set(float64(n))
}

func (m *Metrics) IncMessages() {
	if m == nil {
		return
	}
	m.messagesTotal.Inc()
}

func (m *Metrics) IncPersistFailures() {
	if m == nil {
		return
	}
	m.persistFailures.Inc()
}

func (m *Metrics) IncRequestsCreated(status string) {
	if m == nil {
		return
	}
	m.requestsCreated.WithLabelValues(status).Inc()
}

func (m *Metrics) IncRequestsReviewed(status string) {
	if m == nil {
		return
	}
	m.requestsReviewed.WithLabelValues(status).Inc()
}
