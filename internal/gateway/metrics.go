package gateway

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectedClients tracks the number of currently connected WebSocket clients.
	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pairgate_connected_clients",
		Help: "The number of currently connected WebSocket clients",
	})

	// MessagesTotal tracks the total number of messages sent and received.
	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pairgate_messages_total",
		Help: "The total number of messages sent and received",
	}, []string{"direction"}) // "in", "out"

	// ErrorsTotal tracks the total number of errors encountered.
	ErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pairgate_errors_total",
		Help: "The total number of errors encountered",
	}, []string{"type"}) // "auth", "protocol", "upgrade"

	// ApprovalsTotal tracks pairing approval outcomes.
	ApprovalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pairgate_pair_approvals_total",
		Help: "The total number of pairing approval attempts by outcome",
	}, []string{"outcome"}) // "approved", "not_found", "error"
)

// MetricsHandler returns the HTTP handler for Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// IncConnectedClients increments the connected clients gauge.
func IncConnectedClients() {
	ConnectedClients.Inc()
}

// DecConnectedClients decrements the connected clients gauge.
func DecConnectedClients() {
	ConnectedClients.Dec()
}

// IncMessageIn increments the incoming message counter.
func IncMessageIn() {
	MessagesTotal.WithLabelValues("in").Inc()
}

// IncMessageOut increments the outgoing message counter.
func IncMessageOut() {
	MessagesTotal.WithLabelValues("out").Inc()
}

// IncError increments the error counter for the given type.
func IncError(errType string) {
	ErrorsTotal.WithLabelValues(errType).Inc()
}

// IncApproval increments the approval outcome counter.
func IncApproval(outcome string) {
	ApprovalsTotal.WithLabelValues(outcome).Inc()
}
