// Package metrics provides Prometheus instrumentation for the realtime
// client. It exposes a gauge for the connection state, counters for routed
// messages and recovery actions, and a gauge tracking unacknowledged
// publishes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectionState reports the current connection state:
	// 0 = disconnected, 1 = connecting, 2 = connected.
	ConnectionState = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "murmur_connection_state",
		Help: "Current broker connection state (0=disconnected, 1=connecting, 2=connected)",
	})

	// ReconnectsTotal counts scheduled reconnect attempts after a failure
	// or connection loss.
	ReconnectsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "murmur_reconnects_total",
		Help: "Total number of scheduled reconnect attempts",
	})

	// RestartsTotal counts hard transport restarts, including those forced
	// by the stall watchdog.
	RestartsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "murmur_restarts_total",
		Help: "Total number of hard connection restarts",
	})

	// MessagesRouted counts inbound messages by routed event type:
	// "comment", "typing", "delivery", "read", "presence", "self",
	// "unroutable".
	MessagesRouted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "murmur_messages_routed_total",
		Help: "Total number of inbound broker messages routed",
	}, []string{"type"})

	// ParseFailures counts comment payloads that could not be decoded.
	ParseFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "murmur_comment_parse_failures_total",
		Help: "Total number of undecodable comment payloads",
	})

	// PendingPublishes tracks the current number of published but
	// unacknowledged outbound messages.
	PendingPublishes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "murmur_pending_publishes",
		Help: "Current number of unacknowledged outbound publishes",
	})

	// DroppedPublishes counts outbound messages dropped from the
	// disconnected buffer on overflow.
	DroppedPublishes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "murmur_dropped_publishes_total",
		Help: "Total number of buffered publishes dropped on overflow",
	})
)

func init() {
	prometheus.MustRegister(
		ConnectionState,
		ReconnectsTotal,
		RestartsTotal,
		MessagesRouted,
		ParseFailures,
		PendingPublishes,
		DroppedPublishes,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
