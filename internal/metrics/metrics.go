// Package metrics exposes Prometheus collectors for the chat server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Connections tracks open websocket connections, logged in or not.
	Connections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_connections",
		Help: "Current number of open websocket connections",
	})

	Sessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_sessions",
		Help: "Current number of logged in sessions",
	})

	// MessagesRouted counts routed messages by kind: "room", "file" or "whisper".
	MessagesRouted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_messages_routed_total",
		Help: "Total number of routed chat messages",
	}, []string{"kind"})

	Reactions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_reactions_total",
		Help: "Total number of applied reactions",
	})

	// StoreErrors counts failed store calls by operation.
	StoreErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_store_errors_total",
		Help: "Total number of failed persistent store calls",
	}, []string{"op"})

	BroadcastDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_broadcast_dropped_total",
		Help: "Events dropped because a recipient queue was full",
	})

	// Uploads counts accepted uploads by kind: "message" or "profile".
	Uploads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_uploads_total",
		Help: "Total number of accepted uploads",
	}, []string{"kind"})

	StoreLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chat_store_latency_seconds",
		Help:    "Persistent store call latency in seconds",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5},
	}, []string{"op"})
)

func init() {
	prometheus.MustRegister(
		Connections,
		Sessions,
		MessagesRouted,
		Reactions,
		StoreErrors,
		BroadcastDropped,
		Uploads,
		StoreLatency,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
