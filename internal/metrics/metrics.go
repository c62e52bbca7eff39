package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for the chat delivery paths. Both adapters swallow their
// failures, so these counters are the only aggregate view of them.
var (
	MessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_messages_sent_total",
		Help: "Chat messages accepted for delivery, by kind.",
	}, []string{"kind"})

	BroadcastFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_broadcast_failures_total",
		Help: "Fan-out publishes that failed and were dropped.",
	})

	PersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_persist_failures_total",
		Help: "History store appends that failed and were dropped.",
	})

	LiveDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_live_delivered_total",
		Help: "Envelopes delivered to subscribers from the fan-out channel.",
	})

	MalformedDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_malformed_dropped_total",
		Help: "Inbound fan-out payloads that failed to decode and were dropped.",
	})

	HistoryFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_history_fetches_total",
		Help: "History page fetches, by result.",
	}, []string{"result"})
)
