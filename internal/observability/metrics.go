package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for the reconciliation core. Exposed on /metrics by the HTTP
// adapter.
var (
	MessagesReconciled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "retroicq",
		Name:      "messages_reconciled_total",
		Help:      "Messages merged into a chat session.",
	})

	MessagesDeduplicated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "retroicq",
		Name:      "messages_deduplicated_total",
		Help:      "Messages discarded because the session already held their id.",
	})

	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "retroicq",
		Name:      "feed_events_dropped_total",
		Help:      "Malformed feed events dropped by the ingestion pipeline.",
	})

	AlertsFired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "retroicq",
		Name:      "alerts_fired_total",
		Help:      "Incoming-message alert hooks fired.",
	})

	RemoteWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "retroicq",
		Name:      "remote_write_failures_total",
		Help:      "Outbound message writes rejected by the remote store.",
	})
)
