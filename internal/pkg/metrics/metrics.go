// Package metrics defines and registers all custom Prometheus metrics for the
// PICH client core and the mock backend. It is the single source of truth for
// metric names, labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pich"

// ── Store metrics ─────────────────────────────────────────────────────────────

// StaleResponsesTotal counts remote results discarded because the store moved on
// (logout or a newer fetch) before they resolved.
// Label:
//   - collection: "cards", "connections", "profile", "qrcode"
var StaleResponsesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stale_responses_total",
		Help:      "Total number of remote responses discarded as stale.",
	},
	[]string{"collection"},
)

// RemoteCallsTotal counts remote operations issued by the store.
// Labels:
//   - op: operation name (e.g. "cards.list", "auth.login")
//   - result: "ok" or "error"
var RemoteCallsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "remote_calls_total",
		Help:      "Total number of remote operations, by result.",
	},
	[]string{"op", "result"},
)

// SessionTransitionsTotal counts session state machine transitions.
// Label:
//   - to: the new session status
var SessionTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_transitions_total",
		Help:      "Total number of session transitions, by target status.",
	},
	[]string{"to"},
)

// ImplicitLogoutsTotal counts sessions ended because a protected call returned 401.
var ImplicitLogoutsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "implicit_logouts_total",
		Help:      "Total number of sessions invalidated after an unauthorized response.",
	},
)

// ── Persistence metrics ───────────────────────────────────────────────────────

// PersistWritesTotal counts durable storage writes issued by the persistence gate.
// Labels:
//   - op: "set" or "remove"
//   - result: "ok" or "error"
var PersistWritesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "persist_writes_total",
		Help:      "Total number of durable storage writes, by result.",
	},
	[]string{"op", "result"},
)

// PersistPending tracks keys waiting for the persistence writer.
var PersistPending = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "persist_pending_keys",
		Help:      "Current number of keys waiting to be written to durable storage.",
	},
)

// ── Mock backend metrics ──────────────────────────────────────────────────────

// MockLatency measures the artificial latency injected by the mock backend.
// Label:
//   - op: operation name
var MockLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "mock_latency_seconds",
		Help:      "Artificial latency applied to mock backend operations.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"op"},
)

// Result maps an error to the "result" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
