// Package metrics defines and registers all custom Prometheus metrics for the
// HRIS portal. It is the single source of truth for metric names, labels, and
// help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hris"

// ── Session metrics ───────────────────────────────────────────────────────────

// SessionBootstrapTotal counts bootstrap runs by how they settled.
// Label:
//   - outcome: "no_session", "valid", "rejected", "fail_open", "corrupt", "store_error"
var SessionBootstrapTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_bootstrap_total",
		Help:      "Total number of session bootstrap runs, by outcome.",
	},
	[]string{"outcome"},
)

// SessionOperationsTotal counts session lifecycle operations.
// Labels:
//   - op: "login", "register", "logout", "update_profile"
//   - result: "success", "rejected", "error", "skipped"
var SessionOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_operations_total",
		Help:      "Total number of session operations, by operation and result.",
	},
	[]string{"op", "result"},
)

// ── Routing metrics ───────────────────────────────────────────────────────────

// RouteDecisionsTotal counts route authorizer decisions.
// Labels:
//   - route: the registered route path (e.g. "/hr")
//   - decision: "render", "loading", or "redirect"
var RouteDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "route_decisions_total",
		Help:      "Total number of route authorization decisions.",
	},
	[]string{"route", "decision"},
)

// ── Remote service metrics ────────────────────────────────────────────────────

// RemoteRequestDuration measures calls to the Remote Service.
// Labels:
//   - op: remote operation (e.g. "login", "verify_session")
//   - outcome: "ok", "rejected", "unavailable", "malformed"
var RemoteRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "remote_request_duration_seconds",
		Help:      "Duration of Remote Service calls.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"op", "outcome"},
)

// LogoutNotificationsTotal counts best-effort logout notifications.
// Label:
//   - result: "sent", "failed", "dropped"
var LogoutNotificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logout_notifications_total",
		Help:      "Total number of logout notifications, by delivery result.",
	},
	[]string{"result"},
)

// LogoutQueueDepth tracks notifications waiting in each notifier worker.
// Label:
//   - worker_id: numeric worker index
var LogoutQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "logout_queue_depth",
		Help:      "Current number of logout notifications pending per worker.",
	},
	[]string{"worker_id"},
)
