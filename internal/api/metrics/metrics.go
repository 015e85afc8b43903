// Package metrics defines all custom Prometheus metrics for the identity
// API. It is the single source of truth for metric names, labels, and help
// strings; metrics self-register with the default registry via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "identity"

// ── Authentication metrics ────────────────────────────────────────────────────

// LoginsTotal counts login outcomes.
// Label:
//   - outcome: "success", "otp_pending", "otp_failed"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login ceremonies, by outcome.",
	},
	[]string{"outcome"},
)

// OTPIssuedTotal counts issued one-time-code challenges.
// Label:
//   - purpose: "login", "signup", "verification"
var OTPIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "otp_issued_total",
		Help:      "Total number of OTP challenges issued, by purpose.",
	},
	[]string{"purpose"},
)

// OTPVerifiedTotal counts verification results.
// Label:
//   - result: "ok", "mismatch", "expired", "locked", "consumed", "not_found"
var OTPVerifiedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "otp_verified_total",
		Help:      "Total number of OTP verification attempts, by result.",
	},
	[]string{"result"},
)

// OTPDeliveryErrorsTotal counts failed code deliveries. Delivery failures do
// not unwind the challenge, so this is the only visibility into them.
var OTPDeliveryErrorsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "otp_delivery_errors_total",
		Help:      "Total number of OTP delivery failures.",
	},
)

// ── Session metrics ───────────────────────────────────────────────────────────

// SessionsCreatedTotal counts materialized sessions.
var SessionsCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_created_total",
		Help:      "Total number of sessions created.",
	},
)

// SessionsRevokedTotal counts revoked sessions.
// Label:
//   - scope: "session" (single), "user" (all for one user), "system" (all)
var SessionsRevokedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_revoked_total",
		Help:      "Total number of sessions revoked, by revocation scope.",
	},
	[]string{"scope"},
)

// SessionResolveDuration measures the authorization check on protected
// requests.
var SessionResolveDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "session_resolve_duration_seconds",
		Help:      "Duration of session token resolution.",
		Buckets:   prometheus.DefBuckets,
	},
)

// ── Audit pipeline metrics ────────────────────────────────────────────────────

// AuditQueueDepth tracks the number of entries waiting in each audit worker
// channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit entries pending in each worker channel.",
	},
	[]string{"worker_id"},
)

// AuditDroppedTotal counts audit entries dropped because a worker channel
// was full.
var AuditDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_dropped_total",
		Help:      "Total number of audit entries dropped due to backpressure.",
	},
)
