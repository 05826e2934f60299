// Package metrics defines and registers the custom Prometheus metrics of the
// credential service. It is the single source of truth for metric names,
// labels, and help strings.
//
// All metrics register with the default Prometheus registry on package init
// through promauto; the HTTP layer exposes them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "credential"

// Result label values shared by the flow counters.
const (
	ResultSuccess            = "success"
	ResultInvalidForm        = "invalid_form"
	ResultConflict           = "conflict"
	ResultInvalidCredentials = "invalid_credentials"
	ResultThrottled          = "throttled"
	ResultError              = "error"
)

// RegistrationsTotal counts registration attempts.
// Label:
//   - result: success, invalid_form, conflict, error
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, by result.",
	},
	[]string{"result"},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: success, invalid_credentials, throttled, error
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// PasswordHashDuration measures Argon2id cost as seen by callers.
// Label:
//   - op: "hash" or "verify"
var PasswordHashDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "password_hash_duration_seconds",
		Help:      "Duration of password hashing and verification.",
		Buckets:   []float64{.025, .05, .1, .2, .3, .5, 1, 2},
	},
	[]string{"op"},
)

// TokensIssuedTotal counts issued credentials.
// Label:
//   - kind: "access" or "refresh"
var TokensIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of tokens issued, by kind.",
	},
	[]string{"kind"},
)
