// Package metrics defines the custom Prometheus metrics of the membership API.
// Metrics are registered with the default registry at package init through
// promauto; HTTP request metrics are added by the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "membership"

// MemberOperationsTotal counts membership operations by result.
// Labels:
//   - operation: register, login, activate or face
//   - outcome: success, missing_fields, conflict, not_found, forbidden,
//     invalid_payload or error
var MemberOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Total number of membership operations, by operation and outcome.",
	},
	[]string{"operation", "outcome"},
)
