// Package metrics wires the dispatch engine's counters into Prometheus,
// following the same promauto.With(registry) pattern used elsewhere in
// this codebase's metrics packages.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	enabled  bool
	registry *prometheus.Registry
)

// InitRegistry enables metrics collection against reg. Call once at
// startup before constructing any *DispatchMetrics.
func InitRegistry(reg *prometheus.Registry) {
	enabled = true
	registry = reg
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool { return enabled }

// GetRegistry returns the active registry, or nil if metrics are disabled.
func GetRegistry() *prometheus.Registry {
	if !enabled {
		return nil
	}
	return registry
}
