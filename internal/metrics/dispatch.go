package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/sdbus/pkg/busobj"
)

// dispatchMetrics is the Prometheus implementation of busobj.DispatchMetrics.
type dispatchMetrics struct {
	handled       *prometheus.CounterVec
	unhandled     *prometheus.CounterVec
	accessDenied  *prometheus.CounterVec
	signalsSent   *prometheus.CounterVec
}

// NewDispatchMetrics creates a Prometheus-backed busobj.DispatchMetrics.
// Returns busobj.NopMetrics{} if InitRegistry was never called, so callers
// can wire it unconditionally.
func NewDispatchMetrics() busobj.DispatchMetrics {
	if !IsEnabled() {
		return busobj.NopMetrics{}
	}
	reg := GetRegistry()

	return &dispatchMetrics{
		handled: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "sdbus_dispatch_handled_total",
			Help: "Total method calls handled by interface and member",
		}, []string{"interface", "member"}),
		unhandled: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "sdbus_dispatch_unhandled_total",
			Help: "Total method calls that matched no handler",
		}, []string{"interface", "member"}),
		accessDenied: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "sdbus_dispatch_access_denied_total",
			Help: "Total method calls rejected by the access check",
		}, []string{"interface", "member"}),
		signalsSent: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "sdbus_signals_emitted_total",
			Help: "Total signals emitted by kind and outcome",
		}, []string{"kind", "outcome"}),
	}
}

func (d *dispatchMetrics) DispatchHandled(iface, member string) {
	d.handled.WithLabelValues(iface, member).Inc()
}

func (d *dispatchMetrics) DispatchUnhandled(iface, member string) {
	d.unhandled.WithLabelValues(iface, member).Inc()
}

func (d *dispatchMetrics) AccessDenied(iface, member string) {
	d.accessDenied.WithLabelValues(iface, member).Inc()
}

func (d *dispatchMetrics) SignalEmitted(kind string, ok bool) {
	outcome := "sent"
	if !ok {
		outcome = "enoent"
	}
	d.signalsSent.WithLabelValues(kind, outcome).Inc()
}
