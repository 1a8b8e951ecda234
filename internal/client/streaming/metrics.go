package streaming

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Snapshots *prometheus.CounterVec
	Failures  *prometheus.CounterVec
	Flushed   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when reg is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "playkeeper",
			Subsystem: "streaming",
			Name:      "snapshots_applied_total",
			Help:      "Snapshots mirrored into the local store by collection.",
		}, []string{"collection"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "playkeeper",
			Subsystem: "streaming",
			Name:      "subscription_failures_total",
			Help:      "Subscriptions closed by an error by collection.",
		}, []string{"collection"}),
		Flushed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "playkeeper",
			Subsystem: "streaming",
			Name:      "flushed_total",
			Help:      "Offline-queued items by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.Snapshots, m.Failures, m.Flushed)
	}
	return m
}

func (m *Metrics) snapshot(collection string) {
	if m != nil {
		m.Snapshots.WithLabelValues(collection).Inc()
	}
}

func (m *Metrics) failure(collection string) {
	if m != nil {
		m.Failures.WithLabelValues(collection).Inc()
	}
}

func (m *Metrics) flushed(kind, outcome string) {
	if m != nil {
		m.Flushed.WithLabelValues(kind, outcome).Inc()
	}
}
