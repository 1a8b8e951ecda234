package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the reconciler's prometheus collectors.
type Metrics struct {
	Runs     *prometheus.CounterVec
	Records  *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg when reg is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "playkeeper",
			Subsystem: "syncer",
			Name:      "runs_total",
			Help:      "Sync runs by domain and result.",
		}, []string{"domain", "result"}),
		Records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "playkeeper",
			Subsystem: "syncer",
			Name:      "records_total",
			Help:      "Records handled by domain and operation.",
		}, []string{"domain", "op"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "playkeeper",
			Subsystem: "syncer",
			Name:      "run_duration_seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}, []string{"domain"}),
	}
	if reg != nil {
		reg.MustRegister(m.Runs, m.Records, m.Duration)
	}
	return m
}

func (m *Metrics) observe(domain string, res Result, seconds float64, err error) {
	if m == nil {
		return
	}
	result := "ok"
	switch {
	case err != nil:
		result = "error"
	case res.PushFailed > 0:
		result = "partial"
	}
	m.Runs.WithLabelValues(domain, result).Inc()
	m.Duration.WithLabelValues(domain).Observe(seconds)

	pulled := res.PulledPersonal
	for _, n := range res.PulledByGroup {
		pulled += n
	}
	m.Records.WithLabelValues(domain, "adopted").Add(float64(res.Adopted))
	m.Records.WithLabelValues(domain, "pushed").Add(float64(res.Pushed))
	m.Records.WithLabelValues(domain, "push_failed").Add(float64(res.PushFailed))
	m.Records.WithLabelValues(domain, "pulled").Add(float64(pulled))
	m.Records.WithLabelValues(domain, "conflict").Add(float64(res.Conflicts))
}
