package dispatcher

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the dispatcher's prometheus instruments, matching the
// GaugeVec/CounterVec convention of malbeclabs/doublezero's
// controlplane/controller/internal/controller/metrics.go.
type Metrics struct {
	drops *prometheus.CounterVec
}

// NewMetrics builds a Metrics set and, if reg is non-nil, registers it.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		drops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swrouter_dispatcher_drops_total",
			Help: "Total number of frames dropped by the dispatcher, by reason.",
		}, []string{"reason"}),
	}
	if reg != nil {
		reg.MustRegister(m.drops)
	}
	return m
}
