package nat

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the NAT engine's prometheus instruments, grounded on
// malbeclabs/doublezero's metrics.go convention (e.g.
// controlplane/controller/internal/controller/metrics.go).
type Metrics struct {
	mappings     *prometheus.CounterVec
	rewrites     *prometheus.CounterVec
	drops        *prometheus.CounterVec
	expirations  *prometheus.CounterVec
	connections  *prometheus.GaugeVec
}

// NewMetrics builds a Metrics set and, if reg is non-nil, registers it.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		mappings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swrouter_nat_mappings_created_total",
			Help: "Total number of NAT mappings created, by type.",
		}, []string{"type"}),
		rewrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swrouter_nat_rewrites_total",
			Help: "Total number of packets translated, by type and direction.",
		}, []string{"type", "direction"}),
		drops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swrouter_nat_drops_total",
			Help: "Total number of packets dropped by the NAT engine, by reason.",
		}, []string{"reason"}),
		expirations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swrouter_nat_expirations_total",
			Help: "Total number of mappings/connections reclaimed by the sweeper, by type.",
		}, []string{"type"}),
		connections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "swrouter_nat_tcp_connections",
			Help: "Current number of tracked TCP connections, by state.",
		}, []string{"state"}),
	}
	if reg != nil {
		reg.MustRegister(m.mappings, m.rewrites, m.drops, m.expirations, m.connections)
	}
	return m
}
