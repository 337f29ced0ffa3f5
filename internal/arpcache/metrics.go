package arpcache

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the ARP cache's prometheus instruments, following the
// GaugeVec/CounterVec convention malbeclabs/doublezero uses throughout its
// metrics.go files (e.g. controlplane/controller/internal/controller/metrics.go).
type Metrics struct {
	entries      prometheus.Gauge
	requestsSent prometheus.Counter
	unresolved   prometheus.Counter
}

// NewMetrics builds a Metrics set and, if reg is non-nil, registers it.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "swrouter_arp_cache_entries",
			Help: "Number of resolved ARP entries currently cached.",
		}),
		requestsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "swrouter_arp_requests_sent_total",
			Help: "Total number of ARP request broadcasts sent, across all interfaces.",
		}),
		unresolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "swrouter_arp_unresolved_total",
			Help: "Total number of ARP requests abandoned after exceeding the retry limit.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.entries, m.requestsSent, m.unresolved)
	}
	return m
}
