package nat

import (
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
	"github.com/oklabs/swrouter/internal/wire"
)

// minExternalAux is the first port/ID the allocator hands out (spec.md §3:
// "external aux values ... are >= 1024"). Unlike swnat's allocatePort
// (table.go:71-83), which starts at the ephemeral range 49152 and falls
// back to a random pick on overflow, this allocator never recycles a
// value freed by expiry and has no overflow fallback: the counter is
// truncated to 16 bits, so after 64512 allocations of one type it wraps
// to 0, below this minimum — spec.md §9 treats 16-bit exhaustion as a
// known, unaddressed limitation of this academic design.
const minExternalAux = 1024

// Table is the NAT engine: the concurrent bidirectional mapping table plus
// the per-mapping TCP connection tracker (spec.md §4.5). A single mutex
// guards all of it, matching swnat's Pair[IP] discipline (one lock per
// table, generalized here to one lock for the whole engine since mappings
// and their connections are mutated together).
type Table struct {
	mu sync.Mutex

	clock    clockwork.Clock
	timeouts Timeouts
	metrics  *Metrics

	externalIP wire.IPv4

	internal map[internalKey]*mapping
	external map[externalKey]*mapping

	pendingSYN map[externalKey]*heldSYN

	icmpPortCounter uint32
	tcpPortCounter  uint32

	forwarder Forwarder
}

// New builds an empty NAT Table translating to externalIP.
func New(externalIP wire.IPv4, timeouts Timeouts, clock clockwork.Clock, metrics *Metrics) *Table {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Table{
		clock:      clock,
		timeouts:   timeouts,
		metrics:    metrics,
		externalIP: externalIP,
		internal:   make(map[internalKey]*mapping),
		external:   make(map[externalKey]*mapping),
		pendingSYN: make(map[externalKey]*heldSYN),
	}
}

// SetForwarder wires in the collaborator used to forward translated frames
// and emit port-unreachable for expired unsolicited SYNs.
func (t *Table) SetForwarder(f Forwarder) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.forwarder = f
}

// SetExternalIP updates the address new mappings translate to. Existing
// mappings keep the external IP recorded at their creation time, matching
// spec.md §3's invariant that m.external_ip always equals "the current
// external interface's IPv4 address" at the time the mapping was made.
func (t *Table) SetExternalIP(ip wire.IPv4) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.externalIP = ip
}

func (t *Table) allocateAux(typ Type) uint16 {
	var counter *uint32
	if typ == TypeTCP {
		counter = &t.tcpPortCounter
	} else {
		counter = &t.icmpPortCounter
	}
	n := atomic.AddUint32(counter, 1)
	return uint16(minExternalAux + (n - 1))
}

// lookupInternal returns the live mapping for key, creating nothing.
// Caller must hold t.mu.
func (t *Table) lookupInternal(key internalKey) *mapping {
	return t.internal[key]
}

// insertMapping installs a freshly allocated mapping under both its
// internal and external keys. Caller must hold t.mu.
func (t *Table) insertMapping(m *mapping) {
	t.internal[internalKey{Type: m.Type, IP: m.InternalIP, Aux: m.InternalAux}] = m
	t.external[externalKey{Type: m.Type, Aux: m.ExternalAux}] = m
	t.metrics.mappings.WithLabelValues(m.Type.String()).Inc()
}
