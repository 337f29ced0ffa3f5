package nat

import (
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// SweepInterval is the sweeper tick period (spec.md §2, §4.5).
const SweepInterval = 1 * time.Second

// Sweeper drives the NAT table's one-second background pass.
type Sweeper struct {
	table  *Table
	clock  clockwork.Clock
	log    *slog.Logger
	stopCh chan struct{}
}

// NewSweeper builds a Sweeper for table.
func NewSweeper(table *Table, clock clockwork.Clock, log *slog.Logger) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{table: table, clock: clock, log: log, stopCh: make(chan struct{})}
}

// Run ticks once per SweepInterval until Stop is called.
func (s *Sweeper) Run() {
	ticker := s.clock.NewTicker(SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.Chan():
			s.table.Sweep()
		}
	}
}

// Stop makes Run return without waiting for another tick; a sweep pass
// already in progress completes first.
func (s *Sweeper) Stop() {
	close(s.stopCh)
}

// Sweep performs one sweep pass (spec.md §4.5): connections are expired
// first (possibly clearing a mapping's connection list), then mappings
// whose LastTouched exceeds their type-appropriate timeout are freed.
// Finally, unsolicited inbound SYNs held past Timeouts.UnsolicitedSYN are
// either dropped (if a matching mapping has since appeared) or answered
// with ICMP port-unreachable.
func (t *Table) Sweep() {
	now := t.clock.Now()

	t.mu.Lock()
	for _, m := range t.internal {
		if m.Type != TypeTCP {
			continue
		}
		for quad, conn := range m.Connections {
			timeout := t.timeouts.TCPTransitory
			if conn.State == StateEstablished {
				timeout = t.timeouts.TCPEstablished
			}
			if now.Sub(conn.LastTouched) > timeout {
				delete(m.Connections, quad)
				t.metrics.connections.WithLabelValues(conn.State.String()).Dec()
				t.metrics.expirations.WithLabelValues("tcp_connection").Inc()
			}
		}
	}

	var expiredMappings []*mapping
	for key, m := range t.internal {
		timeout := t.timeouts.ICMPQueryIdle
		if m.Type == TypeTCP {
			timeout = tcpMappingTimeout(m, t.timeouts)
		}
		if now.Sub(m.LastTouched) > timeout {
			expiredMappings = append(expiredMappings, m)
			delete(t.internal, key)
			delete(t.external, externalKey{Type: m.Type, Aux: m.ExternalAux})
		}
	}
	for _, m := range expiredMappings {
		t.metrics.expirations.WithLabelValues(m.Type.String()).Inc()
	}

	var expiredSYNs []*heldSYN
	for key, h := range t.pendingSYN {
		if now.Sub(h.ArrivedAt) <= t.timeouts.UnsolicitedSYN {
			continue
		}
		delete(t.pendingSYN, key)
		if _, matched := t.internal[internalKeyForExternalTCP(t, key)]; !matched {
			expiredSYNs = append(expiredSYNs, h)
		}
	}
	forwarder := t.forwarder
	t.mu.Unlock()

	if forwarder == nil {
		return
	}
	for _, h := range expiredSYNs {
		forwarder.PortUnreachable(h.Frame, h.Interface)
	}
}

// tcpMappingTimeout picks the idle timeout for a TCP mapping: established
// if any of its connections has reached ESTABLISHED, transitory otherwise
// (spec.md §4.5's timeout table applies per-connection, but a mapping with
// no live connections left still needs a timeout — it uses the transitory
// value, since nothing on it ever completed a handshake).
func tcpMappingTimeout(m *mapping, timeouts Timeouts) time.Duration {
	for _, c := range m.Connections {
		if c.State == StateEstablished {
			return timeouts.TCPEstablished
		}
	}
	return timeouts.TCPTransitory
}

// internalKeyForExternalTCP returns the internal key of the mapping that
// now holds key's external TCP port — i.e. an outbound SYN was allocated
// the same port the held unsolicited SYN guessed, resolving the
// simultaneous-open race spec.md §4.5 describes — or the zero internalKey
// if no mapping holds it. Caller must hold t.mu.
func internalKeyForExternalTCP(t *Table, key externalKey) internalKey {
	if m, ok := t.external[key]; ok {
		return internalKey{Type: m.Type, IP: m.InternalIP, Aux: m.InternalAux}
	}
	return internalKey{}
}
