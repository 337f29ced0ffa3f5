package nat

import (
	"time"

	"github.com/oklabs/swrouter/internal/wire"
)

// findOrCreateConnection implements the "connection lookup by the 4-tuple"
// step of spec.md §4.5, shared verbatim by the outbound and inbound paths:
// the connection record's quad is always kept in internal-facing
// orientation (spec.md §3), so the same lookup/creation/transition logic
// applies regardless of which direction the segment arrived from.
//
// Caller must hold the table's mutex.
func (t *Table) findOrCreateConnection(m *mapping, quad connQuad, flags uint8, seq, ack uint32, now time.Time) *connection {
	conn, ok := m.Connections[quad]
	syn := flags&wire.TCPFlagSYN != 0
	ackSet := flags&wire.TCPFlagACK != 0
	fin := flags&wire.TCPFlagFIN != 0
	rst := flags&wire.TCPFlagRST != 0

	if !ok {
		if syn && !ackSet {
			conn = &connection{
				Quad:        quad,
				OutboundISN: seq,
				InboundISN:  noInboundISN,
				State:       StateSynSent,
				LastTouched: now,
			}
			if m.Connections == nil {
				m.Connections = make(map[connQuad]*connection)
			}
			m.Connections[quad] = conn
			t.metrics.connections.WithLabelValues(conn.State.String()).Inc()
		}
		return conn
	}

	switch {
	case conn.State == StateSynSent && syn && ackSet && ack == conn.OutboundISN+1:
		conn.InboundISN = int64(seq)
		t.transition(conn, StateSynReceived)
	case conn.State == StateSynReceived && ackSet && !syn && !fin && !rst &&
		conn.InboundISN != noInboundISN && ack == uint32(conn.InboundISN)+1:
		t.transition(conn, StateEstablished)
	default:
		// Otherwise, forward unchanged at the connection-tracker level
		// (spec.md §4.5) — the segment still counts as activity.
	}
	conn.LastTouched = now
	return conn
}

// transition advances conn's state and keeps the connection-gauge metric in
// sync. State only ever progresses forward (spec.md §3 invariant).
func (t *Table) transition(conn *connection, next TCPState) {
	t.metrics.connections.WithLabelValues(conn.State.String()).Dec()
	conn.State = next
	t.metrics.connections.WithLabelValues(conn.State.String()).Inc()
}
