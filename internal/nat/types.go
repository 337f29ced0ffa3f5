// Package nat implements the stateful NAPT translator for TCP and ICMP
// query flows: the bidirectional mapping table, its TCP connection
// sub-state machine, and the background sweeper (spec.md §4.5).
//
// It generalizes KarpelesLab/swnat's Table[IP]/Pair[IP]/Conn[IP] (a
// per-flow translator keyed on the full 4-tuple) into spec.md's design: one
// mapping per (internal IP, internal aux) shared by every flow from that
// endpoint, with per-destination TCP connection records nested inside it
// for timeout classification only.
package nat

import (
	"time"

	"github.com/oklabs/swrouter/internal/wire"
)

// Type distinguishes the two kinds of mapping this engine tracks
// (spec.md §1 Non-goals excludes UDP NAT).
type Type uint8

const (
	TypeICMPQuery Type = iota
	TypeTCP
)

func (t Type) String() string {
	if t == TypeTCP {
		return "tcp"
	}
	return "icmp"
}

// TCPState is a TCP connection's simplified tracking state (spec.md §3):
// it only exists to classify a connection as new / half-open /
// established for timeout purposes, not to implement the full RFC 793
// state machine.
type TCPState uint8

const (
	StateSynSent TCPState = iota
	StateSynReceived
	StateEstablished
)

func (s TCPState) String() string {
	switch s {
	case StateSynReceived:
		return "SYN-RECEIVED"
	case StateEstablished:
		return "ESTABLISHED"
	default:
		return "SYN-SENT"
	}
}

// noInboundISN is the "unknown sentinel" spec.md §3 calls for on a TCP
// connection record before any inbound segment has been observed.
const noInboundISN int64 = -1

// connQuad is a TCP connection's endpoint quad, in internal-facing
// orientation (spec.md §3): (src-IP, src-port, dst-IP, dst-port) as seen
// from inside the NAT boundary.
type connQuad struct {
	SrcIP   wire.IPv4
	SrcPort uint16
	DstIP   wire.IPv4
	DstPort uint16
}

// connection is a TCP connection record, child of a TCP mapping.
type connection struct {
	Quad        connQuad
	OutboundISN uint32
	InboundISN  int64 // noInboundISN until observed
	State       TCPState
	LastTouched time.Time
}

// Connection is the owned-copy view of a connection record returned to
// callers.
type Connection struct {
	SrcIP, DstIP     wire.IPv4
	SrcPort, DstPort uint16
	OutboundISN      uint32
	InboundISN       uint32
	HasInboundISN    bool
	State            TCPState
}

// mapping is a NAT mapping: spec.md §3 "NAT mapping".
type mapping struct {
	Type        Type
	InternalIP  wire.IPv4
	InternalAux uint16
	ExternalIP  wire.IPv4
	ExternalAux uint16
	LastTouched time.Time

	// Connections is empty for ICMP-query mappings. Keyed (per spec.md
	// §9's recommendation to prefer keyed associative containers over
	// the reference's intrusive linked lists) for O(1) 4-tuple lookup.
	Connections map[connQuad]*connection
}

// Mapping is the owned-copy view of a mapping returned to callers
// (spec.md §3 invariant: "lookups return copies").
type Mapping struct {
	Type        Type
	InternalIP  wire.IPv4
	InternalAux uint16
	ExternalIP  wire.IPv4
	ExternalAux uint16
	LastTouched time.Time
	Connections []Connection
}

func (m *mapping) snapshot() Mapping {
	out := Mapping{
		Type:        m.Type,
		InternalIP:  m.InternalIP,
		InternalAux: m.InternalAux,
		ExternalIP:  m.ExternalIP,
		ExternalAux: m.ExternalAux,
		LastTouched: m.LastTouched,
	}
	for _, c := range m.Connections {
		out.Connections = append(out.Connections, c.snapshot())
	}
	return out
}

func (c *connection) snapshot() Connection {
	return Connection{
		SrcIP:         c.Quad.SrcIP,
		DstIP:         c.Quad.DstIP,
		SrcPort:       c.Quad.SrcPort,
		DstPort:       c.Quad.DstPort,
		OutboundISN:   c.OutboundISN,
		InboundISN:    uint32(max64(c.InboundISN, 0)),
		HasInboundISN: c.InboundISN != noInboundISN,
		State:         c.State,
	}
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// internalKey is the outbound lookup key: (internal-IP, internal-aux,
// type). It omits the destination, which is the generalization from
// swnat's full-4-tuple InternalKey (swnat table.go) that lets one mapping
// serve every destination from the same internal endpoint (spec.md §4.5).
type internalKey struct {
	Type Type
	IP   wire.IPv4
	Aux  uint16
}

// externalKey is the inbound lookup key: (external-aux, type). The
// external IP is always the NAT's own external interface address
// (spec.md §3 invariant) so it carries no discriminating information and
// is omitted from the key, matching spec.md §4.5's inbound lookup
// ("by icmp-id" / "by external port") exactly.
type externalKey struct {
	Type Type
	Aux  uint16
}

// heldSYN is an inbound unsolicited TCP SYN buffered pending a matching
// outbound SYN (spec.md §4.5).
type heldSYN struct {
	ExternalPort uint16
	Frame        []byte
	Interface    string
	ArrivedAt    time.Time
}

// Timeouts are the NAT engine's four configurable timeouts (spec.md §4.5).
type Timeouts struct {
	ICMPQueryIdle   time.Duration
	TCPEstablished  time.Duration
	TCPTransitory   time.Duration
	UnsolicitedSYN  time.Duration
}

// DefaultTimeouts returns the defaults listed in spec.md §4.5.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		ICMPQueryIdle:  60 * time.Second,
		TCPEstablished: 7440 * time.Second,
		TCPTransitory:  300 * time.Second,
		UnsolicitedSYN: 6 * time.Second,
	}
}
