package nat

import (
	"time"

	"github.com/oklabs/swrouter/internal/wire"
)

// HandleInbound processes a frame arriving on the external interface whose
// IP destination is the external interface's own address (spec.md §4.5
// "Inbound path"). On success it rewrites frame in place and hands it to
// the Forwarder.
func (t *Table) HandleInbound(frame []byte, ifaceName string) error {
	f, err := wire.ParseFrame(frame)
	if err != nil || f.IPv4 == nil {
		return ErrDrop
	}
	switch {
	case f.ICMP != nil:
		return t.handleInboundICMP(frame, f, ifaceName)
	case f.TCP != nil:
		return t.handleInboundTCP(frame, f, ifaceName)
	default:
		return ErrDrop
	}
}

func (t *Table) handleInboundICMP(frame []byte, f *wire.Frame, ifaceName string) error {
	typ := uint8(f.ICMP.TypeCode.Type())
	if typ != wire.ICMPTypeEchoRequest && typ != wire.ICMPTypeEchoReply {
		t.metrics.drops.WithLabelValues("icmp_unsupported_type").Inc()
		return ErrDrop
	}

	id := f.ICMP.Id
	now := t.clock.Now()

	t.mu.Lock()
	m := t.external[externalKey{Type: TypeICMPQuery, Aux: id}]
	if m == nil {
		t.mu.Unlock()
		t.metrics.drops.WithLabelValues("icmp_no_mapping").Inc()
		return ErrDrop
	}
	m.LastTouched = now
	internalIP, internalAux := m.InternalIP, m.InternalAux
	t.mu.Unlock()

	setIPv4(frame, ipDstOffset, internalIP)
	setICMPID(frame, f.IPPayloadOffset, internalAux)
	recomputeIPChecksum(frame, f.IPPayloadOffset-ethLen)
	recomputeICMPChecksum(frame, f.IPPayloadOffset, f.L4Length())

	t.metrics.rewrites.WithLabelValues("icmp", "inbound").Inc()
	t.forward(frame, ifaceName)
	return nil
}

func (t *Table) handleInboundTCP(frame []byte, f *wire.Frame, ifaceName string) error {
	dstPort := uint16(f.TCP.DstPort)
	srcIP := f.SrcIPv4()
	flags := tcpFlagsByte(frame, f.IPPayloadOffset)
	seq := tcpSeq(frame, f.IPPayloadOffset)
	ack := tcpAck(frame, f.IPPayloadOffset)
	now := t.clock.Now()

	t.mu.Lock()
	m := t.external[externalKey{Type: TypeTCP, Aux: dstPort}]
	if m == nil {
		t.mu.Unlock()
		return t.handleUnmatchedInboundTCP(frame, dstPort, flags, ifaceName, now)
	}

	// Connection quad in internal-facing orientation: the internal
	// endpoint is m's own (IP, port); the remote endpoint is the
	// packet's source (spec.md §3).
	quad := connQuad{SrcIP: m.InternalIP, SrcPort: m.InternalAux, DstIP: srcIP, DstPort: uint16(f.TCP.SrcPort)}
	m.LastTouched = now
	t.findOrCreateConnection(m, quad, flags, seq, ack, now)
	internalIP, internalAux := m.InternalIP, m.InternalAux
	t.mu.Unlock()

	setIPv4(frame, ipDstOffset, internalIP)
	setTCPPort(frame, f.IPPayloadOffset+tcpDstPortOff, internalAux)
	recomputeIPChecksum(frame, f.IPPayloadOffset-ethLen)
	recomputeTCPChecksum(frame, f.IPPayloadOffset, f.L4Length(), srcIP, internalIP)

	t.metrics.rewrites.WithLabelValues("tcp", "inbound").Inc()
	t.forward(frame, ifaceName)
	return nil
}

// handleUnmatchedInboundTCP implements spec.md §4.5's unsolicited-SYN hold:
// an inbound SYN with no matching mapping is buffered for
// Timeouts.UnsolicitedSYN before the sweeper gives up on it; anything else
// unmatched is dropped immediately.
func (t *Table) handleUnmatchedInboundTCP(frame []byte, dstPort uint16, flags uint8, ifaceName string, now time.Time) error {
	syn := flags&wire.TCPFlagSYN != 0
	ack := flags&wire.TCPFlagACK != 0
	if !syn || ack {
		t.metrics.drops.WithLabelValues("tcp_no_mapping").Inc()
		return ErrDrop
	}

	t.mu.Lock()
	t.pendingSYN[externalKey{Type: TypeTCP, Aux: dstPort}] = &heldSYN{
		ExternalPort: dstPort,
		Frame:        frame,
		Interface:    ifaceName,
		ArrivedAt:    now,
	}
	t.mu.Unlock()
	return nil
}
