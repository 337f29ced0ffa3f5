package nat

import (
	"errors"

	"github.com/oklabs/swrouter/internal/wire"
)

// ErrDrop is returned (or, for some direction/protocol, simply implied by
// a no-op) when the engine has no translation to apply and the caller
// should drop the frame instead of forwarding it.
var ErrDrop = errors.New("nat: drop")

// HandleOutbound processes a frame arriving on the internal interface and
// destined externally (spec.md §4.5 "Outbound path"). On success it
// rewrites frame in place and hands it to the Forwarder; frame must not be
// reused by the caller afterward.
func (t *Table) HandleOutbound(frame []byte, ifaceName string) error {
	f, err := wire.ParseFrame(frame)
	if err != nil || f.IPv4 == nil {
		return ErrDrop
	}
	switch {
	case f.ICMP != nil:
		return t.handleOutboundICMP(frame, f, ifaceName)
	case f.TCP != nil:
		return t.handleOutboundTCP(frame, f, ifaceName)
	default:
		return ErrDrop
	}
}

func (t *Table) handleOutboundICMP(frame []byte, f *wire.Frame, ifaceName string) error {
	typ := uint8(f.ICMP.TypeCode.Type())
	if typ != wire.ICMPTypeEchoRequest && typ != wire.ICMPTypeEchoReply {
		return ErrDrop
	}

	srcIP := f.SrcIPv4()
	id := f.ICMP.Id
	now := t.clock.Now()

	t.mu.Lock()
	key := internalKey{Type: TypeICMPQuery, IP: srcIP, Aux: id}
	m := t.lookupInternal(key)
	if m == nil {
		m = &mapping{
			Type:        TypeICMPQuery,
			InternalIP:  srcIP,
			InternalAux: id,
			ExternalIP:  t.externalIP,
			ExternalAux: t.allocateAux(TypeICMPQuery),
			LastTouched: now,
		}
		t.insertMapping(m)
	} else {
		m.LastTouched = now
	}
	extIP, extAux := m.ExternalIP, m.ExternalAux
	t.mu.Unlock()

	setIPv4(frame, ipSrcOffset, extIP)
	setICMPID(frame, f.IPPayloadOffset, extAux)
	recomputeIPChecksum(frame, f.IPPayloadOffset-ethLen)
	recomputeICMPChecksum(frame, f.IPPayloadOffset, f.L4Length())

	t.metrics.rewrites.WithLabelValues("icmp", "outbound").Inc()
	t.forward(frame, ifaceName)
	return nil
}

func (t *Table) handleOutboundTCP(frame []byte, f *wire.Frame, ifaceName string) error {
	srcIP, dstIP := f.SrcIPv4(), f.DstIPv4()
	srcPort := uint16(f.TCP.SrcPort)
	dstPort := uint16(f.TCP.DstPort)
	flags := tcpFlagsByte(frame, f.IPPayloadOffset)
	seq := tcpSeq(frame, f.IPPayloadOffset)
	ack := tcpAck(frame, f.IPPayloadOffset)
	now := t.clock.Now()

	t.mu.Lock()
	key := internalKey{Type: TypeTCP, IP: srcIP, Aux: srcPort}
	m := t.lookupInternal(key)
	if m == nil {
		m = &mapping{
			Type:        TypeTCP,
			InternalIP:  srcIP,
			InternalAux: srcPort,
			ExternalIP:  t.externalIP,
			ExternalAux: t.allocateAux(TypeTCP),
			LastTouched: now,
			Connections: make(map[connQuad]*connection),
		}
		t.insertMapping(m)
	} else {
		m.LastTouched = now
	}
	quad := connQuad{SrcIP: srcIP, SrcPort: srcPort, DstIP: dstIP, DstPort: dstPort}
	t.findOrCreateConnection(m, quad, flags, seq, ack, now)
	extIP, extAux := m.ExternalIP, m.ExternalAux
	t.mu.Unlock()

	setIPv4(frame, ipSrcOffset, extIP)
	setTCPPort(frame, f.IPPayloadOffset+tcpSrcPortOff, extAux)
	recomputeIPChecksum(frame, f.IPPayloadOffset-ethLen)
	recomputeTCPChecksum(frame, f.IPPayloadOffset, f.L4Length(), extIP, dstIP)

	t.metrics.rewrites.WithLabelValues("tcp", "outbound").Inc()
	t.forward(frame, ifaceName)
	return nil
}

func (t *Table) forward(frame []byte, ifaceName string) {
	t.mu.Lock()
	fwd := t.forwarder
	t.mu.Unlock()
	if fwd != nil {
		fwd.Forward(frame, ifaceName)
	}
}
