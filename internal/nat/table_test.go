package nat

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/jonboulle/clockwork"
	"github.com/oklabs/swrouter/internal/wire"
)

type fakeForwarder struct {
	forwarded       [][2]any // frame, iface
	portUnreachable [][2]any
}

func (f *fakeForwarder) Forward(frame []byte, ifaceName string) {
	f.forwarded = append(f.forwarded, [2]any{frame, ifaceName})
}
func (f *fakeForwarder) PortUnreachable(frame []byte, ifaceName string) {
	f.portUnreachable = append(f.portUnreachable, [2]any{frame, ifaceName})
}

var (
	internalIP = wire.IPv4{192, 168, 1, 10}
	externalIP = wire.IPv4{203, 0, 113, 1}
	remoteIP   = wire.IPv4{198, 51, 100, 7}
)

func buildICMPEcho(t *testing.T, src, dst wire.IPv4, id, seq uint16, typ uint8) []byte {
	t.Helper()
	eth := wire.NewEthernet(wire.MAC{1, 2, 3, 4, 5, 6}, wire.MAC{6, 5, 4, 3, 2, 1}, wire.EtherTypeIPv4)
	ip := wire.NewIPv4(src, dst, 64, wire.ProtocolICMP, 1)
	icmp := wire.NewICMPv4(typ, 0, id, seq)
	frame, err := wire.BuildFrame(eth, ip, icmp)
	if err != nil {
		t.Fatalf("build frame: %v", err)
	}
	return frame
}

func buildTCP(t *testing.T, src, dst wire.IPv4, srcPort, dstPort uint16, flags uint8, seq, ack uint32) []byte {
	t.Helper()
	eth := wire.NewEthernet(wire.MAC{1, 2, 3, 4, 5, 6}, wire.MAC{6, 5, 4, 3, 2, 1}, wire.EtherTypeIPv4)
	ip := wire.NewIPv4(src, dst, 64, wire.ProtocolTCP, 1)
	tcpHeader := make([]byte, 20)
	binary.BigEndian.PutUint16(tcpHeader[0:2], srcPort)
	binary.BigEndian.PutUint16(tcpHeader[2:4], dstPort)
	binary.BigEndian.PutUint32(tcpHeader[4:8], seq)
	binary.BigEndian.PutUint32(tcpHeader[8:12], ack)
	tcpHeader[12] = 5 << 4
	tcpHeader[13] = flags
	binary.BigEndian.PutUint16(tcpHeader[14:16], 65535)

	frame, err := wire.BuildFrame(eth, ip, gopacket.Payload(tcpHeader))
	if err != nil {
		t.Fatalf("build frame: %v", err)
	}
	return frame
}

func newTestTable(t *testing.T) (*Table, clockwork.FakeClock, *fakeForwarder) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	table := New(externalIP, DefaultTimeouts(), clock, nil)
	fwd := &fakeForwarder{}
	table.SetForwarder(fwd)
	return table, clock, fwd
}

func TestHandleOutboundICMPAssignsMappingAndRewritesSource(t *testing.T) {
	table, _, fwd := newTestTable(t)

	frame := buildICMPEcho(t, internalIP, remoteIP, 0x1234, 1, wire.ICMPTypeEchoRequest)
	if err := table.HandleOutbound(frame, "internal"); err != nil {
		t.Fatalf("HandleOutbound: %v", err)
	}
	if len(fwd.forwarded) != 1 {
		t.Fatalf("expected 1 forwarded frame, got %d", len(fwd.forwarded))
	}

	out := fwd.forwarded[0][0].([]byte)
	f, err := wire.ParseFrame(out)
	if err != nil {
		t.Fatalf("parse rewritten frame: %v", err)
	}
	if f.SrcIPv4() != externalIP {
		t.Errorf("src IP = %v, want %v", f.SrcIPv4(), externalIP)
	}
	if f.ICMP.Id == 0x1234 {
		t.Error("ICMP id should have been rewritten to an external id")
	}
}

func TestHandleOutboundThenInboundICMPRoundTrips(t *testing.T) {
	table, _, fwd := newTestTable(t)

	out := buildICMPEcho(t, internalIP, remoteIP, 0x1234, 1, wire.ICMPTypeEchoRequest)
	if err := table.HandleOutbound(out, "internal"); err != nil {
		t.Fatalf("HandleOutbound: %v", err)
	}
	rewritten := fwd.forwarded[0][0].([]byte)
	rf, _ := wire.ParseFrame(rewritten)
	externalID := rf.ICMP.Id

	reply := buildICMPEcho(t, remoteIP, externalIP, externalID, 1, wire.ICMPTypeEchoReply)
	if err := table.HandleInbound(reply, "external"); err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	if len(fwd.forwarded) != 2 {
		t.Fatalf("expected 2 forwarded frames, got %d", len(fwd.forwarded))
	}

	back := fwd.forwarded[1][0].([]byte)
	bf, err := wire.ParseFrame(back)
	if err != nil {
		t.Fatalf("parse inbound-rewritten frame: %v", err)
	}
	if bf.DstIPv4() != internalIP {
		t.Errorf("dst IP = %v, want %v", bf.DstIPv4(), internalIP)
	}
	if bf.ICMP.Id != 0x1234 {
		t.Errorf("ICMP id = %#x, want restored 0x1234", bf.ICMP.Id)
	}
}

func TestInboundICMPWithNoMappingIsDropped(t *testing.T) {
	table, _, fwd := newTestTable(t)

	reply := buildICMPEcho(t, remoteIP, externalIP, 0x9999, 1, wire.ICMPTypeEchoReply)
	if err := table.HandleInbound(reply, "external"); err != ErrDrop {
		t.Fatalf("HandleInbound = %v, want ErrDrop", err)
	}
	if len(fwd.forwarded) != 0 {
		t.Error("unmatched inbound ICMP reply must not be forwarded")
	}
}

func TestTCPHandshakeReachesEstablished(t *testing.T) {
	table, clock, fwd := newTestTable(t)
	_ = clock

	syn := buildTCP(t, internalIP, remoteIP, 5000, 80, wire.TCPFlagSYN, 1000, 0)
	if err := table.HandleOutbound(syn, "internal"); err != nil {
		t.Fatalf("outbound SYN: %v", err)
	}
	rewrittenSYN := fwd.forwarded[0][0].([]byte)
	rf, _ := wire.ParseFrame(rewrittenSYN)
	extPort := uint16(rf.TCP.SrcPort)

	synAck := buildTCP(t, remoteIP, externalIP, 80, extPort, wire.TCPFlagSYN|wire.TCPFlagACK, 2000, 1001)
	if err := table.HandleInbound(synAck, "external"); err != nil {
		t.Fatalf("inbound SYN-ACK: %v", err)
	}

	table.mu.Lock()
	m := table.internal[internalKey{Type: TypeTCP, IP: internalIP, Aux: 5000}]
	var state TCPState
	for _, c := range m.Connections {
		state = c.State
	}
	table.mu.Unlock()
	if state != StateSynReceived {
		t.Fatalf("state after SYN-ACK = %v, want SYN-RECEIVED", state)
	}

	ack := buildTCP(t, internalIP, remoteIP, 5000, 80, wire.TCPFlagACK, 1001, 2001)
	if err := table.HandleOutbound(ack, "internal"); err != nil {
		t.Fatalf("outbound ACK: %v", err)
	}

	table.mu.Lock()
	for _, c := range m.Connections {
		state = c.State
	}
	table.mu.Unlock()
	if state != StateEstablished {
		t.Fatalf("state after final ACK = %v, want ESTABLISHED", state)
	}
}

func TestUnsolicitedSYNIsHeldThenPortUnreachable(t *testing.T) {
	table, clock, fwd := newTestTable(t)

	syn := buildTCP(t, remoteIP, externalIP, 4000, 22, wire.TCPFlagSYN, 500, 0)
	if err := table.HandleInbound(syn, "external"); err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	if len(fwd.forwarded) != 0 {
		t.Error("unsolicited SYN must not be forwarded immediately")
	}

	clock.Advance(DefaultTimeouts().UnsolicitedSYN + time.Second)
	table.Sweep()

	if len(fwd.portUnreachable) != 1 {
		t.Fatalf("expected 1 port-unreachable emission, got %d", len(fwd.portUnreachable))
	}
}

func TestICMPMappingExpiresAfterIdleTimeout(t *testing.T) {
	table, clock, _ := newTestTable(t)

	frame := buildICMPEcho(t, internalIP, remoteIP, 0x1234, 1, wire.ICMPTypeEchoRequest)
	if err := table.HandleOutbound(frame, "internal"); err != nil {
		t.Fatalf("HandleOutbound: %v", err)
	}

	clock.Advance(DefaultTimeouts().ICMPQueryIdle + time.Second)
	table.Sweep()

	table.mu.Lock()
	_, ok := table.internal[internalKey{Type: TypeICMPQuery, IP: internalIP, Aux: 0x1234}]
	table.mu.Unlock()
	if ok {
		t.Error("idle ICMP mapping should have been swept")
	}
}

func TestAllocateAuxIsMonotonicWithoutReuse(t *testing.T) {
	table, _, _ := newTestTable(t)

	a := table.allocateAux(TypeTCP)
	b := table.allocateAux(TypeTCP)
	if b != a+1 {
		t.Errorf("allocateAux: got %d then %d, want strictly consecutive", a, b)
	}
	if a < minExternalAux {
		t.Errorf("allocateAux: first value %d below minExternalAux %d", a, minExternalAux)
	}
}
