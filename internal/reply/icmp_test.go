package reply

import (
	"testing"

	"github.com/google/gopacket"
	"github.com/oklabs/swrouter/internal/iface"
	"github.com/oklabs/swrouter/internal/wire"
)

var (
	requester = wire.IPv4{10, 0, 0, 5}
	answerer  = wire.IPv4{10, 0, 0, 1}
)

func buildEchoRequest(t *testing.T, payload []byte) []byte {
	t.Helper()
	eth := wire.NewEthernet(wire.MAC{1, 1, 1, 1, 1, 1}, wire.MAC{2, 2, 2, 2, 2, 2}, wire.EtherTypeIPv4)
	ip := wire.NewIPv4(requester, answerer, 32, wire.ProtocolICMP, 7)
	icmp := wire.NewICMPv4(wire.ICMPTypeEchoRequest, 0, 0xbeef, 3)
	frame, err := wire.BuildFrame(eth, ip, icmp, gopacket.Payload(payload))
	if err != nil {
		t.Fatalf("build echo request: %v", err)
	}
	return frame
}

func TestICMPEchoReplySwapsAddressesAndType(t *testing.T) {
	frame := buildEchoRequest(t, []byte("ping"))
	f, err := wire.ParseFrame(frame)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}

	if err := ICMPEchoReply(frame, f); err != nil {
		t.Fatalf("ICMPEchoReply: %v", err)
	}

	rf, err := wire.ParseFrame(frame)
	if err != nil {
		t.Fatalf("ParseFrame after reply: %v", err)
	}
	if rf.SrcIPv4() != answerer {
		t.Errorf("src IP = %v, want %v", rf.SrcIPv4(), answerer)
	}
	if rf.DstIPv4() != requester {
		t.Errorf("dst IP = %v, want %v", rf.DstIPv4(), requester)
	}
	if rf.IPv4.TTL != 64 {
		t.Errorf("TTL = %d, want 64", rf.IPv4.TTL)
	}
	if uint8(rf.ICMP.TypeCode.Type()) != wire.ICMPTypeEchoReply {
		t.Errorf("ICMP type = %d, want echo reply", rf.ICMP.TypeCode.Type())
	}
	if rf.ICMP.Id != 0xbeef || rf.ICMP.Seq != 3 {
		t.Errorf("ICMP id/seq = %#x/%d, want unchanged 0xbeef/3", rf.ICMP.Id, rf.ICMP.Seq)
	}

	icmpBytes := frame[rf.IPPayloadOffset:]
	if got := wire.InternetChecksum(icmpBytes); got != 0 {
		t.Errorf("ICMP checksum invalid, internet checksum over reply = %#x, want 0", got)
	}
}

func TestICMPEchoReplyRejectsNonEchoRequest(t *testing.T) {
	eth := wire.NewEthernet(wire.MAC{1, 1, 1, 1, 1, 1}, wire.MAC{2, 2, 2, 2, 2, 2}, wire.EtherTypeIPv4)
	ip := wire.NewIPv4(requester, answerer, 32, wire.ProtocolICMP, 7)
	icmp := wire.NewICMPv4(wire.ICMPTypeDestinationUnreachable, 1, 0, 0)
	frame, err := wire.BuildFrame(eth, ip, icmp)
	if err != nil {
		t.Fatalf("build frame: %v", err)
	}
	f, err := wire.ParseFrame(frame)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}

	if err := ICMPEchoReply(frame, f); err == nil {
		t.Error("expected ICMPEchoReply to reject a non-echo-request frame")
	}
}

func TestICMPErrorCarriesOffendingHeaderAndPayload(t *testing.T) {
	// A 20-byte TCP header (data offset 5 in byte 12).
	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 5 << 4, 0, 0, 0, 0, 0, 0, 0}

	offendingEth := wire.NewEthernet(wire.MAC{1, 1, 1, 1, 1, 1}, wire.MAC{2, 2, 2, 2, 2, 2}, wire.EtherTypeIPv4)
	offendingIP := wire.NewIPv4(requester, answerer, 1, wire.ProtocolTCP, 9)
	offendingFrame, err := wire.BuildFrame(offendingEth, offendingIP, gopacket.Payload(payload))
	if err != nil {
		t.Fatalf("build offending frame: %v", err)
	}
	f, err := wire.ParseFrame(offendingFrame)
	if err != nil {
		t.Fatalf("ParseFrame offending: %v", err)
	}

	onIface := iface.Interface{
		Name: "eth1",
		MAC:  wire.MAC{9, 9, 9, 9, 9, 9},
		IP:   answerer,
	}

	out, err := ICMPError(onIface, wire.ICMPTypeTimeExceeded, wire.ICMPCodeTTLExceeded, f)
	if err != nil {
		t.Fatalf("ICMPError: %v", err)
	}

	of, err := wire.ParseFrame(out)
	if err != nil {
		t.Fatalf("ParseFrame error reply: %v", err)
	}
	if of.SrcIPv4() != onIface.IP {
		t.Errorf("src IP = %v, want %v", of.SrcIPv4(), onIface.IP)
	}
	if of.DstIPv4() != requester {
		t.Errorf("dst IP = %v, want offending packet's source %v", of.DstIPv4(), requester)
	}
	if uint8(of.ICMP.TypeCode.Type()) != wire.ICMPTypeTimeExceeded {
		t.Errorf("ICMP type = %d, want time exceeded", of.ICMP.TypeCode.Type())
	}
	if uint8(of.ICMP.TypeCode.Code()) != wire.ICMPCodeTTLExceeded {
		t.Errorf("ICMP code = %d, want TTL exceeded", of.ICMP.TypeCode.Code())
	}

	data := out[of.IPPayloadOffset+8:] // skip the 8-byte ICMP header
	if len(data) != icmpErrorDataLen {
		t.Fatalf("data length = %d, want %d", len(data), icmpErrorDataLen)
	}
	if got := data[offendingHeaderLen : offendingHeaderLen+8]; string(got) != string(payload[:8]) {
		t.Errorf("offending payload = %v, want %v", got, payload[:8])
	}
}
