package reply

import (
	"encoding/binary"
	"fmt"

	"github.com/google/gopacket"
	"github.com/oklabs/swrouter/internal/iface"
	"github.com/oklabs/swrouter/internal/wire"
)

const (
	ethLen      = 14
	ipSrcOffset = ethLen + 12
	ipDstOffset = ethLen + 16
	ipCksOffset = ethLen + 10
	ipTTLOffset = ethLen + 8
	icmpCksOff  = 2
)

// ICMPEchoReply mutates frame in place into its own echo reply: IP
// source/destination are swapped, TTL is reset to 64, the ICMP type byte
// becomes 0 (echo reply), and the ICMP and IP checksums are recomputed
// (spec.md §4.7). frame must be a frame previously validated by
// wire.ParseFrame to carry an ICMP echo request.
func ICMPEchoReply(frame []byte, f *wire.Frame) error {
	if f.ICMP == nil || uint8(f.ICMP.TypeCode.Type()) != wire.ICMPTypeEchoRequest {
		return fmt.Errorf("reply: not an ICMP echo request")
	}

	var src, dst [4]byte
	copy(src[:], frame[ipSrcOffset:ipSrcOffset+4])
	copy(dst[:], frame[ipDstOffset:ipDstOffset+4])
	copy(frame[ipSrcOffset:ipSrcOffset+4], dst[:])
	copy(frame[ipDstOffset:ipDstOffset+4], src[:])

	frame[ipTTLOffset] = 64

	// Bounded by the IPv4 total-length field, not the rest of the buffer:
	// a frame shorter than the 60-byte Ethernet minimum is padded on the
	// wire, and that padding must not be folded into the ICMP checksum.
	icmp := frame[f.IPPayloadOffset : f.IPPayloadOffset+f.L4Length()]
	icmp[0] = wire.ICMPTypeEchoReply
	binary.BigEndian.PutUint16(icmp[icmpCksOff:icmpCksOff+2], 0)
	binary.BigEndian.PutUint16(icmp[icmpCksOff:icmpCksOff+2], wire.InternetChecksum(icmp))

	ipHeaderLen := f.IPPayloadOffset - ethLen
	binary.BigEndian.PutUint16(frame[ipCksOffset:ipCksOffset+2], 0)
	binary.BigEndian.PutUint16(frame[ipCksOffset:ipCksOffset+2], wire.InternetChecksum(frame[ethLen:ethLen+ipHeaderLen]))
	return nil
}

// icmpErrorDataLen is the 28 bytes spec.md §4.7 names: the 20-byte offending
// IP header (this codec does not decode options beyond skipping them, so
// the reply never needs to carry any) plus its first 8 payload bytes.
const (
	offendingHeaderLen  = 20
	offendingPayloadLen = 8
	icmpErrorDataLen    = offendingHeaderLen + offendingPayloadLen
)

// ICMPError builds a fresh ICMP error frame (type 3 destination-unreachable
// or type 11 time-exceeded) in response to the offending frame f, emitted
// from onIface (spec.md §4.7). The returned frame carries onIface's own MAC
// as both Ethernet source and destination; the forwarding path overwrites
// the destination once it resolves the real next hop, the same way it does
// for any other originated packet (spec.md §4.6).
func ICMPError(onIface iface.Interface, icmpType, icmpCode uint8, f *wire.Frame) ([]byte, error) {
	var data [icmpErrorDataLen]byte
	headerLen := f.IPPayloadOffset - ethLen
	if headerLen > offendingHeaderLen {
		headerLen = offendingHeaderLen
	}
	copy(data[:headerLen], f.Raw[ethLen:ethLen+headerLen])

	payload := f.Raw[f.IPPayloadOffset:]
	n := offendingPayloadLen
	if len(payload) < n {
		n = len(payload)
	}
	copy(data[offendingHeaderLen:offendingHeaderLen+n], payload[:n])

	eth := wire.NewEthernet(onIface.MAC, onIface.MAC, wire.EtherTypeIPv4)
	ip := wire.NewIPv4(onIface.IP, f.SrcIPv4(), 64, wire.ProtocolICMP, 0)
	icmp := wire.NewICMPv4(icmpType, icmpCode, 0, 0)
	return wire.BuildFrame(eth, ip, icmp, gopacket.Payload(data[:]))
}
