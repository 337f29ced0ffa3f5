package nat

import (
	"encoding/binary"

	"github.com/oklabs/swrouter/internal/wire"
)

// The NAT engine classifies frames by decoding them with wire.ParseFrame
// (gopacket), but rewrites them with direct offset writes into the
// original buffer plus a checksum recompute — the same in-place
// mutate-then-recompute-checksum shape as swnat's handleOutboundTCP /
// handleOutboundICMP (table.go), rather than a full gopacket
// decode-mutate-reserialize round trip. The offsets below are fixed
// relative to the start of the Ethernet frame regardless of IP header
// length, since options (when IHL > 5) only ever follow the fixed fields
// this rewrites.
const (
	ethLen       = 14
	ipSrcOffset  = ethLen + 12
	ipDstOffset  = ethLen + 16
	ipCksOffset  = ethLen + 10
	icmpCksOff   = 2
	icmpIDOff    = 4
	tcpCksOff    = 16
)

func setIPv4(frame []byte, srcOff int, ip wire.IPv4) {
	copy(frame[srcOff:srcOff+4], ip[:])
}

func recomputeIPChecksum(frame []byte, ipHeaderLen int) {
	binary.BigEndian.PutUint16(frame[ipCksOffset:ipCksOffset+2], 0)
	sum := wire.InternetChecksum(frame[ethLen : ethLen+ipHeaderLen])
	binary.BigEndian.PutUint16(frame[ipCksOffset:ipCksOffset+2], sum)
}

// recomputeICMPChecksum recomputes the checksum over exactly the l4Len
// bytes the IPv4 header declares as payload, not whatever remains in
// frame: a frame shorter than the 60-byte Ethernet minimum is padded on
// the wire, and that padding must not be folded into the checksum.
func recomputeICMPChecksum(frame []byte, ipPayloadOffset, l4Len int) {
	icmpData := frame[ipPayloadOffset : ipPayloadOffset+l4Len]
	binary.BigEndian.PutUint16(icmpData[icmpCksOff:icmpCksOff+2], 0)
	sum := wire.InternetChecksum(icmpData)
	binary.BigEndian.PutUint16(icmpData[icmpCksOff:icmpCksOff+2], sum)
}

func setICMPID(frame []byte, ipPayloadOffset int, id uint16) {
	binary.BigEndian.PutUint16(frame[ipPayloadOffset+icmpIDOff:ipPayloadOffset+icmpIDOff+2], id)
}

// recomputeTCPChecksum recomputes the checksum over exactly the l4Len
// bytes the IPv4 header declares as payload (see recomputeICMPChecksum),
// so the pseudo-header's TCP-length field matches the real segment length
// rather than the segment plus any Ethernet padding.
func recomputeTCPChecksum(frame []byte, ipPayloadOffset, l4Len int, srcIP, dstIP wire.IPv4) {
	tcpData := frame[ipPayloadOffset : ipPayloadOffset+l4Len]
	binary.BigEndian.PutUint16(tcpData[tcpCksOff:tcpCksOff+2], 0)
	sum := wire.TCPChecksum(srcIP, dstIP, tcpData)
	binary.BigEndian.PutUint16(tcpData[tcpCksOff:tcpCksOff+2], sum)
}

func setTCPPort(frame []byte, off int, port uint16) {
	binary.BigEndian.PutUint16(frame[off:off+2], port)
}

const (
	tcpSrcPortOff = 0
	tcpDstPortOff = 2
)

func tcpFlagsByte(frame []byte, ipPayloadOffset int) uint8 {
	return frame[ipPayloadOffset+13]
}

func tcpSeq(frame []byte, ipPayloadOffset int) uint32 {
	return binary.BigEndian.Uint32(frame[ipPayloadOffset+4 : ipPayloadOffset+8])
}

func tcpAck(frame []byte, ipPayloadOffset int) uint32 {
	return binary.BigEndian.Uint32(frame[ipPayloadOffset+8 : ipPayloadOffset+12])
}
