package wire

import "encoding/binary"

// InternetChecksum computes the standard RFC 1071 16-bit one's-complement
// checksum over b. Used directly for IPv4 header checksums and ICMP
// message checksums (which have no pseudo-header), ported from swnat's
// calculateIPv4Checksum / calculateICMPChecksum (they were byte-identical
// loops over different inputs).
func InternetChecksum(b []byte) uint16 {
	var sum uint32
	for i := 0; i+1 < len(b); i += 2 {
		sum += uint32(binary.BigEndian.Uint16(b[i : i+2]))
	}
	if len(b)%2 == 1 {
		sum += uint32(b[len(b)-1]) << 8
	}
	for sum>>16 > 0 {
		sum = (sum & 0xFFFF) + (sum >> 16)
	}
	return ^uint16(sum)
}

// TCPChecksum computes the TCP checksum over the pseudo-header
// {srcIP, dstIP, zero, protocol=6, tcp length} followed by the TCP segment,
// per spec.md §4.1. Per the Open Question decision in SPEC_FULL.md, callers
// must pass the post-translation srcIP/dstIP when recomputing after a NAT
// rewrite.
func TCPChecksum(srcIP, dstIP IPv4, segment []byte) uint16 {
	return pseudoHeaderChecksum(srcIP, dstIP, ProtocolTCP, segment)
}

func pseudoHeaderChecksum(srcIP, dstIP IPv4, protocol uint8, segment []byte) uint16 {
	var pseudo [12]byte
	copy(pseudo[0:4], srcIP[:])
	copy(pseudo[4:8], dstIP[:])
	pseudo[9] = protocol
	binary.BigEndian.PutUint16(pseudo[10:12], uint16(len(segment)))

	var sum uint32
	for i := 0; i < len(pseudo); i += 2 {
		sum += uint32(binary.BigEndian.Uint16(pseudo[i : i+2]))
	}
	for i := 0; i+1 < len(segment); i += 2 {
		sum += uint32(binary.BigEndian.Uint16(segment[i : i+2]))
	}
	if len(segment)%2 == 1 {
		sum += uint32(segment[len(segment)-1]) << 8
	}
	for sum>>16 > 0 {
		sum = (sum & 0xFFFF) + (sum >> 16)
	}
	return ^uint16(sum)
}
