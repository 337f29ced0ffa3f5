package wire

// IP protocol numbers used by the dispatcher and NAT engine.
const (
	ProtocolICMP = 1
	ProtocolTCP  = 6
	ProtocolUDP  = 17
)

// EtherTypes this router recognizes; anything else is dropped silently
// per spec.md §4.3 step 2.
const (
	EtherTypeIPv4 = 0x0800
	EtherTypeARP  = 0x0806
)

// ARP operation codes, RFC 826.
const (
	ARPRequest = 1
	ARPReply   = 2
)

// ICMP types and codes this router generates or consumes, RFC 792.
const (
	ICMPTypeEchoReply              = 0
	ICMPTypeEchoRequest            = 8
	ICMPTypeDestinationUnreachable = 3
	ICMPTypeTimeExceeded           = 11

	ICMPCodeNetUnreachable  = 0
	ICMPCodeHostUnreachable = 1
	ICMPCodePortUnreachable = 3
	ICMPCodeTTLExceeded     = 0
)

// TCP flag bits, RFC 793.
const (
	TCPFlagFIN uint8 = 1 << 0
	TCPFlagSYN uint8 = 1 << 1
	TCPFlagRST uint8 = 1 << 2
	TCPFlagPSH uint8 = 1 << 3
	TCPFlagACK uint8 = 1 << 4
	TCPFlagURG uint8 = 1 << 5
)

// MaxFrameLen and MinEthernetLen bound valid Ethernet frames per spec.md §4.3
// step 1.
const (
	MaxFrameLen    = 1514
	MinEthernetLen = 14
)

// icmpErrorTypes lists the ICMP types that must never themselves
// trigger another ICMP error, per spec.md §4.4/§4.5/§7 ("ICMP error messages
// are never generated in response to other ICMP error messages").
var icmpErrorTypes = map[uint8]bool{
	3:  true, // destination unreachable
	4:  true, // source quench (legacy, included for completeness)
	5:  true, // redirect
	11: true, // time exceeded
	12: true, // parameter problem
}

// IsICMPError reports whether icmpType is one of the ICMP error message
// types that must not itself trigger a further ICMP error.
func IsICMPError(icmpType uint8) bool {
	return icmpErrorTypes[icmpType]
}
