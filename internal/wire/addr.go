// Package wire implements parsing and construction of the link- and
// network-layer frames the router operates on: Ethernet II, ARP, IPv4,
// ICMP and TCP headers.
package wire

import (
	"fmt"
	"net"
)

// IPv4 is a 4-byte IPv4 address kept as a comparable value so it can be
// used directly as a map key in the ARP cache and NAT tables.
type IPv4 [4]byte

func (ip IPv4) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", ip[0], ip[1], ip[2], ip[3])
}

// Equal reports whether ip and other name the same address.
func (ip IPv4) Equal(other IPv4) bool {
	return ip == other
}

// IsZero reports whether ip is the unset 0.0.0.0 address.
func (ip IPv4) IsZero() bool {
	return ip == IPv4{}
}

// Net returns ip as a net.IP for use with the standard library and gopacket.
func (ip IPv4) Net() net.IP {
	out := make(net.IP, 4)
	copy(out, ip[:])
	return out
}

// ParseIPv4 parses the dotted-decimal string s into an IPv4 address.
func ParseIPv4(s string) (IPv4, error) {
	netIP := net.ParseIP(s)
	if netIP == nil {
		return IPv4{}, fmt.Errorf("wire: invalid IP address: %s", s)
	}
	v4 := netIP.To4()
	if v4 == nil {
		return IPv4{}, fmt.Errorf("wire: not an IPv4 address: %s", s)
	}
	var ip IPv4
	copy(ip[:], v4)
	return ip, nil
}

// IPv4FromNet converts a net.IP holding an IPv4 address. It panics if ip is
// not a valid IPv4 address; callers must validate untrusted input with
// ParseIPv4 instead.
func IPv4FromNet(netIP net.IP) IPv4 {
	v4 := netIP.To4()
	if v4 == nil {
		panic("wire: IPv4FromNet: not an IPv4 address")
	}
	var ip IPv4
	copy(ip[:], v4)
	return ip
}

// MAC is a 6-byte Ethernet hardware address, kept comparable for the same
// reason as IPv4.
type MAC [6]byte

func (m MAC) String() string {
	return net.HardwareAddr(m[:]).String()
}

// IsZero reports whether m is the all-zero address used as a wildcard
// target hardware address in ARP requests.
func (m MAC) IsZero() bool {
	return m == MAC{}
}

// Broadcast is the Ethernet broadcast address ff:ff:ff:ff:ff:ff.
var Broadcast = MAC{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// MACFromNet converts a net.HardwareAddr holding a 6-byte Ethernet address.
// It panics on any other length; callers must validate untrusted input
// before calling it.
func MACFromNet(hw net.HardwareAddr) MAC {
	if len(hw) != 6 {
		panic("wire: MACFromNet: not a 6-byte hardware address")
	}
	var m MAC
	copy(m[:], hw)
	return m
}

func (m MAC) Net() net.HardwareAddr {
	out := make(net.HardwareAddr, 6)
	copy(out, m[:])
	return out
}
