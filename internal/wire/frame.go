package wire

import (
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Frame is a decoded Ethernet frame. Only the layers actually present are
// populated; callers branch on which of ARP/IPv4/ICMP/TCP is non-nil the
// same way the dispatcher's decision tree (spec.md §4.3) switches on
// EtherType and then on IP protocol.
type Frame struct {
	Raw []byte

	Ethernet *layers.Ethernet
	ARP      *layers.ARP
	IPv4     *layers.IPv4
	ICMP     *layers.ICMPv4
	TCP      *layers.TCP

	// IPPayloadOffset is the byte offset of the IPv4 payload (TCP/ICMP
	// header) within Raw, i.e. the length of the Ethernet + IPv4 headers.
	IPPayloadOffset int
}

// ParseFrame decodes frame as Ethernet II, switching into ARP or IPv4 (and,
// for IPv4, into ICMP or TCP) as the EtherType/protocol dictate. It returns
// an error for an undersized or oversized frame, a layer that fails to
// decode, unsupported ARP address sizes, a non-4 IP version or a bad IPv4
// header checksum. The caller treats any error as a silent drop (spec.md
// §4.1/§7); it is never escalated into an ICMP reply.
func ParseFrame(frame []byte) (*Frame, error) {
	if len(frame) < MinEthernetLen {
		return nil, fmt.Errorf("wire: frame too short (%d bytes)", len(frame))
	}
	if len(frame) > MaxFrameLen {
		return nil, fmt.Errorf("wire: frame too long (%d bytes)", len(frame))
	}

	pkt := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.DecodeOptions{
		Lazy:   true,
		NoCopy: true,
	})
	if err := pkt.ErrorLayer(); err != nil {
		return nil, fmt.Errorf("wire: decode error: %w", err.Error())
	}

	f := &Frame{Raw: frame}

	ethLayer := pkt.Layer(layers.LayerTypeEthernet)
	if ethLayer == nil {
		return nil, fmt.Errorf("wire: no Ethernet layer")
	}
	f.Ethernet = ethLayer.(*layers.Ethernet)

	if arpLayer := pkt.Layer(layers.LayerTypeARP); arpLayer != nil {
		arp := arpLayer.(*layers.ARP)
		if arp.HwAddressSize != 6 || arp.ProtAddressSize != 4 {
			return nil, fmt.Errorf("wire: unsupported ARP address sizes (hw=%d, prot=%d)", arp.HwAddressSize, arp.ProtAddressSize)
		}
		f.ARP = arp
		return f, nil
	}

	ipLayer := pkt.Layer(layers.LayerTypeIPv4)
	if ipLayer == nil {
		// Unknown EtherType: dropped silently by the dispatcher.
		return f, nil
	}
	f.IPv4 = ipLayer.(*layers.IPv4)
	if f.IPv4.Version != 4 {
		return nil, fmt.Errorf("wire: not an IPv4 packet")
	}
	if !validIPv4Checksum(frame, f.IPv4) {
		return nil, fmt.Errorf("wire: bad IPv4 checksum")
	}
	f.IPPayloadOffset = MinEthernetLen + int(f.IPv4.IHL)*4

	switch f.IPv4.Protocol {
	case layers.IPProtocolICMPv4:
		if icmpLayer := pkt.Layer(layers.LayerTypeICMPv4); icmpLayer != nil {
			f.ICMP = icmpLayer.(*layers.ICMPv4)
		}
	case layers.IPProtocolTCP:
		if tcpLayer := pkt.Layer(layers.LayerTypeTCP); tcpLayer != nil {
			f.TCP = tcpLayer.(*layers.TCP)
		}
	}

	return f, nil
}

// validIPv4Checksum recomputes the IPv4 header checksum over the header as
// it appears on the wire (gopacket clears layers.IPv4.Checksum, so this
// checks the raw bytes rather than the parsed field).
func validIPv4Checksum(frame []byte, ip *layers.IPv4) bool {
	headerLen := int(ip.IHL) * 4
	if headerLen < 20 || len(frame) < MinEthernetLen+headerLen {
		return false
	}
	header := frame[MinEthernetLen : MinEthernetLen+headerLen]
	return InternetChecksum(header) == 0
}

// SrcIPv4 and DstIPv4 convert the gopacket net.IP fields to the package's
// comparable IPv4 type.
func (f *Frame) SrcIPv4() IPv4 { return IPv4FromNet(f.IPv4.SrcIP) }
func (f *Frame) DstIPv4() IPv4 { return IPv4FromNet(f.IPv4.DstIP) }

// L4Length returns the length of the L4 segment (TCP header or ICMP
// message, plus its payload) as declared by the IPv4 total-length field,
// rather than "everything left in the buffer": Ethernet frames below the
// 60-byte minimum are padded on the wire, and that padding must not be
// folded into an ICMP checksum or a TCP pseudo-header's length field.
func (f *Frame) L4Length() int {
	return int(f.IPv4.Length) - (f.IPPayloadOffset - MinEthernetLen)
}
