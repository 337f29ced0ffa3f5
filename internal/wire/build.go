package wire

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// serializeOpts is used for every freshly-constructed frame (ARP
// replies/requests, ICMP errors): gopacket fills in lengths and checksums
// rather than the caller computing them by hand, per SPEC_FULL.md's DOMAIN
// STACK section.
var serializeOpts = gopacket.SerializeOptions{
	FixLengths:       true,
	ComputeChecksums: true,
}

// BuildFrame serializes layers (outermost first: Ethernet, then ARP or
// IPv4+transport, then an optional gopacket.Payload) into wire bytes.
func BuildFrame(stack ...gopacket.SerializableLayer) ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, serializeOpts, stack...); err != nil {
		return nil, err
	}
	out := make([]byte, len(buf.Bytes()))
	copy(out, buf.Bytes())
	return out, nil
}

// NewEthernet builds an Ethernet II layer header.
func NewEthernet(src, dst MAC, ethType uint16) *layers.Ethernet {
	return &layers.Ethernet{
		SrcMAC:       src.Net(),
		DstMAC:       dst.Net(),
		EthernetType: layers.EthernetType(ethType),
	}
}

// NewARP builds an ARP request or reply layer. op is ARPRequest or
// ARPReply.
func NewARP(op uint16, senderMAC MAC, senderIP IPv4, targetMAC MAC, targetIP IPv4) *layers.ARP {
	return &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         op,
		SourceHwAddress:   senderMAC.Net(),
		SourceProtAddress: senderIP.Net(),
		DstHwAddress:      targetMAC.Net(),
		DstProtAddress:    targetIP.Net(),
	}
}

// NewIPv4 builds an IPv4 header layer with the given fields; checksum and
// total length are filled in by BuildFrame's SerializeOptions.
func NewIPv4(src, dst IPv4, ttl uint8, protocol uint8, id uint16) *layers.IPv4 {
	return &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      ttl,
		Id:       id,
		Protocol: layers.IPProtocol(protocol),
		SrcIP:    src.Net(),
		DstIP:    dst.Net(),
	}
}

// NewICMPv4 builds an ICMP header layer for the given type/code.
func NewICMPv4(icmpType, code uint8, id, seq uint16) *layers.ICMPv4 {
	return &layers.ICMPv4{
		TypeCode: layers.CreateICMPv4TypeCode(icmpType, code),
		Id:       id,
		Seq:      seq,
	}
}
