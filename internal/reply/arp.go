// Package reply builds the frames the router emits on its own behalf: ARP
// replies/requests and ICMP echo replies/errors (spec.md §4.7).
package reply

import (
	"github.com/google/gopacket/layers"
	"github.com/oklabs/swrouter/internal/iface"
	"github.com/oklabs/swrouter/internal/wire"
)

// ARP builds an ARP reply to req, answering on onIface: link and ARP layer
// source/target are swapped, with onIface's own MAC and IP filling the
// sender fields (spec.md §4.7).
func ARP(onIface iface.Interface, req *layers.ARP) ([]byte, error) {
	targetMAC := wire.MACFromNet(req.SourceHwAddress)
	targetIP := wire.IPv4FromNet(req.SourceProtAddress)

	eth := wire.NewEthernet(onIface.MAC, targetMAC, wire.EtherTypeARP)
	arp := wire.NewARP(wire.ARPReply, onIface.MAC, onIface.IP, targetMAC, targetIP)
	return wire.BuildFrame(eth, arp)
}

// ARPRequest builds a broadcast ARP request for targetIP, sent from
// onIface: destination is the Ethernet broadcast address, sender fields
// come from onIface, and the target hardware address is the zero wildcard
// (spec.md §4.7).
func ARPRequest(onIface iface.Interface, targetIP wire.IPv4) ([]byte, error) {
	eth := wire.NewEthernet(onIface.MAC, wire.Broadcast, wire.EtherTypeARP)
	arp := wire.NewARP(wire.ARPRequest, onIface.MAC, onIface.IP, wire.MAC{}, targetIP)
	return wire.BuildFrame(eth, arp)
}
