package dispatcher

import (
	"github.com/oklabs/swrouter/internal/arpcache"
	"github.com/oklabs/swrouter/internal/iface"
	"github.com/oklabs/swrouter/internal/reply"
	"github.com/oklabs/swrouter/internal/wire"
)

// Receive implements spec.md §4.3's decision tree end to end: it is the
// single entrypoint the link-layer shim calls per inbound frame.
func (d *Dispatcher) Receive(frame []byte, ifaceName string) {
	if len(frame) > wire.MaxFrameLen || len(frame) < wire.MinEthernetLen {
		d.metrics.drops.WithLabelValues("frame_length").Inc()
		return
	}

	f, err := wire.ParseFrame(frame)
	if err != nil {
		d.metrics.drops.WithLabelValues("decode_error").Inc()
		return
	}

	switch {
	case f.ARP != nil:
		d.handleARP(f, ifaceName)
	case f.IPv4 != nil:
		d.handleIPv4(frame, f, ifaceName)
	default:
		d.metrics.drops.WithLabelValues("unknown_ethertype").Inc()
	}
}

func (d *Dispatcher) handleARP(f *wire.Frame, ifaceName string) {
	switch f.ARP.Operation {
	case wire.ARPRequest:
		targetIP := wire.IPv4FromNet(f.ARP.DstProtAddress)
		onIface, ok := d.interfaceWithIP(targetIP)
		if !ok {
			return
		}
		out, err := reply.ARP(onIface, f.ARP)
		if err != nil {
			d.log.Error("build arp reply", "error", err)
			return
		}
		d.send(out, onIface.Name)

	case wire.ARPReply:
		senderIP := wire.IPv4FromNet(f.ARP.SourceProtAddress)
		senderMAC := wire.MACFromNet(f.ARP.SourceHwAddress)
		queue, ok := d.arp.Insert(senderIP, senderMAC)
		if !ok {
			return
		}
		for _, pkt := range queue {
			d.redrivePending(pkt)
		}

	default:
		d.metrics.drops.WithLabelValues("arp_unknown_op").Inc()
	}
}

func (d *Dispatcher) interfaceWithIP(ip wire.IPv4) (iface.Interface, bool) {
	for _, i := range d.ifaces.All() {
		if i.IP.Equal(ip) {
			return i, true
		}
	}
	return iface.Interface{}, false
}

func (d *Dispatcher) handleIPv4(frame []byte, f *wire.Frame, ifaceName string) {
	if d.ifaces.IsLocal(f.DstIPv4()) {
		d.handleLocal(frame, f, ifaceName)
		return
	}
	d.handleForward(frame, f, ifaceName)
}

// handleLocal implements spec.md §4.3 step 5's "Local" branch.
func (d *Dispatcher) handleLocal(frame []byte, f *wire.Frame, ifaceName string) {
	if d.natEnabled && d.isExternalAddress(f.DstIPv4()) {
		if err := d.nat.HandleInbound(frame, ifaceName); err != nil {
			d.metrics.drops.WithLabelValues("nat_inbound").Inc()
		}
		return
	}

	switch {
	case f.ICMP != nil && uint8(f.ICMP.TypeCode.Type()) == wire.ICMPTypeEchoRequest:
		if err := reply.ICMPEchoReply(frame, f); err != nil {
			d.metrics.drops.WithLabelValues("icmp_echo_reply").Inc()
			return
		}
		d.send(frame, ifaceName)

	case f.TCP != nil || uint8(f.IPv4.Protocol) == wire.ProtocolUDP:
		d.emitICMPError(f, ifaceName, wire.ICMPTypeDestinationUnreachable, wire.ICMPCodePortUnreachable)

	default:
		d.metrics.drops.WithLabelValues("local_undeliverable").Inc()
	}
}

func (d *Dispatcher) isExternalAddress(ip wire.IPv4) bool {
	ext, ok := d.ifaces.ByName(d.externalIface)
	return ok && ext.IP.Equal(ip)
}

// redrivePending re-sends a packet that was queued against an ARP
// resolution now that it has completed, per spec.md §4.4's "re-drive its
// queued packets through forwarding with the now-known MAC" and §4.6's
// "overwrite Ethernet source/destination and send out the route's
// interface".
func (d *Dispatcher) redrivePending(pkt arpcache.PendingPacket) {
	entry, ok := d.arp.Lookup(pkt.TargetIP)
	if !ok {
		return
	}
	outIface, ok := d.ifaces.ByName(pkt.Interface)
	if !ok {
		return
	}
	rewriteEthernet(pkt.Frame, outIface.MAC, entry.MAC)
	d.send(pkt.Frame, pkt.Interface)
}

// arpUnreachable implements spec.md §4.4's fifth-attempt failure path:
// ICMP host-unreachable emitted back toward the queued packet's original
// source, from the interface the resolution was attempted on.
func (d *Dispatcher) arpUnreachable(pkt arpcache.PendingPacket) {
	f, err := wire.ParseFrame(pkt.Frame)
	if err != nil || f.IPv4 == nil {
		return
	}
	d.emitICMPError(f, pkt.Interface, wire.ICMPTypeDestinationUnreachable, wire.ICMPCodeHostUnreachable)
}
