package dispatcher

import (
	"encoding/binary"

	"github.com/oklabs/swrouter/internal/arpcache"
	"github.com/oklabs/swrouter/internal/reply"
	"github.com/oklabs/swrouter/internal/routing"
	"github.com/oklabs/swrouter/internal/wire"
)

const (
	ethLen      = 14
	ttlOffset   = ethLen + 8
	ipCksOffset = ethLen + 10
)

// handleForward implements spec.md §4.3 step 5's "Not local" branch: TTL
// expiry, then NAT outbound (if applicable) or plain forwarding. The TTL
// check runs before any NAT rewrite, so a time-exceeded error goes back to
// the untranslated internal source and no mapping is created for it.
func (d *Dispatcher) handleForward(frame []byte, f *wire.Frame, ifaceName string) {
	if f.IPv4.TTL <= 1 {
		d.emitICMPError(f, ifaceName, wire.ICMPTypeTimeExceeded, wire.ICMPCodeTTLExceeded)
		return
	}

	if d.natEnabled && ifaceName == d.internalIface {
		if err := d.nat.HandleOutbound(frame, ifaceName); err != nil {
			d.metrics.drops.WithLabelValues("nat_outbound").Inc()
		}
		return
	}

	d.forward(frame, f, ifaceName)
}

// forward implements spec.md §4.6 for a packet this router is relaying
// rather than originating: check TTL, decrement it, recompute checksum,
// route, then hand off to ARP resolution. handleForward has already
// checked TTL for frames that pass through it; the check here also covers
// NAT-inbound frames, whose rewritten destination is no longer local and
// which reach forward via natForwarderAdapter without passing through
// handleForward.
func (d *Dispatcher) forward(frame []byte, f *wire.Frame, ifaceName string) {
	if f.IPv4.TTL <= 1 {
		d.emitICMPError(f, ifaceName, wire.ICMPTypeTimeExceeded, wire.ICMPCodeTTLExceeded)
		return
	}
	decrementTTL(frame, f)

	route, ok := d.routes.Lookup(f.DstIPv4())
	if !ok {
		d.emitICMPError(f, ifaceName, wire.ICMPTypeDestinationUnreachable, wire.ICMPCodeNetUnreachable)
		return
	}
	d.sendViaRoute(frame, route, f.DstIPv4())
}

// route sends a frame this router originated itself (an ICMP error or
// NAT port-unreachable reply) via the ordinary routing + ARP resolution
// path, without touching its TTL: reply builders set that once, and a
// locally originated packet is not being "relayed" in the spec.md §4.6
// sense.
func (d *Dispatcher) route(frame []byte) {
	f, err := wire.ParseFrame(frame)
	if err != nil || f.IPv4 == nil {
		return
	}
	route, ok := d.routes.Lookup(f.DstIPv4())
	if !ok {
		return
	}
	d.sendViaRoute(frame, route, f.DstIPv4())
}

// sendViaRoute resolves the next hop for dst along route and either sends
// immediately (ARP hit) or enqueues the frame against a pending ARP
// resolution (ARP miss), triggering the retry driver (spec.md §4.6).
func (d *Dispatcher) sendViaRoute(frame []byte, route routing.Route, dst wire.IPv4) {
	nextHop := route.Gateway
	if route.Gateway.IsZero() {
		nextHop = dst
	}

	outIface, ok := d.ifaces.ByName(route.Interface)
	if !ok {
		d.metrics.drops.WithLabelValues("bad_route_interface").Inc()
		return
	}

	entry, ok := d.arp.Lookup(nextHop)
	if !ok {
		d.arp.Queue(nextHop, arpcache.PendingPacket{
			Frame:     frame,
			Interface: route.Interface,
			TargetIP:  nextHop,
		})
		return
	}
	rewriteEthernet(frame, outIface.MAC, entry.MAC)
	d.send(frame, route.Interface)
}

// emitICMPError builds and routes an ICMP error in response to f, unless f
// is itself an ICMP error message (spec.md §4.4/§7's amplification guard)
// or ifaceName names no known interface.
func (d *Dispatcher) emitICMPError(f *wire.Frame, ifaceName string, icmpType, icmpCode uint8) {
	if f.ICMP != nil && wire.IsICMPError(uint8(f.ICMP.TypeCode.Type())) {
		d.metrics.drops.WithLabelValues("icmp_error_suppressed").Inc()
		return
	}

	onIface, ok := d.ifaces.ByName(ifaceName)
	if !ok {
		return
	}

	out, err := reply.ICMPError(onIface, icmpType, icmpCode, f)
	if err != nil {
		d.log.Error("build icmp error", "error", err)
		return
	}
	d.route(out)
}

func decrementTTL(frame []byte, f *wire.Frame) {
	frame[ttlOffset]--
	headerLen := f.IPPayloadOffset - ethLen
	binary.BigEndian.PutUint16(frame[ipCksOffset:ipCksOffset+2], 0)
	binary.BigEndian.PutUint16(frame[ipCksOffset:ipCksOffset+2], wire.InternetChecksum(frame[ethLen:ethLen+headerLen]))
}

func rewriteEthernet(frame []byte, srcMAC, dstMAC wire.MAC) {
	copy(frame[0:6], dstMAC[:])
	copy(frame[6:12], srcMAC[:])
}
