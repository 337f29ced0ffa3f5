package arpcache

// Forwarder is the forwarding-path collaborator of the cache (spec.md
// §4.4, §4.6). The cache itself calls only Unreachable, from SweepAndRetry,
// when a resolution fails; packets whose resolution completes are returned
// by Insert to its caller, which re-drives them, so this package never
// calls Forward. It is implemented by the packet
// dispatcher's forwarding path (internal/dispatcher) and wired in after
// construction via Cache.SetForwarder — the cache package itself must not
// import the dispatcher (it would be an import cycle, since forwarding
// itself calls back into the cache to resolve the next hop).
type Forwarder interface {
	// Forward re-sends pkt now that the next-hop MAC for its destination
	// is known.
	Forward(pkt PendingPacket)
	// Unreachable emits ICMP type 3 code 1 (host unreachable) back toward
	// pkt's original sender. The cache has already excluded packets that
	// are themselves ICMP error messages before calling this.
	Unreachable(pkt PendingPacket)
}
