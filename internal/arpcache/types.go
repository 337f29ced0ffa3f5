// Package arpcache implements the concurrent IPv4→MAC ARP cache: resolved
// entries with a 15s TTL, the request-retry state machine for unresolved
// lookups, and the per-request pending-packet queue (spec.md §4.4).
package arpcache

import (
	"time"

	"github.com/oklabs/swrouter/internal/wire"
)

// entry is a resolved ARP cache record: spec.md §3 "ARP entry".
type entry struct {
	IP        wire.IPv4
	MAC       wire.MAC
	InsertedAt time.Time
}

// Entry is the value Lookup returns: an owned copy, never aliased to table
// state (spec.md §3 invariant).
type Entry struct {
	IP  wire.IPv4
	MAC wire.MAC
}

// PendingPacket is a single frame queued against an in-flight ARP
// resolution: spec.md §3 "ARP request" queue member. It carries the
// original inbound link-layer framing so its IP checksum (valid at
// enqueue time) is still valid at dequeue.
type PendingPacket struct {
	Frame     []byte
	Interface string

	// TargetIP is the next-hop address this packet is queued against. The
	// dispatcher's Forwarder.Forward implementation re-looks-up the
	// resolved MAC by this address once it is notified, rather than
	// having the cache thread a MAC value it has no business knowing
	// through the queue itself.
	TargetIP wire.IPv4
}

// request is a pending ARP resolution: spec.md §3 "ARP request".
type request struct {
	TargetIP    wire.IPv4
	Attempts    int
	LastAttempt time.Time
	Queue       []PendingPacket
}

// MaxAttempts is the number of unanswered ARP requests before the cache
// gives up and emits ICMP host-unreachable for each queued packet
// (spec.md §4.4).
const MaxAttempts = 5

// EntryTTL is how long a resolved entry is considered valid (spec.md §3).
const EntryTTL = 15 * time.Second

// RetryInterval is the minimum time between successive ARP request
// attempts for the same target (spec.md §4.4).
const RetryInterval = 1 * time.Second

// SweepInterval is the sweeper tick period (spec.md §2).
const SweepInterval = 1 * time.Second
