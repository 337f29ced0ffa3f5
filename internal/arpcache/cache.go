package arpcache

import (
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/oklabs/swrouter/internal/wire"
)

// Cache is the ARP cache and pending-request table described in spec.md
// §4.4. A single mutex guards both maps, matching the teacher's Pair[IP]
// (KarpelesLab/swnat pair.go) single-lock-per-table discipline; unlike
// swnat's sync.RWMutex this is a plain sync.Mutex because sweeping can
// mutate both maps in the same pass.
//
// Spec.md §5 calls for a re-entrant mutex so the sweeper's
// host-unreachable path can call back into forwarding, which itself calls
// back into the cache to enqueue the ICMP reply pending its own ARP
// resolution. Go's sync.Mutex has no native re-entrancy (see SPEC_FULL.md),
// so SweepAndRetry removes exhausted requests and snapshots the work to do
// under the lock, releases it, and re-acquires it only briefly to record
// each retry attempt before invoking the Forwarder — no call here ever
// holds the mutex while calling into the Forwarder.
type Cache struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	metrics *Metrics

	entries map[wire.IPv4]entry
	pending map[wire.IPv4]*request

	forwarder   Forwarder
	broadcaster func(target wire.IPv4, ifaceName string)
	ifaces      []string
}

// New builds an empty Cache. ifaceNames lists every interface the retry
// driver broadcasts ARP requests on (spec.md §4.4 "retries broadcast the
// ARP request out every interface").
func New(clock clockwork.Clock, ifaceNames []string, metrics *Metrics) *Cache {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Cache{
		clock:   clock,
		metrics: metrics,
		entries: make(map[wire.IPv4]entry),
		pending: make(map[wire.IPv4]*request),
		ifaces:  append([]string(nil), ifaceNames...),
	}
}

// SetForwarder wires in the collaborator used to re-drive queued packets
// and emit host-unreachable messages. Must be called once, before the
// sweeper starts, since the dispatcher and cache are constructed in
// opposite dependency order.
func (c *Cache) SetForwarder(f Forwarder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forwarder = f
}

// Lookup returns a copy of the resolved entry for ip, if any and not
// expired.
func (c *Cache) Lookup(ip wire.IPv4) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[ip]
	if !ok {
		return Entry{}, false
	}
	if c.clock.Now().Sub(e.InsertedAt) > EntryTTL {
		return Entry{}, false
	}
	return Entry{IP: e.IP, MAC: e.MAC}, true
}

// Insert installs a resolved (ip, mac) entry, removing any pending request
// for ip. It returns a copy of that request's queued packets and true (so
// the caller can re-drive them through forwarding now that the MAC is
// known), or nil and false if there was none (spec.md §4.4).
func (c *Cache) Insert(ip wire.IPv4, mac wire.MAC) ([]PendingPacket, bool) {
	c.mu.Lock()
	now := c.clock.Now()
	c.entries[ip] = entry{IP: ip, MAC: mac, InsertedAt: now}
	c.metrics.entries.Set(float64(len(c.entries)))

	req, ok := c.pending[ip]
	if ok {
		delete(c.pending, ip)
	}
	c.mu.Unlock()

	if !ok {
		return nil, false
	}
	queue := make([]PendingPacket, len(req.Queue))
	copy(queue, req.Queue)
	return queue, true
}

// Queue appends pkt to the pending request for ip, creating the request
// (and sending its first ARP request attempt) if none exists yet.
func (c *Cache) Queue(ip wire.IPv4, pkt PendingPacket) {
	c.mu.Lock()
	req, ok := c.pending[ip]
	if !ok {
		req = &request{TargetIP: ip}
		c.pending[ip] = req
	}
	req.Queue = append(req.Queue, pkt)
	c.mu.Unlock()

	if !ok {
		c.attempt(ip, req)
	}
}

// Destroy removes the pending request for ip, if any.
func (c *Cache) Destroy(ip wire.IPv4) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, ip)
}

// attempt sends (or re-sends) the ARP request broadcast for a pending
// target and records the attempt. Must be called without c.mu held.
func (c *Cache) attempt(ip wire.IPv4, req *request) {
	c.mu.Lock()
	req.Attempts++
	req.LastAttempt = c.clock.Now()
	broadcaster := c.broadcaster
	c.mu.Unlock()

	c.metrics.requestsSent.Inc()
	if broadcaster == nil {
		return
	}
	for _, name := range c.ifaces {
		broadcaster(ip, name)
	}
}

// SetBroadcaster installs the function used to actually transmit an ARP
// request broadcast for target out ifaceName (dispatcher.New wires in its
// own broadcastARP, which builds the request and hands it to its Sender).
func (c *Cache) SetBroadcaster(fn func(target wire.IPv4, ifaceName string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.broadcaster = fn
}
