package arpcache

import (
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/oklabs/swrouter/internal/wire"
)

// Sweeper drives the cache's one-second background pass (spec.md §2, §4.4):
// entries older than EntryTTL are dropped, pending requests whose last
// attempt is older than RetryInterval are retried, and requests that have
// reached MaxAttempts are destroyed after emitting ICMP host-unreachable
// for each of their queued packets (except ICMP-error packets, which are
// dropped silently to avoid error amplification, spec.md §4.4/§7).
type Sweeper struct {
	cache  *Cache
	clock  clockwork.Clock
	log    *slog.Logger
	stopCh chan struct{}
}

// NewSweeper builds a Sweeper for cache.
func NewSweeper(cache *Cache, clock clockwork.Clock, log *slog.Logger) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{cache: cache, clock: clock, log: log, stopCh: make(chan struct{})}
}

// Run ticks once per SweepInterval until Stop is called, the cooperative
// shutdown flag spec.md §5 recommends in place of the reference's
// termination-only shutdown.
func (s *Sweeper) Run() {
	ticker := s.clock.NewTicker(SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.Chan():
			s.cache.SweepAndRetry()
		}
	}
}

// Stop makes Run return without waiting for another tick; a sweep pass
// already in progress completes first.
func (s *Sweeper) Stop() {
	close(s.stopCh)
}

// SweepAndRetry performs one sweep pass. It is exported directly (in
// addition to being driven by Sweeper.Run) so tests and the CLI bootstrap
// can step it deterministically.
func (c *Cache) SweepAndRetry() {
	now := c.clock.Now()

	c.mu.Lock()
	for ip, e := range c.entries {
		if now.Sub(e.InsertedAt) > EntryTTL {
			delete(c.entries, ip)
		}
	}
	c.metrics.entries.Set(float64(len(c.entries)))

	var dueRetry []wire.IPv4
	var exhausted []*request
	for ip, req := range c.pending {
		if now.Sub(req.LastAttempt) <= RetryInterval {
			continue
		}
		if req.Attempts >= MaxAttempts {
			exhausted = append(exhausted, req)
			delete(c.pending, ip)
			continue
		}
		dueRetry = append(dueRetry, ip)
	}
	forwarder := c.forwarder
	c.mu.Unlock()

	for _, ip := range dueRetry {
		c.mu.Lock()
		req := c.pending[ip]
		c.mu.Unlock()
		if req != nil {
			c.attempt(ip, req)
		}
	}

	for _, req := range exhausted {
		c.metrics.unresolved.Inc()
		if forwarder == nil {
			continue
		}
		for _, pkt := range req.Queue {
			if isICMPErrorPacket(pkt.Frame) {
				// Never amplify an ICMP error into another one
				// (spec.md §4.4, §7).
				continue
			}
			forwarder.Unreachable(pkt)
		}
	}
}

// isICMPErrorPacket reports whether frame's IP payload is one of the ICMP
// error message types spec.md §4.4 excludes from the host-unreachable
// fan-out.
func isICMPErrorPacket(frame []byte) bool {
	f, err := wire.ParseFrame(frame)
	if err != nil || f.ICMP == nil {
		return false
	}
	return wire.IsICMPError(uint8(f.ICMP.TypeCode.Type()))
}
