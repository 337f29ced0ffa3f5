package arpcache

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/oklabs/swrouter/internal/wire"
)

type fakeForwarder struct {
	forwarded    []PendingPacket
	unreachable  []PendingPacket
}

func (f *fakeForwarder) Forward(pkt PendingPacket)     { f.forwarded = append(f.forwarded, pkt) }
func (f *fakeForwarder) Unreachable(pkt PendingPacket) { f.unreachable = append(f.unreachable, pkt) }

func icmpEchoFrame(t *testing.T) []byte {
	t.Helper()
	eth := wire.NewEthernet(wire.MAC{1, 2, 3, 4, 5, 6}, wire.MAC{6, 5, 4, 3, 2, 1}, wire.EtherTypeIPv4)
	ip := wire.NewIPv4(wire.IPv4{10, 0, 0, 5}, wire.IPv4{10, 0, 0, 6}, 64, wire.ProtocolICMP, 1)
	icmp := wire.NewICMPv4(wire.ICMPTypeEchoRequest, 0, 7, 1)
	frame, err := wire.BuildFrame(eth, ip, icmp)
	if err != nil {
		t.Fatalf("build frame: %v", err)
	}
	return frame
}

func icmpErrorFrame(t *testing.T) []byte {
	t.Helper()
	eth := wire.NewEthernet(wire.MAC{1, 2, 3, 4, 5, 6}, wire.MAC{6, 5, 4, 3, 2, 1}, wire.EtherTypeIPv4)
	ip := wire.NewIPv4(wire.IPv4{10, 0, 0, 5}, wire.IPv4{10, 0, 0, 6}, 64, wire.ProtocolICMP, 1)
	icmp := wire.NewICMPv4(wire.ICMPTypeDestinationUnreachable, 0, 0, 0)
	frame, err := wire.BuildFrame(eth, ip, icmp)
	if err != nil {
		t.Fatalf("build frame: %v", err)
	}
	return frame
}

func TestInsertAndLookup(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New(clock, []string{"eth0"}, nil)

	ip := wire.IPv4{10, 0, 0, 1}
	mac := wire.MAC{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	c.Insert(ip, mac)

	e, ok := c.Lookup(ip)
	if !ok || e.MAC != mac {
		t.Fatalf("Lookup after Insert = %+v, %v", e, ok)
	}

	clock.Advance(EntryTTL + time.Second)
	if _, ok := c.Lookup(ip); ok {
		t.Error("entry should have expired after 15s")
	}
}

func TestInsertResolvesPendingRequest(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New(clock, []string{"eth0"}, nil)

	ip := wire.IPv4{10, 0, 0, 1}
	pkt := PendingPacket{Frame: []byte("frame"), Interface: "eth0"}
	c.Queue(ip, pkt)

	queue, ok := c.Insert(ip, wire.MAC{1, 2, 3, 4, 5, 6})
	if !ok || len(queue) != 1 || string(queue[0].Frame) != "frame" {
		t.Fatalf("Insert did not return pending queue: %+v, %v", queue, ok)
	}

	// The pending request is gone; a second Insert for the same IP
	// returns ok=false.
	if _, ok := c.Insert(ip, wire.MAC{1, 2, 3, 4, 5, 6}); ok {
		t.Error("second Insert should not see a pending request")
	}
}

func TestSweepDropsExpiredEntries(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New(clock, nil, nil)
	c.Insert(wire.IPv4{10, 0, 0, 1}, wire.MAC{1, 2, 3, 4, 5, 6})

	clock.Advance(EntryTTL + time.Second)
	c.SweepAndRetry()

	if _, ok := c.Lookup(wire.IPv4{10, 0, 0, 1}); ok {
		t.Error("sweep should have dropped the expired entry")
	}
}

func TestSweepRetriesAndGivesUpAfterFiveAttempts(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New(clock, []string{"eth0"}, nil)
	fwd := &fakeForwarder{}
	c.SetForwarder(fwd)

	var broadcasts int
	c.SetBroadcaster(func(wire.IPv4, string) { broadcasts++ })

	target := wire.IPv4{10, 0, 0, 9}
	echo := icmpEchoFrame(t)
	c.Queue(target, PendingPacket{Frame: echo, Interface: "eth0"})
	if broadcasts != 1 {
		t.Fatalf("Queue should send the first attempt immediately, got %d broadcasts", broadcasts)
	}

	// Attempts 2-5: advance past the retry interval each time.
	for i := 0; i < 4; i++ {
		clock.Advance(RetryInterval + time.Millisecond)
		c.SweepAndRetry()
	}
	if broadcasts != 5 {
		t.Fatalf("expected 5 ARP broadcasts total, got %d", broadcasts)
	}

	// The fifth attempt goes unanswered for another retry interval; the
	// next pass gives up.
	clock.Advance(RetryInterval + time.Millisecond)
	c.SweepAndRetry()

	if len(fwd.unreachable) != 1 {
		t.Fatalf("expected 1 host-unreachable emission, got %d", len(fwd.unreachable))
	}

	if _, ok := c.pending[target]; ok {
		t.Error("exhausted request should have been destroyed")
	}
}

func TestSweepDropsUnreachableForICMPErrorPackets(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New(clock, []string{"eth0"}, nil)
	fwd := &fakeForwarder{}
	c.SetForwarder(fwd)
	c.SetBroadcaster(func(wire.IPv4, string) {})

	target := wire.IPv4{10, 0, 0, 9}
	c.Queue(target, PendingPacket{Frame: icmpErrorFrame(t), Interface: "eth0"})

	// Four retries plus the pass that gives up.
	for i := 0; i < 5; i++ {
		clock.Advance(RetryInterval + time.Millisecond)
		c.SweepAndRetry()
	}

	if len(fwd.unreachable) != 0 {
		t.Error("ICMP error packets must never trigger another ICMP error")
	}
}
