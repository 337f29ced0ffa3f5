package dispatcher

import (
	"github.com/oklabs/swrouter/internal/arpcache"
	"github.com/oklabs/swrouter/internal/wire"
)

// arpcache.Forwarder and nat.Forwarder both declare a method named
// Forward, but with different signatures (one takes a PendingPacket, the
// other a raw frame and interface name) — Go does not allow two methods of
// the same name on one type, so each collaborator gets its own small
// adapter satisfying its interface and delegating to Dispatcher.
type arpForwarderAdapter struct{ d *Dispatcher }

func (a arpForwarderAdapter) Forward(pkt arpcache.PendingPacket)     { a.d.redrivePending(pkt) }
func (a arpForwarderAdapter) Unreachable(pkt arpcache.PendingPacket) { a.d.arpUnreachable(pkt) }

type natForwarderAdapter struct{ d *Dispatcher }

func (a natForwarderAdapter) Forward(frame []byte, ifaceName string) {
	f, err := wire.ParseFrame(frame)
	if err != nil || f.IPv4 == nil {
		return
	}
	a.d.forward(frame, f, ifaceName)
}

func (a natForwarderAdapter) PortUnreachable(frame []byte, ifaceName string) {
	f, err := wire.ParseFrame(frame)
	if err != nil || f.IPv4 == nil {
		return
	}
	a.d.emitICMPError(f, ifaceName, wire.ICMPTypeDestinationUnreachable, wire.ICMPCodePortUnreachable)
}
