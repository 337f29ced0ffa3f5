// Package linklayer specifies, but deliberately does not implement, the
// raw-socket link-layer I/O spec.md §1 and §6 name as out of scope: the
// collaborator that actually reads and writes Ethernet frames on real
// interfaces. It is grounded on malbeclabs/doublezero's RawConner
// (client/doublezerod/internal/pim/server.go), which plays the identical
// role of an injectable, interface-only boundary around raw socket I/O so
// the rest of the router never imports golang.org/x/net/ipv4 or touches a
// file descriptor directly.
package linklayer

// Receiver is implemented by whatever drives frames into the dispatcher:
// normally one goroutine per interface, each calling Dispatcher.Receive
// for every frame it reads off that interface's raw socket (spec.md §5
// "one dispatcher thread per receiving interface").
type Receiver interface {
	Receive(frame []byte, ifaceName string)
}

// Sender is the transmit half of the same boundary (spec.md §6's
// "send(frame, len, interface_name)"): it hands frame to whatever owns the
// real raw socket for ifaceName. Implementations of this package's actual
// I/O (AF_PACKET sockets, a pcap handle, a test fake) live outside this
// module, the same way RawConner's concrete WriteTo implementation lives
// outside the pim package that declares it.
type Sender interface {
	Send(frame []byte, ifaceName string) error
}
