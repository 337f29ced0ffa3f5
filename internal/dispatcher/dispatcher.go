// Package dispatcher implements the router's packet-processing decision
// tree (spec.md §4.3): given a received frame and the interface it arrived
// on, it performs exactly one of {drop, local reply, forward,
// enqueue-pending-ARP}.
package dispatcher

import (
	"log/slog"

	"github.com/oklabs/swrouter/internal/arpcache"
	"github.com/oklabs/swrouter/internal/iface"
	"github.com/oklabs/swrouter/internal/nat"
	"github.com/oklabs/swrouter/internal/reply"
	"github.com/oklabs/swrouter/internal/routing"
	"github.com/oklabs/swrouter/internal/wire"
)

// Sender is the link-layer shim's send-path (spec.md §6): the out-of-scope
// collaborator that transmits a frame out a named interface, grounded on
// malbeclabs/doublezero's RawConner interface
// (client/doublezerod/internal/pim/server.go), which plays the same
// injectable-send-path role.
type Sender interface {
	Send(frame []byte, ifaceName string) error
}

// Dispatcher ties the interface table, routing table, ARP cache and NAT
// engine together behind the single Receive entrypoint.
type Dispatcher struct {
	ifaces *iface.Table
	routes *routing.Table
	arp    *arpcache.Cache
	nat    *nat.Table

	natEnabled    bool
	internalIface string
	externalIface string

	sender  Sender
	log     *slog.Logger
	metrics *Metrics
}

// Config collects Dispatcher's collaborators.
type Config struct {
	Ifaces *iface.Table
	Routes *routing.Table
	ARP    *arpcache.Cache
	NAT    *nat.Table

	NATEnabled    bool
	InternalIface string
	ExternalIface string

	Sender  Sender
	Log     *slog.Logger
	Metrics *Metrics
}

// New builds a Dispatcher and wires itself in as the Forwarder collaborator
// of both the ARP cache and the NAT engine.
func New(cfg Config) *Dispatcher {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	d := &Dispatcher{
		ifaces:        cfg.Ifaces,
		routes:        cfg.Routes,
		arp:           cfg.ARP,
		nat:           cfg.NAT,
		natEnabled:    cfg.NATEnabled,
		internalIface: cfg.InternalIface,
		externalIface: cfg.ExternalIface,
		sender:        cfg.Sender,
		log:           log,
		metrics:       metrics,
	}

	if d.arp != nil {
		d.arp.SetForwarder(arpForwarderAdapter{d})
		d.arp.SetBroadcaster(d.broadcastARP)
	}
	if d.nat != nil {
		d.nat.SetForwarder(natForwarderAdapter{d})
	}
	return d
}

func (d *Dispatcher) send(frame []byte, ifaceName string) {
	if d.sender == nil {
		return
	}
	if err := d.sender.Send(frame, ifaceName); err != nil {
		d.log.Error("send failed", "interface", ifaceName, "error", err)
	}
}

// broadcastARP is wired into the ARP cache as its retry driver (spec.md
// §4.4 "retries broadcast the ARP request out every interface").
func (d *Dispatcher) broadcastARP(target wire.IPv4, ifaceName string) {
	onIface, ok := d.ifaces.ByName(ifaceName)
	if !ok {
		return
	}
	out, err := reply.ARPRequest(onIface, target)
	if err != nil {
		d.log.Error("build arp request", "error", err)
		return
	}
	d.send(out, ifaceName)
}
