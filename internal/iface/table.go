// Package iface holds the static, boot-time set of router interfaces:
// name, hardware address and IPv4 address/netmask (spec.md §3 "Interface").
package iface

import "github.com/oklabs/swrouter/internal/wire"

// Interface is one router-attached network interface.
type Interface struct {
	Name    string
	MAC     wire.MAC
	IP      wire.IPv4
	Netmask wire.IPv4
}

// Table is the static set of interfaces enumerated at boot. It is never
// mutated after construction, so it needs no locking.
type Table struct {
	byName map[string]Interface
	order  []Interface
}

// NewTable builds a Table from the given interfaces.
func NewTable(interfaces []Interface) *Table {
	t := &Table{
		byName: make(map[string]Interface, len(interfaces)),
		order:  make([]Interface, len(interfaces)),
	}
	copy(t.order, interfaces)
	for _, i := range interfaces {
		t.byName[i.Name] = i
	}
	return t
}

// ByName looks up an interface by its short name (e.g. "eth0").
func (t *Table) ByName(name string) (Interface, bool) {
	i, ok := t.byName[name]
	return i, ok
}

// All returns every interface, in the order passed to NewTable.
func (t *Table) All() []Interface {
	out := make([]Interface, len(t.order))
	copy(out, t.order)
	return out
}

// IsLocal reports whether ip is the address of any of the router's own
// interfaces.
func (t *Table) IsLocal(ip wire.IPv4) bool {
	for _, i := range t.order {
		if i.IP.Equal(ip) {
			return true
		}
	}
	return false
}
