// Package routing implements the static, boot-time-loaded IPv4 routing
// table and its longest-prefix-match lookup (spec.md §4.2).
package routing

import "github.com/oklabs/swrouter/internal/wire"

// Route is a single routing-table entry: spec.md §3 "Route".
type Route struct {
	Dest      wire.IPv4
	Gateway   wire.IPv4
	Mask      wire.IPv4
	Interface string
}

// Table is an ordered sequence of routes, loaded once at boot.
type Table struct {
	routes []Route
}

// NewTable builds a Table from an already-parsed route list, preserving
// order (the tie-break rule in Lookup depends on it).
func NewTable(routes []Route) *Table {
	t := &Table{routes: make([]Route, len(routes))}
	copy(t.routes, routes)
	return t
}

func maskUint32(m wire.IPv4) uint32 {
	return uint32(m[0])<<24 | uint32(m[1])<<16 | uint32(m[2])<<8 | uint32(m[3])
}

func ipUint32(ip wire.IPv4) uint32 {
	return uint32(ip[0])<<24 | uint32(ip[1])<<16 | uint32(ip[2])<<8 | uint32(ip[3])
}

// Lookup returns the route matching dst by longest-prefix-match: among
// routes whose (dest & mask) == (dst & mask), the one with the numerically
// largest mask wins; ties break by first-encountered order in the loaded
// table (spec.md §4.2).
func (t *Table) Lookup(dst wire.IPv4) (Route, bool) {
	dstBits := ipUint32(dst)

	var (
		best      Route
		bestMask  uint32
		bestFound bool
	)
	for _, r := range t.routes {
		maskBits := maskUint32(r.Mask)
		if ipUint32(r.Dest)&maskBits != dstBits&maskBits {
			continue
		}
		if !bestFound || maskBits > bestMask {
			best = r
			bestMask = maskBits
			bestFound = true
		}
	}
	return best, bestFound
}

// All returns every loaded route, in load order.
func (t *Table) All() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}
