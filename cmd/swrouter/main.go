// Command swrouter bootstraps the router's packet-processing core: it
// loads the interface and routing tables, wires the ARP cache and NAT
// engine into the dispatcher, and serves prometheus metrics. It stops
// short of the raw-socket link-layer I/O spec.md §1 and §6 name as out of
// scope (see internal/linklayer) — Dispatcher.Receive is never driven by
// a live interface here.
package main

import (
	"fmt"
	"os"
)

func main() {
	ctx, cancel := notifyContext()
	defer cancel()

	cmd := newRootCmd()
	cmd.SetContext(ctx)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
