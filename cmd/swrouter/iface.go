package main

import (
	"fmt"
	"net"

	"github.com/oklabs/swrouter/internal/iface"
	"github.com/oklabs/swrouter/internal/wire"
)

// resolveInterface reads name's hardware address and first IPv4
// address/netmask off the OS, grounded on malbeclabs/doublezero's
// netutil.ResolveInterface (telemetry/global-monitor/internal/netutil/iface.go),
// extended to also carry the netmask the router's routing and NAT layers
// need and that ResolveInterface's "just the address string" result does
// not.
func resolveInterface(name string) (iface.Interface, error) {
	netIface, err := net.InterfaceByName(name)
	if err != nil {
		return iface.Interface{}, fmt.Errorf("interface %s not found: %w", name, err)
	}

	addrs, err := netIface.Addrs()
	if err != nil {
		return iface.Interface{}, fmt.Errorf("failed to list addrs for interface %s: %w", name, err)
	}

	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok || ipNet.IP == nil {
			continue
		}
		v4 := ipNet.IP.To4()
		if v4 == nil {
			continue
		}
		maskOnes, maskBits := ipNet.Mask.Size()
		if maskBits != 32 {
			continue
		}
		mask := net.CIDRMask(maskOnes, 32)
		return iface.Interface{
			Name:    name,
			MAC:     wire.MACFromNet(netIface.HardwareAddr),
			IP:      wire.IPv4FromNet(v4),
			Netmask: wire.IPv4FromNet(net.IP(mask)),
		}, nil
	}

	return iface.Interface{}, fmt.Errorf("interface %s: no IPv4 address found", name)
}
