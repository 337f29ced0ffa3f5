package iface

import (
	"testing"

	"github.com/oklabs/swrouter/internal/wire"
)

func testTable() *Table {
	return NewTable([]Interface{
		{Name: "eth0", MAC: wire.MAC{0, 1, 2, 3, 4, 5}, IP: wire.IPv4{192, 0, 2, 1}, Netmask: wire.IPv4{255, 255, 255, 0}},
		{Name: "eth1", MAC: wire.MAC{0, 1, 2, 3, 4, 6}, IP: wire.IPv4{10, 1, 0, 1}, Netmask: wire.IPv4{255, 255, 0, 0}},
	})
}

func TestByName(t *testing.T) {
	tbl := testTable()
	i, ok := tbl.ByName("eth1")
	if !ok || i.IP != (wire.IPv4{10, 1, 0, 1}) {
		t.Fatalf("ByName(eth1) = %+v, %v", i, ok)
	}
	if _, ok := tbl.ByName("eth9"); ok {
		t.Fatal("ByName(eth9) should miss")
	}
}

func TestIsLocal(t *testing.T) {
	tbl := testTable()
	if !tbl.IsLocal(wire.IPv4{192, 0, 2, 1}) {
		t.Error("192.0.2.1 should be local")
	}
	if tbl.IsLocal(wire.IPv4{8, 8, 8, 8}) {
		t.Error("8.8.8.8 should not be local")
	}
}

func TestAllReturnsCopy(t *testing.T) {
	tbl := testTable()
	all := tbl.All()
	all[0].Name = "mutated"
	if tbl.order[0].Name == "mutated" {
		t.Error("All() leaked internal slice")
	}
}
