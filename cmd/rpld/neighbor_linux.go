//go:build linux

package main

import (
	"net"

	"github.com/sixlowpan/rpl/internal/rpl"
	"github.com/sixlowpan/rpl/internal/rpltransport"
)

// newNeighborCache backs [rpl.NeighborCache] with the kernel's IPv6
// neighbour table on Linux.
func newNeighborCache(ifaceName string) (c rpl.NeighborCache, err error) {
	iface, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return nil, err
	}

	return rpltransport.NewNetlinkNeighborCache(iface.Index)
}
