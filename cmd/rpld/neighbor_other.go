//go:build !linux

package main

import (
	"fmt"
	"runtime"

	"github.com/sixlowpan/rpl/internal/rpl"
)

// newNeighborCache has no kernel-backed implementation outside Linux;
// [buildEngine] falls back to [rpl.NewMapNeighborCache] when this
// returns an error.
func newNeighborCache(string) (c rpl.NeighborCache, err error) {
	return nil, fmt.Errorf("no kernel neighbor cache on %s", runtime.GOOS)
}
