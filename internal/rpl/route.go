package rpl

import (
	"fmt"
	"time"
)

// RouteState distinguishes a usable downward route from one that's been
// poisoned by a No-Path DAO but is still held for its removal delay
// (spec.md section 3, "Route").
type RouteState uint8

// Defined route states.
const (
	// RouteActive routes are installed and forwardable.
	RouteActive RouteState = iota

	// RouteNoPathReceived routes have had their lifetime reset to
	// [NoPathRemovalDelay] after a No-Path DAO and must not be installed
	// into the forwarding plane (spec.md section 4.6, step 9).
	RouteNoPathReceived
)

// Route is one entry of a storing-mode downward routing table (spec.md
// section 3, "Route"). The core never touches a forwarding plane
// directly; it only publishes Route values through [Output].
type Route struct {
	// Target is the destination prefix, as carried in the DAO Target
	// suboption.
	Target Target

	// NextHop identifies the neighbour this route was learned from.
	NextHop NeighborKey

	// PathSequence is the Path Sequence of the Transit suboption that
	// installed or last refreshed this route.
	PathSequence uint8

	// Lifetime is the remaining validity of the route. A zero lifetime
	// with State == RouteNoPathReceived means the route is due for
	// removal.
	Lifetime time.Duration

	State RouteState

	// DAOSeqnoIn is the lollipop sequence of the DAO that most recently
	// installed or refreshed this route from below.
	DAOSeqnoIn uint8

	// DAOSeqnoOut is the lollipop sequence this node used when it last
	// forwarded this route's reachability upward.
	DAOSeqnoOut uint8

	// DAOPending reports whether a forwarded DAO for this route is still
	// awaiting its DAO-ACK (spec.md section 4.6 step 9, section 4.8).
	DAOPending bool
}

// RouteTable is the external storing-mode downward routing table (spec.md
// section 1, "out of scope ... the downward routing table storage/lookup
// structure"). The DAO, DAO-ACK, and DCO handlers call it to install,
// look up, refresh, and remove routes; it is not consulted for
// data-packet forwarding.
type RouteTable interface {
	// Lookup returns the route for target and whether one exists.
	Lookup(target Target) (r Route, ok bool)

	// Add installs or overwrites the route for r.Target.
	Add(r Route)

	// Remove deletes any route for target, if there is one.
	Remove(target Target)

	// All returns every route currently installed, in no particular
	// order. Used by DAO-ACK forwarding to find the pending route whose
	// outgoing sequence an ACK matches (spec.md section 4.8).
	All() (routes []Route)
}

// targetKey returns a map key uniquely identifying a Target's prefix,
// mirroring net/netip's "bits/bytes" address-key convention.
func targetKey(t Target) (key string) {
	return fmt.Sprintf("%d/%x", t.PrefixLength, t.Prefix)
}

// MapRouteTable is an in-memory [RouteTable] keyed by target prefix,
// following the same unlocked, single-goroutine convention as
// [MapNeighborCache]: callers that need concurrent access serialize it
// themselves, same as every other Engine collaborator (spec.md section
// 5).
type MapRouteTable struct {
	routes map[string]Route
}

// NewMapRouteTable returns a ready-to-use, empty [MapRouteTable].
func NewMapRouteTable() (t *MapRouteTable) {
	return &MapRouteTable{routes: map[string]Route{}}
}

// Lookup implements the [RouteTable] interface for *MapRouteTable.
func (t *MapRouteTable) Lookup(target Target) (r Route, ok bool) {
	r, ok = t.routes[targetKey(target)]

	return r, ok
}

// Add implements the [RouteTable] interface for *MapRouteTable.
func (t *MapRouteTable) Add(r Route) {
	t.routes[targetKey(r.Target)] = r
}

// Remove implements the [RouteTable] interface for *MapRouteTable.
func (t *MapRouteTable) Remove(target Target) {
	delete(t.routes, targetKey(target))
}

// All implements the [RouteTable] interface for *MapRouteTable.
func (t *MapRouteTable) All() (routes []Route) {
	routes = make([]Route, 0, len(t.routes))
	for _, r := range t.routes {
		routes = append(routes, r)
	}

	return routes
}
