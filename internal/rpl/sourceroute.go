package rpl

// SourceRouteTable is the external non-storing-mode source route table
// (spec.md section 1, "out of scope ... the downward routing table
// storage/lookup structure"). In non-storing MOP the root is the only
// node that keeps downward state, indexed by child-to-parent edges
// rather than by destination prefix.
type SourceRouteTable interface {
	// AddLink records that child reaches the DODAG by way of parent, as
	// reported by child's DAO Transit/Target pair.
	AddLink(child, parent Target)

	// RemoveLink deletes the child-to-parent edge previously recorded for
	// child, e.g. on receipt of a No-Path DAO.
	RemoveLink(child Target)
}

// MapSourceRouteTable is an in-memory [SourceRouteTable] keyed by the
// child's target prefix, following the same unlocked, single-goroutine
// convention as [MapRouteTable].
type MapSourceRouteTable struct {
	links map[string]Target
}

// NewMapSourceRouteTable returns a ready-to-use, empty
// [MapSourceRouteTable].
func NewMapSourceRouteTable() (t *MapSourceRouteTable) {
	return &MapSourceRouteTable{links: map[string]Target{}}
}

// AddLink implements the [SourceRouteTable] interface for
// *MapSourceRouteTable.
func (t *MapSourceRouteTable) AddLink(child, parent Target) {
	t.links[targetKey(child)] = parent
}

// RemoveLink implements the [SourceRouteTable] interface for
// *MapSourceRouteTable.
func (t *MapSourceRouteTable) RemoveLink(child Target) {
	delete(t.links, targetKey(child))
}

// ParentOf returns the parent target most recently recorded for child,
// and whether one exists. Used to walk a source route from the root
// down to a destination one hop at a time.
func (t *MapSourceRouteTable) ParentOf(child Target) (parent Target, ok bool) {
	parent, ok = t.links[targetKey(child)]

	return parent, ok
}
