package rpl

import (
	"slices"
	"strings"
)

// DAG is a node's view of a single Destination-Oriented DAG: the subset
// of DIO state that's per-DODAG rather than per-instance (spec.md
// section 3, "DAG"). An [Instance] joins at most one DAG at a time.
type DAG struct {
	// Instance is the owning instance.
	Instance *Instance

	// ID is the 128-bit DODAGID advertised in DIOs for this DAG.
	ID [16]byte

	// Version is the DODAG version counter, compared with
	// [lollipopGreaterThan].
	Version uint8

	// Rank is this node's own rank within the DAG, computed by the
	// instance's Objective Function.
	Rank uint16

	// Grounded reports whether the DAG is grounded to a valid goal, as
	// advertised in the G-flag of the last accepted DIO.
	Grounded bool

	// Preference is the operator-assigned DAG preference (0-7, higher is
	// more preferred), from the last accepted DAG Configuration
	// suboption.
	Preference uint8

	// Config is the last accepted DAG Configuration. It's nil until a
	// DIO carrying one is accepted.
	Config *DAGConfiguration

	// Prefix is the last accepted Prefix Information, used to derive the
	// node's global address. It's nil until a DIO carrying one is
	// accepted.
	Prefix *PrefixInformation

	// Joined reports whether the node has a usable rank in this DAG
	// (spec.md section 3, "Joined"). A DAG under construction (e.g.
	// before any parent has been accepted) is not Joined.
	Joined bool

	// Parents holds every candidate or preferred parent, keyed by
	// neighbour-table key.
	Parents map[NeighborKey]*Parent

	// PreferredParent is the parent currently used as next hop toward
	// the root. It's nil when the DAG has no usable parent.
	PreferredParent *Parent
}

// newDAG returns a DAG with an initialized parent set, owned by inst.
func newDAG(inst *Instance, id [16]byte, version uint8) (d *DAG) {
	return &DAG{
		Instance: inst,
		ID:       id,
		Version:  version,
		Rank:     InfiniteRank,
		Parents:  map[NeighborKey]*Parent{},
	}
}

// ParentByKey returns the parent keyed by key, if any is currently
// tracked.
func (d *DAG) ParentByKey(key NeighborKey) (p *Parent, ok bool) {
	p, ok = d.Parents[key]

	return p, ok
}

// AddParent inserts or replaces the parent entry for key and returns it.
func (d *DAG) AddParent(key NeighborKey, rank uint16) (p *Parent) {
	p = &Parent{
		DAG:  d,
		Key:  key,
		Rank: rank,
	}
	d.Parents[key] = p

	return p
}

// RemoveParent deletes the parent entry for key. If it was the preferred
// parent, the preferred parent is cleared; the caller is responsible for
// re-running parent selection afterward.
func (d *DAG) RemoveParent(key NeighborKey) {
	p, ok := d.Parents[key]
	if !ok {
		return
	}

	delete(d.Parents, key)
	if d.PreferredParent == p {
		d.PreferredParent = nil
	}
}

// UsableParents returns every tracked parent that hasn't been poisoned,
// sorted by neighbour key so that callers reducing the set pairwise
// (e.g. [OF0.BestParent], [MRHOF.BestParent]) get a reproducible result
// regardless of map iteration order.
func (d *DAG) UsableParents() (parents []*Parent) {
	for _, p := range d.Parents {
		if !p.IsUnreachable() {
			parents = append(parents, p)
		}
	}

	slices.SortFunc(parents, func(a, b *Parent) int {
		return strings.Compare(string(a.Key), string(b.Key))
	})

	return parents
}
