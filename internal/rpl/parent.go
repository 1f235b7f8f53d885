package rpl

// ParentFlags records per-parent state bits (spec.md section 3).
type ParentFlags uint8

// Updated marks a parent whose advertised rank was just changed by the
// handler that's currently running (e.g. poisoned to [InfiniteRank] by
// loop detection), so callers can tell freshly-invalidated parents from
// ones that were already bad.
const ParentFlagUpdated ParentFlags = 1 << 0

// Parent is a candidate or actual next hop toward the DODAG root. Parents
// are non-owning views into the [NeighborCache]: when the cache evicts
// their key, the owning [DAG] removes them (spec.md section 3).
type Parent struct {
	// DAG is the DAG this parent belongs to.
	DAG *DAG

	// Key identifies the parent's neighbour-table entry.
	Key NeighborKey

	// Rank is the parent's last-advertised rank.
	Rank uint16

	// LinkMetric is MRHOF's EWMA-smoothed ETX estimate for this parent,
	// in [ETXDivisor] units. OF0 ignores this field and reads
	// [LinkStats] instead.
	LinkMetric uint16

	// Metric is the parent's last-advertised metric container, used when
	// an OF negotiates path metrics other than its own link estimate.
	Metric MetricContainer

	Flags ParentFlags
}

// IsUpdated reports whether [ParentFlagUpdated] is set.
func (p *Parent) IsUpdated() (ok bool) {
	return p.Flags&ParentFlagUpdated != 0
}

// Poison sets p's rank to [InfiniteRank] and marks it updated, per the
// loop-detection and "parent evicted" paths in spec.md sections 4.6 and
// 8.
func (p *Parent) Poison() {
	p.Rank = InfiniteRank
	p.Flags |= ParentFlagUpdated
}

// IsUnreachable reports whether p has been poisoned.
func (p *Parent) IsUnreachable() (ok bool) {
	return p.Rank == InfiniteRank
}
