package rpl

// OF0 implements RFC 6552's Objective Function Zero: rank is derived
// from a step-function of the parent's link ETX rather than a smoothed
// path metric, and parent switches require a minimum rank improvement to
// avoid flapping (spec.md section 4.3.1, "OF0").
type OF0 struct {
	// MinHopRankIncrease mirrors the instance's configured value; it's
	// duplicated here because the OF is constructed before the owning
	// Instance in some wiring paths.
	MinHopRankIncrease uint16

	// Links supplies per-neighbour ETX. OF0 reads it directly rather than
	// keeping a smoothed estimate of its own; only MRHOF tracks an EWMA
	// on [Parent.LinkMetric].
	Links LinkStats
}

// NewOF0 returns an OF0 bound to links, using minHopRankIncrease (or
// [DefaultMinHopRankIncrease] if zero) to scale rank increases.
func NewOF0(links LinkStats, minHopRankIncrease uint16) (of *OF0) {
	if minHopRankIncrease == 0 {
		minHopRankIncrease = DefaultMinHopRankIncrease
	}

	return &OF0{MinHopRankIncrease: minHopRankIncrease, Links: links}
}

// Name implements the [ObjectiveFunction] interface for *OF0.
func (of *OF0) Name() (name string) { return "OF0" }

// OCP implements the [ObjectiveFunction] interface for *OF0.
func (of *OF0) OCP() (ocp uint16) { return 0 }

// of0StepOfRankMin and of0StepOfRankMax bound the acceptable
// step-of-rank range (spec.md section 4.3.1): a parent whose computed
// step falls outside [1,9] is not admissible.
const (
	of0StepOfRankMin = 1
	of0StepOfRankMax = 9
)

// stepOfRank computes RFC 6552's STEP_OF_RANK from a link ETX (in
// [ETXDivisor] units): `(3*etx)/divisor - 2`. ok is false when the
// result falls outside [1,9], meaning the link is unacceptable.
func stepOfRank(etx uint16) (step int32, ok bool) {
	step = 3*int32(etx)/ETXDivisor - 2

	return step, step >= of0StepOfRankMin && step <= of0StepOfRankMax
}

// rankIncrease returns the rank increase OF0 attributes to a hop of etx
// quality, and whether that hop is acceptable at all.
func (of *OF0) rankIncrease(etx uint16) (increase uint16, ok bool) {
	step, ok := stepOfRank(etx)
	if !ok {
		return 0, false
	}

	return uint16(step) * of.MinHopRankIncrease, true
}

// rankVia returns `min(p.rank + rank_increase(p), INFINITE)`, per
// spec.md section 4.3.1. It returns (InfiniteRank, false) when p's link
// is unacceptable or p itself is unreachable.
func (of *OF0) rankVia(p *Parent) (rank uint16, ok bool) {
	if p.Rank == InfiniteRank {
		return InfiniteRank, false
	}

	increase, ok := of.rankIncrease(of.Links.ETX(p.Key))
	if !ok {
		return InfiniteRank, false
	}

	return saturatingAdd(p.Rank, increase), true
}

// of0MinDifferenceNumerator/Denominator express spec.md's MIN_DIFFERENCE
// (1.5 * min_hoprankinc) as an integer ratio to avoid floating point.
const (
	of0MinDifferenceNumerator   = 3
	of0MinDifferenceDenominator = 2
)

func (of *OF0) minDifference() (d uint32) {
	return uint32(of.MinHopRankIncrease) * of0MinDifferenceNumerator / of0MinDifferenceDenominator
}

// score returns `DAG_RANK(p.rank)*min_hoprankinc + p.link_metric`, the
// quantity spec.md section 4.3.1's best_parent compares, reading the
// current ETX from [OF0.Links] as p's link_metric.
func (of *OF0) score(p *Parent) (r uint32) {
	dagRank := uint32(DAGRank(p.Rank, of.MinHopRankIncrease))

	return dagRank*uint32(of.MinHopRankIncrease) + uint32(of.Links.ETX(p.Key))
}

// pairBest implements spec.md section 4.3.1's binary `best_parent(p1,
// p2)`: within [MIN_DIFFERENCE] of each other, the currently preferred
// parent wins; otherwise the lower score wins.
func (of *OF0) pairBest(cur, p1, p2 *Parent) (best *Parent) {
	r1, r2 := of.score(p1), of.score(p2)

	diff := r1 - r2
	if r2 > r1 {
		diff = r2 - r1
	}

	if diff < of.minDifference() && (p1 == cur || p2 == cur) {
		return cur
	}

	if r1 <= r2 {
		return p1
	}

	return p2
}

// CalculateRank implements the [ObjectiveFunction] interface for *OF0.
func (of *OF0) CalculateRank(dag *DAG) (rank uint16) {
	if dag.PreferredParent == nil {
		return InfiniteRank
	}

	rank, _ = of.rankVia(dag.PreferredParent)

	return rank
}

// BestParent implements the [ObjectiveFunction] interface for *OF0,
// reducing the usable parent set pairwise through
// [OF0.pairBest] against the currently preferred parent (spec.md section
// 8, "OF0 hysteresis").
func (of *OF0) BestParent(dag *DAG) (best *Parent) {
	usable := dag.UsableParents()
	if len(usable) == 0 {
		return nil
	}

	cur := dag.PreferredParent
	best = usable[0]
	for _, p := range usable[1:] {
		best = of.pairBest(cur, best, p)
	}

	return best
}

// BestDAG implements the [ObjectiveFunction] interface for *OF0: a
// grounded DAG always beats an ungrounded one, then higher preference
// wins, then lower rank (spec.md section 4.3.1).
func (of *OF0) BestDAG(a, b *DAG) (best *DAG) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}

	if a.Grounded != b.Grounded {
		if a.Grounded {
			return a
		}

		return b
	}

	if a.Preference != b.Preference {
		if a.Preference > b.Preference {
			return a
		}

		return b
	}

	if a.Rank <= b.Rank {
		return a
	}

	return b
}

// OnLinkFeedback implements the [ObjectiveFunction] interface for *OF0.
// OF0 consults [LinkStats] on demand instead of tracking per-transmission
// feedback itself, so this is a no-op.
func (of *OF0) OnLinkFeedback(p *Parent, status TxStatus, numtx uint8) {}

// UpdateMetricContainer implements the [ObjectiveFunction] interface for
// *OF0. OF0 emits no metric container in DIO, so this is a no-op.
func (of *OF0) UpdateMetricContainer(p *Parent, mc *MetricContainer) {}

// OwnMetricContainer implements the [ObjectiveFunction] interface for
// *OF0. OF0 never emits a metric container (spec.md section 4.3.1:
// "no metric container emitted in DIO").
func (of *OF0) OwnMetricContainer(dag *DAG) (mc MetricContainer, ok bool) {
	return MetricContainer{}, false
}

// OnDAOAck implements the [ObjectiveFunction] interface for *OF0. OF0
// doesn't react to DAO outcomes.
func (of *OF0) OnDAOAck(p *Parent, status uint8) {}
