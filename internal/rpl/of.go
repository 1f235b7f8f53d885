package rpl

// ObjectiveFunction implements the rank and parent-selection policy for
// an instance (spec.md section 4.2). An instance has exactly one OF,
// selected by its Objective Code Point (OCP) and fixed for the life of
// the instance.
type ObjectiveFunction interface {
	// Name returns a human-readable identifier for logging.
	Name() (name string)

	// OCP returns the Objective Code Point this OF implements, as
	// advertised in the DAG Configuration suboption (spec.md section
	// 4.2: "OCP 0 is OF0, OCP 1 is MRHOF").
	OCP() (ocp uint16)

	// CalculateRank computes this node's rank in dag, given its current
	// set of usable parents. It returns [InfiniteRank] when no parent
	// yields a usable rank.
	CalculateRank(dag *DAG) (rank uint16)

	// BestParent chooses the preferred parent from dag's usable parent
	// set, applying the OF's hysteresis rule against the
	// currently-preferred parent so as not to flap between
	// near-equivalent candidates (spec.md section 4.2, section 8 "OF0
	// hysteresis" and "MRHOF switch"). It returns nil when dag has no
	// usable parent.
	BestParent(dag *DAG) (p *Parent)

	// BestDAG chooses the more preferable of two DAGs within the same
	// instance, used when a node hears DIOs from multiple DODAGs for one
	// RPLInstanceID (spec.md section 4.2).
	BestDAG(a, b *DAG) (best *DAG)

	// OnLinkFeedback updates the OF's per-parent link quality state in
	// response to a transmission outcome covering numtx attempts
	// (spec.md section 4.3.2, section 6 "link_stats_packet_sent"). OF0
	// is a no-op here since it reads [LinkStats] directly instead.
	OnLinkFeedback(p *Parent, status TxStatus, numtx uint8)

	// UpdateMetricContainer refreshes p's recorded metric container from
	// a freshly-accepted DIO's metric suboption, if the OF uses one.
	UpdateMetricContainer(p *Parent, mc *MetricContainer)

	// OwnMetricContainer computes the metric container this node should
	// advertise in its own outbound DIOs for dag (spec.md section 4.5:
	// "include a Metric Container iff the OF requires one"). ok is false
	// when the OF doesn't use a metric container (OF0) or has nothing to
	// advertise yet (no preferred parent and not root).
	OwnMetricContainer(dag *DAG) (mc MetricContainer, ok bool)

	// OnDAOAck notifies the OF of the outcome of this node's own
	// outstanding DAO, including the synthetic [statusTimeout] status on
	// retransmission exhaustion (spec.md section 4.3, section 4.8).
	// Neither OF0 nor MRHOF currently reacts to it; it exists so a future
	// OF can, e.g., penalize a parent whose DAOs keep failing.
	OnDAOAck(p *Parent, status uint8)
}
