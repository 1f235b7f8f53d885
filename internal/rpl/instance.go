package rpl

import "time"

// InstanceConfig holds the fixed, operator-supplied parameters of an
// RPLInstance (spec.md section 3, "Instance"). It's immutable for the
// life of the instance; changing a parameter means rejoining.
type InstanceConfig struct {
	// ID is the RPLInstanceID this configuration applies to.
	ID uint8

	// IsRoot marks this node as the DODAG root for the instance. Root
	// nodes never process DIOs as a reason to change rank and always
	// have a rank of [rootRank].
	IsRoot bool

	// MOP is the Mode of Operation this node advertises (or, for a
	// non-root node, is willing to join).
	MOP ModeOfOperation

	// OF is the Objective Function implementation selected by OCP.
	OF ObjectiveFunction

	// MinHopRankIncrease is RFC 6550's MinHopRankIncrease. Zero means
	// [DefaultMinHopRankIncrease].
	MinHopRankIncrease uint16

	// MaxRankIncrease is RFC 6550's MaxRankIncrease, advertised in the
	// DAG Configuration suboption of this node's DIOs. The core does not
	// enforce it: a node's rank is not bounded by it while it keeps its
	// preferred parent.
	MaxRankIncrease uint16

	// DIOIntervalMin and DIOIntervalDoubling parameterize the trickle
	// timer driving DIO emission (spec.md section 4.4).
	DIOIntervalMin      uint8
	DIOIntervalDoubling uint8
	DIORedundancy       uint8

	// DefaultLifetime and LifetimeUnit are the root-advertised downward
	// route lifetime defaults, carried in the DAG Configuration
	// suboption.
	DefaultLifetime uint8
	LifetimeUnit    uint16

	// MetricType selects the aggregated metric this node advertises.
	MetricType MetricContainerType

	// DAOMaxRetransmissions and DAORetransmissionTimeout parameterize the
	// DAO-ACK retransmission controller (spec.md section 4.8). Zero means
	// the package defaults.
	DAOMaxRetransmissions    int
	DAORetransmissionTimeout time.Duration

	// LeafOnly suppresses multicast DIO emission and the trickle reset a
	// multicast DIS would trigger, and makes unicast DIO replies carry
	// [InfiniteRank] (RPL_LEAF_ONLY, spec.md section 6).
	LeafOnly bool

	// RefreshDAORoutes increments DTSNOut on multicast DIO emission when
	// this node is root (RPL_DIO_REFRESH_DAO_ROUTES, spec.md section
	// 4.5).
	RefreshDAORoutes bool

	// RepairOnNACK enables local repair on DAO-ACK failure status, not
	// only on retransmission exhaustion (RPL_REPAIR_ON_DAO_NACK, spec.md
	// section 6).
	RepairOnNACK bool
}

// resolvedMinHopRankIncrease returns c.MinHopRankIncrease, or
// [DefaultMinHopRankIncrease] if unset.
func (c InstanceConfig) resolvedMinHopRankIncrease() (v uint16) {
	if c.MinHopRankIncrease == 0 {
		return DefaultMinHopRankIncrease
	}

	return c.MinHopRankIncrease
}

// resolvedDAOMaxRetransmissions returns c.DAOMaxRetransmissions, or
// [DefaultDAOMaxRetransmissions] if unset.
func (c InstanceConfig) resolvedDAOMaxRetransmissions() (v int) {
	if c.DAOMaxRetransmissions == 0 {
		return DefaultDAOMaxRetransmissions
	}

	return c.DAOMaxRetransmissions
}

// resolvedDAORetransmissionTimeout returns c.DAORetransmissionTimeout, or
// [DefaultDAORetransmissionTimeout] if unset.
func (c InstanceConfig) resolvedDAORetransmissionTimeout() (v time.Duration) {
	if c.DAORetransmissionTimeout == 0 {
		return DefaultDAORetransmissionTimeout
	}

	return c.DAORetransmissionTimeout
}

// rootRank returns the rank a root node advertises for itself: exactly
// one MinHopRankIncrease, per spec.md section 3 ("the root has rank =
// min_hoprankinc").
func rootRank(minHopRankIncrease uint16) (rank uint16) {
	return minHopRankIncrease
}

// InstanceStats accumulates the counters spec.md section 6 requires the
// core to expose for observability (malformed messages, admission
// failures, retransmissions, and so on). Every field is monotonically
// increasing for the life of the instance.
type InstanceStats struct {
	MalformedMessages   uint64
	AdmissionFailures   uint64
	LoopsDetected       uint64
	NoPathForwarded     uint64
	DCOsSent            uint64
	DAORetransmissions  uint64
	DAORepairsTriggered uint64
	ParentSwitches      uint64
}

// Instance is a node's runtime state for one RPLInstanceID (spec.md
// section 3, "Instance"). It owns at most one joined [DAG] at a time.
type Instance struct {
	Config InstanceConfig

	// DAG is the currently joined or under-construction DAG, or nil if
	// the instance hasn't joined anything yet.
	DAG *DAG

	// DTSNOut is this node's own Destination Advertisement Trigger
	// Sequence Number, incremented to solicit DAOs from children (spec.md
	// section 4.5).
	DTSNOut uint8

	// HasDownwardRoute is set when this node installs a downward route
	// from a child's storing-mode DAO, and set to the success of the
	// status when a DAO-ACK for this node's own outstanding DAO arrives.
	// Local repair clears it.
	HasDownwardRoute bool

	// MyDAOSeqno is the lollipop sequence number of the DAO this node
	// last sent advertising its own reachability upward (spec.md section
	// 4.2 "Lollipop counters").
	MyDAOSeqno uint8

	// MyDAOTransmissions counts consecutive retransmissions of the
	// outstanding DAO awaiting acknowledgement, reset to zero on receipt
	// of a matching DAO-ACK.
	MyDAOTransmissions int

	// MyDCOSeqno is the lollipop sequence number of the DCO this node
	// last originated to invalidate a downward route (spec.md section
	// 4.9 "DCO output"), independent of the path sequence it carries.
	MyDCOSeqno uint8

	Stats InstanceStats

	// daoRetransCancel cancels the in-flight DAO retransmission timer, if
	// any (spec.md section 4.8).
	daoRetransCancel func()
}

// NewInstance returns an Instance ready to join a DAG, with rank set to
// [InfiniteRank] until one is computed.
func NewInstance(cfg InstanceConfig) (inst *Instance) {
	return &Instance{Config: cfg}
}

// Rank returns the instance's current rank, or [InfiniteRank] if it
// hasn't joined a DAG.
func (inst *Instance) Rank() (rank uint16) {
	if inst.DAG == nil {
		return InfiniteRank
	}

	return inst.DAG.Rank
}

// Joined reports whether the instance currently has a usable rank in a
// DAG.
func (inst *Instance) Joined() (ok bool) {
	return inst.DAG != nil && inst.DAG.Joined
}

// NextDAOSeqno advances and returns the instance's own DAO sequence
// number using lollipop arithmetic (spec.md section 4.2).
func (inst *Instance) NextDAOSeqno() (seq uint8) {
	inst.MyDAOSeqno = lollipopIncrement(inst.MyDAOSeqno)

	return inst.MyDAOSeqno
}

// NextDCOSeqno advances and returns the instance's own DCO sequence
// number using lollipop arithmetic (spec.md section 4.2), distinct from
// the path sequence a DCO also carries.
func (inst *Instance) NextDCOSeqno() (seq uint8) {
	inst.MyDCOSeqno = lollipopIncrement(inst.MyDCOSeqno)

	return inst.MyDCOSeqno
}
