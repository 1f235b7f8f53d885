package rpl

// handleDIOBody decodes and processes an inbound DIO (spec.md section
// 4.5). Unknown instances are dropped silently (spec.md section 7 item
// 2).
func (e *Engine) handleDIOBody(srcKey NeighborKey, body []byte) {
	dio, err := DecodeDIO(body)
	if err != nil {
		e.malformed(0, CodeDIO, err)

		return
	}

	inst, ok := e.instanceOrDrop(dio.InstanceID)
	if !ok {
		e.dropped(dio.InstanceID, errUnknownInstance)

		return
	}

	e.handleDIO(dio.InstanceID, inst, srcKey, dio)
}

func (e *Engine) handleDIO(id uint8, inst *Instance, srcKey NeighborKey, dio DIO) {
	if inst.Config.IsRoot {
		// Root nodes are the authority for their own DAG; they never
		// accept a rank or parent from a DIO.
		return
	}

	of := inst.Config.OF

	switch {
	case inst.DAG == nil:
		e.joinDAG(id, inst, of, srcKey, dio)
	case inst.DAG.ID == dio.DODAGID:
		if lollipopGreaterThan(dio.Version, inst.DAG.Version) {
			inst.DAG.Version = dio.Version
		}

		e.acceptParentUpdate(id, inst, of, srcKey, dio)
	default:
		e.considerAlternateDAG(id, inst, of, srcKey, dio)
	}
}

// joinDAG handles the first DIO seen for an instance with no current
// DAG: it creates the DAG, admits the sender as a candidate parent, and
// computes an initial rank.
func (e *Engine) joinDAG(id uint8, inst *Instance, of ObjectiveFunction, srcKey NeighborKey, dio DIO) {
	if dio.Rank == InfiniteRank {
		// Nothing useful to join.
		return
	}

	if !e.neighbors.Contains(srcKey) && !e.neighbors.Admit(srcKey) {
		inst.Stats.AdmissionFailures++
		e.dropped(id, errAdmissionFailed)

		return
	}

	dag := newDAG(inst, dio.DODAGID, dio.Version)
	applyDIOConfig(dag, dio)
	inst.DAG = dag

	p := dag.AddParent(srcKey, dio.Rank)
	of.UpdateMetricContainer(p, dio.Metric)

	e.selectPreferredParent(id, inst, of)
}

// acceptParentUpdate folds a DIO from the currently-joined DAG into the
// parent set, applying the no-upward-loop invariant (spec.md section 3)
// before re-running parent selection.
func (e *Engine) acceptParentUpdate(id uint8, inst *Instance, of ObjectiveFunction, srcKey NeighborKey, dio DIO) {
	dag := inst.DAG
	applyDIOConfig(dag, dio)

	p, ok := dag.ParentByKey(srcKey)
	if !ok {
		if dio.Rank == InfiniteRank {
			return
		}

		if !e.neighbors.Contains(srcKey) && !e.neighbors.Admit(srcKey) {
			inst.Stats.AdmissionFailures++
			e.dropped(id, errAdmissionFailed)

			return
		}

		p = dag.AddParent(srcKey, dio.Rank)
	} else {
		p.Rank = dio.Rank
		p.Flags |= ParentFlagUpdated
	}

	of.UpdateMetricContainer(p, dio.Metric)

	// No-upward-loop invariant: a parent's DAG rank must stay strictly
	// below ours, or it's poisoned.
	if dio.Rank != InfiniteRank && inst.Rank() != InfiniteRank {
		parentDAGRank := DAGRank(dio.Rank, inst.Config.resolvedMinHopRankIncrease())
		selfDAGRank := DAGRank(inst.Rank(), inst.Config.resolvedMinHopRankIncrease())
		if parentDAGRank >= selfDAGRank {
			p.Poison()
		}
	}

	e.selectPreferredParent(id, inst, of)
}

// considerAlternateDAG compares the currently joined DAG against a
// candidate described by a DIO for a different DODAGID within the same
// instance, switching only when the OF's best_dag prefers the
// candidate (spec.md section 4.3).
func (e *Engine) considerAlternateDAG(id uint8, inst *Instance, of ObjectiveFunction, srcKey NeighborKey, dio DIO) {
	if dio.Rank == InfiniteRank {
		return
	}

	candidate := newDAG(inst, dio.DODAGID, dio.Version)
	applyDIOConfig(candidate, dio)
	candidate.Rank = dio.Rank

	if of.BestDAG(inst.DAG, candidate) != candidate {
		return
	}

	if !e.neighbors.Contains(srcKey) && !e.neighbors.Admit(srcKey) {
		inst.Stats.AdmissionFailures++
		e.dropped(id, errAdmissionFailed)

		return
	}

	p := candidate.AddParent(srcKey, dio.Rank)
	of.UpdateMetricContainer(p, dio.Metric)
	inst.DAG = candidate

	e.selectPreferredParent(id, inst, of)
}

// selectPreferredParent re-runs OF parent selection and rank
// computation, updating Joined and notifying the DIO policy when the
// outcome is "inconsistent" (parent or rank changed).
func (e *Engine) selectPreferredParent(id uint8, inst *Instance, of ObjectiveFunction) {
	dag := inst.DAG
	prevParent := dag.PreferredParent
	prevRank := dag.Rank

	best := of.BestParent(dag)
	if best != prevParent {
		inst.Stats.ParentSwitches++
	}
	dag.PreferredParent = best

	dag.Rank = of.CalculateRank(dag)
	dag.Joined = dag.Rank != InfiniteRank

	if e.dioPolicy != nil {
		consistent := best == prevParent && dag.Rank == prevRank
		e.dioPolicy.OnStateChanged(id, consistent)
	}

	if dag.PreferredParent == nil && e.repair != nil {
		e.repair.RequestLocalRepair(id, dag.ID)
	}
}

// applyDIOConfig copies the DAG-wide fields a DIO carries into dag. It's
// called on every accepted DIO for the joined DAG, not only the first.
func applyDIOConfig(dag *DAG, dio DIO) {
	dag.Grounded = dio.Grounded

	dag.Preference = dio.Preference

	if dio.Config != nil {
		dag.Config = dio.Config
	}

	if dio.Prefix != nil {
		dag.Prefix = dio.Prefix
	}
}

// emitDIO builds and sends a unicast or multicast DIO for inst,
// following spec.md section 4.5's outbound rules: leaf nodes never
// multicast, a unicast reply with no DAG carries INFINITE_RANK, a leaf
// node's unicast reply always carries INFINITE_RANK regardless of its
// own joined rank, and the DAG Configuration suboption is always
// present while the Metric Container and Prefix Information are
// conditional.
func (e *Engine) emitDIO(id uint8, inst *Instance, dst string) {
	if dst == "" && inst.Config.LeafOnly {
		return
	}

	dio := DIO{InstanceID: id}

	if inst.DAG == nil {
		dio.Rank = InfiniteRank
		e.out.SendDIO(id, dst, dio)

		return
	}

	dag := inst.DAG
	dio.Version = dag.Version
	dio.Rank = dag.Rank
	if dst != "" && inst.Config.LeafOnly {
		dio.Rank = InfiniteRank
	}
	dio.Grounded = dag.Grounded
	dio.MOP = inst.Config.MOP
	dio.Preference = dag.Preference
	dio.DODAGID = dag.ID

	if dst == "" && inst.Config.IsRoot && inst.Config.RefreshDAORoutes {
		inst.DTSNOut = lollipopIncrement(inst.DTSNOut)
	}
	dio.DTSN = inst.DTSNOut

	dio.Config = dag.Config
	if dio.Config == nil {
		dio.Config = &DAGConfiguration{
			DIOIntervalDoubling: inst.Config.DIOIntervalDoubling,
			DIOIntervalMin:      inst.Config.DIOIntervalMin,
			DIORedundancy:       inst.Config.DIORedundancy,
			MaxRankIncrease:     inst.Config.MaxRankIncrease,
			MinHopRankIncrease:  inst.Config.resolvedMinHopRankIncrease(),
			OCP:                 inst.Config.OF.OCP(),
			DefaultLifetime:     inst.Config.DefaultLifetime,
			LifetimeUnit:        inst.Config.LifetimeUnit,
		}
	}

	if mc, ok := inst.Config.OF.OwnMetricContainer(dag); ok {
		dio.Metric = &mc
	}

	if dag.Prefix != nil {
		dio.Prefix = dag.Prefix
	}

	e.out.SendDIO(id, dst, dio)
}
