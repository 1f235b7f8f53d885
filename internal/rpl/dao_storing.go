package rpl

import "time"

// infiniteLifetime stands in for RFC 6550's legacy "infinite lifetime"
// pair (0xFF ticks, 0xFFFF-second unit): rather than compute a literal
// ~193-day duration from those two bytes, treat them as meaning "never
// expires" the way most storing-mode implementations interoperate with
// legacy roots.
const infiniteLifetime = 1<<63 - 1

// handleDAOBody decodes an inbound DAO and dispatches it to the
// storing- or non-storing-mode handler according to the owning
// instance's Mode of Operation (spec.md section 4.6, section 4.7).
func (e *Engine) handleDAOBody(srcKey NeighborKey, body []byte) {
	dao, err := DecodeDAO(body)
	if err != nil {
		e.malformed(0, CodeDAO, err)

		return
	}

	inst, ok := e.instanceOrDrop(dao.InstanceID)
	if !ok {
		e.dropped(dao.InstanceID, errUnknownInstance)

		return
	}

	if dao.HasDODAGID {
		switch {
		case inst.DAG == nil:
			e.dropped(dao.InstanceID, errNoDAG)

			return
		case dao.DODAGID != inst.DAG.ID:
			e.dropped(dao.InstanceID, errDAGIDMismatch)

			return
		}
	}

	if dao.Target == nil || dao.Transit == nil {
		e.malformed(dao.InstanceID, CodeDAO, errMalformedMessage)

		return
	}

	switch inst.Config.MOP {
	case MOPNonStoring:
		e.handleDAONonStoring(inst, srcKey, dao)
	default:
		e.handleDAOStoring(dao.InstanceID, inst, srcKey, dao)
	}
}

// handleDAOStoring implements spec.md section 4.6's ten-step storing-mode
// DAO handler.
func (e *Engine) handleDAOStoring(id uint8, inst *Instance, srcKey NeighborKey, dao DAO) {
	dag := inst.DAG

	// Step 3: loop detection.
	if dag != nil {
		if p, ok := dag.ParentByKey(srcKey); ok {
			selfDAGRank := DAGRank(inst.Rank(), inst.Config.resolvedMinHopRankIncrease())
			parentDAGRank := DAGRank(p.Rank, inst.Config.resolvedMinHopRankIncrease())
			if parentDAGRank < selfDAGRank || p == dag.PreferredParent {
				p.Poison()
				inst.Stats.LoopsDetected++

				return
			}
		}
	}

	target := *dao.Target
	transit := *dao.Transit

	// Step 5: No-Path DAO.
	if transit.PathLifetime == 0 {
		e.handleNoPathDAO(id, inst, srcKey, dao, target, transit)

		return
	}

	// Step 6: admission.
	if !e.neighbors.Contains(srcKey) && !e.neighbors.Admit(srcKey) {
		inst.Stats.AdmissionFailures++
		e.dropped(id, errAdmissionFailed)

		if dao.AckRequest {
			status := StatusUnableToAccept
			if inst.Config.IsRoot {
				status = StatusUnableToAddAtRoot
			}
			e.out.SendDAOACK(id, string(srcKey), AckMessage{
				InstanceID: id,
				Sequence:   dao.Sequence,
				Status:     status,
			})
		}

		return
	}

	// Step 7: efficient NPDAO / DCO bookkeeping.
	existing, hadRoute := e.routes.Lookup(target)

	var oldNextHop NeighborKey
	nextHopChanged := false
	if hadRoute && existing.NextHop != srcKey {
		oldNextHop = existing.NextHop
		nextHopChanged = true
	}

	lifetime := dao.transitLifetime(inst.Config.LifetimeUnit, inst.Config.DefaultLifetime)

	route := Route{
		Target:       target,
		NextHop:      srcKey,
		PathSequence: transit.PathSequence,
		Lifetime:     lifetime,
		State:        RouteActive,
		DAOSeqnoIn:   dao.Sequence,
	}
	if hadRoute {
		route.DAOSeqnoOut = existing.DAOSeqnoOut
		route.DAOPending = existing.DAOPending
	}
	e.routes.Add(route)
	e.out.InstallRoute(id, route)
	inst.HasDownwardRoute = true

	// Step 8: ACK eligibility.
	ackNow := inst.Config.IsRoot || (hadRoute && existing.DAOSeqnoIn == dao.Sequence)

	if ackNow {
		if dao.AckRequest {
			e.out.SendDAOACK(id, string(srcKey), AckMessage{
				InstanceID: id,
				Sequence:   dao.Sequence,
				Status:     StatusUnconditionalAccept,
			})
		}
	} else if !inst.Config.IsRoot && dag != nil && dag.PreferredParent != nil {
		// Step 9: forward upward.
		e.forwardDAOUpward(id, inst, dag, target, transit, dao.Sequence, route.DAOPending, route.DAOSeqnoOut)
	}

	// Step 10: proactive DCO toward the stale next hop.
	if nextHopChanged {
		e.sendDCO(id, inst, oldNextHop, target, transit.PathSequence)
		inst.Stats.DCOsSent++
	}
}

// transitLifetime converts the Transit suboption's lifetime ticks into a
// wall-clock duration using the instance's configured lifetime unit.
func (dao DAO) transitLifetime(lifetimeUnit uint16, defaultLifetime uint8) (d time.Duration) {
	ticks := dao.Transit.PathLifetime
	if ticks == legacyDefaultLifetime && lifetimeUnit == legacyLifetimeUnit {
		return infiniteLifetime
	}

	return time.Duration(ticks) * time.Duration(lifetimeUnit) * time.Second
}

// handleNoPathDAO implements spec.md section 4.6 step 5: poison the
// matching route for NoPathRemovalDelay, forward the No-Path upward
// with a freshly assigned outgoing sequence, then ACK.
func (e *Engine) handleNoPathDAO(id uint8, inst *Instance, srcKey NeighborKey, dao DAO, target Target, transit Transit) {
	if existing, ok := e.routes.Lookup(target); ok {
		existing.State = RouteNoPathReceived
		existing.Lifetime = NoPathRemovalDelay
		e.routes.Add(existing)
		e.out.InstallRoute(id, existing)

		if !inst.Config.IsRoot && inst.DAG != nil && inst.DAG.PreferredParent != nil {
			e.forwardDAOUpward(id, inst, inst.DAG, target, transit, dao.Sequence, false, existing.DAOSeqnoOut)
			inst.Stats.NoPathForwarded++
		}
	}

	if dao.AckRequest {
		e.out.SendDAOACK(id, string(srcKey), AckMessage{
			InstanceID: id,
			Sequence:   dao.Sequence,
			Status:     StatusUnconditionalAccept,
		})
	}
}

// forwardDAOUpward sends a DAO for target toward dag's preferred parent,
// reusing pendingOutSeqno when retransmitting an already-pending forward
// rather than minting a fresh one (spec.md section 4.6 step 9).
func (e *Engine) forwardDAOUpward(
	id uint8,
	inst *Instance,
	dag *DAG,
	target Target,
	transit Transit,
	_ uint8,
	pending bool,
	pendingOutSeqno uint8,
) {
	seq := pendingOutSeqno
	if !pending {
		seq = inst.NextDAOSeqno()
	}

	fwd := DAO{
		InstanceID: id,
		AckRequest: true,
		Sequence:   seq,
		Target:     &target,
		Transit:    &transit,
	}

	route, ok := e.routes.Lookup(target)
	if ok {
		route.DAOSeqnoOut = seq
		route.DAOPending = true
		e.routes.Add(route)
	}

	e.out.SendDAO(id, string(dag.PreferredParent.Key), fwd)
}

// sendDCO builds and sends a DCO toward dst, invalidating target with
// pathSeq (spec.md section 4.6 step 10, section 4.9 "DCO output"). The
// DCO header's own Sequence is a fresh lollipop value from inst's DCO
// sequence counter, distinct from pathSeq.
func (e *Engine) sendDCO(id uint8, inst *Instance, dst NeighborKey, target Target, pathSeq uint8) {
	e.out.SendDCO(id, string(dst), DCO{
		InstanceID: id,
		Sequence:   inst.NextDCOSeqno(),
		Target:     &target,
		Transit: &Transit{
			PathSequence: pathSeq,
		},
	})
}
