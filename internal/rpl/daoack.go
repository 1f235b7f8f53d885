package rpl

import "time"

// EmitOwnDAO originates this node's own upward reachability advertisement
// for target with the given lifetime (in ticks of the instance's
// lifetime unit), arming the retransmission controller described in
// spec.md section 4.8. Any previously pending DAO for this instance is
// superseded.
func (e *Engine) EmitOwnDAO(id uint8, target Target, lifetimeTicks uint8) {
	inst, ok := e.instanceOrDrop(id)
	switch {
	case !ok:
		e.dropped(id, errUnknownInstance)

		return
	case inst.DAG == nil:
		e.dropped(id, errNoDAG)

		return
	case inst.DAG.PreferredParent == nil:
		e.dropped(id, errNoPreferredParent)

		return
	}

	if inst.daoRetransCancel != nil {
		inst.daoRetransCancel()
		inst.daoRetransCancel = nil
	}

	seq := inst.NextDAOSeqno()
	inst.MyDAOTransmissions = 0

	e.sendOwnDAO(id, inst, target, lifetimeTicks, seq)
	e.armDAORetransmission(id, inst, target, lifetimeTicks, seq)
}

func (e *Engine) sendOwnDAO(id uint8, inst *Instance, target Target, lifetimeTicks uint8, seq uint8) {
	e.out.SendDAO(id, string(inst.DAG.PreferredParent.Key), DAO{
		InstanceID: id,
		AckRequest: true,
		Sequence:   seq,
		Target:     &target,
		Transit: &Transit{
			PathSequence: seq,
			PathLifetime: lifetimeTicks,
		},
	})
}

// armDAORetransmission schedules a single retransmission attempt for the
// DAO identified by seq, per spec.md section 4.8's randomized backoff.
func (e *Engine) armDAORetransmission(id uint8, inst *Instance, target Target, lifetimeTicks uint8, seq uint8) {
	timeout := inst.Config.resolvedDAORetransmissionTimeout()

	inst.daoRetransCancel = e.timer.After(timeout, func() {
		e.onDAORetransmissionFire(id, inst, target, lifetimeTicks, seq, timeout)
	})
}

func (e *Engine) onDAORetransmissionFire(
	id uint8,
	inst *Instance,
	target Target,
	lifetimeTicks uint8,
	seq uint8,
	prevTimeout time.Duration,
) {
	if inst.MyDAOSeqno != seq {
		// A newer DAO superseded this one; nothing to do.
		return
	}

	maxRetrans := inst.Config.resolvedDAOMaxRetransmissions()
	if inst.MyDAOTransmissions >= maxRetrans {
		e.onDAORetransmissionExhausted(id, inst, lifetimeTicks)

		return
	}

	inst.MyDAOTransmissions++
	inst.Stats.DAORetransmissions++

	e.sendOwnDAO(id, inst, target, lifetimeTicks, seq)

	next := Jitter(prevTimeout/2, prevTimeout)
	inst.daoRetransCancel = e.timer.After(next, func() {
		e.onDAORetransmissionFire(id, inst, target, lifetimeTicks, seq, next)
	})
}

// onDAORetransmissionExhausted implements spec.md section 4.8's
// exhaustion policy: silently give up against a legacy root advertising
// the 0xFF/0xFFFF infinite-lifetime pair, otherwise notify the OF with
// [statusTimeout] and request local repair.
func (e *Engine) onDAORetransmissionExhausted(id uint8, inst *Instance, lifetimeTicks uint8) {
	inst.daoRetransCancel = nil

	if lifetimeTicks == legacyDefaultLifetime && inst.Config.LifetimeUnit == legacyLifetimeUnit {
		return
	}

	var p *Parent
	if inst.DAG != nil {
		p = inst.DAG.PreferredParent
	}

	inst.Config.OF.OnDAOAck(p, statusTimeout)

	if inst.DAG != nil && e.repair != nil {
		inst.Stats.DAORepairsTriggered++
		e.repair.RequestLocalRepair(id, inst.DAG.ID)
	}
}

// handleDAOACKBody decodes an inbound DAO-ACK/DCO-ACK-shaped message and
// dispatches it.
func (e *Engine) handleDAOACKBody(srcKey NeighborKey, body []byte) {
	ack, err := DecodeAck(body)
	if err != nil {
		e.malformed(0, CodeDAOACK, err)

		return
	}

	inst, ok := e.instanceOrDrop(ack.InstanceID)
	if !ok {
		e.dropped(ack.InstanceID, errUnknownInstance)

		return
	}

	e.handleDAOACK(ack.InstanceID, inst, srcKey, ack)
}

// handleDAOACK implements spec.md section 4.8's matching and forwarding
// rules.
func (e *Engine) handleDAOACK(id uint8, inst *Instance, srcKey NeighborKey, ack AckMessage) {
	if ack.Sequence == inst.MyDAOSeqno && inst.daoRetransCancel != nil {
		inst.daoRetransCancel()
		inst.daoRetransCancel = nil
		inst.HasDownwardRoute = StatusIsSuccess(ack.Status)
		inst.MyDAOTransmissions = 0

		var p *Parent
		if inst.DAG != nil {
			p = inst.DAG.PreferredParent
		}
		inst.Config.OF.OnDAOAck(p, ack.Status)

		if !StatusIsSuccess(ack.Status) && inst.Config.RepairOnNACK && inst.DAG != nil && e.repair != nil {
			inst.Stats.DAORepairsTriggered++
			e.repair.RequestLocalRepair(id, inst.DAG.ID)
		}

		return
	}

	if inst.Config.MOP == MOPNonStoring {
		return
	}

	e.forwardDAOACKDown(id, ack, srcKey)
}

// forwardDAOACKDown implements spec.md section 4.8's forwarding path: a
// DAO-ACK whose sequence doesn't match our own pending DAO is for a
// route we forwarded upward on a child's behalf.
func (e *Engine) forwardDAOACKDown(id uint8, ack AckMessage, _ NeighborKey) {
	for _, r := range e.routes.All() {
		if !r.DAOPending || r.DAOSeqnoOut != ack.Sequence {
			continue
		}

		e.out.SendDAOACK(id, string(r.NextHop), AckMessage{
			InstanceID: id,
			Sequence:   r.DAOSeqnoIn,
			Status:     ack.Status,
		})

		r.DAOPending = false
		if !StatusIsSuccess(ack.Status) {
			e.routes.Remove(r.Target)
			e.out.WithdrawRoute(id, r.Target)
		} else {
			e.routes.Add(r)
		}

		return
	}
}
