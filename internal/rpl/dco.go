package rpl

// handleDCOBody decodes an inbound DCO and processes it, per spec.md
// section 4.9. DCO is storing-mode only.
func (e *Engine) handleDCOBody(srcKey NeighborKey, body []byte) {
	dco, err := DecodeDCO(body)
	if err != nil {
		e.malformed(0, CodeDCO, err)

		return
	}

	inst, ok := e.instanceOrDrop(dco.InstanceID)
	if !ok {
		e.dropped(dco.InstanceID, errUnknownInstance)

		return
	}

	if inst.Config.MOP == MOPNonStoring {
		return
	}

	e.handleDCO(dco.InstanceID, inst, srcKey, dco)
}

func (e *Engine) handleDCO(id uint8, inst *Instance, srcKey NeighborKey, dco DCO) {
	target := *dco.Target
	pathSeq := dco.Transit.PathSequence

	route, ok := e.routes.Lookup(target)
	switch {
	case ok && lollipopGreaterThan(pathSeq, route.PathSequence):
		e.out.SendDCO(id, string(route.NextHop), DCO(DAO{
			InstanceID: id,
			Sequence:   dco.Sequence,
			Target:     &target,
			Transit:    dco.Transit,
		}))
		e.routes.Remove(target)
		e.out.WithdrawRoute(id, target)

	case !ok && !isOwnGlobalTarget(inst, target):
		e.dropped(id, errRouteNotFound)

		if dco.AckRequest {
			e.out.SendDCOACK(id, string(srcKey), AckMessage{
				InstanceID: id,
				Sequence:   dco.Sequence,
				Status:     StatusNoRouteFound,
			})
		}

		return

	default:
		// Either the target is us, or the incoming path sequence is
		// stale: silently accept.
	}

	if dco.AckRequest {
		e.out.SendDCOACK(id, string(srcKey), AckMessage{
			InstanceID: id,
			Sequence:   dco.Sequence,
			Status:     StatusUnconditionalAccept,
		})
	}
}

// isOwnGlobalTarget reports whether target is this node's own advertised
// prefix rather than a downstream child's.
func isOwnGlobalTarget(inst *Instance, target Target) (ok bool) {
	if inst.DAG == nil || inst.DAG.Prefix == nil {
		return false
	}

	prefix := inst.DAG.Prefix
	if target.PrefixLength != prefix.PrefixLength {
		return false
	}

	n := (int(prefix.PrefixLength) + 7) / 8
	if n > len(target.Prefix) || n > len(prefix.Prefix) {
		return false
	}

	for i := range n {
		if target.Prefix[i] != prefix.Prefix[i] {
			return false
		}
	}

	return true
}

// handleDCOACKBody decodes an inbound DCO-ACK. DCO-ACK shares
// [AckMessage]'s framing with DAO-ACK but doesn't drive retransmission
// in this implementation, since DCO emission (spec.md section 4.9) is
// fire-and-forget from the engine's perspective.
func (e *Engine) handleDCOACKBody(_ NeighborKey, body []byte) {
	_, err := DecodeAck(body)
	if err != nil {
		e.malformed(0, CodeDCOACK, err)
	}
}
