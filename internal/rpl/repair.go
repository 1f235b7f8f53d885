package rpl

// LocalRepair detaches instanceID from its current DAG and re-enters
// parent discovery (spec.md section 4.10). The engine only ever decides
// *when* repair is warranted, signalling that through
// [RepairRequester.RequestLocalRepair]; the caller decides whether and
// when to actually invoke LocalRepair, e.g. after its own backoff or
// rate-limiting policy.
func (e *Engine) LocalRepair(instanceID uint8) {
	inst, ok := e.instanceOrDrop(instanceID)
	if !ok {
		return
	}

	if inst.daoRetransCancel != nil {
		inst.daoRetransCancel()
		inst.daoRetransCancel = nil
	}

	inst.DAG = nil
	inst.HasDownwardRoute = false
	inst.MyDAOTransmissions = 0

	if e.dioPolicy != nil {
		e.dioPolicy.Reset(instanceID)
	}

	if !inst.Config.LeafOnly {
		e.SendDIS(instanceID, "")
	}
}
