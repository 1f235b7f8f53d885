package rpl

// handleDISBody decodes and processes an inbound DIS for every active
// instance (spec.md section 4.4): a DIS carries no instance ID of its
// own, so a multicast DIS resets the trickle timer of every instance
// that isn't [InstanceConfig.LeafOnly]. A unicast DIS instead
// gets a unicast DIO reply, once the sender has been admitted to the
// neighbour cache.
func (e *Engine) handleDISBody(srcKey NeighborKey, multicast bool, body []byte) {
	dis, err := DecodeDIS(body)
	if err != nil {
		e.malformed(0, CodeDIS, err)

		return
	}

	for id, inst := range e.instances {
		e.handleDIS(id, inst, srcKey, multicast, dis)
	}
}

func (e *Engine) handleDIS(id uint8, inst *Instance, srcKey NeighborKey, multicast bool, _ DIS) {
	if multicast {
		if e.dioPolicy != nil && !inst.Config.LeafOnly {
			e.dioPolicy.Reset(id)
		}

		return
	}

	if !e.neighbors.Contains(srcKey) && !e.neighbors.Admit(srcKey) {
		inst.Stats.AdmissionFailures++
		e.dropped(id, errAdmissionFailed)

		return
	}

	e.emitDIO(id, inst, string(srcKey))
}

// SendDIS locally originates a DIS for instanceID, addressed to dst (the
// empty string for the all-RPL-nodes multicast address), per spec.md
// section 4.4's "locally initiated DIS".
func (e *Engine) SendDIS(instanceID uint8, dst string) {
	e.out.SendDIS(instanceID, dst, DIS{})
}

// EmitDIO multicasts a DIO for instanceID, the effect a [DIOPolicy]
// triggers when its trickle interval expires without suppression. It is
// a no-op if instanceID names no configured instance.
func (e *Engine) EmitDIO(instanceID uint8) {
	inst, ok := e.instanceOrDrop(instanceID)
	if !ok {
		e.dropped(instanceID, errUnknownInstance)

		return
	}

	e.emitDIO(instanceID, inst, "")
}
