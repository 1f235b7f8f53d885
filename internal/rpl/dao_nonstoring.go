package rpl

// handleDAONonStoring implements spec.md section 4.7: delegate straight
// to the external source-route table, keyed by the (child, parent) link
// reported in the DAO's Target/Transit pair. The Transit option's parent
// address is mandatory in non-storing mode.
func (e *Engine) handleDAONonStoring(inst *Instance, srcKey NeighborKey, dao DAO) {
	target := *dao.Target
	transit := *dao.Transit

	if transit.ParentAddress == nil {
		inst.Stats.MalformedMessages++

		return
	}

	parent := Target{PrefixLength: 128, Prefix: transit.ParentAddress[:]}

	if e.srcRoutes == nil {
		return
	}

	if transit.PathLifetime == 0 {
		e.srcRoutes.RemoveLink(target)
	} else {
		e.srcRoutes.AddLink(target, parent)
	}

	if dao.AckRequest {
		e.out.SendDAOACK(dao.InstanceID, string(srcKey), AckMessage{
			InstanceID: dao.InstanceID,
			Sequence:   dao.Sequence,
			Status:     StatusUnconditionalAccept,
		})
	}
}
