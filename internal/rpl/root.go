package rpl

// InitRoot performs spec.md section 3's "local root initialisation": it
// gives instanceID a freshly created DAG identified by dagID, already
// Joined at [rootRank], without waiting for any inbound DIO. Calling it
// on a non-root instance, or one that's already joined a DAG, is a
// no-op.
func (e *Engine) InitRoot(instanceID uint8, dagID [16]byte, grounded bool) {
	inst, ok := e.instanceOrDrop(instanceID)
	switch {
	case !ok:
		e.dropped(instanceID, errUnknownInstance)

		return
	case !inst.Config.IsRoot:
		e.dropped(instanceID, errNotRoot)

		return
	case inst.DAG != nil:
		return
	}

	dag := newDAG(inst, dagID, 0)
	dag.Grounded = grounded
	dag.Rank = rootRank(inst.Config.resolvedMinHopRankIncrease())
	dag.Joined = true
	inst.DAG = dag
}
