package rpl

import (
	"log/slog"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
)

// Engine is the single entry point for an RPL node's control plane: it
// owns every [Instance] and dispatches inbound messages, timer firings,
// and link feedback to the matching handler (spec.md section 2, item 5;
// SPEC_FULL.md section 5). Per the single-threaded cooperative model
// (spec.md section 5), every exported Engine method must be called from
// one goroutine; Engine performs no internal locking.
type Engine struct {
	instances map[uint8]*Instance

	out       Output
	neighbors NeighborCache
	routes    RouteTable
	srcRoutes SourceRouteTable
	repair    RepairRequester
	dioPolicy DIOPolicy
	timer     Timer
	log       *slog.Logger
}

// NewEngine returns an Engine with no instances configured yet. out,
// neighbors, timer, and log must be non-nil; routes, srcRoutes, repair,
// and dioPolicy may be nil when the corresponding mode of operation
// isn't used.
func NewEngine(
	out Output,
	neighbors NeighborCache,
	routes RouteTable,
	srcRoutes SourceRouteTable,
	repair RepairRequester,
	dioPolicy DIOPolicy,
	timer Timer,
	log *slog.Logger,
) (e *Engine) {
	e = &Engine{
		instances: map[uint8]*Instance{},
		out:       out,
		neighbors: neighbors,
		routes:    routes,
		srcRoutes: srcRoutes,
		repair:    repair,
		dioPolicy: dioPolicy,
		timer:     timer,
		log:       log,
	}

	neighbors.OnEvict(func(key NeighborKey) {
		for id, inst := range e.instances {
			if inst.DAG == nil {
				continue
			}

			if _, ok := inst.DAG.ParentByKey(key); ok {
				inst.DAG.RemoveParent(key)
				e.selectPreferredParent(id, inst, inst.Config.OF)
			}
		}
	})

	return e
}

// AddInstance registers inst, keyed by its configured instance ID,
// replacing any previous instance with the same ID.
func (e *Engine) AddInstance(inst *Instance) {
	e.instances[inst.Config.ID] = inst
}

// Instance returns the instance registered under id, or nil if none is.
func (e *Engine) Instance(id uint8) (inst *Instance) {
	return e.instances[id]
}

// RemoveInstance deregisters the instance with id, if any.
func (e *Engine) RemoveInstance(id uint8) {
	delete(e.instances, id)
}

// dispatchDIS/DIO/etc. share this wrapper: unknown instance is dropped
// silently per spec.md section 7 item 2.
func (e *Engine) instanceOrDrop(id uint8) (inst *Instance, ok bool) {
	inst, ok = e.instances[id]

	return inst, ok
}

// HandleICMPv6 decodes the RPL payload body (the ICMPv6 header is the
// caller's concern, SPEC_FULL.md section 4.1) and dispatches it by code.
// srcKey identifies the sender's neighbour-table entry; multicast
// reports whether the message arrived on the all-RPL-nodes multicast
// address.
func (e *Engine) HandleICMPv6(code Code, srcKey NeighborKey, multicast bool, body []byte) {
	switch code {
	case CodeDIS:
		e.handleDISBody(srcKey, multicast, body)
	case CodeDIO:
		e.handleDIOBody(srcKey, body)
	case CodeDAO:
		e.handleDAOBody(srcKey, body)
	case CodeDAOACK:
		e.handleDAOACKBody(srcKey, body)
	case CodeDCO:
		e.handleDCOBody(srcKey, body)
	case CodeDCOACK:
		e.handleDCOACKBody(srcKey, body)
	default:
		e.log.Debug("rpl: dropping unknown code", "code", code)
	}
}

// LinkStatsPacketSent reports a link-layer transmission outcome for
// lladdr (spec.md section 6's "link_stats_packet_sent" upward OS API).
// numtx is the number of transmission attempts the outcome covers. The
// feedback is applied to lladdr's [Parent] entry in every instance that
// currently has it as a parent; instances where lladdr isn't a parent
// are left untouched.
func (e *Engine) LinkStatsPacketSent(lladdr NeighborKey, status TxStatus, numtx uint8) {
	for _, inst := range e.instances {
		if inst.DAG == nil {
			continue
		}

		p, ok := inst.DAG.ParentByKey(lladdr)
		if !ok {
			continue
		}

		inst.Config.OF.OnLinkFeedback(p, status, numtx)
	}
}

// malformed records a decode failure against instanceID (0 when the
// instance couldn't even be determined yet) and logs it, per spec.md
// section 7 item 1.
func (e *Engine) malformed(instanceID uint8, code Code, err error) {
	if inst, ok := e.instances[instanceID]; ok {
		inst.Stats.MalformedMessages++
	}

	e.log.Debug(
		"rpl: malformed message",
		"code", code,
		"instance_id", instanceID,
		slogutil.KeyError, err,
	)
}

// dropped logs a message or local operation silently discarded for a
// protocol reason (spec.md section 7 item 2: unknown instance, DAG/DAG
// ID mismatch, admission failure, and the like), as opposed to
// [Engine.malformed]'s wire-format failures.
func (e *Engine) dropped(instanceID uint8, err error) {
	e.log.Debug("rpl: dropped", "instance_id", instanceID, slogutil.KeyError, err)
}

// wrapAnnotate annotates err with a static description using
// golibs/errors, matching the teacher's convention of wrapping at
// package/handler boundaries.
func wrapAnnotate(err error, format string, args ...any) (wrapped error) {
	return errors.Annotate(err, format, args...)
}
