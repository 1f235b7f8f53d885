package rpl

import "github.com/AdguardTeam/golibs/errors"

const (
	// errMalformedMessage is returned when a received message fails to
	// decode: a suboption's length overruns the payload, or a fixed-length
	// suboption has the wrong length.
	errMalformedMessage errors.Error = "malformed rpl message"

	// errUnknownInstance is returned when a message names an instance ID
	// this node doesn't have.
	errUnknownInstance errors.Error = "unknown rpl instance"

	// errDAGIDMismatch is returned when a DAO's D flag is set and its
	// DODAGID doesn't match the instance's current DAG.
	errDAGIDMismatch errors.Error = "dodagid does not match current dag"

	// errNoDAG is returned when an operation that requires a joined DAG is
	// attempted on an instance that hasn't joined one.
	errNoDAG errors.Error = "instance has not joined a dag"

	// errNoPreferredParent is returned when an operation that requires a
	// preferred parent is attempted on a DAG without one.
	errNoPreferredParent errors.Error = "dag has no preferred parent"

	// errAdmissionFailed is returned by a NeighborCache that has no room
	// for a new neighbour.
	errAdmissionFailed errors.Error = "neighbor cache: admission failed"

	// errNotRoot is returned when a root-only operation is attempted on a
	// non-root instance.
	errNotRoot errors.Error = "instance is not a dodag root"

	// errUnsupportedMOP is returned for an instance mode of operation this
	// package doesn't implement (only no-downward, non-storing, storing,
	// and storing+multicast are defined; storing+multicast's downward
	// routing is out of scope, see spec Non-goals).
	errUnsupportedMOP errors.Error = "unsupported mode of operation"

	// errRouteNotFound is returned when a DAO or DCO names a target prefix
	// this node has no route for.
	errRouteNotFound errors.Error = "no route for target prefix"
)
