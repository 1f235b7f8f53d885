package rpl

import "time"

// Output is the engine's sink for wire messages to send and routes to
// install or withdraw (spec.md section 6, "External Interfaces"). The
// core never touches a socket or a clock directly: messages and route
// changes flow through Output, local repair requests through
// [RepairRequester], and scheduled callbacks through [Timer].
type Output interface {
	// SendDIS transmits a DIS to dst. dst is the empty string for the
	// all-RPL-nodes multicast address.
	SendDIS(instanceID uint8, dst string, msg DIS)

	// SendDIO transmits a DIO to dst. dst is the empty string for the
	// all-RPL-nodes multicast address.
	SendDIO(instanceID uint8, dst string, msg DIO)

	// SendDAO transmits a unicast DAO to dst, normally the preferred
	// parent.
	SendDAO(instanceID uint8, dst string, msg DAO)

	// SendDAOACK transmits a unicast DAO-ACK to dst.
	SendDAOACK(instanceID uint8, dst string, msg AckMessage)

	// SendDCO transmits a unicast DCO to dst.
	SendDCO(instanceID uint8, dst string, msg DCO)

	// SendDCOACK transmits a unicast DCO-ACK to dst.
	SendDCOACK(instanceID uint8, dst string, msg AckMessage)

	// InstallRoute tells the caller's routing table to install or
	// refresh r.
	InstallRoute(instanceID uint8, r Route)

	// WithdrawRoute tells the caller's routing table to remove the route
	// for target, e.g. after a NACK arrives for a route this node
	// forwarded upward.
	WithdrawRoute(instanceID uint8, target Target)
}

// RepairRequester is notified when the engine determines an instance
// needs local repair: parent selection left it with no preferred parent,
// its own DAO's retransmissions are exhausted, or its own DAO was NACKed
// while [InstanceConfig.RepairOnNACK] is set (spec.md section 4.9). The
// caller decides how repair actually proceeds (e.g. resetting the trickle
// timer and multicasting a DIS); the core only signals that it's
// necessary.
type RepairRequester interface {
	// RequestLocalRepair signals that instanceID needs local repair in
	// dagID.
	RequestLocalRepair(instanceID uint8, dagID [16]byte)
}

// DIOPolicy decides when an instance should emit an unsolicited DIO,
// abstracting the trickle timer described in spec.md section 4.4. The
// core calls it after parent selection (rank or parent change), on a
// multicast DIS, and on local repair; the policy decides whether and
// when an emission actually happens.
type DIOPolicy interface {
	// OnStateChanged tells the policy that instanceID's DAG state changed
	// in a way that might be "consistent" or "inconsistent" per the
	// trickle algorithm.
	OnStateChanged(instanceID uint8, consistent bool)

	// Reset restarts the policy's trickle interval at its minimum,
	// called on joining a new DAG or after local repair.
	Reset(instanceID uint8)
}

// DefaultDIOPolicy is a [DIOPolicy] that schedules DIO emission through a
// [Timer] using plain binary exponential trickle doubling, without the
// suppression counter in the full algorithm, as a debuggable first
// approximation (spec.md section 4.4 "Design Notes").
type DefaultDIOPolicy struct {
	timer    Timer
	minInt   time.Duration
	maxInt   time.Duration
	interval time.Duration
	emit     func(instanceID uint8)
	cancel   func()
}

// NewDefaultDIOPolicy returns a DefaultDIOPolicy that calls emit whenever
// it decides a DIO should go out.
func NewDefaultDIOPolicy(
	timer Timer,
	minInt, maxInt time.Duration,
	emit func(instanceID uint8),
) (p *DefaultDIOPolicy) {
	return &DefaultDIOPolicy{
		timer:  timer,
		minInt: minInt,
		maxInt: maxInt,
		emit:   emit,
	}
}

// OnStateChanged implements the [DIOPolicy] interface for
// *DefaultDIOPolicy.
func (p *DefaultDIOPolicy) OnStateChanged(instanceID uint8, consistent bool) {
	if consistent {
		return
	}

	p.Reset(instanceID)
}

// Reset implements the [DIOPolicy] interface for *DefaultDIOPolicy.
func (p *DefaultDIOPolicy) Reset(instanceID uint8) {
	if p.cancel != nil {
		p.cancel()
	}

	p.interval = p.minInt
	p.schedule(instanceID)
}

func (p *DefaultDIOPolicy) schedule(instanceID uint8) {
	p.cancel = p.timer.After(Jitter(p.interval/2, p.interval), func() {
		p.emit(instanceID)

		p.interval *= 2
		if p.interval > p.maxInt {
			p.interval = p.maxInt
		}

		p.schedule(instanceID)
	})
}
