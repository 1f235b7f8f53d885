package main

import (
	"log/slog"

	"github.com/sixlowpan/rpl/internal/rpl"
	"github.com/sixlowpan/rpl/internal/rpltransport"
)

// transportOutput implements [rpl.Output] by encoding every outbound
// message and handing it to a [rpltransport.Conn]. Route installs and
// withdrawals are no-ops here: rpld keeps its downward routing state
// entirely inside [rpl.MapRouteTable], which already reflects every
// [rpl.Engine.HandleICMPv6] call that touches it, so there is no
// separate forwarding plane to notify on this platform.
type transportOutput struct {
	conn   *rpltransport.Conn
	logger *slog.Logger
}

// type check
var _ rpl.Output = (*transportOutput)(nil)

func newTransportOutput(conn *rpltransport.Conn, logger *slog.Logger) (o *transportOutput) {
	return &transportOutput{conn: conn, logger: logger}
}

// SendDIS implements the [rpl.Output] interface for *transportOutput.
func (o *transportOutput) SendDIS(instanceID uint8, dst string, msg rpl.DIS) {
	o.send(rpl.CodeDIS, dst, rpl.EncodeDIS(nil, msg))
}

// SendDIO implements the [rpl.Output] interface for *transportOutput.
func (o *transportOutput) SendDIO(instanceID uint8, dst string, msg rpl.DIO) {
	o.send(rpl.CodeDIO, dst, rpl.EncodeDIO(nil, msg))
}

// SendDAO implements the [rpl.Output] interface for *transportOutput.
func (o *transportOutput) SendDAO(instanceID uint8, dst string, msg rpl.DAO) {
	o.send(rpl.CodeDAO, dst, rpl.EncodeDAO(nil, msg))
}

// SendDAOACK implements the [rpl.Output] interface for *transportOutput.
func (o *transportOutput) SendDAOACK(instanceID uint8, dst string, msg rpl.AckMessage) {
	o.send(rpl.CodeDAOACK, dst, rpl.EncodeAck(nil, msg))
}

// SendDCO implements the [rpl.Output] interface for *transportOutput.
func (o *transportOutput) SendDCO(instanceID uint8, dst string, msg rpl.DCO) {
	o.send(rpl.CodeDCO, dst, rpl.EncodeDCO(nil, msg))
}

// SendDCOACK implements the [rpl.Output] interface for *transportOutput.
func (o *transportOutput) SendDCOACK(instanceID uint8, dst string, msg rpl.AckMessage) {
	o.send(rpl.CodeDCOACK, dst, rpl.EncodeAck(nil, msg))
}

// InstallRoute implements the [rpl.Output] interface for
// *transportOutput.
func (o *transportOutput) InstallRoute(instanceID uint8, r rpl.Route) {}

// WithdrawRoute implements the [rpl.Output] interface for
// *transportOutput.
func (o *transportOutput) WithdrawRoute(instanceID uint8, target rpl.Target) {}

func (o *transportOutput) send(code rpl.Code, dst string, body []byte) {
	if err := o.conn.SendTo(code, body, dst); err != nil {
		o.logger.Warn("sending rpl message", "code", code, "dst", dst, "err", err)
	}
}
