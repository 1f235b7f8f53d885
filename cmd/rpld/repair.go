package main

import (
	"log/slog"

	"github.com/sixlowpan/rpl/internal/rpl"
	"github.com/sixlowpan/rpl/internal/rpltransport"
)

// repairRequester implements [rpl.RepairRequester] by multicasting a
// fresh DIS, the "locally initiated DIS" spec.md section 4.4 calls for
// after local repair invalidates the last usable parent.
type repairRequester struct {
	conn   *rpltransport.Conn
	logger *slog.Logger
}

// type check
var _ rpl.RepairRequester = (*repairRequester)(nil)

// RequestLocalRepair implements the [rpl.RepairRequester] interface for
// *repairRequester.
func (r *repairRequester) RequestLocalRepair(instanceID uint8, dagID [16]byte) {
	r.logger.Info("local repair triggered", "instance_id", instanceID)

	if err := r.conn.SendTo(rpl.CodeDIS, rpl.EncodeDIS(nil, rpl.DIS{}), ""); err != nil {
		r.logger.Warn("sending repair dis", "err", err)
	}
}
