package replica

import (
	"context"
	"time"

	"github.com/alglobo-systems/coordinator/configs"
	"github.com/alglobo-systems/coordinator/wire"
)

// Loop runs the main loop of spec §4.3 until stopped: while leader, it runs
// Driver to completion (a one-shot leader tenure) and returns; while
// follower, it waits for one replicated log entry per turn, advancing state
// on success and triggering a fresh election on timeout.
func (n *Node) Loop(ctx context.Context) {
	for !n.stopped() {
		if n.amLeader() {
			_ = n.dataConn.SetReadDeadline(time.Time{}) // leader never reads the data endpoint
			if n.Driver != nil {
				n.Driver(ctx, n)
			}
			return
		}
		if !n.awaitReplicatedEntry() {
			if n.stopped() {
				return
			}
			n.findNew()
		}
	}
}

// awaitReplicatedEntry blocks up to TIMEOUT for one data-channel message. It
// returns false on timeout or decode failure, prompting the caller to start
// a new election (spec §4.3: follower main loop).
func (n *Node) awaitReplicatedEntry() bool {
	_ = n.dataConn.SetReadDeadline(time.Now().Add(configs.Timeout))
	buf := make([]byte, wire.DataMessageSize)
	read, _, err := n.dataConn.ReadFromUDP(buf)
	if err != nil {
		return false
	}
	msg, err := wire.DecodeDataMessage(buf[:read])
	if err != nil {
		configs.Warn(false, "replica: dropped malformed data message: "+err.Error())
		return false
	}
	n.setLastObserved(msg)
	return true
}
