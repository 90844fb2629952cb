package replica

import (
	"net"

	"github.com/alglobo-systems/coordinator/configs"
	"github.com/alglobo-systems/coordinator/wire"
)

// safeSendNext is the reliable-unicast primitive of spec §4.3: it computes
// next_id = (from_id + 1) mod N, clears got_ack, unicasts msg, and waits up
// to TIMEOUT for got_ack == next_id. On timeout it marks next_id
// unreachable and retries from next_id, i.e. skips the dead node. If the
// ring closes back to self without any ACK, the whole cluster's control
// plane is unreachable and the operation fails.
func (n *Node) safeSendNext(msg wire.ControlMessage, fromID uint64) bool {
	from := fromID
	for hop := uint64(0); hop < n.N; hop++ {
		next := (from + 1) % n.N
		if next == n.ID {
			configs.Warn(false, "replica: ring closed back to self without any ACK; cluster control plane unreachable")
			return false
		}
		addr, err := net.ResolveUDPAddr("udp4", configs.ControlAddr(int(next)))
		if err != nil {
			configs.Warn(false, "replica: cannot resolve peer address: "+err.Error())
			return false
		}
		n.ack.Clear()
		n.sendControlTo(addr, msg)
		if n.ack.WaitFor(next, configs.Timeout) {
			return true
		}
		configs.DPrintf("node %d: peer %d did not ACK within TIMEOUT, skipping", n.ID, next)
		n.unreach.MarkUnreachable(next)
		if n.unreach.Count() >= int(n.N)-1 {
			configs.Warn(false, "replica: every other node marked unreachable this sweep; giving up early")
			return false
		}
		from = next
	}
	configs.Warn(false, "replica: exhausted ring without reaching self; treating as unreachable")
	return false
}

// findNew starts a fresh election round and blocks until a COORDINATOR
// message (handled by the responder) sets leader_id (spec §4.3).
func (n *Node) findNew() {
	n.leader.Clear()
	n.unreach.Reset()
	ok := n.safeSendNext(wire.NewElection([]uint64{n.ID}), n.ID)
	if !ok {
		// Fatal per spec §4.3/§7: the entire ring is unreachable.
		panic("replica: cannot start election, ring unreachable")
	}
	n.leader.WaitUntilSet(n.stopped)
}
