package replica

import (
	"net"
	"time"

	"github.com/alglobo-systems/coordinator/configs"
	"github.com/alglobo-systems/coordinator/wire"
)

// runResponder drains the control socket with a short deadline (spec §4.3:
// "Drains control messages with a short read deadline (<= TIMEOUT/4)") so it
// can periodically observe stop (spec §9: "datagram receive must be
// interruptible"). net.UDPConn is safe for concurrent reads and writes from
// multiple goroutines, so unlike a raw socket fd this responder does not
// need an explicit duplicated descriptor to let other goroutines send on
// controlConn while it reads (spec §3's "clonable for outbound sends" is
// satisfied by Go's runtime-managed connection, not a literal dup()).
func (n *Node) runResponder() {
	defer close(n.responderDone)
	buf := make([]byte, 4096)
	for {
		if n.stopped() {
			return
		}
		_ = n.controlConn.SetReadDeadline(time.Now().Add(configs.ResponderPollInterval()))
		read, addr, err := n.controlConn.ReadFromUDP(buf)
		if err != nil {
			continue // deadline exceeded or transient error; re-check stop
		}
		msg, err := wire.DecodeControlMessage(buf[:read])
		if err != nil {
			configs.Warn(false, "replica: dropped malformed control message: "+err.Error())
			continue
		}
		if n.handleControl(msg, addr) {
			return // KILL received
		}
	}
}

// handleControl applies one decoded control message per the dispatch table
// in spec §4.3. It returns true if the responder should exit (KILL).
func (n *Node) handleControl(msg wire.ControlMessage, from *net.UDPAddr) bool {
	switch msg.Type {
	case wire.TypeAck:
		if len(msg.Ids) > 0 {
			n.ack.Set(msg.Ids[0])
		}
	case wire.TypeElection:
		n.handleElection(msg.Ids, from)
	case wire.TypeCoordinator:
		n.handleCoordinator(msg.Ids, from)
	case wire.TypeKill:
		n.Stop()
		return true
	default:
		configs.Warn(false, "replica: unknown control message type")
	}
	return false
}

func (n *Node) sendControlTo(addr *net.UDPAddr, msg wire.ControlMessage) {
	_, err := n.controlConn.WriteToUDP(msg.Encode(), addr)
	configs.Warn(err == nil, "replica: control send failed: "+errString(err))
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// handleElection implements the ELECTION row of spec §4.3's dispatch table.
func (n *Node) handleElection(ids []uint64, from *net.UDPAddr) {
	n.sendControlTo(from, wire.NewAck(n.ID))
	if containsID(ids, n.ID) {
		// This round closed the ring back to its initiator: elect the max.
		n.sendControlTo(from, wire.NewCoordinator([]uint64{maxID(ids)}))
		return
	}
	next := append(append([]uint64{}, ids...), n.ID)
	go n.safeSendNext(wire.NewElection(next), n.ID)
}

// handleCoordinator implements the COORDINATOR row of spec §4.3's dispatch
// table. ids[0] is the winner; ids[1:] is the forwarding trail ("tail")
// used to detect that this node has already relayed the announcement.
func (n *Node) handleCoordinator(ids []uint64, from *net.UDPAddr) {
	if len(ids) == 0 {
		configs.Warn(false, "replica: empty COORDINATOR message")
		return
	}
	n.leader.Set(ids[0])
	n.sendControlTo(from, wire.NewAck(n.ID))
	tail := ids[1:]
	if !containsID(tail, n.ID) {
		next := append(append([]uint64{}, ids...), n.ID)
		go n.safeSendNext(wire.NewCoordinator(next), n.ID)
	}
}

func containsID(ids []uint64, id uint64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func maxID(ids []uint64) uint64 {
	m := ids[0]
	for _, v := range ids[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
