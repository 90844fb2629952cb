// Package replica implements the coordinator replica: the ring-based leader
// election over UDP (spec §4.3) and the hand-off point into the 2PC
// transaction driver once a node becomes leader.
package replica

import (
	"context"
	"net"
	"sync/atomic"

	"github.com/alglobo-systems/coordinator/configs"
	"github.com/alglobo-systems/coordinator/liveset"
	"github.com/alglobo-systems/coordinator/locks"
	"github.com/alglobo-systems/coordinator/wire"
)

// Node is one coordinator replica. It owns both UDP endpoints described in
// spec §4.2 and the shared fields of spec §3.
type Node struct {
	ID uint64
	N  uint64

	controlConn *net.UDPConn // owned exclusively by the responder goroutine
	dataConn    *net.UDPConn

	leader  *leaderState
	ack     *ackState
	unreach *liveset.Set

	stop int32 // atomic bool, spec §5: "stop is an atomic boolean"

	txState    *locks.RWLock // guards lastID/lastStatus (spec §3 multi-reader/writer field)
	lastID     uint32
	lastStatus wire.Phase

	wal *replicationLog // non-nil only when configs.UseWAL is set

	// Driver is invoked once this node wins an election; it should run the
	// leader's 2PC loop to completion and then return (spec §4.3: "leader
	// work is one-shot per leadership tenure"). Injected by the caller
	// (cmd/coordinator) to avoid an import cycle between replica and
	// txndriver, which both need to call back into each other.
	Driver func(ctx context.Context, n *Node)

	responderDone chan struct{}
}

// New constructs replica id of an N-node cluster, binds its control
// endpoint, starts its responder, and runs an initial election so the node
// converges on a leader before doing useful work (spec §4.3 "Public
// contract").
func New(id, n uint64) (*Node, error) {
	node, err := newBound(id, n)
	if err != nil {
		return nil, err
	}
	node.findNew()
	return node, nil
}

// newBound performs the bind-and-start-responder half of New without
// running the initial election, so a test harness can bind every replica's
// sockets before any of them starts sending election traffic.
func newBound(id, n uint64) (*Node, error) {
	node := &Node{
		ID:            id,
		N:             n,
		leader:        newLeaderState(),
		ack:           newAckState(),
		unreach:       liveset.New(),
		txState:       locks.NewLocker(),
		responderDone: make(chan struct{}),
	}

	controlAddr, err := net.ResolveUDPAddr("udp4", configs.ControlAddr(int(id)))
	if err != nil {
		return nil, err
	}
	node.controlConn, err = net.ListenUDP("udp4", controlAddr)
	if err != nil {
		return nil, err
	}

	dataAddr, err := net.ResolveUDPAddr("udp4", configs.DataAddr(int(id)))
	if err != nil {
		return nil, err
	}
	node.dataConn, err = net.ListenUDP("udp4", dataAddr)
	if err != nil {
		return nil, err
	}

	if configs.UseWAL {
		node.wal = newReplicationLog(id)
		if msg, ok := node.wal.lastEntry(); ok {
			node.lastID = msg.TxnID
			node.lastStatus = msg.Phase
		}
	}

	go node.runResponder()
	return node, nil
}

// Stop flips the atomic stop flag and unblocks anything polling it.
func (n *Node) Stop() {
	atomic.StoreInt32(&n.stop, 1)
}

func (n *Node) stopped() bool {
	return atomic.LoadInt32(&n.stop) != 0
}

// Close releases both UDP sockets. Safe to call after the main loop exits.
func (n *Node) Close() {
	n.Stop()
	<-n.responderDone
	n.controlConn.Close()
	n.dataConn.Close()
	if n.wal != nil {
		n.wal.Close()
	}
}

func (n *Node) amLeader() bool {
	id, ok := n.leader.Get()
	return ok && id == n.ID
}

// ResumeState returns the locally replicated (last_id, last_status) used by
// a newly promoted leader to decide how to resume (spec §4.3).
func (n *Node) ResumeState() (uint32, wire.Phase) {
	n.txState.RLock()
	defer n.txState.RUnlock()
	return n.lastID, n.lastStatus
}

// AdvanceState updates the node's observed (last_id, last_status); called
// by followers on receipt of a replicated entry and by the leader driver
// after deciding or resuming a transaction.
func (n *Node) AdvanceState(id uint32, status wire.Phase) {
	n.txState.Lock()
	n.lastID = id
	n.lastStatus = status
	n.txState.Unlock()
}

func (n *Node) setLastObserved(msg wire.DataMessage) {
	n.AdvanceState(msg.TxnID, msg.Phase)
	if n.wal != nil {
		n.wal.Append(msg)
	}
}

// Replicate sends a replicated log entry to every other replica's data
// endpoint (spec §4.3/§4.5). No retransmit is attempted on the data
// channel (spec §6): this is fire-and-forget UDP, by design.
func (n *Node) Replicate(msg wire.DataMessage) {
	buf := msg.Encode()
	for id := uint64(0); id < n.N; id++ {
		if id == n.ID {
			continue
		}
		addr, err := net.ResolveUDPAddr("udp4", configs.DataAddr(int(id)))
		if err != nil {
			continue
		}
		_, _ = n.dataConn.WriteToUDP(buf, addr)
	}
	configs.DPrintf("node %d replicated txn %d phase %s", n.ID, msg.TxnID, msg.Phase)
}

// KillCluster sends KILL to every other replica's control endpoint, the
// leader's clean-shutdown signal once the input stream is exhausted (spec
// §4.5).
func (n *Node) KillCluster() {
	kill := wire.NewKill().Encode()
	for id := uint64(0); id < n.N; id++ {
		if id == n.ID {
			continue
		}
		addr, err := net.ResolveUDPAddr("udp4", configs.ControlAddr(int(id)))
		if err != nil {
			continue
		}
		_, _ = n.controlConn.WriteToUDP(kill, addr)
	}
}
