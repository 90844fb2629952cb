// Package broadcast implements the leader's side of the 2PC fan-out to
// agent services (spec §4.4): one TCP connection per agent, issued in
// parallel, collected under a wall-clock deadline.
package broadcast

import (
	"net"
	"time"

	"github.com/alglobo-systems/coordinator/configs"
	"github.com/alglobo-systems/coordinator/wire"
)

// Result is one agent's outcome for a single broadcast call.
type Result struct {
	AgentAddr string
	Reply     wire.Reply
}

// Outcome is what the transaction driver needs to decide a phase (spec
// §4.5): the replies collected so far, whether the wall-clock deadline was
// hit before every agent answered, and whether every contacted agent's
// connection stayed healthy end to end.
type Outcome struct {
	Replies  []Result
	TimedOut bool
	AllAlive bool
}

// Broadcast opens one TCP connection per agent in agentAddrs, writes the
// fixed 9-byte agent message built from (txnID, amounts[i], op), reads one
// reply byte from each, and returns once every agent has replied or
// TIMEOUT elapses, whichever comes first (spec §4.4).
//
// An unreachable agent (connection refused/timeout) yields a synthetic
// PAYMENT_ERR reply rather than causing the broadcast to hang. A connection
// that succeeds but then fails mid-write or mid-read clears AllAlive for
// the whole call.
func Broadcast(txnID uint32, amounts []uint32, op wire.Opcode, agentAddrs []string) Outcome {
	n := len(agentAddrs)
	results := make(chan slotResult, n)

	for i, addr := range agentAddrs {
		amount := uint32(0)
		if i < len(amounts) {
			amount = amounts[i]
		}
		go func(addr string, amount uint32) {
			results <- dial(addr, wire.AgentMessage{TxnID: txnID, Amount: amount, Op: op})
		}(addr, amount)
	}

	outcome := Outcome{AllAlive: true}
	timer := time.NewTimer(configs.Timeout)
	defer timer.Stop()

	received := 0

collect:
	for received < n {
		select {
		case s := <-results:
			outcome.Replies = append(outcome.Replies, s.result)
			if !s.alive {
				outcome.AllAlive = false
			}
			received++
		case <-timer.C:
			outcome.TimedOut = true
			break collect
		}
	}

	return outcome
}

type slotResult struct {
	result Result
	alive  bool
}

func dial(addr string, msg wire.AgentMessage) slotResult {
	conn, err := net.DialTimeout("tcp", addr, configs.Timeout)
	if err != nil {
		configs.DPrintf("broadcast: agent %s unreachable: %v", addr, err)
		return slotResult{result: Result{AgentAddr: addr, Reply: wire.PaymentErr}, alive: true}
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(configs.Timeout))
	if _, err := conn.Write(msg.Encode()); err != nil {
		configs.Warn(false, "broadcast: write to "+addr+" failed: "+err.Error())
		return slotResult{result: Result{AgentAddr: addr, Reply: wire.PaymentErr}, alive: false}
	}

	reply := make([]byte, 1)
	if _, err := conn.Read(reply); err != nil {
		configs.Warn(false, "broadcast: read from "+addr+" failed: "+err.Error())
		return slotResult{result: Result{AgentAddr: addr, Reply: wire.PaymentErr}, alive: false}
	}

	return slotResult{result: Result{AgentAddr: addr, Reply: wire.Reply(reply[0])}, alive: true}
}
