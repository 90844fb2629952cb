// Package txndriver implements the leader's 2PC transaction loop (spec
// §4.5): for each prices-CSV record, PREPARE, decide, replicate, and on
// ABORT append to the retry CSV, then FINISH and KILL once the input is
// exhausted. Grounded on the teacher's coordinator.TwoPCSubmit/PreWrite/
// DecideBlock shape (prepare, decide, branch on outcome).
package txndriver

import (
	"context"
	"time"

	"github.com/alglobo-systems/coordinator/audit"
	"github.com/alglobo-systems/coordinator/broadcast"
	"github.com/alglobo-systems/coordinator/configs"
	"github.com/alglobo-systems/coordinator/wire"
)

// LeaderNode is the subset of replica.Node the driver needs. Declaring it
// here (rather than importing replica.Node directly) keeps replica and
// txndriver from needing to import each other: replica.Node.Driver is
// assigned a txndriver-built closure by the caller (cmd/coordinator).
type LeaderNode interface {
	ResumeState() (uint32, wire.Phase)
	AdvanceState(id uint32, status wire.Phase)
	Replicate(msg wire.DataMessage)
	KillCluster()
}

// Driver runs the leader's transaction loop against a configured set of
// agent addresses, a prices source, and a retry sink.
type Driver struct {
	AgentAddrs []string
	Records    RecordSource
	Retry      RetrySink

	// Sink is the SPEC_FULL §4.7 best-effort audit sink. Defaults to
	// audit.NullSink{} when left unset by the caller.
	Sink audit.Sink

	// PacingDelay, if non-zero, is slept between records (spec §4.5 point
	// 6: "a debug-only pacing delay ... must not be load-bearing for
	// correctness"). Zero by default.
	PacingDelay time.Duration
}

func (d *Driver) sink() audit.Sink {
	if d.Sink == nil {
		return audit.NullSink{}
	}
	return d.Sink
}

// RecordSource yields prices-CSV records in order, starting wherever the
// caller positions it (spec §4.3 failover resume policy).
type RecordSource interface {
	// Next returns the next record's amounts and true, or ok=false once
	// exhausted.
	Next() (amounts []uint32, ok bool)
	// Seek positions the source so the next call to Next returns record
	// index id.
	Seek(id uint32)
}

// RetrySink appends one aborted record, in the same comma-separated shape
// as the prices CSV (spec §6).
type RetrySink interface {
	Append(amounts []uint32) error
}

// Run drives records from Records to completion, resuming from whatever
// (last_id, last_status) the node has locally replicated, then shuts the
// cluster down cleanly. It is the function assigned to replica.Node.Driver.
func Run(ctx context.Context, node LeaderNode, d *Driver) {
	lastID, lastStatus := node.ResumeState()
	nextID := resumeFrom(node, lastID, lastStatus, d)

	d.Records.Seek(nextID)
	id := nextID

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		amounts, ok := d.Records.Next()
		if !ok {
			break
		}

		d.processOne(node, id, amounts)
		id++

		if d.PacingDelay > 0 {
			time.Sleep(d.PacingDelay)
		}
	}

	broadcast.Broadcast(id, nil, wire.Finish, d.AgentAddrs)
	node.KillCluster()
}

// resumeFrom applies spec §4.3's failover resume policy and returns the
// record index processing should continue from.
func resumeFrom(node LeaderNode, lastID uint32, lastStatus wire.Phase, d *Driver) uint32 {
	switch lastStatus {
	case wire.PhasePrepare:
		// In-doubt: the previous leader sent PREPARE but never replicated a
		// decision. Safe default is ABORT (spec §4.3).
		d.Records.Seek(lastID)
		if amounts, ok := d.Records.Next(); ok {
			broadcast.Broadcast(lastID, amounts, wire.Abort, d.AgentAddrs)
			node.Replicate(wire.DataMessage{TxnID: lastID, Phase: wire.PhaseAbort})
			node.AdvanceState(lastID, wire.PhaseAbort)
			if err := d.Retry.Append(amounts); err != nil {
				configs.Warn(false, "txndriver: retry append failed: "+err.Error())
			}
			audit.RecordBestEffort(context.Background(), d.sink(), audit.Entry{
				TxnID: lastID, Phase: wire.PhaseAbort, Amounts: amounts, DecidedAt: time.Now(),
			})
		}
		return lastID + 1
	case wire.PhaseCommit, wire.PhaseAbort:
		return lastID + 1
	default: // PhaseNone: fresh cluster, start exactly at last_id
		return lastID
	}
}

func (d *Driver) processOne(node LeaderNode, id uint32, amounts []uint32) {
	prepareOutcome := broadcast.Broadcast(id, amounts, wire.Prepare, d.AgentAddrs)
	node.Replicate(wire.DataMessage{TxnID: id, Phase: wire.PhasePrepare})
	node.AdvanceState(id, wire.PhasePrepare)

	commit := !prepareOutcome.TimedOut && prepareOutcome.AllAlive && allOK(prepareOutcome)

	decision := wire.Abort
	phase := wire.PhaseAbort
	if commit {
		decision = wire.Commit
		phase = wire.PhaseCommit
	} else {
		if err := d.Retry.Append(amounts); err != nil {
			configs.Warn(false, "txndriver: retry append failed: "+err.Error())
		}
	}

	broadcast.Broadcast(id, amounts, decision, d.AgentAddrs)
	node.Replicate(wire.DataMessage{TxnID: id, Phase: phase})
	node.AdvanceState(id, phase)

	audit.RecordBestEffort(context.Background(), d.sink(), audit.Entry{
		TxnID: id, Phase: phase, Amounts: amounts, DecidedAt: time.Now(),
	})

	configs.DPrintf("txn %d decided %s", id, decision)
}

func allOK(o broadcast.Outcome) bool {
	for _, r := range o.Replies {
		if r.Reply != wire.PaymentOK {
			return false
		}
	}
	return true
}
