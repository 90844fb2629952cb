package wire

import (
	"encoding/binary"
	"fmt"
)

// Phase is one stage of a transaction's lifecycle as observed by the leader
// and replicated to followers.
type Phase byte

const (
	PhaseNone    Phase = 0
	PhasePrepare Phase = byte(Prepare)
	PhaseCommit  Phase = byte(Commit)
	PhaseAbort   Phase = byte(Abort)
)

func (p Phase) String() string {
	switch p {
	case PhaseNone:
		return "none"
	case PhasePrepare:
		return "PREPARE"
	case PhaseCommit:
		return "COMMIT"
	case PhaseAbort:
		return "ABORT"
	default:
		return fmt.Sprintf("Phase(%d)", byte(p))
	}
}

// DataMessageSize is the fixed wire size of a DataMessage.
const DataMessageSize = 5

// DataMessage is a single replicated log entry sent from the leader to a
// follower over the data UDP endpoint: (transaction_id, phase).
type DataMessage struct {
	TxnID uint32
	Phase Phase
}

// Encode serializes m as phase(1) || transaction_id(4, big-endian).
func (m DataMessage) Encode() []byte {
	buf := make([]byte, DataMessageSize)
	buf[0] = byte(m.Phase)
	binary.BigEndian.PutUint32(buf[1:5], m.TxnID)
	return buf
}

// DecodeDataMessage parses a 5-byte buffer into a DataMessage.
func DecodeDataMessage(buf []byte) (DataMessage, error) {
	if len(buf) < DataMessageSize {
		return DataMessage{}, fmt.Errorf("wire: data message too short: got %d bytes, want %d", len(buf), DataMessageSize)
	}
	return DataMessage{
		Phase: Phase(buf[0]),
		TxnID: binary.BigEndian.Uint32(buf[1:5]),
	}, nil
}
