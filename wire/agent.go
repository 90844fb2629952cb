// Package wire implements the byte-level encodings shared by the coordinator
// cluster and the agent services: the fixed 9-byte agent request/reply
// protocol, the variable-length inter-replica control protocol, and the
// fixed-size inter-replica data (log replication) protocol.
package wire

import (
	"encoding/binary"
	"fmt"
)

// Opcode is the single-byte tag on an agent request.
type Opcode byte

const (
	Prepare Opcode = 'P'
	Commit  Opcode = 'C'
	Abort   Opcode = 'A'
	Finish  Opcode = 'F'
)

func (o Opcode) String() string {
	switch o {
	case Prepare:
		return "PREPARE"
	case Commit:
		return "COMMIT"
	case Abort:
		return "ABORT"
	case Finish:
		return "FINISH"
	default:
		return fmt.Sprintf("Opcode(%q)", byte(o))
	}
}

// Reply is the single reply byte an agent sends back.
type Reply byte

const (
	PaymentErr Reply = 0
	PaymentOK  Reply = 1
	Ack        Reply = 1
)

// AgentMessageSize is the fixed wire size of an AgentMessage.
const AgentMessageSize = 9

// AgentMessage is the fixed 9-byte request sent from the coordinator leader
// to an agent over a connection-per-request TCP socket.
type AgentMessage struct {
	TxnID  uint32
	Amount uint32
	Op     Opcode
}

// Encode serializes m into the wire's 9-byte big-endian layout.
func (m AgentMessage) Encode() []byte {
	buf := make([]byte, AgentMessageSize)
	binary.BigEndian.PutUint32(buf[0:4], m.TxnID)
	binary.BigEndian.PutUint32(buf[4:8], m.Amount)
	buf[8] = byte(m.Op)
	return buf
}

// DecodeAgentMessage parses a 9-byte buffer into an AgentMessage.
func DecodeAgentMessage(buf []byte) (AgentMessage, error) {
	if len(buf) < AgentMessageSize {
		return AgentMessage{}, fmt.Errorf("wire: agent message too short: got %d bytes, want %d", len(buf), AgentMessageSize)
	}
	return AgentMessage{
		TxnID:  binary.BigEndian.Uint32(buf[0:4]),
		Amount: binary.BigEndian.Uint32(buf[4:8]),
		Op:     Opcode(buf[8]),
	}, nil
}
