package wire

import (
	"encoding/binary"
	"fmt"
)

// ControlType is the single-byte tag on an inter-replica control message.
type ControlType byte

const (
	TypeAck         ControlType = 'A'
	TypeElection    ControlType = 'E'
	TypeCoordinator ControlType = 'C'
	TypeKill        ControlType = 'K'
)

func (t ControlType) String() string {
	switch t {
	case TypeAck:
		return "ACK"
	case TypeElection:
		return "ELECTION"
	case TypeCoordinator:
		return "COORDINATOR"
	case TypeKill:
		return "KILL"
	default:
		return fmt.Sprintf("ControlType(%q)", byte(t))
	}
}

// ControlMessage is the variable-length control-channel message used for
// ring election (ELECTION, COORDINATOR), reliable unicast ACKs, and cluster
// shutdown (KILL). Counts and node ids are little-endian uint64, matching
// the platform-width integer the spec describes.
type ControlMessage struct {
	Type ControlType
	Ids  []uint64
}

// NewAck builds an ACK(id) control message.
func NewAck(selfID uint64) ControlMessage {
	return ControlMessage{Type: TypeAck, Ids: []uint64{selfID}}
}

// NewElection builds an ELECTION(ids) control message.
func NewElection(ids []uint64) ControlMessage {
	return ControlMessage{Type: TypeElection, Ids: ids}
}

// NewCoordinator builds a COORDINATOR(ids) control message.
func NewCoordinator(ids []uint64) ControlMessage {
	return ControlMessage{Type: TypeCoordinator, Ids: ids}
}

// NewKill builds a KILL control message; it carries no ids.
func NewKill() ControlMessage {
	return ControlMessage{Type: TypeKill}
}

// Encode serializes m as type(1) || count(8, LE) || count*id(8, LE each).
func (m ControlMessage) Encode() []byte {
	buf := make([]byte, 1+8+8*len(m.Ids))
	buf[0] = byte(m.Type)
	binary.LittleEndian.PutUint64(buf[1:9], uint64(len(m.Ids)))
	off := 9
	for _, id := range m.Ids {
		binary.LittleEndian.PutUint64(buf[off:off+8], id)
		off += 8
	}
	return buf
}

// DecodeControlMessage parses buf into a ControlMessage, rejecting any
// buffer shorter than its own declared count prefix.
func DecodeControlMessage(buf []byte) (ControlMessage, error) {
	if len(buf) < 9 {
		return ControlMessage{}, fmt.Errorf("wire: control message too short for header: got %d bytes, want >= 9", len(buf))
	}
	typ := ControlType(buf[0])
	count := binary.LittleEndian.Uint64(buf[1:9])
	want := 9 + 8*int(count)
	if len(buf) < want {
		return ControlMessage{}, fmt.Errorf("wire: control message declares %d ids but only has %d bytes (want %d)", count, len(buf), want)
	}
	ids := make([]uint64, count)
	off := 9
	for i := range ids {
		ids[i] = binary.LittleEndian.Uint64(buf[off : off+8])
		off += 8
	}
	return ControlMessage{Type: typ, Ids: ids}, nil
}
