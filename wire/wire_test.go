package wire

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// W1: for all agent messages m, decode(encode(m)) == m.
func TestAgentMessageRoundTrip(t *testing.T) {
	cases := []AgentMessage{
		{TxnID: 0, Amount: 0, Op: Prepare},
		{TxnID: 1, Amount: 100, Op: Commit},
		{TxnID: 42, Amount: 4294967295, Op: Abort},
		{TxnID: 4294967295, Amount: 0, Op: Finish},
	}
	for _, want := range cases {
		buf := want.Encode()
		require.Len(t, buf, AgentMessageSize)
		got, err := DecodeAgentMessage(buf)
		require.NoError(t, err)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestDecodeAgentMessageRejectsShortBuffer(t *testing.T) {
	_, err := DecodeAgentMessage([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestControlMessageRoundTrip(t *testing.T) {
	cases := []ControlMessage{
		NewKill(),
		NewAck(3),
		NewElection([]uint64{0}),
		NewElection([]uint64{0, 1, 2, 3, 4}),
		NewCoordinator([]uint64{4}),
	}
	for _, want := range cases {
		buf := want.Encode()
		got, err := DecodeControlMessage(buf)
		require.NoError(t, err)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestDecodeControlMessageRejectsTruncatedIds(t *testing.T) {
	msg := NewElection([]uint64{1, 2, 3})
	buf := msg.Encode()
	_, err := DecodeControlMessage(buf[:len(buf)-4])
	require.Error(t, err)
}

func TestDecodeControlMessageRejectsShortHeader(t *testing.T) {
	_, err := DecodeControlMessage([]byte{byte(TypeAck), 1, 2})
	require.Error(t, err)
}

func TestDataMessageRoundTrip(t *testing.T) {
	cases := []DataMessage{
		{TxnID: 0, Phase: PhaseNone},
		{TxnID: 7, Phase: PhasePrepare},
		{TxnID: 8, Phase: PhaseCommit},
		{TxnID: 9, Phase: PhaseAbort},
	}
	for _, want := range cases {
		buf := want.Encode()
		require.Len(t, buf, DataMessageSize)
		got, err := DecodeDataMessage(buf)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestDecodeDataMessageRejectsShortBuffer(t *testing.T) {
	_, err := DecodeDataMessage([]byte{1, 2})
	require.Error(t, err)
}
