package agent

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/magiconair/properties/assert"
	"github.com/stretchr/testify/require"

	"github.com/alglobo-systems/coordinator/wire"
)

func dialSend(t *testing.T, addr string, msg wire.AgentMessage) wire.Reply {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write(msg.Encode())
	require.NoError(t, err)

	reply := make([]byte, 1)
	_, err = conn.Read(reply)
	require.NoError(t, err)
	return wire.Reply(reply[0])
}

func startTestServer(t *testing.T, rate float64) (addr string, srv *Server) {
	t.Helper()
	table := NewAlivenessTable(1)
	s, err := NewServer(Spec{Name: "test", Port: 0, SuccessRate: rate}, "127.0.0.1:0", table.Cell(0))
	require.NoError(t, err)
	go s.Serve()
	t.Cleanup(func() { s.Close() })
	return s.listener.Addr().String(), s
}

// Scenario 1 (spec §8): at success_rate=1.0 every PREPARE is answered
// PAYMENT_OK.
func TestPrepareAlwaysSucceedsAtRateOne(t *testing.T) {
	addr, _ := startTestServer(t, 1.0)
	reply := dialSend(t, addr, wire.AgentMessage{TxnID: 1, Amount: 100, Op: wire.Prepare})
	require.Equal(t, wire.PaymentOK, reply)
}

// Scenario 2 (spec §8): success_rate=0.0 always fails PREPARE.
func TestPrepareAlwaysFailsAtRateZero(t *testing.T) {
	addr, _ := startTestServer(t, 0.0)
	reply := dialSend(t, addr, wire.AgentMessage{TxnID: 1, Amount: 100, Op: wire.Prepare})
	require.Equal(t, wire.PaymentErr, reply)
}

// A failed PREPARE still records id -> PREPARE (spec §4.6 dispatch table:
// the state write happens before the Bernoulli draw, not conditioned on it).
func TestPrepareFailureStillRecordsState(t *testing.T) {
	addr, srv := startTestServer(t, 0.0)
	dialSend(t, addr, wire.AgentMessage{TxnID: 7, Amount: 100, Op: wire.Prepare})

	srv.mu.Lock()
	got, ok := srv.states[7]
	srv.mu.Unlock()

	assert.Equal(t, ok, true)
	assert.Equal(t, got, wire.PhasePrepare)
}

func TestCommitAndAbortAlwaysAck(t *testing.T) {
	addr, _ := startTestServer(t, 1.0)
	require.Equal(t, wire.Ack, dialSend(t, addr, wire.AgentMessage{TxnID: 1, Op: wire.Commit}))
	require.Equal(t, wire.Ack, dialSend(t, addr, wire.AgentMessage{TxnID: 2, Op: wire.Abort}))
}

// Scenario 6 (spec §8): FINISH is ACKed, then the agent stops accepting.
func TestFinishAcksThenStopsAccepting(t *testing.T) {
	addr, srv := startTestServer(t, 1.0)
	require.Equal(t, wire.Ack, dialSend(t, addr, wire.AgentMessage{TxnID: 0, Op: wire.Finish}))

	require.Eventually(t, func() bool {
		_, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		return err != nil
	}, time.Second, 10*time.Millisecond, "agent still accepting after FINISH")

	_ = srv
}

func TestKillLineStopsAcceptingAndIsTranslatedToConnectionError(t *testing.T) {
	table := NewAlivenessTable(2)
	s, err := NewServer(Spec{Name: "a0", SuccessRate: 1.0}, "127.0.0.1:0", table.Cell(0))
	require.NoError(t, err)
	go s.Serve()
	t.Cleanup(func() { s.Close() })
	addr := s.listener.Addr().String()

	ReadKillLines(strings.NewReader("0\n"), table)
	require.False(t, isAlive(table.Cell(0)))

	require.Eventually(t, func() bool {
		_, err := net.DialTimeout("tcp", addr, 200*time.Millisecond)
		return err != nil
	}, time.Second, 10*time.Millisecond, "agent still accepting after kill line")
}
