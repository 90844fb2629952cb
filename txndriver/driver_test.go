package txndriver

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alglobo-systems/coordinator/agent"
	"github.com/alglobo-systems/coordinator/wire"
)

// fakeNode is an in-memory LeaderNode used to test the driver without a
// real replica cluster.
type fakeNode struct {
	mu          sync.Mutex
	lastID      uint32
	lastStatus  wire.Phase
	replicated  []wire.DataMessage
	killedCount int
}

func (f *fakeNode) ResumeState() (uint32, wire.Phase) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastID, f.lastStatus
}

func (f *fakeNode) AdvanceState(id uint32, status wire.Phase) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastID, f.lastStatus = id, status
}

func (f *fakeNode) Replicate(msg wire.DataMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replicated = append(f.replicated, msg)
}

func (f *fakeNode) KillCluster() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.killedCount++
}

// memoryRecords is a RecordSource over an in-memory slice, for tests.
type memoryRecords struct {
	rows []([]uint32)
	pos  int
}

func (m *memoryRecords) Next() ([]uint32, bool) {
	if m.pos >= len(m.rows) {
		return nil, false
	}
	r := m.rows[m.pos]
	m.pos++
	return r, true
}

func (m *memoryRecords) Seek(id uint32) { m.pos = int(id) }

// memoryRetry is a RetrySink over an in-memory slice, for tests.
type memoryRetry struct {
	mu   sync.Mutex
	rows [][]uint32
}

func (m *memoryRetry) Append(amounts []uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, amounts)
	return nil
}

func startAgents(t *testing.T, rates []float64) []string {
	t.Helper()
	table := agent.NewAlivenessTable(len(rates))
	addrs := make([]string, len(rates))
	for i, rate := range rates {
		srv, err := agent.NewServer(agent.Spec{Name: "a", SuccessRate: rate}, "127.0.0.1:0", table.Cell(i))
		require.NoError(t, err)
		go srv.Serve()
		addrs[i] = srv.Listener().Addr().String()
		t.Cleanup(func() { srv.Close() })
	}
	return addrs
}

// Scenario 1 (spec §8): all agents succeed, one record commits, retry is
// empty.
func TestDriverScenario1AllAgentsSucceed(t *testing.T) {
	addrs := startAgents(t, []float64{1.0, 1.0, 1.0})
	node := &fakeNode{}
	retry := &memoryRetry{}
	d := &Driver{
		AgentAddrs: addrs,
		Records:    &memoryRecords{rows: [][]uint32{{100, 200, 300}}},
		Retry:      retry,
	}

	Run(context.Background(), node, d)

	require.Empty(t, retry.rows)
	require.Equal(t, 1, node.killedCount)
	require.Equal(t, uint32(0), node.lastID)
	require.Equal(t, wire.PhaseCommit, node.lastStatus)
}

// Scenario 2 (spec §8): the middle agent always fails PREPARE; both
// records abort and land in retry, in order.
func TestDriverScenario2MiddleAgentAlwaysFails(t *testing.T) {
	addrs := startAgents(t, []float64{1.0, 0.0, 1.0})
	node := &fakeNode{}
	retry := &memoryRetry{}
	d := &Driver{
		AgentAddrs: addrs,
		Records: &memoryRecords{rows: [][]uint32{
			{10, 20, 30},
			{40, 50, 60},
		}},
		Retry: retry,
	}

	Run(context.Background(), node, d)

	require.Equal(t, [][]uint32{{10, 20, 30}, {40, 50, 60}}, retry.rows)
	require.Equal(t, wire.PhaseAbort, node.lastStatus)
}

// Scenario 5 (spec §8): one agent port refuses connections; records abort
// and the driver does not hang.
func TestDriverScenario5UnreachableAgentAborts(t *testing.T) {
	node := &fakeNode{}
	retry := &memoryRetry{}
	d := &Driver{
		AgentAddrs: []string{"127.0.0.1:1"}, // nothing listens on a port-1 loopback
		Records:    &memoryRecords{rows: [][]uint32{{5}}},
		Retry:      retry,
	}

	Run(context.Background(), node, d)

	require.Len(t, retry.rows, 1)
	require.Equal(t, wire.PhaseAbort, node.lastStatus)
}

// F1 (failover safety): resuming with last_status=PREPARE aborts that
// record and advances past it.
func TestDriverResumeAbortsInDoubtPrepare(t *testing.T) {
	addrs := startAgents(t, []float64{1.0})
	node := &fakeNode{lastID: 7, lastStatus: wire.PhasePrepare}
	retry := &memoryRetry{}
	rows := make([][]uint32, 9)
	for i := range rows {
		rows[i] = []uint32{1}
	}
	d := &Driver{
		AgentAddrs: addrs,
		Records:    &memoryRecords{rows: rows},
		Retry:      retry,
	}

	Run(context.Background(), node, d)

	require.Len(t, retry.rows, 1, "in-doubt record 7 must be retried exactly once")
}

// F2 (failover progress): resuming with last_status=COMMIT or ABORT
// advances straight to the next record without re-deciding the prior one.
func TestDriverResumeAdvancesPastDecidedRecord(t *testing.T) {
	addrs := startAgents(t, []float64{1.0})
	node := &fakeNode{lastID: 7, lastStatus: wire.PhaseCommit}
	retry := &memoryRetry{}
	rows := make([][]uint32, 9)
	for i := range rows {
		rows[i] = []uint32{1}
	}
	d := &Driver{
		AgentAddrs: addrs,
		Records:    &memoryRecords{rows: rows},
		Retry:      retry,
	}

	Run(context.Background(), node, d)

	require.Empty(t, retry.rows)
	require.Equal(t, uint32(8), node.lastID)
}
