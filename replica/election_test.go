package replica

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alglobo-systems/coordinator/configs"
)

// bindCluster binds n replicas' sockets (without running their initial
// election) so every address is already listening before any node starts
// sending election traffic.
func bindCluster(t *testing.T, n uint64) []*Node {
	t.Helper()
	nodes := make([]*Node, n)
	for i := uint64(0); i < n; i++ {
		node, err := newBound(i, n)
		require.NoError(t, err)
		nodes[i] = node
	}
	t.Cleanup(func() {
		for _, node := range nodes {
			node.Close()
		}
	})
	return nodes
}

func withTestTimeout(t *testing.T, d time.Duration) {
	t.Helper()
	old := configs.Timeout
	configs.Timeout = d
	t.Cleanup(func() { configs.Timeout = old })
}

// requireLeaderEventually tolerates the propagation lag between the
// initiator learning the winner and every other node's responder finishing
// its own hop of the COORDINATOR relay.
func requireLeaderEventually(t *testing.T, node *Node, want uint64) {
	t.Helper()
	require.Eventually(t, func() bool {
		id, ok := node.leader.Get()
		return ok && id == want
	}, 2*time.Second, 5*time.Millisecond, "node %d never converged on leader %d", node.ID, want)
}

// E1: starting from any configuration where at least one node is alive and
// reachable, within finite time every live node has leader_id = Some(m) for
// the same m, the max id among live nodes at election time. A single
// initiator is enough: the COORDINATOR announcement propagates around the
// ring to every other live node's responder.
func TestElectionTerminationAllLive(t *testing.T) {
	withTestTimeout(t, 150*time.Millisecond)
	const n = 5
	nodes := bindCluster(t, n)

	nodes[0].findNew()

	for _, node := range nodes {
		requireLeaderEventually(t, node, uint64(n-1))
	}
}

// E2: running find_new when the current leader is still alive yields the
// same leader_id (the maximum among live nodes).
func TestElectionIdempotentWhenLeaderAlive(t *testing.T) {
	withTestTimeout(t, 150*time.Millisecond)
	const n = 4
	nodes := bindCluster(t, n)

	nodes[0].findNew()
	for _, node := range nodes {
		requireLeaderEventually(t, node, uint64(n-1))
	}

	// Re-running the election with the same live set must converge on the
	// same leader.
	nodes[1].findNew()
	requireLeaderEventually(t, nodes[1], uint64(n-1))
}

// Scenario 3 (spec §8): 5 replicas; kill the replica with the maximum id
// just after startup; the new leader_id is the second-highest id.
func TestElectionPromotesSecondHighestWhenMaxDies(t *testing.T) {
	withTestTimeout(t, 150*time.Millisecond)
	const n = 5
	nodes := bindCluster(t, n)

	// Simulate node 4 (max id) being dead from the start: close it before
	// anyone runs an election.
	dead := nodes[n-1]
	dead.Close()

	nodes[0].findNew()

	for _, node := range nodes[:n-1] {
		requireLeaderEventually(t, node, uint64(n-2))
	}
}
