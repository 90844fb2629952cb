// Package configs holds the cluster-wide tunables and the leveled,
// printf-style logging helpers shared by every package in the coordinator
// process and the agent process, in the spirit of a small ambient "configs"
// package rather than a dependency-injected logger.
package configs

import (
	"strconv"
	"time"
)

// Debugging switches. Flipped from main() via flags; off by default so a
// normal run is quiet.
var (
	ShowDebugInfo = false
	ShowWarnings  = false
	ShowTestInfo  = false
	LogToFile     = false
)

// NumberOfNodes is the fixed replica count N referenced throughout §3/§4.
// Reference default is 5.
var NumberOfNodes = 5

// Timeout is TIMEOUT from spec §5: governs follower data-channel reads,
// safe_send_next's ACK wait, and the 2PC broadcast wait.
var Timeout = 5 * time.Second

// ResponderPollInterval bounds how long the control responder blocks on a
// single datagram read before re-checking the stop flag (spec §4.3: at most
// TIMEOUT/4).
func ResponderPollInterval() time.Duration {
	return Timeout / 4
}

// UseWAL gates the optional local write-ahead replication log (SPEC_FULL
// §4.3 domain-stack addition). Off by default, matching the teacher's own
// configs.UseWAL gate.
var UseWAL = false

// Base UDP ports for the two per-node endpoints (spec §4.2).
const (
	ControlPortBase = 1100
	DataPortBase    = 1200
)

// ControlAddr returns the deterministic control endpoint address for id.
func ControlAddr(id int) string {
	return addrFor(ControlPortBase, id)
}

// DataAddr returns the deterministic data endpoint address for id.
func DataAddr(id int) string {
	return addrFor(DataPortBase, id)
}

func addrFor(base, id int) string {
	return "127.0.0.1:" + strconv.Itoa(base+id)
}

// Retry and prices file defaults (spec §6).
const (
	DefaultPricesCSV  = "src/prices.csv"
	DefaultRetryCSV   = "src/retry.csv"
	DefaultAgentsYAML = "src/agents.yaml"
)

// Audit backend selectors (SPEC_FULL §4.7).
const (
	AuditNone     = "none"
	AuditPostgres = "postgres"
	AuditMongo    = "mongo"
)
