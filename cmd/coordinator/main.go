// Command coordinator starts one replica of the coordinator cluster (spec
// §6 CLI surface): an optional positional prices-CSV path, flags for
// cluster size/timeout/audit backend, and a stdin kill-reader for
// simulating replica failures.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alglobo-systems/coordinator/agent"
	"github.com/alglobo-systems/coordinator/audit"
	"github.com/alglobo-systems/coordinator/configs"
	"github.com/alglobo-systems/coordinator/replica"
	"github.com/alglobo-systems/coordinator/txndriver"
)

var (
	id            uint64
	n             uint64
	timeoutMillis int
	agentsYAML    string
	retryPath     string
	auditBackend  string
	auditDSN      string
	useWAL        bool
	debug         bool
)

func init() {
	flag.Uint64Var(&id, "id", 0, "this replica's id in [0, n)")
	flag.Uint64Var(&n, "n", uint64(configs.NumberOfNodes), "cluster size")
	flag.IntVar(&timeoutMillis, "timeout_ms", int(configs.Timeout.Milliseconds()), "TIMEOUT in milliseconds")
	flag.StringVar(&agentsYAML, "agents", configs.DefaultAgentsYAML, "agents YAML config path")
	flag.StringVar(&retryPath, "retry", configs.DefaultRetryCSV, "retry CSV output path")
	flag.StringVar(&auditBackend, "audit", configs.AuditNone, "audit sink: none|postgres|mongo")
	flag.StringVar(&auditDSN, "audit_dsn", "", "audit sink connection string")
	flag.BoolVar(&useWAL, "wal", false, "enable local replication write-ahead log")
	flag.BoolVar(&debug, "debug", false, "enable debug logging")
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: coordinator [flags] [prices.csv]")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	configs.ShowDebugInfo = debug
	configs.ShowWarnings = true
	configs.NumberOfNodes = int(n)
	configs.Timeout = time.Duration(timeoutMillis) * time.Millisecond
	configs.UseWAL = useWAL

	pricesPath := configs.DefaultPricesCSV
	if flag.NArg() > 0 {
		pricesPath = flag.Arg(0)
	}

	agentSpecs, err := agent.LoadConfig(agentsYAML)
	if err != nil {
		configs.Warn(false, "coordinator: failed to load agents config: "+err.Error())
		os.Exit(1)
	}
	agentAddrs := make([]string, len(agentSpecs))
	for i, spec := range agentSpecs {
		agentAddrs[i] = fmt.Sprintf("127.0.0.1:%d", spec.Port)
	}

	records, err := txndriver.LoadCSVRecordSource(pricesPath)
	if err != nil {
		configs.Warn(false, "coordinator: failed to load prices CSV: "+err.Error())
		os.Exit(1)
	}
	retry, err := txndriver.NewCSVRetrySink(retryPath)
	if err != nil {
		configs.Warn(false, "coordinator: failed to open retry CSV: "+err.Error())
		os.Exit(1)
	}
	defer retry.Close()

	sink, err := audit.New(auditBackend, auditDSN)
	if err != nil {
		configs.Warn(false, "coordinator: failed to init audit sink: "+err.Error())
		os.Exit(1)
	}
	defer sink.Close()

	driver := &txndriver.Driver{
		AgentAddrs: agentAddrs,
		Records:    records,
		Retry:      retry,
		Sink:       sink,
	}

	node, err := replica.New(id, n)
	if err != nil {
		configs.Warn(false, "coordinator: failed to start replica: "+err.Error())
		os.Exit(1)
	}
	node.Driver = func(ctx context.Context, n *replica.Node) {
		txndriver.Run(ctx, n, driver)
	}

	go readKillLines(os.Stdin, node)

	node.Loop(context.Background())
}

// readKillLines implements the coordinator half of spec §6's stdin
// kill-reader: a line parseable as an integer k in [0, N) kills this
// process if k == id (a real deployment would route k to replica k's own
// stdin; in the single-process test harness this doubles as a local
// shutdown trigger for this node specifically).
func readKillLines(r *os.File, node *replica.Node) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		k, err := strconv.Atoi(line)
		if err != nil || k < 0 || uint64(k) >= n {
			continue
		}
		if uint64(k) == id {
			node.Stop()
			return
		}
	}
}
