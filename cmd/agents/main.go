// Command agents starts one TCP listener per entry in src/agents.yaml
// (spec §6): no positional arguments, and a stdin kill-reader that parses
// integer lines to flip a per-agent aliveness flag.
package main

import (
	"flag"
	"fmt"
	"os"
	"sync"

	"github.com/alglobo-systems/coordinator/agent"
	"github.com/alglobo-systems/coordinator/configs"
)

var (
	configPath string
	debug      bool
)

func init() {
	flag.StringVar(&configPath, "config", configs.DefaultAgentsYAML, "agents YAML config path")
	flag.BoolVar(&debug, "debug", false, "enable debug logging")
}

func main() {
	flag.Parse()
	configs.ShowDebugInfo = debug
	configs.ShowWarnings = true

	specs, err := agent.LoadConfig(configPath)
	if err != nil {
		configs.Warn(false, "agents: failed to load config: "+err.Error())
		os.Exit(1)
	}

	table := agent.NewAlivenessTable(len(specs))
	servers := make([]*agent.Server, len(specs))
	var wg sync.WaitGroup

	for i, spec := range specs {
		addr := fmt.Sprintf("127.0.0.1:%d", spec.Port)
		srv, err := agent.NewServer(spec, addr, table.Cell(i))
		if err != nil {
			configs.Warn(false, "agents: failed to bind "+spec.Name+": "+err.Error())
			os.Exit(1)
		}
		servers[i] = srv
		wg.Add(1)
		go func() {
			defer wg.Done()
			srv.Serve()
		}()
	}

	agent.ReadKillLines(os.Stdin, table)
	for _, srv := range servers {
		srv.Close()
	}
	wg.Wait()
}
