// Command loadgen is the SPEC_FULL §4.8 domain-stack addition: a synthetic
// prices-CSV generator for exercising the coordinator at a configurable
// record count and agent fan-out, without depending on a general-purpose
// YCSB-style workload generator (see DESIGN.md for why pingcap/go-ycsb's
// key-value workload model does not fit this per-record multi-agent
// amount shape).
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"os"

	"github.com/alglobo-systems/coordinator/configs"
)

var (
	records    int
	numAgents  int
	maxAmount  int
	outputPath string
)

func init() {
	flag.IntVar(&records, "records", 100, "number of prices-CSV records to generate")
	flag.IntVar(&numAgents, "agents", 3, "amounts per record (one per agent)")
	flag.IntVar(&maxAmount, "max_amount", 1000, "maximum per-agent amount, exclusive")
	flag.StringVar(&outputPath, "out", configs.DefaultPricesCSV, "output prices CSV path")
}

func main() {
	flag.Parse()

	f, err := os.Create(outputPath)
	if err != nil {
		configs.Warn(false, "loadgen: failed to create output file: "+err.Error())
		os.Exit(1)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	for i := 0; i < records; i++ {
		for j := 0; j < numAgents; j++ {
			if j > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprint(w, rand.Intn(maxAmount))
		}
		fmt.Fprint(w, "\n")
	}
}
