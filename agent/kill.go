package agent

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/alglobo-systems/coordinator/configs"
)

// AlivenessTable holds one atomic cell per configured agent; index i tracks
// agent i (spec §4.6: "the integer indexes into a per-agent aliveness flag
// array"). Cells start at 1 (alive).
type AlivenessTable struct {
	cells []int32
}

func NewAlivenessTable(n int) *AlivenessTable {
	t := &AlivenessTable{cells: make([]int32, n)}
	for i := range t.cells {
		t.cells[i] = 1
	}
	return t
}

func (t *AlivenessTable) Cell(i int) *int32 {
	return &t.cells[i]
}

func isAlive(cell *int32) bool {
	return atomic.LoadInt32(cell) != 0
}

// atomicStore0 clears cell and reports whether it actually transitioned
// (so a double FINISH doesn't double-close the listener).
func atomicStore0(cell *int32) bool {
	return atomic.CompareAndSwapInt32(cell, 1, 0)
}

// ReadKillLines parses whitespace-trimmed integer lines from r (spec §6): a
// line parseable as an integer k in [0, K) kills entity k; other lines are
// ignored. Runs until r is exhausted (typically stdin, until EOF/process
// exit).
func ReadKillLines(r io.Reader, table *AlivenessTable) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		k, err := strconv.Atoi(line)
		if err != nil || k < 0 || k >= len(table.cells) {
			continue
		}
		if atomicStore0(table.Cell(k)) {
			configs.DPrintf("agent %d killed via stdin", k)
		}
	}
}
