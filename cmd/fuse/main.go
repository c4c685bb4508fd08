// Command fuse is the maintenance and diagnostics companion to fuseboard.
// It runs pipeline stages individually, seeds demo books, and inspects the
// database and event log without starting the TUI.
package main

import (
	"fmt"
	"os"
)

const usage = `fuse - fuseboard maintenance and diagnostics

Usage:
  fuse <command> [flags]

Commands:
  run       run one full pipeline cycle (or keep cycling with -watch)
  gaps      compute the predicted-vs-actual gap report
  sim       run financial simulations with overridable parameters
  weak      rebuild weak signals from the books and detect correlations
  seed      load a demo set of budget, cashflow and contract data
  stats     show row counts, recent snapshots and open decisions
  events    inspect the diagnostic event log (JSONL)
  help      show this help

Run 'fuse <command> -h' for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(0)
	}

	cmd := os.Args[1]
	// Strip the program name + subcommand so flag sets see only their flags.
	os.Args = os.Args[1:]

	switch cmd {
	case "run":
		runCycle()
	case "gaps":
		runGaps()
	case "sim":
		runSim()
	case "weak":
		runWeak()
	case "seed":
		runSeed()
	case "stats":
		runStats()
	case "events":
		runEvents()
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "fuse: unknown command %q\n\n", cmd)
		fmt.Print(usage)
		os.Exit(1)
	}
}
