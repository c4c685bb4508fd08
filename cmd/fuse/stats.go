package main

import (
	"flag"
	"fmt"
	"log"
	"os"
)

// runStats prints row counts plus the most recent snapshots and open
// decisions, newest first.
func runStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	snapshots := fs.Int("snapshots", 5, "how many recent snapshots to list")
	decisions := fs.Int("decisions", 10, "how many open decisions to list")
	fs.Parse(os.Args[1:])

	cfg := loadConfig()
	st := openStore(cfg)
	defer st.Close()

	stats, err := st.Stats()
	if err != nil {
		log.Fatalf("fuse: failed to read stats: %v", err)
	}

	fmt.Printf("database: %s\n\n", cfg.DBPath)
	fmt.Printf("%-18s %d\n", "budget lines:", stats.BudgetLines)
	fmt.Printf("%-18s %d\n", "cashflow entries:", stats.CashflowEntries)
	fmt.Printf("%-18s %d\n", "contracts:", stats.Contracts)
	fmt.Printf("%-18s %d\n", "invoices:", stats.Invoices)
	fmt.Printf("%-18s %d\n", "snapshots:", stats.Snapshots)
	fmt.Printf("%-18s %d\n", "open decisions:", stats.OpenDecisions)

	recent, err := st.RecentSnapshots(*snapshots)
	if err != nil {
		log.Fatalf("fuse: failed to load snapshots: %v", err)
	}
	if len(recent) > 0 {
		fmt.Println("\nrecent snapshots:")
		for _, s := range recent {
			fmt.Printf("  #%-5d %s  score %+.3f  %3d signals  %d conflicts\n",
				s.ID, s.GeneratedAt.Format("2006-01-02 15:04"), s.OverallScore,
				s.SignalCount, s.ConflictCount)
		}
	}

	open, err := st.OpenDecisions(*decisions)
	if err != nil {
		log.Fatalf("fuse: failed to load decisions: %v", err)
	}
	if len(open) > 0 {
		fmt.Println("\nopen decisions:")
		for _, d := range open {
			fmt.Printf("  %s  %s  %+.3f  %s\n", d.ID, d.Priority, d.Score, truncate(d.Title, 60))
		}
	}
}
