package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/maelcolin/fuseboard/internal/correlation"
	"github.com/maelcolin/fuseboard/internal/gap"
	"github.com/maelcolin/fuseboard/internal/signal"
)

// weakDriftPct is the gap percentage past which a budget or cashflow line
// counts as a weak signal rather than noise.
const weakDriftPct = 15.0

// runWeak rebuilds the weak signal set from the books, optionally mixes in
// a manual document insight, and runs correlation detection over the lot.
func runWeak() {
	fs := flag.NewFlagSet("weak", flag.ExitOnError)
	year := fs.Int("year", 0, "fiscal year (default: configured year)")
	note := fs.String("note", "", "inject a document insight with this summary")
	confidence := fs.Float64("confidence", 0.7, "confidence for -note")
	window := fs.Duration("window", correlation.DefaultWindow, "correlation window")
	asJSON := fs.Bool("json", false, "print correlations as JSON")
	fs.Parse(os.Args[1:])

	cfg := loadConfig()
	if *year == 0 {
		*year = cfg.FiscalYear
	}

	st := openStore(cfg)
	defer st.Close()

	var sigs []signal.Signal
	now := time.Now().UTC()

	contracts, err := st.ExpiringContracts(now, 90*24*time.Hour)
	if err != nil {
		log.Fatalf("fuse: failed to load expiring contracts: %v", err)
	}
	for _, ct := range contracts {
		days := int(ct.End.Sub(now).Hours() / 24)
		sigs = append(sigs, correlation.ContractExpiry(ct.Reference, days))
	}

	calc := gap.NewCalculator(st)
	budget, err := calc.BudgetGaps(*year)
	if err != nil {
		log.Fatalf("fuse: failed to compute budget gaps: %v", err)
	}
	for _, g := range budget {
		if math.Abs(g.GapPct) >= weakDriftPct {
			sigs = append(sigs, correlation.BudgetDrift(g.Category, g.GapPct))
		}
	}

	cashflow, err := calc.CashflowGaps()
	if err != nil {
		log.Fatalf("fuse: failed to compute cashflow gaps: %v", err)
	}
	for _, g := range cashflow {
		if math.Abs(g.GapPct) >= weakDriftPct {
			sigs = append(sigs, correlation.CashflowAnomaly(g.Label, g.GapPct))
		}
	}

	if *note != "" {
		sigs = append(sigs, correlation.DocumentInsight(*note, *confidence))
	}

	if len(sigs) == 0 {
		fmt.Println("no weak signals in the books. Seed some data first: fuse seed")
		return
	}

	fmt.Printf("%d weak signals:\n", len(sigs))
	for _, s := range sigs {
		fmt.Printf("  %-10s %-14s %+.2f  %3.0f%% conf  %s\n",
			s.Source, s.Topic, s.Value, s.Confidence*100, s.Direction)
	}

	correlator := correlation.New(correlation.WithWindow(*window))
	correlator.AddSignals(sigs)
	found := correlator.DetectCorrelations()

	if *asJSON {
		out, err := json.MarshalIndent(found, "", "  ")
		if err != nil {
			log.Fatalf("fuse: failed to marshal correlations: %v", err)
		}
		fmt.Println(string(out))
		return
	}

	if len(found) == 0 {
		fmt.Println("\nno correlations above the noise floor")
		return
	}

	fmt.Printf("\n%d correlations:\n", len(found))
	for _, c := range found {
		fmt.Printf("  [%s] %s: %s (strength %.2f)\n", c.Severity, c.Kind, c.Narrative, c.Strength)
	}
}
