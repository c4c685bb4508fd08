package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/maelcolin/fuseboard/internal/simulate"
)

// runSim executes one or all simulation kinds with overridable parameters
// and prints the full results.
func runSim() {
	fs := flag.NewFlagSet("sim", flag.ExitOnError)
	kind := fs.String("kind", "all", "scenario kind: all, budget_variation, cashflow_projection, monte_carlo, renegotiation")
	seed := fs.Int64("seed", 0, "override the random seed (0 keeps the default)")
	iterations := fs.Int("iterations", 0, "override Monte Carlo iterations")
	days := fs.Int("days", 0, "override cashflow projection days")
	workers := fs.Int("workers", 0, "parallel workers (default: configured)")
	asJSON := fs.Bool("json", false, "print raw results as JSON")
	fs.Parse(os.Args[1:])

	params := simulate.DefaultParams()
	if *seed != 0 {
		params.Seed = *seed
	}
	if *iterations > 0 {
		params.Iterations = *iterations
	}
	if *days > 0 {
		params.Days = *days
	}

	var scenarios []simulate.Scenario
	if *kind == "all" {
		for _, sc := range simulate.DefaultScenarios() {
			sc.Params = params
			scenarios = append(scenarios, sc)
		}
	} else {
		scenarios = []simulate.Scenario{{Kind: simulate.Kind(*kind), Params: params}}
	}

	cfg := loadConfig()
	if *workers == 0 {
		*workers = cfg.MaxSimWorkers
	}

	engine := simulate.NewEngine(*workers)
	results := engine.RunAll(context.Background(), scenarios)

	if *asJSON {
		out, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			log.Fatalf("fuse: failed to marshal results: %v", err)
		}
		fmt.Println(string(out))
		return
	}

	for i, r := range results {
		if i > 0 {
			fmt.Println()
		}
		printSimResult(r)
	}
}

func printSimResult(r simulate.Result) {
	fmt.Printf("[%s] %s\n", r.Kind, r.ID)
	if !r.OK() {
		fmt.Printf("  failed: %s\n", r.Err)
		return
	}

	switch {
	case r.Budget != nil:
		b := r.Budget
		fmt.Printf("  base budget %.0f, %d scenarios\n", b.BaseBudget, len(b.Scenarios))
		for _, sc := range b.Scenarios {
			fmt.Printf("  %+6.0f%%  total %12.0f  delta %+12.0f\n", sc.VariationPct, sc.TotalBudget, sc.Delta)
		}
		fmt.Printf("  %s\n", b.Recommendation)

	case r.Cashflow != nil:
		c := r.Cashflow
		fmt.Printf("  %-18s %.0f\n", "initial balance:", c.InitialBalance)
		fmt.Printf("  %-18s %.0f after %d days\n", "final balance:", c.FinalBalance, c.DaysProjected)
		fmt.Printf("  %-18s %.0f on day %d\n", "low point:", c.MinBalance, c.MinBalanceDay)
		fmt.Printf("  %-18s %+.0f\n", "avg daily net:", c.AvgDailyNet)
		if c.RiskAlert {
			fmt.Println("  RISK ALERT: projected balance dips below the safety floor")
		}

	case r.MonteCarlo != nil:
		m := r.MonteCarlo
		fmt.Printf("  %d iterations over %d periods\n", m.Iterations, m.Periods)
		fmt.Printf("  %-18s %.0f (stddev %.0f)\n", "mean profit:", m.MeanProfit, m.StdDev)
		fmt.Printf("  %-18s p5 %.0f / p50 %.0f / p95 %.0f\n", "percentiles:",
			m.Percentiles["p5"], m.Percentiles["p50"], m.Percentiles["p95"])
		fmt.Printf("  %-18s %.1f%%\n", "P(loss):", m.ProbabilityOfLoss*100)
		fmt.Printf("  %-18s %.0f\n", "VaR(95):", m.ValueAtRisk95)
		fmt.Printf("  %-18s %s\n", "risk:", m.RiskAssessment)

	case r.Renegotiation != nil:
		n := r.Renegotiation
		fmt.Printf("  current %.0f/yr, %.0f%% discount over %d years\n",
			n.CurrentAnnualCost, n.DiscountPct, n.DurationYears)
		fmt.Printf("  %-18s %.0f\n", "total current:", n.TotalCurrent)
		fmt.Printf("  %-18s %.0f\n", "renegotiated:", n.TotalRenegotiated)
		fmt.Printf("  %-18s %.0f gross, %.0f penalty, %.0f net\n", "savings:",
			n.GrossSavings, n.ExitPenalty, n.NetSavings)
		if n.ROIPct != nil {
			fmt.Printf("  %-18s %.0f%%\n", "ROI on penalty:", *n.ROIPct)
		}
		fmt.Printf("  %s\n", n.Recommendation)
	}
}
