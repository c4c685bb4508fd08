package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/maelcolin/fuseboard/internal/gap"
)

// runGaps prints the predicted-vs-actual report straight from the books.
func runGaps() {
	fs := flag.NewFlagSet("gaps", flag.ExitOnError)
	year := fs.Int("year", 0, "fiscal year (default: configured year)")
	asJSON := fs.Bool("json", false, "print the report as JSON")
	fs.Parse(os.Args[1:])

	cfg := loadConfig()
	if *year == 0 {
		*year = cfg.FiscalYear
	}

	st := openStore(cfg)
	defer st.Close()

	calc := gap.NewCalculator(st)
	report, err := calc.Report(*year)
	if err != nil {
		log.Fatalf("fuse: gap report failed: %v", err)
	}

	if *asJSON {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			log.Fatalf("fuse: failed to marshal report: %v", err)
		}
		fmt.Println(string(out))
		return
	}

	fmt.Printf("gap report, fiscal year %d\n\n", report.FiscalYear)

	if report.TotalGaps == 0 {
		fmt.Println("no measurements. Seed some books first: fuse seed")
		return
	}

	fmt.Printf("%-10s %-24s %14s %14s %8s  %s\n",
		"KIND", "LABEL", "PREDICTED", "ACTUAL", "GAP%", "SEVERITY")
	for _, g := range report.Gaps {
		fmt.Printf("%-10s %-24s %14.2f %14.2f %+7.1f%%  %s\n",
			g.Kind, truncate(g.Label, 24), g.Predicted, g.Actual, g.GapPct, g.Severity)
	}

	fmt.Printf("\n%d measurements, %d on plan, %d off plan (%.1f%% success)\n",
		report.TotalGaps, report.SuccessCount, report.FailureCount, report.SuccessRate)

	// Fixed order, worst first.
	order := []gap.Severity{
		gap.SeverityAlert, gap.SeverityCritical, gap.SeverityWarning,
		gap.SeverityInfo, gap.SeverityNominal,
	}
	fmt.Println("severity distribution:")
	for _, sev := range order {
		if n := report.BySeverity[sev]; n > 0 {
			fmt.Printf("  %-10s %d\n", sev, n)
		}
	}
}
