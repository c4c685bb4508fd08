package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/maelcolin/fuseboard/internal/store"
)

// runSeed loads a coherent demo dataset: a mid-size company with an OPEX
// overrun, a travel blowout, a thin month of cash and a contract about to
// expire. Rerunning is safe: budget lines, contracts and invoices upsert.
func runSeed() {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	year := fs.Int("year", 0, "fiscal year to seed (default: configured year)")
	fs.Parse(os.Args[1:])

	cfg := loadConfig()
	if *year == 0 {
		*year = cfg.FiscalYear
	}

	st := openStore(cfg)
	defer st.Close()

	now := time.Now().UTC()

	lines := []store.BudgetLine{
		{FiscalYear: *year, Category: "IT_INFRA", Planned: decimal.NewFromInt(250_000), Actual: decimal.NewFromInt(285_000)},
		{FiscalYear: *year, Category: "PAYROLL", Planned: decimal.NewFromInt(1_200_000), Actual: decimal.NewFromInt(1_218_000)},
		{FiscalYear: *year, Category: "MARKETING", Planned: decimal.NewFromInt(180_000), Actual: decimal.NewFromInt(149_000)},
		{FiscalYear: *year, Category: "FACILITIES", Planned: decimal.NewFromInt(95_000), Actual: decimal.NewFromInt(99_500)},
		{FiscalYear: *year, Category: "TRAVEL", Planned: decimal.NewFromInt(60_000), Actual: decimal.NewFromInt(82_000)},
		{FiscalYear: *year, Category: "LEGAL", Planned: decimal.NewFromInt(45_000), Actual: decimal.NewFromInt(41_000)},
	}
	nLines, err := st.SaveBudgetLines(lines)
	if err != nil {
		log.Fatalf("fuse: failed to seed budget lines: %v", err)
	}

	entries := seedCashflow(*year)
	nEntries, err := st.SaveCashflowEntries(entries)
	if err != nil {
		log.Fatalf("fuse: failed to seed cashflow: %v", err)
	}

	contracts := []store.Contract{
		{
			Reference:    fmt.Sprintf("CT-%d-001", *year),
			Title:        "Cloud hosting",
			Counterparty: "Nimbus Hosting SA",
			AnnualValue:  decimal.NewFromInt(48_000),
			TotalValue:   decimal.NewFromInt(144_000),
			Start:        now.AddDate(-3, 0, 0),
			End:          now.AddDate(0, 0, 45),
			Status:       "active",
		},
		{
			Reference:    fmt.Sprintf("CT-%d-002", *year),
			Title:        "Security audit retainer",
			Counterparty: "Bastion Conseil",
			AnnualValue:  decimal.NewFromInt(30_000),
			TotalValue:   decimal.NewFromInt(90_000),
			Start:        now.AddDate(-1, 0, 0),
			End:          now.AddDate(1, 6, 0),
			Status:       "active",
		},
		{
			Reference:    fmt.Sprintf("CT-%d-003", *year),
			Title:        "Office cleaning",
			Counterparty: "Propre & Net",
			AnnualValue:  decimal.NewFromInt(18_000),
			TotalValue:   decimal.NewFromInt(36_000),
			Start:        now.AddDate(-2, 0, 0),
			End:          now.AddDate(0, -1, 0),
			Status:       "expired",
		},
	}
	nContracts, err := st.SaveContracts(contracts)
	if err != nil {
		log.Fatalf("fuse: failed to seed contracts: %v", err)
	}

	invoices := []store.Invoice{
		{Number: "INV-1001", ContractRef: contracts[0].Reference, Date: now.AddDate(0, -10, 0), Amount: decimal.NewFromInt(48_000)},
		{Number: "INV-1002", ContractRef: contracts[0].Reference, Date: now.AddDate(0, -6, 0), Amount: decimal.NewFromInt(48_000)},
		{Number: "INV-1003", ContractRef: contracts[0].Reference, Date: now.AddDate(0, -2, 0), Amount: decimal.NewFromInt(61_000)},
		{Number: "INV-1004", ContractRef: contracts[1].Reference, Date: now.AddDate(0, -4, 0), Amount: decimal.NewFromInt(30_000)},
	}
	nInvoices, err := st.SaveInvoices(invoices)
	if err != nil {
		log.Fatalf("fuse: failed to seed invoices: %v", err)
	}

	fmt.Printf("seeded fiscal year %d:\n", *year)
	fmt.Printf("  %-18s %d\n", "budget lines:", nLines)
	fmt.Printf("  %-18s %d\n", "cashflow entries:", nEntries)
	fmt.Printf("  %-18s %d\n", "contracts:", nContracts)
	fmt.Printf("  %-18s %d\n", "invoices:", nInvoices)
	fmt.Println("\nnext: fuse gaps, fuse weak, or fuse run -offline")
}

// seedCashflow builds six months of projected and actual entries. Month
// four runs hot on outflows so the gap report has something to flag.
func seedCashflow(year int) []store.CashflowEntry {
	var entries []store.CashflowEntry

	type month struct {
		projectedIn, actualIn   int64
		projectedOut, actualOut int64
	}
	months := []month{
		{410_000, 402_000, 380_000, 371_000},
		{410_000, 431_000, 380_000, 388_000},
		{420_000, 419_000, 385_000, 379_000},
		{420_000, 362_000, 385_000, 447_000}, // the bad month
		{430_000, 428_000, 390_000, 393_000},
		{430_000, 445_000, 390_000, 386_000},
	}

	for i, m := range months {
		date := time.Date(year, time.Month(i+1), 15, 0, 0, 0, 0, time.UTC)
		label := date.Format("2006-01")
		entries = append(entries,
			store.CashflowEntry{Date: date, Direction: "in", Amount: decimal.NewFromInt(m.projectedIn), Label: "projected receipts " + label, Projected: true},
			store.CashflowEntry{Date: date, Direction: "out", Amount: decimal.NewFromInt(m.projectedOut), Label: "projected spend " + label, Projected: true},
			store.CashflowEntry{Date: date, Direction: "in", Amount: decimal.NewFromInt(m.actualIn), Label: "receipts " + label},
			store.CashflowEntry{Date: date, Direction: "out", Amount: decimal.NewFromInt(m.actualOut), Label: "spend " + label},
		)
	}
	return entries
}
