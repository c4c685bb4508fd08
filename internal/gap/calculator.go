package gap

import (
	"fmt"
	"strconv"

	"github.com/maelcolin/fuseboard/internal/store"
)

// Calculator derives gaps from stored financial records.
type Calculator struct {
	store *store.Store
}

// NewCalculator creates a Calculator over the given store.
func NewCalculator(st *store.Store) *Calculator {
	return &Calculator{store: st}
}

// BudgetGaps measures planned versus actual per budget category for one
// fiscal year. Lines without a planned amount are skipped: no plan, no gap.
func (c *Calculator) BudgetGaps(fiscalYear int) ([]Result, error) {
	lines, err := c.store.BudgetLines(fiscalYear)
	if err != nil {
		return nil, err
	}

	var results []Result
	for _, line := range lines {
		if line.Planned.IsZero() {
			continue
		}
		r := Measure("budget",
			fmt.Sprintf("Budget %s (%d)", line.Category, fiscalYear),
			line.Planned.InexactFloat64(),
			line.Actual.InexactFloat64())
		r.Category = line.Category
		r.Period = strconv.Itoa(fiscalYear)
		results = append(results, r)
	}
	return results, nil
}

// CashflowGaps measures projected versus realized net cashflow per month.
// Months with neither side recorded are skipped.
func (c *Calculator) CashflowGaps() ([]Result, error) {
	nets, err := c.store.MonthlyNets()
	if err != nil {
		return nil, err
	}

	var results []Result
	for _, m := range nets {
		if m.Projected.IsZero() && m.Actual.IsZero() {
			continue
		}
		r := Measure("cashflow",
			"Cashflow Net "+m.Month,
			m.Projected.InexactFloat64(),
			m.Actual.InexactFloat64())
		r.Category = "cashflow"
		r.Period = m.Month
		results = append(results, r)
	}
	return results, nil
}

// ContractGaps measures invoiced totals against each contract's envelope.
// Only capped contracts appear; the store already filters the rest.
func (c *Calculator) ContractGaps() ([]Result, error) {
	usages, err := c.store.ContractUsages()
	if err != nil {
		return nil, err
	}

	var results []Result
	for _, u := range usages {
		r := Measure("contract",
			"Contract "+u.Reference,
			u.Envelope.InexactFloat64(),
			u.Invoiced.InexactFloat64())
		r.Category = "contract"
		results = append(results, r)
	}
	return results, nil
}

// Report runs all three calculations and folds them into one summary.
func (c *Calculator) Report(fiscalYear int) (Report, error) {
	budget, err := c.BudgetGaps(fiscalYear)
	if err != nil {
		return Report{}, fmt.Errorf("failed to compute budget gaps: %w", err)
	}
	cashflow, err := c.CashflowGaps()
	if err != nil {
		return Report{}, fmt.Errorf("failed to compute cashflow gaps: %w", err)
	}
	contracts, err := c.ContractGaps()
	if err != nil {
		return Report{}, fmt.Errorf("failed to compute contract gaps: %w", err)
	}

	all := make([]Result, 0, len(budget)+len(cashflow)+len(contracts))
	all = append(all, budget...)
	all = append(all, cashflow...)
	all = append(all, contracts...)
	return Summarize(fiscalYear, all), nil
}
