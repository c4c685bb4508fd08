package simulate

import "time"

// PendingEvent is a known one-off cash movement landing a fixed number of
// days into a projection.
type PendingEvent struct {
	DayOffset int     `json:"day_offset"`
	Amount    float64 `json:"amount"`
}

// Params carries the knobs for every simulation kind in one flat struct;
// each kind reads only its own fields. Start from DefaultParams and
// override what the scenario needs.
type Params struct {
	// Seed drives every stochastic simulation. Runs with equal seeds and
	// params are bit-for-bit reproducible.
	Seed int64 `json:"seed"`

	// Budget variation.
	BaseBudget    float64   `json:"base_budget"`
	VariationPcts []float64 `json:"variation_pcts"`
	Categories    []string  `json:"categories"`

	// Cashflow projection.
	InitialBalance  float64        `json:"initial_balance"`
	DailyAvgInflow  float64        `json:"daily_avg_inflow"`
	DailyAvgOutflow float64        `json:"daily_avg_outflow"`
	Days            int            `json:"days"`
	Volatility      float64        `json:"volatility"`
	WeekendFactor   float64        `json:"weekend_factor"`
	StartDate       time.Time      `json:"start_date"`
	PendingInflows  []PendingEvent `json:"pending_inflows,omitempty"`
	PendingOutflows []PendingEvent `json:"pending_outflows,omitempty"`

	// Monte carlo.
	BaseRevenue       float64 `json:"base_revenue"`
	BaseCosts         float64 `json:"base_costs"`
	RevenueVolatility float64 `json:"revenue_volatility"`
	CostVolatility    float64 `json:"cost_volatility"`
	Iterations        int     `json:"iterations"`
	Periods           int     `json:"periods"`

	// Contract renegotiation.
	CurrentAnnualCost   float64 `json:"current_annual_cost"`
	ProposedDiscountPct float64 `json:"proposed_discount_pct"`
	DurationYears       int     `json:"duration_years"`
	InflationRate       float64 `json:"inflation_rate"`
	Indexation          bool    `json:"indexation"`
	ExitPenaltyPct      float64 `json:"exit_penalty_pct"`
}

// DefaultParams returns the baseline parameter set for a mid-size company:
// a 1M budget, 500k of cash on hand, 5M revenue against 4.2M of costs.
func DefaultParams() Params {
	return Params{
		Seed: 42,

		BaseBudget:    1_000_000,
		VariationPcts: []float64{-15, -10, -5, 0, 5, 10, 15},
		Categories:    []string{"OPEX", "CAPEX", "HR", "IT", "Marketing"},

		InitialBalance:  500_000,
		DailyAvgInflow:  15_000,
		DailyAvgOutflow: 12_000,
		Days:            90,
		Volatility:      0.15,
		WeekendFactor:   0.1,

		BaseRevenue:       5_000_000,
		BaseCosts:         4_200_000,
		RevenueVolatility: 0.15,
		CostVolatility:    0.10,
		Iterations:        10_000,
		Periods:           12,

		CurrentAnnualCost:   500_000,
		ProposedDiscountPct: 10,
		DurationYears:       3,
		InflationRate:       0.03,
		Indexation:          true,
		ExitPenaltyPct:      5,
	}
}
