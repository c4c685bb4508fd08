package simulate

import (
	"math/rand"
	"time"
)

// DayProjection is one simulated day of cash movement.
type DayProjection struct {
	Day     int     `json:"day"`
	Date    string  `json:"date"`
	Inflow  float64 `json:"inflow"`
	Outflow float64 `json:"outflow"`
	Net     float64 `json:"net"`
	Balance float64 `json:"balance"`
}

// CashflowProjection simulates a daily cash balance over a horizon, with
// volatility around the average flows, reduced weekend activity and any
// known one-off movements folded in on their day.
type CashflowProjection struct {
	InitialBalance float64         `json:"initial_balance"`
	FinalBalance   float64         `json:"final_balance"`
	MinBalance     float64         `json:"min_balance"`
	MinBalanceDay  int             `json:"min_balance_day"`
	DaysProjected  int             `json:"days_projected"`
	AvgDailyNet    float64         `json:"avg_daily_net"`
	RiskAlert      bool            `json:"risk_alert"`
	Days           []DayProjection `json:"days"`
}

func runCashflowProjection(p Params, rng *rand.Rand) *CashflowProjection {
	days := p.Days
	if days <= 0 {
		days = 1
	}
	start := p.StartDate
	if start.IsZero() {
		start = time.Now().UTC()
	}

	pendingIn := make(map[int]float64, len(p.PendingInflows))
	for _, ev := range p.PendingInflows {
		pendingIn[ev.DayOffset] += ev.Amount
	}
	pendingOut := make(map[int]float64, len(p.PendingOutflows))
	for _, ev := range p.PendingOutflows {
		pendingOut[ev.DayOffset] += ev.Amount
	}

	balance := p.InitialBalance
	minBalance := balance
	minDay := 0

	out := &CashflowProjection{
		InitialBalance: p.InitialBalance,
		DaysProjected:  days,
		Days:           make([]DayProjection, 0, days),
	}

	for day := 1; day <= days; day++ {
		date := start.AddDate(0, 0, day)
		factor := 1.0
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			factor = p.WeekendFactor
		}

		inflow := p.DailyAvgInflow * factor * (1 + rng.NormFloat64()*p.Volatility)
		outflow := p.DailyAvgOutflow * factor * (1 + rng.NormFloat64()*p.Volatility)
		if inflow < 0 {
			inflow = 0
		}
		if outflow < 0 {
			outflow = 0
		}
		inflow += pendingIn[day]
		outflow += pendingOut[day]

		net := inflow - outflow
		balance += net
		if balance < minBalance {
			minBalance = balance
			minDay = day
		}

		out.Days = append(out.Days, DayProjection{
			Day:     day,
			Date:    date.Format("2006-01-02"),
			Inflow:  round2(inflow),
			Outflow: round2(outflow),
			Net:     round2(net),
			Balance: round2(balance),
		})
	}

	out.FinalBalance = round2(balance)
	out.MinBalance = round2(minBalance)
	out.MinBalanceDay = minDay
	out.AvgDailyNet = round2((balance - p.InitialBalance) / float64(days))
	out.RiskAlert = minBalance < 0

	return out
}
