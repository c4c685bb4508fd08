package simulate

import "math"

// YearCost compares the current and renegotiated contract cost for one
// year of the term.
type YearCost struct {
	Year         int     `json:"year"`
	Current      float64 `json:"current"`
	Renegotiated float64 `json:"renegotiated"`
}

// Renegotiation compares keeping a contract at its current rate against
// renegotiating a discount, over the full remaining term. When the
// contract is indexed, both paths inflate year over year; the exit penalty
// is the one-off cost of forcing the renegotiation.
type Renegotiation struct {
	CurrentAnnualCost float64    `json:"current_annual_cost"`
	DiscountPct       float64    `json:"discount_pct"`
	DurationYears     int        `json:"duration_years"`
	Years             []YearCost `json:"years"`
	TotalCurrent      float64    `json:"total_current"`
	TotalRenegotiated float64    `json:"total_renegotiated"`
	GrossSavings      float64    `json:"gross_savings"`
	ExitPenalty       float64    `json:"exit_penalty"`
	NetSavings        float64    `json:"net_savings"`
	// ROIPct is savings relative to the exit penalty; nil when there is no
	// penalty to recover.
	ROIPct         *float64 `json:"roi_pct"`
	Recommendation string   `json:"recommendation"`
}

func runRenegotiation(p Params) *Renegotiation {
	years := p.DurationYears
	if years <= 0 {
		years = 1
	}

	out := &Renegotiation{
		CurrentAnnualCost: p.CurrentAnnualCost,
		DiscountPct:       p.ProposedDiscountPct,
		DurationYears:     years,
		Years:             make([]YearCost, 0, years),
	}

	renegotiatedBase := p.CurrentAnnualCost * (1 - p.ProposedDiscountPct/100)
	var totalCurrent, totalRenegotiated float64
	for year := 0; year < years; year++ {
		current := p.CurrentAnnualCost
		renegotiated := renegotiatedBase
		if p.Indexation {
			infl := math.Pow(1+p.InflationRate, float64(year))
			current *= infl
			renegotiated *= infl
		}
		out.Years = append(out.Years, YearCost{
			Year:         year + 1,
			Current:      round2(current),
			Renegotiated: round2(renegotiated),
		})
		totalCurrent += current
		totalRenegotiated += renegotiated
	}

	out.TotalCurrent = round2(totalCurrent)
	out.TotalRenegotiated = round2(totalRenegotiated)
	out.GrossSavings = round2(totalCurrent - totalRenegotiated)
	out.ExitPenalty = round2(p.CurrentAnnualCost * p.ExitPenaltyPct / 100)
	out.NetSavings = round2(out.GrossSavings - out.ExitPenalty)
	if out.ExitPenalty > 0 {
		roi := round2(out.NetSavings / out.ExitPenalty * 100)
		out.ROIPct = &roi
	}

	switch {
	case out.NetSavings > 0:
		out.Recommendation = "Renegotiate: the discount clears the exit penalty within the term"
	case out.GrossSavings > 0:
		out.Recommendation = "Hold: projected savings do not cover the exit penalty"
	default:
		out.Recommendation = "Keep current terms: the proposal saves nothing over the term"
	}

	return out
}
