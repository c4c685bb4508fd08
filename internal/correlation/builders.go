package correlation

import (
	"math"

	"github.com/maelcolin/fuseboard/internal/signal"
)

// Builders for the domain events that feed the correlator. Each one
// normalizes a raw observation into a weak signal: low confidence by
// construction, adverse value matching, and enough metadata to trace the
// finding back to its record. The same signals are legal input for the
// fusion aggregator: weakness is a confidence level, not a separate type.

// CashflowAnomaly flags a cashflow figure deviating from its expected level.
// A 50% deviation saturates confidence.
func CashflowAnomaly(label string, deviationPct float64) signal.Signal {
	strength := math.Min(1, math.Abs(deviationPct)/50)
	s := signal.New(signal.SourceRealtime, "liquidity", -strength, strength, signal.Negative)
	s.Metadata = map[string]any{"label": label, "deviation_pct": deviationPct}
	return s
}

// ContractExpiry signals an approaching contract end date. Urgency grows as
// the date nears, with a 0.1 floor so renewals a year out still register.
func ContractExpiry(reference string, daysUntil int) signal.Signal {
	urgency := math.Max(0.1, 1-float64(daysUntil)/365)
	s := signal.New(signal.SourceGraph, "vendor_risk", -urgency, urgency, signal.Negative)
	s.Metadata = map[string]any{"contract": reference, "days_until_expiry": daysUntil}
	return s
}

// BudgetDrift signals a budget category drifting off plan in either
// direction. A 30% drift saturates confidence.
func BudgetDrift(category string, driftPct float64) signal.Signal {
	strength := math.Min(1, math.Abs(driftPct)/30)
	s := signal.New(signal.SourceFeedback, "budget_drift", -strength, strength, signal.Negative)
	s.Metadata = map[string]any{"category": category, "drift_pct": driftPct}
	return s
}

// DocumentInsight converts a retrieved document finding into a weak signal.
// Retrieval confidence is discounted: a relevant paragraph is a hint, not a
// measurement.
func DocumentInsight(summary string, confidence float64) signal.Signal {
	s := signal.New(signal.SourceRAG, "intelligence", 0, confidence*0.6, signal.Neutral)
	s.Metadata = map[string]any{"summary": summary}
	return s
}
