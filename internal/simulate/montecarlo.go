package simulate

import (
	"math"
	"math/rand"
	"sort"
)

const (
	maxIterations = 50_000
	histogramBins = 50
)

// HistogramBin counts outcomes landing in [Low, High).
type HistogramBin struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

// MonteCarlo summarizes an iterated annual profit simulation: each
// iteration draws revenue and costs per period under independent gaussian
// volatility and sums the margin.
type MonteCarlo struct {
	Iterations        int                `json:"iterations"`
	Periods           int                `json:"periods"`
	MeanProfit        float64            `json:"mean_profit"`
	StdDev            float64            `json:"std_dev"`
	Percentiles       map[string]float64 `json:"percentiles"`
	ProbabilityOfLoss float64            `json:"probability_of_loss"`
	ValueAtRisk95     float64            `json:"value_at_risk_95"`
	Histogram         []HistogramBin     `json:"histogram"`
	RiskAssessment    string             `json:"risk_assessment"`
}

func runMonteCarlo(p Params, rng *rand.Rand) *MonteCarlo {
	iters := p.Iterations
	if iters <= 0 {
		iters = 10_000
	}
	if iters > maxIterations {
		iters = maxIterations
	}
	periods := p.Periods
	if periods <= 0 {
		periods = 12
	}

	revPerPeriod := p.BaseRevenue / float64(periods)
	costPerPeriod := p.BaseCosts / float64(periods)

	profits := make([]float64, iters)
	losses := 0
	for i := range profits {
		var profit float64
		for j := 0; j < periods; j++ {
			rev := revPerPeriod * (1 + rng.NormFloat64()*p.RevenueVolatility)
			cost := costPerPeriod * (1 + rng.NormFloat64()*p.CostVolatility)
			profit += rev - cost
		}
		profits[i] = profit
		if profit < 0 {
			losses++
		}
	}

	sorted := append([]float64(nil), profits...)
	sort.Float64s(sorted)

	mean := meanOf(profits)
	probLoss := float64(losses) / float64(iters)
	p5 := percentile(sorted, 5)

	return &MonteCarlo{
		Iterations: iters,
		Periods:    periods,
		MeanProfit: round2(mean),
		StdDev:     round2(stdDevOf(profits, mean)),
		Percentiles: map[string]float64{
			"p5":  round2(p5),
			"p10": round2(percentile(sorted, 10)),
			"p25": round2(percentile(sorted, 25)),
			"p50": round2(percentile(sorted, 50)),
			"p75": round2(percentile(sorted, 75)),
			"p90": round2(percentile(sorted, 90)),
			"p95": round2(percentile(sorted, 95)),
		},
		ProbabilityOfLoss: math.Round(probLoss*1e4) / 1e4,
		ValueAtRisk95:     round2(p5),
		Histogram:         histogram(sorted, histogramBins),
		RiskAssessment:    riskFor(probLoss),
	}
}

// riskFor grades the probability of an annual loss.
func riskFor(probLoss float64) string {
	switch {
	case probLoss < 0.05:
		return "LOW"
	case probLoss < 0.15:
		return "MODERATE"
	case probLoss < 0.30:
		return "HIGH"
	}
	return "CRITICAL"
}

// percentile reads pct from a sorted slice with linear interpolation
// between neighbors.
func percentile(sorted []float64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := pct / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// histogram buckets a sorted slice into equal-width bins. A degenerate
// distribution collapses to a single bin.
func histogram(sorted []float64, bins int) []HistogramBin {
	if len(sorted) == 0 || bins <= 0 {
		return nil
	}
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if hi == lo {
		return []HistogramBin{{Low: round2(lo), High: round2(hi), Count: len(sorted)}}
	}

	width := (hi - lo) / float64(bins)
	out := make([]HistogramBin, bins)
	for i := range out {
		out[i].Low = round2(lo + width*float64(i))
		out[i].High = round2(lo + width*float64(i+1))
	}
	for _, v := range sorted {
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		out[idx].Count++
	}
	return out
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stdDevOf(xs []float64, mean float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(xs)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
