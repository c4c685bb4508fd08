package simulate

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/maelcolin/fuseboard/internal/signal"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// newRun seeds a generator the way Engine.Run does, for driving the
// unexported simulation functions directly.
func newRun(t *testing.T, p Params) *rand.Rand {
	t.Helper()
	return rand.New(rand.NewSource(p.Seed))
}

// zeroVolParams removes every stochastic term so balances are exact.
func zeroVolParams() Params {
	p := DefaultParams()
	p.Volatility = 0
	p.WeekendFactor = 1.0
	p.Days = 10
	p.StartDate = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC) // a Monday
	return p
}

func TestBudgetVariationBreakdown(t *testing.T) {
	p := DefaultParams()
	p.BaseBudget = 1_000_000
	p.VariationPcts = []float64{-10, 0}

	out := runBudgetVariation(p)
	if len(out.Scenarios) != 2 {
		t.Fatalf("scenarios = %d, want 2", len(out.Scenarios))
	}

	cut := out.Scenarios[0]
	if cut.TotalBudget != 900_000 {
		t.Errorf("total at -10%% = %v, want 900000", cut.TotalBudget)
	}
	if cut.Delta != -100_000 {
		t.Errorf("delta at -10%% = %v, want -100000", cut.Delta)
	}
	opex := cut.Breakdown["OPEX"]
	if opex.Original != 350_000 || opex.Adjusted != 315_000 || opex.Delta != -35_000 {
		t.Errorf("OPEX breakdown = %+v, want 350000/315000/-35000", opex)
	}

	base := out.Scenarios[1]
	if base.TotalBudget != 1_000_000 || base.Delta != 0 {
		t.Errorf("baseline scenario = %+v, want unchanged budget", base)
	}
}

func TestBudgetVariationUnknownCategoriesSplitEvenly(t *testing.T) {
	p := DefaultParams()
	p.BaseBudget = 1000
	p.VariationPcts = []float64{0}
	p.Categories = []string{"Alpha", "Beta"}

	out := runBudgetVariation(p)
	bd := out.Scenarios[0].Breakdown
	if bd["Alpha"].Original != 500 || bd["Beta"].Original != 500 {
		t.Errorf("even split = %v/%v, want 500/500", bd["Alpha"].Original, bd["Beta"].Original)
	}
}

func TestBudgetRecommendationNamesWorstCut(t *testing.T) {
	out := runBudgetVariation(Params{BaseBudget: 1000, VariationPcts: []float64{-15, 0, 10}, Categories: []string{"OPEX"}})
	want := "Stress spread covers a 15% cut; OPEX and HR carry the largest weights and absorb most of any reduction"
	if out.Recommendation != want {
		t.Errorf("recommendation = %q, want %q", out.Recommendation, want)
	}

	growth := runBudgetVariation(Params{BaseBudget: 1000, VariationPcts: []float64{5, 10}, Categories: []string{"OPEX"}})
	if growth.Recommendation != "Spread only explores growth; add negative variations to stress-test resilience" {
		t.Errorf("growth-only recommendation = %q", growth.Recommendation)
	}
}

func TestCashflowZeroVolatilityIsExact(t *testing.T) {
	e := NewEngine(1)
	res := e.Run(Scenario{Kind: KindCashflowProjection, Params: zeroVolParams()})
	if !res.OK() {
		t.Fatalf("run failed: %s", res.Err)
	}

	cf := res.Cashflow
	if cf.FinalBalance != 530_000 {
		t.Errorf("final balance = %v, want 530000", cf.FinalBalance)
	}
	if cf.MinBalance != 500_000 || cf.MinBalanceDay != 0 {
		t.Errorf("min balance = %v on day %d, want 500000 on day 0", cf.MinBalance, cf.MinBalanceDay)
	}
	if cf.AvgDailyNet != 3000 {
		t.Errorf("avg daily net = %v, want 3000", cf.AvgDailyNet)
	}
	if cf.RiskAlert {
		t.Error("risk alert raised on a strictly growing balance")
	}
	if len(cf.Days) != 10 {
		t.Fatalf("days = %d, want 10", len(cf.Days))
	}
	if cf.Days[0].Date != "2026-03-03" {
		t.Errorf("first projected date = %q, want 2026-03-03", cf.Days[0].Date)
	}
	if cf.Days[0].Inflow != 15_000 || cf.Days[0].Outflow != 12_000 || cf.Days[0].Balance != 503_000 {
		t.Errorf("day 1 = %+v, want 15000 in / 12000 out / 503000 balance", cf.Days[0])
	}
}

func TestCashflowPendingEventsLandOnTheirDay(t *testing.T) {
	p := zeroVolParams()
	p.PendingInflows = []PendingEvent{{DayOffset: 3, Amount: 50_000}}
	p.PendingOutflows = []PendingEvent{{DayOffset: 5, Amount: 100_000}}

	cf := runCashflowProjection(p, newRun(t, p))
	if cf.Days[2].Inflow != 65_000 {
		t.Errorf("day 3 inflow = %v, want 65000", cf.Days[2].Inflow)
	}
	if cf.Days[4].Net != -97_000 {
		t.Errorf("day 5 net = %v, want -97000", cf.Days[4].Net)
	}
	if cf.MinBalance != 465_000 || cf.MinBalanceDay != 5 {
		t.Errorf("min = %v on day %d, want 465000 on day 5", cf.MinBalance, cf.MinBalanceDay)
	}
	if cf.FinalBalance != 480_000 {
		t.Errorf("final balance = %v, want 480000", cf.FinalBalance)
	}
	if cf.RiskAlert {
		t.Error("risk alert raised while balance stayed positive")
	}
}

func TestCashflowRiskAlertOnNegativeDip(t *testing.T) {
	p := zeroVolParams()
	p.PendingOutflows = []PendingEvent{{DayOffset: 5, Amount: 600_000}}

	cf := runCashflowProjection(p, newRun(t, p))
	if cf.MinBalance != -85_000 || cf.MinBalanceDay != 5 {
		t.Errorf("min = %v on day %d, want -85000 on day 5", cf.MinBalance, cf.MinBalanceDay)
	}
	if !cf.RiskAlert {
		t.Error("negative dip did not raise the risk alert")
	}
}

func TestCashflowWeekendsThrottleFlows(t *testing.T) {
	p := zeroVolParams()
	p.WeekendFactor = 0.1
	p.Days = 3
	p.StartDate = time.Date(2026, time.March, 6, 0, 0, 0, 0, time.UTC) // a Friday

	cf := runCashflowProjection(p, newRun(t, p))
	sat, sun, mon := cf.Days[0], cf.Days[1], cf.Days[2]
	if sat.Inflow != 1500 || sat.Outflow != 1200 {
		t.Errorf("saturday flows = %v/%v, want 1500/1200", sat.Inflow, sat.Outflow)
	}
	if sun.Net != 300 {
		t.Errorf("sunday net = %v, want 300", sun.Net)
	}
	if mon.Inflow != 15_000 {
		t.Errorf("monday inflow = %v, want 15000", mon.Inflow)
	}
	if cf.FinalBalance != 503_600 {
		t.Errorf("final balance = %v, want 503600", cf.FinalBalance)
	}
}

func TestCashflowDeterministicForSeed(t *testing.T) {
	e := NewEngine(2)
	p := DefaultParams()
	p.Days = 30

	a := e.Run(Scenario{Kind: KindCashflowProjection, Params: p})
	b := e.Run(Scenario{Kind: KindCashflowProjection, Params: p})
	if a.Cashflow.FinalBalance != b.Cashflow.FinalBalance {
		t.Errorf("same seed diverged: %v vs %v", a.Cashflow.FinalBalance, b.Cashflow.FinalBalance)
	}

	p.Seed = 7
	c := e.Run(Scenario{Kind: KindCashflowProjection, Params: p})
	if c.Cashflow.FinalBalance == a.Cashflow.FinalBalance {
		t.Errorf("different seeds produced identical balance %v", c.Cashflow.FinalBalance)
	}
}

func TestMonteCarloZeroVolatilityCollapses(t *testing.T) {
	p := DefaultParams()
	p.RevenueVolatility = 0
	p.CostVolatility = 0
	p.Iterations = 100

	mc := runMonteCarlo(p, newRun(t, p))
	if mc.MeanProfit != 800_000 {
		t.Errorf("mean profit = %v, want 800000", mc.MeanProfit)
	}
	if mc.StdDev != 0 {
		t.Errorf("std dev = %v, want 0", mc.StdDev)
	}
	if mc.ProbabilityOfLoss != 0 || mc.RiskAssessment != "LOW" {
		t.Errorf("risk = %v/%s, want 0/LOW", mc.ProbabilityOfLoss, mc.RiskAssessment)
	}
	if mc.Percentiles["p5"] != 800_000 || mc.Percentiles["p95"] != 800_000 {
		t.Errorf("degenerate percentiles = %v", mc.Percentiles)
	}
	if mc.ValueAtRisk95 != mc.Percentiles["p5"] {
		t.Errorf("VaR95 = %v, want p5 %v", mc.ValueAtRisk95, mc.Percentiles["p5"])
	}
	if len(mc.Histogram) != 1 || mc.Histogram[0].Count != 100 {
		t.Errorf("degenerate histogram = %+v, want one bin of 100", mc.Histogram)
	}
}

func TestMonteCarloDeterministicForSeed(t *testing.T) {
	p := DefaultParams()
	p.Iterations = 500
	p.Periods = 2

	a := runMonteCarlo(p, newRun(t, p))
	b := runMonteCarlo(p, newRun(t, p))
	if a.MeanProfit != b.MeanProfit || a.Percentiles["p50"] != b.Percentiles["p50"] {
		t.Errorf("same seed diverged: %v vs %v", a.MeanProfit, b.MeanProfit)
	}

	p.Seed = 7
	c := runMonteCarlo(p, newRun(t, p))
	if c.MeanProfit == a.MeanProfit {
		t.Errorf("different seeds produced identical mean %v", c.MeanProfit)
	}
}

func TestMonteCarloShape(t *testing.T) {
	p := DefaultParams()
	p.Iterations = 2000
	p.Periods = 4

	mc := runMonteCarlo(p, newRun(t, p))
	if mc.Iterations != 2000 || mc.Periods != 4 {
		t.Fatalf("echoed dims = %d/%d, want 2000/4", mc.Iterations, mc.Periods)
	}

	order := []string{"p5", "p10", "p25", "p50", "p75", "p90", "p95"}
	for i := 1; i < len(order); i++ {
		if mc.Percentiles[order[i-1]] > mc.Percentiles[order[i]] {
			t.Errorf("percentiles out of order: %s=%v > %s=%v",
				order[i-1], mc.Percentiles[order[i-1]], order[i], mc.Percentiles[order[i]])
		}
	}

	total := 0
	for _, bin := range mc.Histogram {
		total += bin.Count
	}
	if total != 2000 {
		t.Errorf("histogram counts sum to %d, want 2000", total)
	}
	if len(mc.Histogram) != histogramBins {
		t.Errorf("histogram bins = %d, want %d", len(mc.Histogram), histogramBins)
	}
	if mc.ProbabilityOfLoss < 0 || mc.ProbabilityOfLoss > 1 {
		t.Errorf("probability of loss = %v out of range", mc.ProbabilityOfLoss)
	}
}

func TestMonteCarloIterationBounds(t *testing.T) {
	p := DefaultParams()
	p.Periods = 1

	p.Iterations = 0
	if mc := runMonteCarlo(p, newRun(t, p)); mc.Iterations != 10_000 {
		t.Errorf("zero iterations ran %d, want default 10000", mc.Iterations)
	}

	p.Iterations = 100_000
	if mc := runMonteCarlo(p, newRun(t, p)); mc.Iterations != maxIterations {
		t.Errorf("oversized request ran %d, want cap %d", mc.Iterations, maxIterations)
	}
}

func TestRiskGradeTiers(t *testing.T) {
	tests := []struct {
		probLoss float64
		want     string
	}{
		{0.0, "LOW"},
		{0.049, "LOW"},
		{0.05, "MODERATE"},
		{0.149, "MODERATE"},
		{0.15, "HIGH"},
		{0.299, "HIGH"},
		{0.30, "CRITICAL"},
		{0.95, "CRITICAL"},
	}
	for _, tt := range tests {
		if got := riskFor(tt.probLoss); got != tt.want {
			t.Errorf("riskFor(%v) = %s, want %s", tt.probLoss, got, tt.want)
		}
	}
}

func TestPercentileInterpolates(t *testing.T) {
	sorted := []float64{0, 10, 20, 30, 40}
	tests := []struct {
		pct  float64
		want float64
	}{
		{0, 0},
		{10, 4},
		{25, 10},
		{50, 20},
		{95, 38},
		{100, 40},
	}
	for _, tt := range tests {
		if got := percentile(sorted, tt.pct); !almostEqual(got, tt.want) {
			t.Errorf("percentile(%v) = %v, want %v", tt.pct, got, tt.want)
		}
	}

	if got := percentile([]float64{7}, 50); got != 7 {
		t.Errorf("single-element percentile = %v, want 7", got)
	}
	if got := percentile(nil, 50); got != 0 {
		t.Errorf("empty percentile = %v, want 0", got)
	}
}

func TestHistogramCoversRange(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i)
	}

	bins := histogram(values, 10)
	if len(bins) != 10 {
		t.Fatalf("bins = %d, want 10", len(bins))
	}
	total := 0
	for _, b := range bins {
		total += b.Count
	}
	if total != 100 {
		t.Errorf("counts sum to %d, want 100", total)
	}
	if bins[0].Low != 0 || bins[9].High != 99 {
		t.Errorf("range = [%v, %v], want [0, 99]", bins[0].Low, bins[9].High)
	}
	// The maximum lands in the last bin, not past it.
	if bins[9].Count == 0 {
		t.Error("last bin empty; maximum fell outside the histogram")
	}
}

func TestRenegotiationFlatTerm(t *testing.T) {
	p := Params{
		CurrentAnnualCost:   100_000,
		ProposedDiscountPct: 10,
		DurationYears:       2,
		Indexation:          false,
		ExitPenaltyPct:      5,
	}

	rn := runRenegotiation(p)
	if rn.TotalCurrent != 200_000 || rn.TotalRenegotiated != 180_000 {
		t.Errorf("totals = %v/%v, want 200000/180000", rn.TotalCurrent, rn.TotalRenegotiated)
	}
	if rn.GrossSavings != 20_000 || rn.ExitPenalty != 5000 || rn.NetSavings != 15_000 {
		t.Errorf("savings = %v gross, %v penalty, %v net", rn.GrossSavings, rn.ExitPenalty, rn.NetSavings)
	}
	if rn.ROIPct == nil || *rn.ROIPct != 300 {
		t.Errorf("roi = %v, want 300", rn.ROIPct)
	}
	if rn.Recommendation != "Renegotiate: the discount clears the exit penalty within the term" {
		t.Errorf("recommendation = %q", rn.Recommendation)
	}
}

func TestRenegotiationIndexationInflatesBothPaths(t *testing.T) {
	p := Params{
		CurrentAnnualCost:   100_000,
		ProposedDiscountPct: 10,
		DurationYears:       2,
		InflationRate:       0.03,
		Indexation:          true,
		ExitPenaltyPct:      5,
	}

	rn := runRenegotiation(p)
	if len(rn.Years) != 2 {
		t.Fatalf("years = %d, want 2", len(rn.Years))
	}
	if rn.Years[1].Current != 103_000 || rn.Years[1].Renegotiated != 92_700 {
		t.Errorf("year 2 = %v/%v, want 103000/92700", rn.Years[1].Current, rn.Years[1].Renegotiated)
	}
	if rn.TotalCurrent != 203_000 || rn.TotalRenegotiated != 182_700 {
		t.Errorf("totals = %v/%v, want 203000/182700", rn.TotalCurrent, rn.TotalRenegotiated)
	}
	if rn.NetSavings != 15_300 {
		t.Errorf("net savings = %v, want 15300", rn.NetSavings)
	}
	if rn.ROIPct == nil || *rn.ROIPct != 306 {
		t.Errorf("roi = %v, want 306", rn.ROIPct)
	}
}

func TestRenegotiationWithoutPenaltyHasNoROI(t *testing.T) {
	p := Params{CurrentAnnualCost: 100_000, ProposedDiscountPct: 10, DurationYears: 1}

	rn := runRenegotiation(p)
	if rn.ROIPct != nil {
		t.Errorf("roi = %v, want nil without an exit penalty", *rn.ROIPct)
	}
	if rn.NetSavings != rn.GrossSavings {
		t.Errorf("net %v != gross %v with zero penalty", rn.NetSavings, rn.GrossSavings)
	}
}

func TestRenegotiationRecommendsAgainstThinDiscounts(t *testing.T) {
	p := Params{CurrentAnnualCost: 100_000, ProposedDiscountPct: 1, DurationYears: 1, ExitPenaltyPct: 10}
	if rn := runRenegotiation(p); rn.Recommendation != "Hold: projected savings do not cover the exit penalty" {
		t.Errorf("thin discount recommendation = %q", rn.Recommendation)
	}

	p.ProposedDiscountPct = 0
	p.ExitPenaltyPct = 0
	if rn := runRenegotiation(p); rn.Recommendation != "Keep current terms: the proposal saves nothing over the term" {
		t.Errorf("zero discount recommendation = %q", rn.Recommendation)
	}
}

func TestRunUnknownKind(t *testing.T) {
	e := NewEngine(1)
	res := e.Run(Scenario{Kind: "astrology"})
	if res.OK() {
		t.Fatal("unknown kind reported success")
	}
	if res.Err != `unknown simulation kind "astrology"` {
		t.Errorf("err = %q", res.Err)
	}
	if res.Budget != nil || res.Cashflow != nil || res.MonteCarlo != nil || res.Renegotiation != nil {
		t.Error("unknown kind produced a payload")
	}
}

func TestRunAllKeepsScenarioOrder(t *testing.T) {
	e := NewEngine(3)
	p := DefaultParams()
	p.Iterations = 50
	p.Days = 5
	scenarios := []Scenario{
		{Kind: KindRenegotiation, Params: p},
		{Kind: KindBudgetVariation, Params: p},
		{Kind: "astrology", Params: p},
		{Kind: KindMonteCarlo, Params: p},
	}

	results := e.RunAll(context.Background(), scenarios)
	if len(results) != 4 {
		t.Fatalf("results = %d, want 4", len(results))
	}
	for i, res := range results {
		if res.Kind != scenarios[i].Kind {
			t.Errorf("result %d kind = %s, want %s", i, res.Kind, scenarios[i].Kind)
		}
		if res.ScenarioIndex != i {
			t.Errorf("result %d index = %d", i, res.ScenarioIndex)
		}
		if res.ID == "" {
			t.Errorf("result %d missing id", i)
		}
	}
	if results[2].OK() {
		t.Error("bad scenario did not surface its error")
	}
	if !results[0].OK() || !results[1].OK() || !results[3].OK() {
		t.Errorf("valid scenarios failed: %s / %s / %s", results[0].Err, results[1].Err, results[3].Err)
	}
}

func TestRunAllCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewEngine(2)
	results := e.RunAll(ctx, DefaultScenarios())
	for i, res := range results {
		if res.OK() {
			t.Errorf("scenario %d ran under a cancelled context", i)
		}
	}
}

func TestDefaultScenariosCoverEveryKind(t *testing.T) {
	scenarios := DefaultScenarios()
	want := []Kind{KindBudgetVariation, KindCashflowProjection, KindMonteCarlo, KindRenegotiation}
	if len(scenarios) != len(want) {
		t.Fatalf("scenarios = %d, want %d", len(scenarios), len(want))
	}
	for i, sc := range scenarios {
		if sc.Kind != want[i] {
			t.Errorf("scenario %d = %s, want %s", i, sc.Kind, want[i])
		}
		if sc.Params.Seed != 42 {
			t.Errorf("scenario %d seed = %d, want 42", i, sc.Params.Seed)
		}
	}
}

func TestResultSignal(t *testing.T) {
	tests := []struct {
		name      string
		result    Result
		wantValue float64
		wantDir   signal.Direction
		wantTopic string
		wantRisk  string
	}{
		{
			name:      "low risk reads positive",
			result:    Result{Kind: KindMonteCarlo, MonteCarlo: &MonteCarlo{RiskAssessment: "LOW"}},
			wantValue: 0.6, wantDir: signal.Positive, wantTopic: "monte_carlo", wantRisk: "LOW",
		},
		{
			name:      "critical risk reads hard negative",
			result:    Result{Kind: KindMonteCarlo, MonteCarlo: &MonteCarlo{RiskAssessment: "CRITICAL"}},
			wantValue: -0.8, wantDir: signal.Negative, wantTopic: "monte_carlo", wantRisk: "CRITICAL",
		},
		{
			name:      "ungraded run defaults to moderate",
			result:    Result{Kind: KindBudgetVariation, Budget: &BudgetVariation{}},
			wantValue: 0.2, wantDir: signal.Positive, wantTopic: "budget_variation", wantRisk: "MODERATE",
		},
		{
			name:      "unrecognized grade carries zero value",
			result:    Result{Kind: KindMonteCarlo, MonteCarlo: &MonteCarlo{RiskAssessment: "ELEVATED"}},
			wantValue: 0, wantDir: signal.Negative, wantTopic: "monte_carlo", wantRisk: "ELEVATED",
		},
		{
			name:      "missing kind falls back to unknown topic",
			result:    Result{},
			wantValue: 0.2, wantDir: signal.Positive, wantTopic: "unknown", wantRisk: "MODERATE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.result.Signal()
			if s.Source != signal.SourceSimulation {
				t.Errorf("source = %s", s.Source)
			}
			if s.Value != tt.wantValue {
				t.Errorf("value = %v, want %v", s.Value, tt.wantValue)
			}
			if s.Direction != tt.wantDir {
				t.Errorf("direction = %s, want %s", s.Direction, tt.wantDir)
			}
			if s.Topic != tt.wantTopic {
				t.Errorf("topic = %s, want %s", s.Topic, tt.wantTopic)
			}
			if s.Confidence != 0.85 {
				t.Errorf("confidence = %v, want 0.85", s.Confidence)
			}
			if got := s.Metadata["risk_assessment"]; got != tt.wantRisk {
				t.Errorf("metadata risk = %v, want %s", got, tt.wantRisk)
			}
		})
	}
}
