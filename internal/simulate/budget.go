package simulate

import "fmt"

// categoryWeights is how a total budget splits across the standard
// departments. Categories outside this table share the total evenly.
var categoryWeights = map[string]float64{
	"OPEX":      0.35,
	"HR":        0.25,
	"CAPEX":     0.20,
	"IT":        0.12,
	"Marketing": 0.08,
}

// CategoryDelta compares one department's allocation before and after a
// budget variation.
type CategoryDelta struct {
	Original float64 `json:"original"`
	Adjusted float64 `json:"adjusted"`
	Delta    float64 `json:"delta"`
}

// BudgetScenario is the full-budget view of a single variation percentage.
type BudgetScenario struct {
	VariationPct float64                  `json:"variation_pct"`
	TotalBudget  float64                  `json:"total_budget"`
	Delta        float64                  `json:"delta"`
	Breakdown    map[string]CategoryDelta `json:"breakdown"`
}

// BudgetVariation spreads a base budget over a set of variation
// percentages and breaks each down by department.
type BudgetVariation struct {
	BaseBudget     float64          `json:"base_budget"`
	Scenarios      []BudgetScenario `json:"scenarios"`
	Recommendation string           `json:"recommendation"`
}

func runBudgetVariation(p Params) *BudgetVariation {
	out := &BudgetVariation{BaseBudget: p.BaseBudget}

	for _, pct := range p.VariationPcts {
		total := p.BaseBudget * (1 + pct/100)
		sc := BudgetScenario{
			VariationPct: pct,
			TotalBudget:  round2(total),
			Delta:        round2(total - p.BaseBudget),
			Breakdown:    make(map[string]CategoryDelta, len(p.Categories)),
		}
		for _, cat := range p.Categories {
			w, ok := categoryWeights[cat]
			if !ok {
				w = 1 / float64(len(p.Categories))
			}
			orig := p.BaseBudget * w
			adj := total * w
			sc.Breakdown[cat] = CategoryDelta{
				Original: round2(orig),
				Adjusted: round2(adj),
				Delta:    round2(adj - orig),
			}
		}
		out.Scenarios = append(out.Scenarios, sc)
	}

	out.Recommendation = budgetRecommendation(p.VariationPcts)
	return out
}

func budgetRecommendation(variations []float64) string {
	var worst float64
	for _, v := range variations {
		if v < worst {
			worst = v
		}
	}
	if worst < 0 {
		return fmt.Sprintf("Stress spread covers a %.0f%% cut; OPEX and HR carry the largest weights and absorb most of any reduction", -worst)
	}
	return "Spread only explores growth; add negative variations to stress-test resilience"
}
