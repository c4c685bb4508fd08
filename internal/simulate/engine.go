// Package simulate runs financial what-if scenarios: budget variation
// spreads, daily cashflow projections, monte carlo profit distributions and
// contract renegotiation comparisons.
//
// # Determinism
//
// Stochastic simulations draw from a private rand.Rand seeded from
// Params.Seed, so a scenario always produces the same numbers for the same
// inputs. Batches run concurrently but each scenario owns its generator.
package simulate

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Kind selects which simulation a scenario runs.
type Kind string

const (
	KindBudgetVariation    Kind = "budget_variation"
	KindCashflowProjection Kind = "cashflow_projection"
	KindMonteCarlo         Kind = "monte_carlo"
	KindRenegotiation      Kind = "renegotiation"
)

const defaultWorkers = 4

// Scenario pairs a simulation kind with its parameters.
type Scenario struct {
	Kind   Kind   `json:"kind"`
	Params Params `json:"params"`
}

// Result holds the outcome of one scenario run. Exactly one of the payload
// pointers is set on success; Err carries the failure otherwise so a batch
// result stays aligned with its scenarios.
type Result struct {
	ID            string    `json:"id"`
	Kind          Kind      `json:"simulation_type"`
	ScenarioIndex int       `json:"scenario_index"`
	RanAt         time.Time `json:"ran_at"`
	Err           string    `json:"error,omitempty"`

	Budget        *BudgetVariation    `json:"budget_variation,omitempty"`
	Cashflow      *CashflowProjection `json:"cashflow_projection,omitempty"`
	MonteCarlo    *MonteCarlo         `json:"monte_carlo,omitempty"`
	Renegotiation *Renegotiation      `json:"renegotiation,omitempty"`
}

// OK reports whether the run produced a payload.
func (r Result) OK() bool { return r.Err == "" }

// Engine runs scenarios, fanning batches out over a bounded worker pool.
type Engine struct {
	workers int
	now     func() time.Time
}

// NewEngine creates an engine running at most workers scenarios at once.
// Non-positive workers falls back to a small default.
func NewEngine(workers int) *Engine {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Engine{workers: workers, now: func() time.Time { return time.Now().UTC() }}
}

// Run executes a single scenario synchronously.
func (e *Engine) Run(sc Scenario) Result {
	res := Result{
		ID:    uuid.NewString(),
		Kind:  sc.Kind,
		RanAt: e.now(),
	}
	rng := rand.New(rand.NewSource(sc.Params.Seed))
	switch sc.Kind {
	case KindBudgetVariation:
		res.Budget = runBudgetVariation(sc.Params)
	case KindCashflowProjection:
		res.Cashflow = runCashflowProjection(sc.Params, rng)
	case KindMonteCarlo:
		res.MonteCarlo = runMonteCarlo(sc.Params, rng)
	case KindRenegotiation:
		res.Renegotiation = runRenegotiation(sc.Params)
	default:
		res.Err = fmt.Sprintf("unknown simulation kind %q", sc.Kind)
	}
	return res
}

// RunAll executes scenarios concurrently and returns results in scenario
// order. A failed scenario reports through its Result.Err rather than
// aborting the batch; a cancelled context fails the scenarios that had not
// started yet.
func (e *Engine) RunAll(ctx context.Context, scenarios []Scenario) []Result {
	results := make([]Result, len(scenarios))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, sc := range scenarios {
		i, sc := i, sc
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = Result{
					ID:            uuid.NewString(),
					Kind:          sc.Kind,
					ScenarioIndex: i,
					RanAt:         e.now(),
					Err:           err.Error(),
				}
				return nil
			}
			res := e.Run(sc)
			res.ScenarioIndex = i
			results[i] = res
			// Never fail the group - errors are reported per scenario.
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// DefaultScenarios returns one scenario of each kind on default parameters,
// the standard batch a dashboard refresh runs.
func DefaultScenarios() []Scenario {
	p := DefaultParams()
	return []Scenario{
		{Kind: KindBudgetVariation, Params: p},
		{Kind: KindCashflowProjection, Params: p},
		{Kind: KindMonteCarlo, Params: p},
		{Kind: KindRenegotiation, Params: p},
	}
}
