// Package coord orchestrates the refresh cycle that keeps the dashboard
// current: gap analysis against the books, weak-signal scans, simulation
// batches, feed polling, fusion, correlation detection and decision
// planning, with the outcome persisted as a snapshot.
//
// The Coordinator owns no goroutines until Watch is called; RunOnce is
// synchronous and safe to drive from a bubbletea command.
package coord

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/maelcolin/fuseboard/internal/config"
	"github.com/maelcolin/fuseboard/internal/correlation"
	"github.com/maelcolin/fuseboard/internal/feeds"
	"github.com/maelcolin/fuseboard/internal/fusion"
	"github.com/maelcolin/fuseboard/internal/gap"
	"github.com/maelcolin/fuseboard/internal/logging"
	"github.com/maelcolin/fuseboard/internal/otel"
	"github.com/maelcolin/fuseboard/internal/signal"
	"github.com/maelcolin/fuseboard/internal/simulate"
	"github.com/maelcolin/fuseboard/internal/store"
	"github.com/maelcolin/fuseboard/internal/tactical"
)

// defaultInterval is the watch cadence when the caller passes zero.
const defaultInterval = 5 * time.Minute

// feedBudget bounds one round of feed polling so a stalled remote cannot
// hold the whole cycle hostage.
const feedBudget = 90 * time.Second

// expiryHorizon is how far ahead contract end dates raise weak signals.
const expiryHorizon = 90 * 24 * time.Hour

// driftThreshold is the absolute budget gap percentage beyond which a
// category also emits a budget_drift weak signal.
const driftThreshold = 15.0

// feedFetcher interface for dependency injection (testing).
type feedFetcher interface {
	FetchAll(ctx context.Context, list []feeds.Feed) ([]signal.Signal, map[string]error)
}

// Snapshot is the complete outcome of one refresh cycle. It is what the
// dashboard renders and, JSON-encoded, what the store archives.
type Snapshot struct {
	Gaps         gap.Report                `json:"gap_report"`
	Simulations  []simulate.Result         `json:"simulations"`
	Plan         tactical.Plan             `json:"plan"`
	Correlations []correlation.Correlation `json:"correlations"`

	// FeedSignals counts headline signals gathered this cycle; zero when
	// running offline.
	FeedSignals int `json:"feed_signals"`

	// SignalCount is the total number of signals fused this cycle.
	SignalCount int `json:"signal_count"`

	GeneratedAt time.Time `json:"generated_at"`
}

// Coordinator wires the store, the analysis engines and the feed fetcher
// into a single refresh pipeline.
// Uses context cancellation as the ONLY stop mechanism.
type Coordinator struct {
	store   *store.Store
	calc    *gap.Calculator
	engine  *simulate.Engine
	planner *tactical.Planner
	fetcher feedFetcher  // interface for testing
	feeds   []feeds.Feed // IMMUTABLE: set at construction, never modified
	events  *otel.Logger // optional: nil to disable diagnostics
	cfg     *config.Config
	wg      sync.WaitGroup
}

// NewCoordinator creates a Coordinator with the real fetcher.
// A nil fetcher means offline mode: the cycle skips feed polling.
func NewCoordinator(st *store.Store, cfg *config.Config, fetcher *feeds.Fetcher, events *otel.Logger) *Coordinator {
	// A typed nil must not become a non-nil interface.
	var f feedFetcher
	if fetcher != nil {
		f = fetcher
	}
	return NewCoordinatorWithFetcher(st, cfg, f, events)
}

// NewCoordinatorWithFetcher allows injecting a custom fetcher (for testing).
func NewCoordinatorWithFetcher(st *store.Store, cfg *config.Config, fetcher feedFetcher, events *otel.Logger) *Coordinator {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	// Copy the feed list to ensure immutability
	list := make([]feeds.Feed, len(cfg.Feeds))
	for i, fc := range cfg.Feeds {
		list[i] = feeds.Feed{Name: fc.Name, URL: fc.URL, Topic: fc.Topic}
	}

	return &Coordinator{
		store:   st,
		calc:    gap.NewCalculator(st),
		engine:  simulate.NewEngine(cfg.MaxSimWorkers),
		planner: tactical.New(),
		fetcher: fetcher,
		feeds:   list,
		events:  events,
		cfg:     cfg,
	}
}

func (c *Coordinator) emit(e otel.Event) {
	if c.events != nil {
		c.events.Emit(e)
	}
}

// RunOnce executes a full refresh cycle: gather signals from every source,
// fuse them, detect correlations, derive decisions and persist the result.
// Persistence failures are logged but do not fail the cycle; the snapshot
// is still returned so the dashboard can render it.
func (c *Coordinator) RunOnce(ctx context.Context) (Snapshot, error) {
	started := time.Now()
	c.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindCycleStart, Comp: "coord"})

	var sigs []signal.Signal

	// Gap analysis: every measured gap is feedback evidence.
	report, err := c.calc.Report(c.cfg.FiscalYear)
	if err != nil {
		c.emit(otel.Event{Level: otel.LevelError, Kind: otel.KindError, Comp: "coord", Err: err.Error()})
		return Snapshot{}, fmt.Errorf("gap analysis failed: %w", err)
	}
	for _, g := range report.Gaps {
		sigs = append(sigs, g.Signal())
	}
	c.emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindGapCompute, Comp: "coord", Count: len(report.Gaps)})

	// Weak signals hiding in the books.
	weak, err := c.weakSignals(report)
	if err != nil {
		c.emit(otel.Event{Level: otel.LevelError, Kind: otel.KindError, Comp: "coord", Err: err.Error()})
		return Snapshot{}, err
	}
	sigs = append(sigs, weak...)

	// Simulation batch.
	scenarios := simulate.DefaultScenarios()
	c.emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindSimStart, Comp: "coord", Count: len(scenarios)})
	simStarted := time.Now()
	results := c.engine.RunAll(ctx, scenarios)
	for _, r := range results {
		if !r.OK() {
			logging.Warn("simulation failed", "kind", r.Kind, "error", r.Err)
			continue
		}
		sigs = append(sigs, r.Signal())
	}
	sigs = append(sigs, simulationAnomalies(results)...)
	c.emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindSimComplete, Comp: "coord", Count: len(results), Dur: time.Since(simStarted)})

	// Feed polling, skipped offline.
	feedCount := 0
	if c.fetcher != nil && len(c.feeds) > 0 {
		feedCtx, cancel := context.WithTimeout(ctx, feedBudget)
		headlines, failures := c.fetcher.FetchAll(feedCtx, c.feeds)
		cancel()
		for name, ferr := range failures {
			c.emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindFeedError, Comp: "coord", Source: name, Err: ferr.Error()})
			logging.Warn("feed fetch failed", "feed", name, "error", ferr)
		}
		sigs = append(sigs, headlines...)
		feedCount = len(headlines)
		c.emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindFeedFetch, Comp: "coord", Count: feedCount})
	}

	// Fuse everything gathered this cycle.
	agg := fusion.New(
		fusion.WithHalfLife(c.cfg.DecayHalfLifeHours),
		fusion.WithSourceWeights(sourceWeights(c.cfg)),
	)
	agg.AddSignals(sigs)
	fused := agg.Aggregate()
	c.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindFusionAggregate, Comp: "coord", Count: fused.SignalCount, Score: fused.OverallScore})

	// Cross-source correlations over the same signal set.
	corr := correlation.New(correlation.WithWindow(time.Duration(c.cfg.CorrelationWindowHours * float64(time.Hour))))
	corr.AddSignals(sigs)
	correlations := corr.DetectCorrelations()

	// Turn fused scores into a decision plan.
	plan := c.planner.Plan(fused)
	top := ""
	if len(plan.Decisions) > 0 {
		top = plan.Decisions[0].Priority
	}
	c.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindPlanBuild, Comp: "coord", Count: len(plan.Decisions), Priority: top})

	snap := Snapshot{
		Gaps:         report,
		Simulations:  results,
		Plan:         plan,
		Correlations: correlations,
		FeedSignals:  feedCount,
		SignalCount:  len(sigs),
		GeneratedAt:  plan.GeneratedAt,
	}

	if err := c.persist(snap, fused); err != nil {
		c.emit(otel.Event{Level: otel.LevelError, Kind: otel.KindStoreError, Comp: "coord", Err: err.Error()})
		logging.Error("failed to persist cycle", "error", err)
	}

	c.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindCycleComplete, Comp: "coord", Count: len(sigs), Dur: time.Since(started)})
	return snap, nil
}

// weakSignals scans the store and the gap report for early indicators:
// contracts nearing expiry and budget categories drifting past the
// threshold. These land on their own topics so they sharpen correlation
// detection without double-counting the gap evidence.
func (c *Coordinator) weakSignals(report gap.Report) ([]signal.Signal, error) {
	now := time.Now().UTC()

	expiring, err := c.store.ExpiringContracts(now, expiryHorizon)
	if err != nil {
		return nil, fmt.Errorf("failed to scan expiring contracts: %w", err)
	}

	var out []signal.Signal
	for _, ct := range expiring {
		days := int(ct.End.Sub(now).Hours() / 24)
		out = append(out, correlation.ContractExpiry(ct.Reference, days))
	}
	for _, g := range report.Gaps {
		if g.Kind != "budget" {
			continue
		}
		if g.GapPct >= driftThreshold || g.GapPct <= -driftThreshold {
			out = append(out, correlation.BudgetDrift(g.Category, g.GapPct))
		}
	}
	c.emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindWeakDetect, Comp: "coord", Count: len(out)})
	return out, nil
}

// simulationAnomalies derives weak signals from simulation outcomes. A
// cashflow projection that dips below zero is a liquidity anomaly, with
// the dip expressed as a deviation from the starting balance.
func simulationAnomalies(results []simulate.Result) []signal.Signal {
	var out []signal.Signal
	for _, r := range results {
		cf := r.Cashflow
		if cf == nil || !cf.RiskAlert || cf.InitialBalance == 0 {
			continue
		}
		devPct := (cf.MinBalance - cf.InitialBalance) / cf.InitialBalance * 100
		label := fmt.Sprintf("projected dip on day %d", cf.MinBalanceDay)
		out = append(out, correlation.CashflowAnomaly(label, devPct))
	}
	return out
}

// sourceWeights converts the config's string-keyed weights to fusion's
// typed map. An empty config map means fusion keeps its defaults.
func sourceWeights(cfg *config.Config) map[signal.Source]float64 {
	if len(cfg.SourceWeights) == 0 {
		return nil
	}
	weights := make(map[signal.Source]float64, len(cfg.SourceWeights))
	for name, w := range cfg.SourceWeights {
		weights[signal.Source(name)] = w
	}
	return weights
}

// persist archives the snapshot and upserts the cycle's decisions.
func (c *Coordinator) persist(snap Snapshot, fused fusion.Result) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if _, err := c.store.SaveSnapshot(store.FusionSnapshot{
		GeneratedAt:   snap.GeneratedAt,
		OverallScore:  fused.OverallScore,
		SignalCount:   fused.SignalCount,
		ConflictCount: len(fused.Conflicts),
		Payload:       payload,
	}); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	if len(snap.Plan.Decisions) == 0 {
		return nil
	}
	records := make([]store.DecisionRecord, len(snap.Plan.Decisions))
	for i, d := range snap.Plan.Decisions {
		records[i] = store.DecisionRecord{
			ID:          d.ID,
			GeneratedAt: d.GeneratedAt,
			Title:       d.Title,
			Category:    d.Category,
			Priority:    d.Priority,
			Score:       d.Score,
			Rationale:   d.Rationale,
			Actions:     d.Actions,
		}
	}
	if _, err := c.store.SaveDecisions(records); err != nil {
		return fmt.Errorf("failed to save decisions: %w", err)
	}
	return nil
}

// Watch runs a cycle immediately and then on every tick until the context
// is cancelled. Each outcome, including failures, is delivered to fn.
// Call Wait after cancelling to block until the goroutine exits.
func (c *Coordinator) Watch(ctx context.Context, interval time.Duration, fn func(Snapshot, error)) {
	if interval <= 0 {
		interval = defaultInterval
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		fn(c.RunOnce(ctx))

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(c.RunOnce(ctx))
			}
		}
	}()
}

// Wait blocks until all watch goroutines have exited.
// Call after cancelling the context passed to Watch.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}
