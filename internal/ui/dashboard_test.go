package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/maelcolin/fuseboard/internal/coord"
	"github.com/maelcolin/fuseboard/internal/fusion"
	"github.com/maelcolin/fuseboard/internal/gap"
	"github.com/maelcolin/fuseboard/internal/otel"
	"github.com/maelcolin/fuseboard/internal/simulate"
	"github.com/maelcolin/fuseboard/internal/tactical"
)

// mockCmd tracks whether a command function was called.
type mockCmd struct {
	refreshCalled bool
	resolveCalled bool
	resolvedID    string
}

func (m *mockCmd) refresh() tea.Cmd {
	m.refreshCalled = true
	return func() tea.Msg {
		return SnapshotMsg{Snapshot: sampleSnapshot()}
	}
}

func (m *mockCmd) resolve(id string) tea.Cmd {
	m.resolveCalled = true
	m.resolvedID = id
	return func() tea.Msg {
		return DecisionResolved{ID: id}
	}
}

func sampleSnapshot() coord.Snapshot {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	agg := fusion.Result{
		Topics: map[string]fusion.TopicScore{
			"budget_variation":    {Score: -0.72, SignalCount: 3, Consensus: fusion.ConsensusNegative, AvgConfidence: 0.83},
			"cashflow_projection": {Score: 0.15, SignalCount: 2, Consensus: fusion.ConsensusPositive, AvgConfidence: 0.6},
			"vendor_risk":         {Score: -0.4, SignalCount: 1, Consensus: fusion.ConsensusNegative, AvgConfidence: 0.7},
		},
		OverallScore: -0.31,
		SignalCount:  6,
	}

	plan := tactical.Plan{
		Decisions: []tactical.Decision{
			{ID: "TD-0001", Topic: "budget_variation", Title: "Risk: Budget Variation", Category: "budget",
				Priority: "P1", Score: -0.72, Rationale: "3 signals agree", Actions: []string{"Escalate to CFO"}, GeneratedAt: now},
			{ID: "TD-0002", Topic: "vendor_risk", Title: "Risk: Vendor Risk", Category: "contract",
				Priority: "P2", Score: -0.4, Rationale: "1 signal", Actions: []string{"Audit contracts"}, GeneratedAt: now},
			{ID: "TD-0003", Topic: "cashflow_projection", Title: "Opportunity: Cashflow Projection", Category: "cashflow",
				Priority: "P4", Score: 0.15, Rationale: "2 signals", Actions: []string{"Continue monitoring"}, GeneratedAt: now},
		},
		Aggregation: agg,
		GeneratedAt: now,
	}

	eng := simulate.NewEngine(2)
	sims := []simulate.Result{
		eng.Run(simulate.Scenario{Kind: simulate.KindBudgetVariation, Params: simulate.DefaultParams()}),
		eng.Run(simulate.Scenario{Kind: simulate.KindRenegotiation, Params: simulate.DefaultParams()}),
	}

	return coord.Snapshot{
		Gaps:        gap.Report{FiscalYear: 2026, TotalGaps: 3, SuccessRate: 66.7},
		Simulations: sims,
		Plan:        plan,
		SignalCount: 6,
		GeneratedAt: now,
	}
}

func loadedDashboard(mock *mockCmd) Dashboard {
	d := NewDashboard(mock.refresh, mock.resolve, nil)
	d.snap = sampleSnapshot()
	d.haveSnap = true
	d.loading = false
	d.ready = true
	d.width = 100
	d.height = 40
	return d
}

func keyMsg(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestDashboardInit(t *testing.T) {
	mock := &mockCmd{}
	d := NewDashboard(mock.refresh, mock.resolve, nil)

	cmd := d.Init()
	if cmd == nil {
		t.Fatal("Init should return a command")
	}
	if !mock.refreshCalled {
		t.Error("Init should call refresh")
	}
	if !d.loading {
		t.Error("a dashboard with a refresh command should start loading")
	}
}

func TestDashboardInitNilRefresh(t *testing.T) {
	d := NewDashboard(nil, nil, nil)

	if cmd := d.Init(); cmd != nil {
		t.Error("Init should return nil when refresh is nil")
	}
	if d.loading {
		t.Error("nothing to load without a refresh command")
	}
}

func TestDashboardTabSwitching(t *testing.T) {
	d := loadedDashboard(&mockCmd{})

	model, _ := d.Update(tea.KeyMsg{Type: tea.KeyTab})
	updated := model.(Dashboard)
	if updated.ActiveTab() != TabDecisions {
		t.Errorf("tab should move to Decisions, got %v", updated.ActiveTab())
	}

	model, _ = updated.Update(keyMsg('4'))
	updated = model.(Dashboard)
	if updated.ActiveTab() != TabEvents {
		t.Errorf("4 should jump to Events, got %v", updated.ActiveTab())
	}

	// Forward wraps around to Overview.
	model, _ = updated.Update(tea.KeyMsg{Type: tea.KeyTab})
	updated = model.(Dashboard)
	if updated.ActiveTab() != TabOverview {
		t.Errorf("tab should wrap to Overview, got %v", updated.ActiveTab())
	}

	// Backward wraps to Events.
	model, _ = updated.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	updated = model.(Dashboard)
	if updated.ActiveTab() != TabEvents {
		t.Errorf("shift+tab should wrap to Events, got %v", updated.ActiveTab())
	}
}

func TestDashboardTabSwitchResetsCursor(t *testing.T) {
	d := loadedDashboard(&mockCmd{})
	d.tab = TabDecisions
	d.cursor = 2

	model, _ := d.Update(tea.KeyMsg{Type: tea.KeyTab})
	updated := model.(Dashboard)
	if updated.Cursor() != 0 {
		t.Errorf("switching tabs should reset cursor, got %d", updated.Cursor())
	}
}

func TestDashboardNavigation(t *testing.T) {
	d := loadedDashboard(&mockCmd{})
	d.tab = TabDecisions

	model, _ := d.Update(keyMsg('j'))
	updated := model.(Dashboard)
	if updated.Cursor() != 1 {
		t.Errorf("j should move cursor to 1, got %d", updated.Cursor())
	}

	model, _ = updated.Update(keyMsg('k'))
	updated = model.(Dashboard)
	if updated.Cursor() != 0 {
		t.Errorf("k should move cursor to 0, got %d", updated.Cursor())
	}

	// k at top stays put.
	model, _ = updated.Update(keyMsg('k'))
	updated = model.(Dashboard)
	if updated.Cursor() != 0 {
		t.Errorf("k at top should keep cursor at 0, got %d", updated.Cursor())
	}

	model, _ = updated.Update(keyMsg('G'))
	updated = model.(Dashboard)
	if updated.Cursor() != 2 {
		t.Errorf("G should move cursor to 2, got %d", updated.Cursor())
	}

	// j at bottom stays put.
	model, _ = updated.Update(keyMsg('j'))
	updated = model.(Dashboard)
	if updated.Cursor() != 2 {
		t.Errorf("j at bottom should keep cursor at 2, got %d", updated.Cursor())
	}

	model, _ = updated.Update(keyMsg('g'))
	updated = model.(Dashboard)
	if updated.Cursor() != 0 {
		t.Errorf("g should move cursor to 0, got %d", updated.Cursor())
	}
}

func TestDashboardResolveDecision(t *testing.T) {
	mock := &mockCmd{}
	d := loadedDashboard(mock)
	d.tab = TabDecisions
	d.cursor = 1

	model, cmd := d.Update(tea.KeyMsg{Type: tea.KeyEnter})
	updated := model.(Dashboard)

	if !mock.resolveCalled {
		t.Fatal("enter should call resolve")
	}
	if mock.resolvedID != "TD-0002" {
		t.Errorf("resolve called with %q, want TD-0002", mock.resolvedID)
	}
	if cmd == nil {
		t.Fatal("enter should return a command")
	}

	// Deliver the resolution and check the decision disappears.
	model, _ = updated.Update(cmd())
	updated = model.(Dashboard)
	if len(updated.Snapshot().Plan.Decisions) != 2 {
		t.Fatalf("expected 2 decisions after resolve, got %d", len(updated.Snapshot().Plan.Decisions))
	}
	for _, dec := range updated.Snapshot().Plan.Decisions {
		if dec.ID == "TD-0002" {
			t.Error("TD-0002 should have been removed")
		}
	}
}

func TestDashboardResolveIgnoredOutsideDecisions(t *testing.T) {
	mock := &mockCmd{}
	d := loadedDashboard(mock)
	d.tab = TabOverview

	_, cmd := d.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if mock.resolveCalled {
		t.Error("enter on Overview should not resolve anything")
	}
	if cmd != nil {
		t.Error("enter on Overview should return nil command")
	}
}

func TestDashboardSnapshotMsg(t *testing.T) {
	d := NewDashboard(nil, nil, nil)
	d.loading = true

	model, _ := d.Update(SnapshotMsg{Snapshot: sampleSnapshot()})
	updated := model.(Dashboard)

	if updated.loading {
		t.Error("snapshot should clear loading")
	}
	if !updated.haveSnap {
		t.Error("snapshot should be stored")
	}
	if got := len(updated.Snapshot().Plan.Decisions); got != 3 {
		t.Errorf("expected 3 decisions, got %d", got)
	}
}

func TestDashboardSnapshotMsgError(t *testing.T) {
	d := NewDashboard(nil, nil, nil)
	d.loading = true

	model, _ := d.Update(SnapshotMsg{Err: errors.New("cycle failed")})
	updated := model.(Dashboard)

	if updated.err == nil {
		t.Error("err should be set on a failed cycle")
	}
	if updated.haveSnap {
		t.Error("failed cycle should not store a snapshot")
	}
	if updated.loading {
		t.Error("failed cycle should still clear loading")
	}
}

func TestDashboardSnapshotClampsCursor(t *testing.T) {
	d := loadedDashboard(&mockCmd{})
	d.tab = TabDecisions
	d.cursor = 2

	// New snapshot with a single decision.
	snap := sampleSnapshot()
	snap.Plan.Decisions = snap.Plan.Decisions[:1]

	model, _ := d.Update(SnapshotMsg{Snapshot: snap})
	updated := model.(Dashboard)
	if updated.Cursor() != 0 {
		t.Errorf("cursor should clamp to 0, got %d", updated.Cursor())
	}
}

func TestDashboardRefreshKey(t *testing.T) {
	mock := &mockCmd{}
	d := loadedDashboard(mock)
	mock.refreshCalled = false

	model, cmd := d.Update(keyMsg('r'))
	updated := model.(Dashboard)

	if !mock.refreshCalled {
		t.Error("r should call refresh")
	}
	if cmd == nil {
		t.Error("r should return a command")
	}
	if !updated.loading {
		t.Error("r should set loading")
	}

	// A second r while loading is a no-op.
	mock.refreshCalled = false
	_, cmd = updated.Update(keyMsg('r'))
	if mock.refreshCalled {
		t.Error("r while loading should not refresh again")
	}
	if cmd != nil {
		t.Error("r while loading should return nil command")
	}
}

func TestDashboardRefreshTick(t *testing.T) {
	mock := &mockCmd{}
	d := loadedDashboard(mock)
	mock.refreshCalled = false

	model, cmd := d.Update(RefreshTick{})
	updated := model.(Dashboard)

	if !mock.refreshCalled {
		t.Error("tick should trigger a refresh when idle")
	}
	if cmd == nil {
		t.Error("tick should return a command")
	}
	if !updated.loading {
		t.Error("tick should set loading")
	}

	// A tick while loading skips the refresh but still re-arms the timer.
	mock.refreshCalled = false
	_, cmd = updated.Update(RefreshTick{})
	if mock.refreshCalled {
		t.Error("tick while loading should not refresh")
	}
	if cmd == nil {
		t.Error("tick while loading should still re-arm the timer")
	}

	// Without a refresh command there is nothing to re-arm.
	bare := NewDashboard(nil, nil, nil)
	_, cmd = bare.Update(RefreshTick{})
	if cmd != nil {
		t.Error("tick with nil refresh should return nil command")
	}
}

func TestDashboardQuit(t *testing.T) {
	d := NewDashboard(nil, nil, nil)

	_, cmd := d.Update(keyMsg('q'))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should return tea.Quit")
	}

	_, cmd = d.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c should return tea.Quit")
	}
}

func TestDashboardWindowSize(t *testing.T) {
	d := NewDashboard(nil, nil, nil)

	model, _ := d.Update(tea.WindowSizeMsg{Width: 120, Height: 50})
	updated := model.(Dashboard)

	if updated.width != 120 || updated.height != 50 {
		t.Errorf("size = %dx%d, want 120x50", updated.width, updated.height)
	}
	if !updated.ready {
		t.Error("dashboard should be ready after WindowSizeMsg")
	}
}

func TestDashboardViewNotReady(t *testing.T) {
	d := NewDashboard(nil, nil, nil)

	if view := d.View(); view != "Initializing..." {
		t.Errorf("View before sizing should show Initializing..., got %q", view)
	}
}

func TestDashboardViewOverview(t *testing.T) {
	d := loadedDashboard(&mockCmd{})

	view := d.View()
	if view == "" {
		t.Fatal("View should not be empty")
	}
	if !strings.Contains(view, "FUSEBOARD") {
		t.Error("view should contain the title")
	}
	if !strings.Contains(view, "budget_variation") {
		t.Error("overview should list fused topics")
	}
}

func TestDashboardViewDecisions(t *testing.T) {
	d := loadedDashboard(&mockCmd{})
	d.tab = TabDecisions

	view := d.View()
	if !strings.Contains(view, "TD-0001") {
		t.Error("decisions pane should list decision IDs")
	}
	if !strings.Contains(view, "Escalate to CFO") {
		t.Error("decisions pane should show the selected decision's actions")
	}
}

func TestDashboardViewDecisionsEmpty(t *testing.T) {
	d := loadedDashboard(&mockCmd{})
	d.tab = TabDecisions
	d.snap.Plan.Decisions = nil

	view := d.View()
	if !strings.Contains(view, "No open decisions") {
		t.Error("empty decisions pane should show the empty state")
	}
}

func TestDashboardViewSimulations(t *testing.T) {
	d := loadedDashboard(&mockCmd{})
	d.tab = TabSimulations

	view := d.View()
	if !strings.Contains(view, string(simulate.KindBudgetVariation)) {
		t.Error("simulations pane should list scenario kinds")
	}
}

func TestDashboardViewEvents(t *testing.T) {
	ring := otel.NewRingBuffer(16)
	ring.Push(otel.Event{Time: time.Now(), Level: otel.LevelInfo, Kind: otel.KindCycleComplete, Comp: "coord", Count: 12})

	d := NewDashboard(nil, nil, ring)
	d.ready = true
	d.width = 100
	d.height = 40
	d.tab = TabEvents

	view := d.View()
	if !strings.Contains(view, string(otel.KindCycleComplete)) {
		t.Error("events pane should list ring buffer events")
	}
}

func TestDashboardErrorClearedOnKey(t *testing.T) {
	d := loadedDashboard(&mockCmd{})
	d.err = errors.New("boom")

	model, _ := d.Update(keyMsg('j'))
	updated := model.(Dashboard)
	if updated.err != nil {
		t.Error("any key should clear the error")
	}
}
