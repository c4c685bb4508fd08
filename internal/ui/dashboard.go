package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/maelcolin/fuseboard/internal/coord"
	"github.com/maelcolin/fuseboard/internal/otel"
)

// Tab identifies one dashboard pane.
type Tab int

const (
	TabOverview Tab = iota
	TabDecisions
	TabSimulations
	TabEvents
	tabCount
)

var tabNames = [tabCount]string{"Overview", "Decisions", "Simulations", "Events"}

// eventsShown caps how many diagnostic events the Events pane lists.
const eventsShown = 50

// refreshEvery is the cadence of automatic refresh cycles.
const refreshEvery = 5 * time.Minute

func refreshTickCmd() tea.Cmd {
	return tea.Tick(refreshEvery, func(time.Time) tea.Msg { return RefreshTick{} })
}

// Dashboard is the root Bubble Tea model.
// IMPORTANT: Dashboard does NOT run cycles itself. It receives snapshots
// via messages and triggers refreshes through injected commands.
type Dashboard struct {
	refresh func() tea.Cmd
	resolve func(id string) tea.Cmd
	ring    *otel.RingBuffer // optional: nil leaves the Events pane empty

	snap     coord.Snapshot
	haveSnap bool
	tab      Tab
	cursor   int
	err      error
	width    int
	height   int
	ready    bool
	loading  bool
	lastRun  time.Time

	spin  spinner.Model
	gauge progress.Model
}

// NewDashboard creates a Dashboard with the given command functions.
// refresh: returns a Cmd that runs one cycle and yields a SnapshotMsg
// resolve: returns a Cmd that resolves a decision and yields DecisionResolved
// ring: diagnostic event buffer backing the Events pane (may be nil)
func NewDashboard(refresh func() tea.Cmd, resolve func(id string) tea.Cmd, ring *otel.RingBuffer) Dashboard {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorAccent)

	g := progress.New(
		progress.WithGradient(string(colorNegative), string(colorPositive)),
		progress.WithoutPercentage(),
	)

	return Dashboard{
		refresh: refresh,
		resolve: resolve,
		ring:    ring,
		loading: refresh != nil,
		spin:    s,
		gauge:   g,
	}
}

// Init kicks off the first refresh and arms the periodic timer.
func (d Dashboard) Init() tea.Cmd {
	if d.refresh != nil {
		return tea.Batch(d.refresh(), d.spin.Tick, refreshTickCmd())
	}
	return nil
}

// Update handles messages and returns the updated model and any commands.
func (d Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return d.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		d.ready = true
		d.trace(otel.KindResize, fmt.Sprintf("%dx%d", msg.Width, msg.Height))
		return d, nil

	case spinner.TickMsg:
		if !d.loading {
			return d, nil
		}
		var cmd tea.Cmd
		d.spin, cmd = d.spin.Update(msg)
		return d, cmd

	case RefreshTick:
		if d.refresh == nil {
			return d, nil
		}
		if d.loading {
			return d, refreshTickCmd()
		}
		d.loading = true
		return d, tea.Batch(d.refresh(), d.spin.Tick, refreshTickCmd())

	case SnapshotMsg:
		d.loading = false
		if msg.Err != nil {
			d.err = msg.Err
			return d, nil
		}
		d.snap = msg.Snapshot
		d.haveSnap = true
		d.err = nil
		d.lastRun = time.Now()
		d.clampCursor()
		return d, nil

	case DecisionResolved:
		if msg.Err != nil {
			d.err = msg.Err
			return d, nil
		}
		// Drop the resolved decision from the local plan.
		decs := d.snap.Plan.Decisions
		for i := range decs {
			if decs[i].ID == msg.ID {
				d.snap.Plan.Decisions = append(decs[:i:i], decs[i+1:]...)
				break
			}
		}
		d.clampCursor()
		return d, nil
	}

	return d, nil
}

// handleKeyMsg processes keyboard input.
func (d Dashboard) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d.trace(otel.KindKeyPress, msg.String())

	// Clear any existing error on key press
	if d.err != nil {
		d.err = nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return d, tea.Quit

	case "tab", "l", "right":
		d.tab = (d.tab + 1) % tabCount
		d.cursor = 0
		return d, nil

	case "shift+tab", "h", "left":
		d.tab = (d.tab + tabCount - 1) % tabCount
		d.cursor = 0
		return d, nil

	case "1", "2", "3", "4":
		d.tab = Tab(msg.String()[0] - '1')
		d.cursor = 0
		return d, nil

	case "j", "down":
		if d.cursor < d.listLen()-1 {
			d.cursor++
		}
		return d, nil

	case "k", "up":
		if d.cursor > 0 {
			d.cursor--
		}
		return d, nil

	case "g", "home":
		d.cursor = 0
		return d, nil

	case "G", "end":
		if n := d.listLen(); n > 0 {
			d.cursor = n - 1
		}
		return d, nil

	case "enter":
		if d.tab == TabDecisions && d.resolve != nil {
			decs := d.snap.Plan.Decisions
			if d.cursor < len(decs) {
				return d, d.resolve(decs[d.cursor].ID)
			}
		}
		return d, nil

	case "r":
		if d.refresh != nil && !d.loading {
			d.loading = true
			return d, tea.Batch(d.refresh(), d.spin.Tick)
		}
		return d, nil
	}

	return d, nil
}

// trace pushes a debug event straight into the ring when FUSEBOARD_TRACE
// is set. Trace events skip the JSONL log; they exist for the live
// Events pane.
func (d Dashboard) trace(kind otel.EventKind, msg string) {
	if d.ring == nil || !otel.TraceEnabled() {
		return
	}
	d.ring.Push(otel.Event{Time: time.Now(), Level: otel.LevelDebug, Kind: kind, Comp: "ui", Msg: msg})
}

// listLen returns the number of navigable rows in the active pane.
func (d Dashboard) listLen() int {
	switch d.tab {
	case TabOverview:
		return len(d.snap.Plan.Aggregation.Topics)
	case TabDecisions:
		return len(d.snap.Plan.Decisions)
	case TabSimulations:
		return len(d.snap.Simulations)
	case TabEvents:
		if d.ring == nil {
			return 0
		}
		n := d.ring.Len()
		if n > eventsShown {
			n = eventsShown
		}
		return n
	}
	return 0
}

func (d *Dashboard) clampCursor() {
	if n := d.listLen(); d.cursor >= n {
		if n > 0 {
			d.cursor = n - 1
		} else {
			d.cursor = 0
		}
	}
}

// View renders the UI.
func (d Dashboard) View() string {
	if !d.ready {
		return "Initializing..."
	}

	title := d.viewTitle()
	tabs := d.viewTabs()

	// Reserve title, tab row, status bar and (maybe) an error line.
	contentHeight := d.height - 3
	if d.err != nil {
		contentHeight--
	}
	if contentHeight < 1 {
		contentHeight = 1
	}

	var content string
	switch d.tab {
	case TabOverview:
		content = d.viewOverview(contentHeight)
	case TabDecisions:
		content = d.viewDecisions(contentHeight)
	case TabSimulations:
		content = d.viewSimulations(contentHeight)
	case TabEvents:
		content = d.viewEvents(contentHeight)
	}

	errorBar := ""
	if d.err != nil {
		errorBar = ErrorStyle.Width(d.width).Render("Error: " + d.err.Error() + " (press any key to dismiss)")
		errorBar += "\n"
	}

	status := d.viewStatusBar()

	return title + "\n" + tabs + "\n" + content + errorBar + status
}

// ActiveTab returns the selected tab (for testing).
func (d Dashboard) ActiveTab() Tab {
	return d.tab
}

// Cursor returns the current cursor position (for testing).
func (d Dashboard) Cursor() int {
	return d.cursor
}

// Snapshot returns the last received snapshot (for testing).
func (d Dashboard) Snapshot() coord.Snapshot {
	return d.snap
}
