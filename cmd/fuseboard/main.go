// Command fuseboard runs the decision fusion dashboard: a terminal UI over
// the gap/simulation/feed pipeline with periodic background refresh.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/maelcolin/fuseboard/internal/config"
	"github.com/maelcolin/fuseboard/internal/coord"
	"github.com/maelcolin/fuseboard/internal/feeds"
	"github.com/maelcolin/fuseboard/internal/logging"
	"github.com/maelcolin/fuseboard/internal/otel"
	"github.com/maelcolin/fuseboard/internal/store"
	"github.com/maelcolin/fuseboard/internal/ui"
)

const (
	feedTimeout  = 30 * time.Second
	eventLogName = "fuseboard.events.jsonl"
	ringSize     = 512
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fuseboard: failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logging.Init(cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "fuseboard: failed to init logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.Close()

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		logging.Fatal("failed to create data directory", "error", err)
	}

	// Diagnostic events go to a JSONL file for `fuse events` and to an
	// in-memory ring for the Events pane.
	events, ring, closeEvents := openEvents(filepath.Dir(cfg.DBPath))
	defer closeEvents()

	events.Emit(otel.Event{
		Level: otel.LevelInfo,
		Kind:  otel.KindStartup,
		Comp:  "main",
		Msg:   "fuseboard starting",
	})

	st, err := store.NewStore(cfg.DBPath)
	if err != nil {
		logging.Fatal("failed to open database", "path", cfg.DBPath, "error", err)
	}
	defer st.Close()

	fetcher := feeds.NewFetcher(feedTimeout)
	coordinator := coord.NewCoordinator(st, cfg, fetcher, events)

	refresh := func() tea.Cmd {
		return func() tea.Msg {
			snap, err := coordinator.RunOnce(ctx)
			return ui.SnapshotMsg{Snapshot: snap, Err: err}
		}
	}
	resolve := func(id string) tea.Cmd {
		return func() tea.Msg {
			return ui.DecisionResolved{ID: id, Err: st.ResolveDecision(id)}
		}
	}

	dashboard := ui.NewDashboard(refresh, resolve, ring)
	program := tea.NewProgram(dashboard, tea.WithAltScreen())

	logging.Info("starting dashboard", "db", cfg.DBPath, "feeds", len(cfg.Feeds))

	if _, err := program.Run(); err != nil {
		logging.Error("dashboard exited with error", "error", err)
		events.Error(otel.KindError, "main", err)
	}

	cancel()
	events.Emit(otel.Event{
		Level: otel.LevelInfo,
		Kind:  otel.KindShutdown,
		Comp:  "main",
		Msg:   "fuseboard stopped",
	})
	logging.Info("fuseboard stopped")
}

// openEvents wires the diagnostic event logger. A JSONL file failure is not
// fatal: the ring buffer still feeds the Events pane.
func openEvents(dir string) (*otel.Logger, *otel.RingBuffer, func()) {
	ring := otel.NewRingBuffer(ringSize)

	path := filepath.Join(dir, eventLogName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		logging.Warn("event log unavailable, events stay in memory", "path", path, "error", err)
		events := otel.NewNullLogger()
		events.SetRingBuffer(ring)
		return events, ring, func() { events.Close() }
	}

	events := otel.NewLogger(f)
	events.SetRingBuffer(ring)
	return events, ring, func() {
		events.Close()
		f.Close()
	}
}
