// Package ui provides the Bubble Tea TUI for fuseboard.
package ui

import "github.com/maelcolin/fuseboard/internal/coord"

// SnapshotMsg is sent when a refresh cycle completes, either from the
// background watcher or from a manual refresh command.
type SnapshotMsg struct {
	Snapshot coord.Snapshot
	Err      error
}

// RefreshTick fires on the automatic refresh cadence. A tick that lands
// while a refresh is already in flight is skipped, but the timer is
// always re-armed so the chain never dies.
type RefreshTick struct{}

// DecisionResolved is sent when a decision has been marked resolved in
// the store.
type DecisionResolved struct {
	ID  string
	Err error
}
