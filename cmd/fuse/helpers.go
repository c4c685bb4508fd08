package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/maelcolin/fuseboard/internal/config"
	"github.com/maelcolin/fuseboard/internal/otel"
	"github.com/maelcolin/fuseboard/internal/store"
)

const eventLogName = "fuseboard.events.jsonl"

// loadConfig reads the standard config, applying env overrides. Fatal on
// anything unexpected; a missing file is not an error.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("fuse: failed to load config: %v", err)
	}
	return cfg
}

// openStore opens the SQLite database, creating the data directory first.
func openStore(cfg *config.Config) *store.Store {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		log.Fatalf("fuse: failed to create data directory: %v", err)
	}
	st, err := store.NewStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("fuse: failed to open database at %s: %v", cfg.DBPath, err)
	}
	return st
}

// eventLogPath returns the JSONL event log shared with the dashboard.
func eventLogPath(cfg *config.Config) string {
	return filepath.Join(filepath.Dir(cfg.DBPath), eventLogName)
}

// openEventLog appends diagnostic events to the shared JSONL file so that
// CLI cycles show up in `fuse events` alongside dashboard cycles. Falls
// back to a discard logger if the file cannot be opened.
func openEventLog(cfg *config.Config) (*otel.Logger, func()) {
	f, err := os.OpenFile(eventLogPath(cfg), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		events := otel.NewNullLogger()
		return events, func() { events.Close() }
	}
	events := otel.NewLogger(f)
	return events, func() {
		events.Close()
		f.Close()
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
