// Package logging writes fuseboard's diagnostic log. The TUI owns the
// terminal, so log output goes to a dated file under ~/.fuseboard/logs
// and the package discards everything until Init points it at the file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

var (
	std  = log.NewWithOptions(io.Discard, log.Options{})
	sink *os.File
)

// Init opens today's log file and replaces the discard logger with one
// writing there. An unknown level string falls back to info rather than
// failing startup.
func Init(level string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}
	dir := filepath.Join(home, ".fuseboard", "logs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	name := "fuseboard-" + time.Now().Format("2006-01-02") + ".log"
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}

	sink = f
	std = log.NewWithOptions(f, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           lvl,
	})
	std.Info("fuseboard started", "level", lvl.String())
	return nil
}

// Close notes shutdown and releases the log file. The package reverts
// to discarding output, so stray late messages are safe.
func Close() {
	std.Info("fuseboard shutting down")
	std = log.NewWithOptions(io.Discard, log.Options{})
	if sink != nil {
		sink.Close()
		sink = nil
	}
}

func Debug(msg string, keyvals ...any) { std.Debug(msg, keyvals...) }

func Info(msg string, keyvals ...any) { std.Info(msg, keyvals...) }

func Warn(msg string, keyvals ...any) { std.Warn(msg, keyvals...) }

func Error(msg string, keyvals ...any) { std.Error(msg, keyvals...) }

// Fatal logs the message and exits the process.
func Fatal(msg string, keyvals ...any) { std.Fatal(msg, keyvals...) }
