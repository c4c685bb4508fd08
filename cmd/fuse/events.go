package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// pollEvery is the sleep between reads once follow mode reaches EOF.
const pollEvery = 100 * time.Millisecond

// eventRecord mirrors the JSONL schema written by internal/otel. The
// viewer decodes lines on its own instead of importing the package, so
// it stays able to read logs written by older or newer builds.
type eventRecord struct {
	Time      time.Time      `json:"t"`
	Level     string         `json:"level"`
	Kind      string         `json:"kind"`
	Comp      string         `json:"comp"`
	SessionID string         `json:"session_id"`
	DurMs     float64        `json:"dur_ms"`
	Count     int            `json:"count"`
	Source    string         `json:"source"`
	Topic     string         `json:"topic"`
	Scenario  string         `json:"scenario"`
	Score     float64        `json:"score"`
	Priority  string         `json:"priority"`
	Err       string         `json:"err"`
	Msg       string         `json:"msg"`
	Extra     map[string]any `json:"extra"`
}

// levelRanks orders levels for the -level filter. Unknown or empty
// levels rank as debug so they only show unfiltered.
var levelRanks = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// eventFilter holds the parsed -kind/-level/-comp/-topic filters.
type eventFilter struct {
	kindPrefix string
	level      string
	minLevel   int
	comp       string
	topic      string
}

func (f eventFilter) keep(ev eventRecord) bool {
	if f.kindPrefix != "" && !strings.HasPrefix(ev.Kind, f.kindPrefix) {
		return false
	}
	if f.level != "" && levelRanks[ev.Level] < f.minLevel {
		return false
	}
	if f.comp != "" && ev.Comp != f.comp {
		return false
	}
	if f.topic != "" && ev.Topic != f.topic {
		return false
	}
	return true
}

// renderEvent lays out one line: timestamp, level, component, kind,
// then whichever payload fields the event carries.
func renderEvent(ev eventRecord) string {
	lvl := "?"
	if ev.Level != "" {
		lvl = strings.ToUpper(ev.Level)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s [%-6s] %-18s", ev.Time.Format("15:04:05.000"), lvl, ev.Comp, ev.Kind)

	if ev.Msg != "" {
		b.WriteString(" " + ev.Msg)
	}
	if ev.DurMs > 0 {
		fmt.Fprintf(&b, " (%.*fms)", durPrecision(ev.DurMs), ev.DurMs)
	}
	if ev.Count > 0 {
		fmt.Fprintf(&b, " n=%d", ev.Count)
	}
	if ev.Score != 0 {
		fmt.Fprintf(&b, " score=%+.3f", ev.Score)
	}
	if ev.Source != "" {
		b.WriteString(" src=" + ev.Source)
	}
	if ev.Topic != "" {
		b.WriteString(" topic=" + ev.Topic)
	}
	if ev.Scenario != "" {
		b.WriteString(" sim=" + ev.Scenario)
	}
	if ev.Priority != "" {
		b.WriteString(" prio=" + ev.Priority)
	}
	if ev.Err != "" {
		b.WriteString(" err=" + ev.Err)
	}
	return b.String()
}

// durPrecision trims decimals as durations grow: 0.25ms, 7.5ms, 320ms.
func durPrecision(ms float64) int {
	switch {
	case ms >= 100:
		return 0
	case ms >= 1:
		return 1
	}
	return 2
}

func runEvents() {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	tail := fs.Int("tail", 50, "Number of recent lines to show")
	follow := fs.Bool("f", false, "Follow mode (like tail -f)")
	kind := fs.String("kind", "", "Filter by event kind prefix (e.g. 'cycle')")
	level := fs.String("level", "", "Minimum level: debug, info, warn, error")
	comp := fs.String("comp", "", "Filter by component name")
	topic := fs.String("topic", "", "Filter by fusion topic")
	rawJSON := fs.Bool("json", false, "Output raw JSON lines")
	fs.Parse(os.Args[1:])

	cfg := loadConfig()
	logPath := eventLogPath(cfg)

	f, err := os.Open(logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		fmt.Fprintf(os.Stderr, "  Event log not found at %s\n", logPath)
		fmt.Fprintf(os.Stderr, "  Run the fuseboard TUI or 'fuse run' first to generate events.\n")
		os.Exit(1)
	}
	defer f.Close()

	filt := eventFilter{
		kindPrefix: *kind,
		level:      *level,
		minLevel:   levelRanks[*level],
		comp:       *comp,
		topic:      *topic,
	}

	emit := func(ev eventRecord, raw []byte) {
		if *rawJSON {
			fmt.Println(string(raw))
			return
		}
		fmt.Println(renderEvent(ev))
	}

	// One reader serves both phases: tailMatches leaves it at EOF,
	// exactly where follow mode should pick up.
	r := bufio.NewReaderSize(f, 64*1024)
	for _, pl := range tailMatches(r, *tail, filt.keep) {
		emit(pl.ev, pl.raw)
	}
	if !*follow {
		return
	}

	// A writer can be preempted mid-line, so whatever arrives without a
	// newline is held in pending until the rest of the line shows up.
	var pending []byte
	for {
		chunk, err := r.ReadBytes('\n')
		pending = append(pending, chunk...)
		if err == io.EOF {
			time.Sleep(pollEvery)
			continue
		}
		if err != nil {
			return
		}
		line := bytes.TrimRight(pending, "\r\n")
		pending = nil
		if len(line) == 0 {
			continue
		}
		var ev eventRecord
		if json.Unmarshal(line, &ev) != nil {
			continue
		}
		if filt.keep(ev) {
			emit(ev, line)
		}
	}
}

type parsedLine struct {
	ev  eventRecord
	raw []byte
}

// tailMatches reads r to EOF and returns the newest n events passing
// keep, oldest first. The window is circular: once full, each new match
// lands on the oldest slot.
func tailMatches(r *bufio.Reader, n int, keep func(eventRecord) bool) []parsedLine {
	window := make([]parsedLine, 0, max(n, 0))
	matched := 0

	for {
		raw, err := r.ReadBytes('\n')
		if line := bytes.TrimRight(raw, "\r\n"); len(line) > 0 && n > 0 {
			var ev eventRecord
			if json.Unmarshal(line, &ev) == nil && keep(ev) {
				pl := parsedLine{ev: ev, raw: append([]byte(nil), line...)}
				if len(window) < n {
					window = append(window, pl)
				} else {
					window[matched%n] = pl
				}
				matched++
			}
		}
		if err != nil {
			break
		}
	}

	if matched <= n {
		return window
	}
	// The oldest match sits at matched%n; rotate back to push order.
	at := matched % n
	out := make([]parsedLine, 0, n)
	out = append(out, window[at:]...)
	return append(out, window[:at]...)
}
