// Package otel is fuseboard's structured event stream.
//
// Each subsystem reports what it did as an Event. The Logger appends
// events to a JSONL file through a background writer and can mirror them
// into a RingBuffer, so the dashboard's Events pane and `fuse events`
// read the same stream: one live, one from disk.
package otel

import (
	"encoding/json"
	"time"
)

// Level grades an event for filtering. Empty means unleveled; viewers
// render it like info.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind names what happened as "<subsystem>.<action>". Viewers
// filter on the prefix, so new kinds should reuse existing subsystems
// where they fit.
type EventKind string

const (
	// Pipeline
	KindCycleStart      EventKind = "cycle.start"
	KindCycleComplete   EventKind = "cycle.complete"
	KindFusionAggregate EventKind = "fusion.aggregate"
	KindGapCompute      EventKind = "gap.compute"
	KindSimStart        EventKind = "sim.start"
	KindSimComplete     EventKind = "sim.complete"
	KindWeakDetect      EventKind = "weak.detect"
	KindPlanBuild       EventKind = "plan.build"

	// Feeds
	KindFeedFetch EventKind = "feed.fetch"
	KindFeedError EventKind = "feed.error"

	// Store
	KindStoreError EventKind = "store.error"

	// UI tracing, emitted only when FUSEBOARD_TRACE is set
	KindKeyPress EventKind = "ui.key"
	KindResize   EventKind = "ui.resize"

	// Process lifecycle
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
	KindError    EventKind = "sys.error"
)

// Event is one record on the stream. Kind is the only field every event
// carries; the rest are populated per kind and omitted from the JSON
// when empty, which keeps lines short enough to eyeball with tail -f.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"`       // emitting component, e.g. "coord" or "feeds"
	SessionID string         `json:"session_id,omitempty"` // stamped by the Logger, constant per process
	Dur       time.Duration  `json:"-"`                    // producers set this; serialized as dur_ms
	DurMs     float64        `json:"dur_ms,omitempty"`
	Count     int            `json:"count,omitempty"`
	Source    string         `json:"source,omitempty"`   // signal source or feed name
	Topic     string         `json:"topic,omitempty"`    // fusion topic
	Scenario  string         `json:"scenario,omitempty"` // simulation kind
	Score     float64        `json:"score,omitempty"`    // fused or per-topic score
	Priority  string         `json:"priority,omitempty"` // decision priority, P1..P4
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"` // escape hatch for one-off fields
}

// MarshalJSON folds Dur into the dur_ms field. Producers work in
// time.Duration; the wire format carries float milliseconds so jq and
// the events viewer never parse duration strings.
func (e Event) MarshalJSON() ([]byte, error) {
	if e.Dur > 0 {
		e.DurMs = float64(e.Dur.Microseconds()) / 1000.0
	}
	type plain Event
	return json.Marshal(plain(e))
}
