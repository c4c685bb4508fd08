package otel

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestLoggerWritesJSONL(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	l.Emit(Event{Kind: KindCycleStart, Comp: "coord"})
	l.Emit(Event{Kind: KindFusionAggregate, Comp: "fusion", Score: 0.41, Count: 12})
	l.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}

	var first Event
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("line 1 is not valid JSON: %v", err)
	}
	if first.Kind != KindCycleStart {
		t.Errorf("Kind = %q, want %q", first.Kind, KindCycleStart)
	}
	if first.Time.IsZero() {
		t.Error("zero Time should be stamped at emit")
	}
	if first.SessionID == "" {
		t.Error("SessionID should be stamped on every event")
	}

	var second Event
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("line 2 is not valid JSON: %v", err)
	}
	if second.SessionID != first.SessionID {
		t.Errorf("session changed mid-run: %q then %q", first.SessionID, second.SessionID)
	}
	if second.Score != 0.41 || second.Count != 12 {
		t.Errorf("payload fields lost: score=%v count=%d", second.Score, second.Count)
	}
}

func TestEmitKeepsExplicitTime(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	stamp := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	l.Emit(Event{Time: stamp, Kind: KindGapCompute})
	l.Close()

	var ev Event
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &ev); err != nil {
		t.Fatal(err)
	}
	if !ev.Time.Equal(stamp) {
		t.Errorf("Time = %v, want %v", ev.Time, stamp)
	}
}

func TestDurationSerializedAsMillis(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	l.Emit(Event{Kind: KindSimComplete, Scenario: "monte_carlo", Dur: 1500 * time.Millisecond})
	l.Close()

	var raw map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &raw); err != nil {
		t.Fatal(err)
	}
	if ms, ok := raw["dur_ms"].(float64); !ok || ms != 1500 {
		t.Errorf("dur_ms = %v, want 1500", raw["dur_ms"])
	}
	if _, leaked := raw["Dur"]; leaked {
		t.Error("the raw duration field should not serialize")
	}
}

func TestLevelHelpers(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	l.Info(KindFeedFetch, "feeds", "3 feeds fetched")
	l.Warn(KindFeedError, "feeds", "slow feed")
	l.Error(KindStoreError, "store", errors.New("disk full"))
	l.Error(KindStoreError, "store", nil) // nil error must not panic
	l.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	evs := make([]Event, len(lines))
	for i, ln := range lines {
		if err := json.Unmarshal([]byte(ln), &evs[i]); err != nil {
			t.Fatalf("line %d: %v", i+1, err)
		}
	}

	if evs[0].Level != LevelInfo || evs[0].Msg != "3 feeds fetched" {
		t.Errorf("Info event = %+v", evs[0])
	}
	if evs[1].Level != LevelWarn {
		t.Errorf("Warn level = %q", evs[1].Level)
	}
	if evs[2].Level != LevelError || evs[2].Err != "disk full" {
		t.Errorf("Error event = %+v", evs[2])
	}
	if evs[3].Err != "" {
		t.Errorf("nil error should leave err empty, got %q", evs[3].Err)
	}
}

func TestRingMirrorSkipsJSON(t *testing.T) {
	rb := NewRingBuffer(8)
	l := NewNullLogger()
	l.SetRingBuffer(rb)
	l.Emit(Event{Kind: KindCycleComplete, Comp: "coord", Dur: 420 * time.Millisecond})
	l.Close()

	got := rb.Last(1)
	if len(got) != 1 {
		t.Fatalf("ring holds %d events, want 1", len(got))
	}
	if got[0].Kind != KindCycleComplete {
		t.Errorf("Kind = %q, want %q", got[0].Kind, KindCycleComplete)
	}
	// Dur carries json:"-"; the ring copy must come from the struct,
	// not from a decode of the serialized line.
	if got[0].Dur != 420*time.Millisecond {
		t.Errorf("Dur = %v, want 420ms", got[0].Dur)
	}
	if got[0].SessionID == "" {
		t.Error("ring copy should carry the stamped session id")
	}
}

func TestCloseIdempotentAndEmitAfterClose(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	l.Emit(Event{Kind: KindStartup})
	l.Close()
	l.Close() // second Close is a no-op

	before := l.Dropped()
	l.Emit(Event{Kind: KindShutdown})
	if got := l.Dropped(); got != before+1 {
		t.Errorf("Dropped = %d after emit on closed logger, want %d", got, before+1)
	}
	if n := strings.Count(buf.String(), "\n"); n != 1 {
		t.Errorf("closed logger wrote %d lines, want 1", n)
	}
}

// gatedWriter blocks every Write until the gate closes.
type gatedWriter struct {
	gate <-chan struct{}
}

func (g gatedWriter) Write(p []byte) (int, error) {
	<-g.gate
	return len(p), nil
}

func TestFullQueueShedsInsteadOfBlocking(t *testing.T) {
	gate := make(chan struct{})
	l := NewLogger(gatedWriter{gate: gate})

	// With the writer blocked, one event can be in its hands and
	// queueDepth more in the queue. Anything past that must be shed.
	for i := 0; i < queueDepth+2; i++ {
		l.Emit(Event{Kind: KindKeyPress, Count: i})
	}
	if l.Dropped() == 0 {
		t.Error("expected shed events while the writer is blocked")
	}

	close(gate)
	l.Close()
}

func TestNullLoggerAcceptsEverything(t *testing.T) {
	l := NewNullLogger()
	for i := 0; i < 100; i++ {
		l.Info(KindFeedFetch, "feeds", "dropped on the floor")
	}
	l.Close()
	if n := l.Dropped(); n != 0 {
		t.Errorf("null logger shed %d events, want 0", n)
	}
}

func TestConcurrentEmit(t *testing.T) {
	rb := NewRingBuffer(64)
	l := NewNullLogger()
	l.SetRingBuffer(rb)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				l.Emit(Event{Kind: KindGapCompute, Comp: "gap"})
			}
		}()
	}
	wg.Wait()
	l.Close()

	if got := rb.Len(); got != 64 {
		t.Errorf("ring Len = %d after 400 events, want the full window of 64", got)
	}
	if l.Dropped() != 0 {
		t.Errorf("shed %d events with an io.Discard sink, want 0", l.Dropped())
	}
}
