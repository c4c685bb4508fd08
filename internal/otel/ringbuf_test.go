package otel

import (
	"sync"
	"testing"
)

func ringCounts(evs []Event) []int {
	out := make([]int, len(evs))
	for i, ev := range evs {
		out[i] = ev.Count
	}
	return out
}

func TestRingBufferFillsInOrder(t *testing.T) {
	rb := NewRingBuffer(4)
	for i := 0; i < 3; i++ {
		rb.Push(Event{Kind: KindFeedFetch, Count: i})
	}

	if rb.Len() != 3 {
		t.Fatalf("Len = %d, want 3", rb.Len())
	}
	snap := rb.Snapshot()
	for i, ev := range snap {
		if ev.Count != i {
			t.Errorf("snapshot order wrong: %v", ringCounts(snap))
			break
		}
	}
}

func TestRingBufferEvictsOldest(t *testing.T) {
	rb := NewRingBuffer(4)
	for i := 0; i < 6; i++ {
		rb.Push(Event{Kind: KindCycleComplete, Count: i})
	}

	if rb.Len() != 4 {
		t.Fatalf("Len = %d, want 4 after wrap", rb.Len())
	}
	snap := rb.Snapshot()
	want := []int{2, 3, 4, 5}
	for i := range want {
		if snap[i].Count != want[i] {
			t.Fatalf("snapshot after wrap = %v, want %v", ringCounts(snap), want)
		}
	}
}

func TestRingBufferLast(t *testing.T) {
	rb := NewRingBuffer(8)
	for i := 0; i < 5; i++ {
		rb.Push(Event{Kind: KindSimComplete, Count: i})
	}

	last := rb.Last(2)
	if len(last) != 2 || last[0].Count != 3 || last[1].Count != 4 {
		t.Errorf("Last(2) = %v, want [3 4]", ringCounts(last))
	}
	if got := rb.Last(99); len(got) != 5 {
		t.Errorf("Last beyond Len returned %d events, want 5", len(got))
	}
	if rb.Last(0) != nil || rb.Last(-1) != nil {
		t.Error("Last with n <= 0 should return nil")
	}
}

func TestRingBufferLastAcrossWrap(t *testing.T) {
	rb := NewRingBuffer(4)
	for i := 0; i < 7; i++ {
		rb.Push(Event{Kind: KindWeakDetect, Count: i})
	}

	last := rb.Last(3)
	want := []int{4, 5, 6}
	if len(last) != 3 {
		t.Fatalf("Last(3) returned %d events", len(last))
	}
	for i := range want {
		if last[i].Count != want[i] {
			t.Fatalf("Last(3) across wrap = %v, want %v", ringCounts(last), want)
		}
	}
}

func TestRingBufferEmpty(t *testing.T) {
	rb := NewRingBuffer(4)
	if rb.Len() != 0 {
		t.Errorf("Len = %d on empty buffer, want 0", rb.Len())
	}
	if rb.Snapshot() != nil {
		t.Error("Snapshot of an empty buffer should be nil")
	}
	if rb.Last(3) != nil {
		t.Error("Last on an empty buffer should be nil")
	}
}

func TestRingBufferDefaultSize(t *testing.T) {
	if got := NewRingBuffer(0).Cap(); got != DefaultRingSize {
		t.Errorf("Cap = %d for size 0, want %d", got, DefaultRingSize)
	}
	if got := NewRingBuffer(-5).Cap(); got != DefaultRingSize {
		t.Errorf("Cap = %d for negative size, want %d", got, DefaultRingSize)
	}
	if got := NewRingBuffer(16).Cap(); got != 16 {
		t.Errorf("Cap = %d, want 16", got)
	}
}

func TestRingBufferStats(t *testing.T) {
	rb := NewRingBuffer(16)
	for i := 0; i < 3; i++ {
		rb.Push(Event{Kind: KindFeedFetch})
	}
	rb.Push(Event{Kind: KindFeedError})
	rb.Push(Event{Kind: KindFusionAggregate})

	stats := rb.Stats()
	if stats[KindFeedFetch] != 3 || stats[KindFeedError] != 1 || stats[KindFusionAggregate] != 1 {
		t.Errorf("Stats = %v", stats)
	}
}

func TestRingBufferStatsAfterEviction(t *testing.T) {
	rb := NewRingBuffer(2)
	rb.Push(Event{Kind: KindCycleStart})
	rb.Push(Event{Kind: KindCycleComplete})
	rb.Push(Event{Kind: KindPlanBuild}) // evicts cycle.start

	stats := rb.Stats()
	if stats[KindCycleStart] != 0 {
		t.Errorf("evicted kind still counted: %v", stats)
	}
	if stats[KindCycleComplete] != 1 || stats[KindPlanBuild] != 1 {
		t.Errorf("Stats = %v", stats)
	}
}

func TestRingBufferCopiesExtra(t *testing.T) {
	rb := NewRingBuffer(4)
	extra := map[string]any{"feed": "banque-centrale"}
	rb.Push(Event{Kind: KindFeedFetch, Extra: extra})
	extra["feed"] = "mutated"

	got := rb.Snapshot()[0]
	if got.Extra["feed"] != "banque-centrale" {
		t.Errorf("Extra aliased the producer's map: %v", got.Extra)
	}
}

func TestRingBufferConcurrentAccess(t *testing.T) {
	rb := NewRingBuffer(32)
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				rb.Push(Event{Kind: KindKeyPress})
				rb.Last(5)
				rb.Stats()
			}
		}()
	}
	wg.Wait()

	if rb.Len() != 32 {
		t.Errorf("Len = %d after 400 pushes into a 32-slot ring", rb.Len())
	}
}
