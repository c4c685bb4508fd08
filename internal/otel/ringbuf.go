package otel

import (
	"maps"
	"sync"
)

// DefaultRingSize is the fallback capacity when a caller asks for a
// zero or negative size.
const DefaultRingSize = 1024

// RingBuffer keeps the newest events in a fixed window so the dashboard
// shows live diagnostics without reading the log file back. Safe for
// concurrent use; Push takes the write lock, readers share a read lock.
type RingBuffer struct {
	mu    sync.RWMutex
	slots []Event
	total int // events ever pushed; the write cursor is total % len(slots)
}

// NewRingBuffer returns a buffer holding up to size events.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &RingBuffer{slots: make([]Event, size)}
}

// Push records an event, evicting the oldest once the window is full.
// The Extra map is cloned so later mutation by the producer cannot
// reach into the buffer.
func (r *RingBuffer) Push(e Event) {
	e.Extra = maps.Clone(e.Extra)
	r.mu.Lock()
	r.slots[r.total%len(r.slots)] = e
	r.total++
	r.mu.Unlock()
}

// Len reports how many events the buffer currently holds.
func (r *RingBuffer) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.held()
}

// Cap reports the window size.
func (r *RingBuffer) Cap() int {
	return len(r.slots)
}

// Snapshot copies out every buffered event, oldest first.
func (r *RingBuffer) Snapshot() []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.window(r.held())
}

// Last copies out the n newest events, oldest first. An n beyond the
// buffered count returns everything; n <= 0 returns nil.
func (r *RingBuffer) Last(n int) []Event {
	if n <= 0 {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if h := r.held(); n > h {
		n = h
	}
	return r.window(n)
}

// Stats tallies buffered events by kind. Backs the Events pane footer.
func (r *RingBuffer) Stats() map[EventKind]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byKind := make(map[EventKind]int)
	for i := r.total - r.held(); i < r.total; i++ {
		byKind[r.slots[i%len(r.slots)].Kind]++
	}
	return byKind
}

// held reports the occupied slot count. Callers hold at least mu.RLock.
func (r *RingBuffer) held() int {
	if r.total < len(r.slots) {
		return r.total
	}
	return len(r.slots)
}

// window copies the n newest events in push order. Callers hold at
// least mu.RLock and have clamped n to the occupied count.
func (r *RingBuffer) window(n int) []Event {
	if n == 0 {
		return nil
	}
	out := make([]Event, 0, n)
	for i := r.total - n; i < r.total; i++ {
		out = append(out, r.slots[i%len(r.slots)])
	}
	return out
}
