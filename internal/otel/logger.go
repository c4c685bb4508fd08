package otel

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// queueDepth is how many events may sit between Emit and the writer
// goroutine before new ones are shed. Serialized events run around 200
// bytes, so a full queue holds under a megabyte of pending output.
const queueDepth = 4096

// Logger appends events to a JSONL stream without blocking the caller.
//
// Emit hands the raw Event to a single writer goroutine over a buffered
// channel. The writer serializes, appends to the sink, and mirrors the
// event into the attached RingBuffer, so neither serialization nor disk
// latency ever lands on the pipeline or the UI loop. A full queue sheds
// the event and counts it rather than blocking.
//
// The writer goroutine is the only reader of queue and the only writer
// to sink. Push into the ring happens on the writer goroutine too; the
// ring's own lock covers concurrent readers.
type Logger struct {
	session string
	sink    io.Writer
	queue   chan Event
	ring    atomic.Pointer[RingBuffer]
	shed    atomic.Uint64 // lost to a full queue, an encode failure, or a write failure
	stopped atomic.Bool
	done    chan struct{}
	stop    sync.Once
}

// NewLogger starts a logger appending JSONL lines to w. The caller owns
// w and must Close the logger to flush the queue before releasing it.
func NewLogger(w io.Writer) *Logger {
	l := &Logger{
		session: uuid.NewString(),
		sink:    w,
		queue:   make(chan Event, queueDepth),
		done:    make(chan struct{}),
	}
	go l.writeLoop()
	return l
}

// NewNullLogger returns a logger whose output goes nowhere. Used when
// the event log file cannot be opened: producers keep emitting, nothing
// reaches disk. Close it like any other logger.
func NewNullLogger() *Logger {
	return NewLogger(io.Discard)
}

func (l *Logger) writeLoop() {
	defer close(l.done)
	for ev := range l.queue {
		line, err := json.Marshal(ev)
		if err != nil {
			l.shed.Add(1)
			continue
		}
		if _, err := l.sink.Write(append(line, '\n')); err != nil {
			l.shed.Add(1)
		}
		if rb := l.ring.Load(); rb != nil {
			rb.Push(ev)
		}
	}
}

// Emit stamps and enqueues one event. Never blocks: a full queue or a
// closed logger sheds the event and bumps the shed counter.
//
// Emit may race Close. The stopped check narrows the window and the
// recover absorbs the rest: a send that loses the race panics on the
// closed channel and is recorded as shed.
func (l *Logger) Emit(e Event) {
	if l.stopped.Load() {
		l.shed.Add(1)
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	e.SessionID = l.session

	defer func() {
		if recover() != nil {
			l.shed.Add(1)
		}
	}()
	select {
	case l.queue <- e:
	default:
		l.shed.Add(1)
	}
}

// Info emits an info-level event with a free-text message.
func (l *Logger) Info(kind EventKind, comp, msg string) {
	l.Emit(Event{Level: LevelInfo, Kind: kind, Comp: comp, Msg: msg})
}

// Warn emits a warn-level event.
func (l *Logger) Warn(kind EventKind, comp, msg string) {
	l.Emit(Event{Level: LevelWarn, Kind: kind, Comp: comp, Msg: msg})
}

// Error emits an error-level event. A nil err leaves the err field empty.
func (l *Logger) Error(kind EventKind, comp string, err error) {
	var msg string
	if err != nil {
		msg = err.Error()
	}
	l.Emit(Event{Level: LevelError, Kind: kind, Comp: comp, Err: msg})
}

// SetRingBuffer mirrors subsequent events into rb. Pass nil to detach.
func (l *Logger) SetRingBuffer(rb *RingBuffer) {
	l.ring.Store(rb)
}

// Dropped reports how many events have been shed since the logger started.
func (l *Logger) Dropped() uint64 {
	return l.shed.Load()
}

// Close drains the queue, stops the writer, and reports shed events on
// stderr. Idempotent. Emits that arrive after or during Close are shed,
// never panicked out to the caller.
func (l *Logger) Close() {
	l.stop.Do(func() {
		l.stopped.Store(true)
		close(l.queue)
		<-l.done

		if n := l.shed.Load(); n > 0 {
			fmt.Fprintf(os.Stderr, "fuseboard: %d events dropped during session %s\n", n, l.session)
		}
	})
}
