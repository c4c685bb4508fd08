package otel

import (
	"os"
	"sync/atomic"
)

// UI tracing (per-keystroke and resize events) is opt-in through the
// FUSEBOARD_TRACE environment variable, read once at startup. The
// dashboard consults the flag on every key event, so reads have to be
// cheap and race-free; tests flip it through forceTrace.
var tracing atomic.Bool

func init() {
	tracing.Store(os.Getenv("FUSEBOARD_TRACE") != "")
}

// TraceEnabled reports whether UI tracing is on for this process.
func TraceEnabled() bool {
	return tracing.Load()
}

func forceTrace(on bool) {
	tracing.Store(on)
}
