// Package signal defines the normalized observation record shared by every
// producer in the fusion pipeline.
//
// A Signal is one piece of evidence from one upstream layer about one topic:
// a budget overrun, a simulation risk grade, a market headline. Producers
// normalize their domain records into Signals; the fusion and correlation
// layers consume them without knowing anything about the producers.
package signal

import "time"

// Source identifies the upstream layer that produced a signal. Any string is
// legal; how much weight an unrecognized source carries is the consumer's
// concern, not a validation error here.
type Source string

const (
	SourceSimulation Source = "simulation"
	SourceFeedback   Source = "feedback"
	SourceRAG        Source = "rag"
	SourceGraph      Source = "graph"
	SourceRealtime   Source = "realtime"
	SourceManual     Source = "manual"
)

// Direction is the producer's own read of the signal: favorable, adverse, or
// neither. It is independent of the sign of Value: consensus and conflict
// logic count directions, never values.
type Direction string

const (
	Positive Direction = "positive"
	Negative Direction = "negative"
	Neutral  Direction = "neutral"
)

// Signal is one observation about one topic from one source.
//
// Value is a signed intensity nominally in [-1, +1]. The range is not
// enforced: producers own their normalization, and an out-of-range value
// flows through arithmetic unchanged. Confidence is clamped to [0, 1] at
// construction. Metadata is carried through untouched and never interpreted.
type Signal struct {
	Source     Source         `json:"source"`
	Topic      string         `json:"topic"`
	Value      float64        `json:"value"`
	Confidence float64        `json:"confidence"`
	Direction  Direction      `json:"direction"`
	Timestamp  time.Time      `json:"timestamp"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// New builds a Signal stamped with the current UTC time.
func New(source Source, topic string, value, confidence float64, direction Direction) Signal {
	return NewAt(source, topic, value, confidence, direction, time.Time{})
}

// NewAt builds a Signal with an explicit timestamp. A zero timestamp falls
// back to the current UTC time.
func NewAt(source Source, topic string, value, confidence float64, direction Direction, ts time.Time) Signal {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return Signal{
		Source:     source,
		Topic:      topic,
		Value:      value,
		Confidence: clamp01(confidence),
		Direction:  direction,
		Timestamp:  ts,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
