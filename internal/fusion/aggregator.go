// Package fusion fuses heterogeneous signals into per-topic and overall
// decision scores.
//
// The Aggregator buffers signals and, on demand, computes a weighted score
// per topic plus one overall scalar. Each signal contributes
// confidence × source weight × time decay, where decay halves a signal's
// influence every half-life. Opposing high-confidence signals on the same
// topic surface as explicit conflicts instead of silently cancelling out in
// the mean.
//
// # Thread Safety
//
// An Aggregator is not synchronized. It is cheap to construct and intended
// to serve a single computation pass; callers that share one across
// goroutines must serialize access themselves.
package fusion

import (
	"math"
	"sort"
	"time"

	"github.com/maelcolin/fuseboard/internal/signal"
)

// DefaultHalfLifeHours halves a signal's weight every two days.
const DefaultHalfLifeHours = 48.0

// unknownSourceWeight is the floor weight for sources outside the weight
// table. Unknown producers are heard, but barely.
const unknownSourceWeight = 0.05

// DefaultSourceWeights ranks the upstream layers by how much one signal from
// each is trusted. Simulation leads: it is the only source that has actually
// run the numbers. The weights do not need to sum to 1, only their ratios
// matter. A fresh map is returned so callers can mutate their copy freely.
func DefaultSourceWeights() map[signal.Source]float64 {
	return map[signal.Source]float64{
		signal.SourceSimulation: 0.25,
		signal.SourceFeedback:   0.20,
		signal.SourceRAG:        0.20,
		signal.SourceGraph:      0.15,
		signal.SourceRealtime:   0.10,
		signal.SourceManual:     0.10,
	}
}

// Aggregator buffers signals and fuses them on demand.
type Aggregator struct {
	weights  map[signal.Source]float64
	halfLife float64
	now      func() time.Time
	buf      []signal.Signal
}

// Option configures an Aggregator at construction.
type Option func(*Aggregator)

// WithSourceWeights replaces the default source weight table. An empty map
// is ignored.
func WithSourceWeights(w map[signal.Source]float64) Option {
	return func(a *Aggregator) {
		if len(w) > 0 {
			a.weights = w
		}
	}
}

// WithHalfLife sets the decay half-life in hours. Zero or negative disables
// decay entirely: every signal then weighs as if it just arrived.
func WithHalfLife(hours float64) Option {
	return func(a *Aggregator) { a.halfLife = hours }
}

// WithClock overrides the time source. Tests use this to pin signal ages.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// New creates an Aggregator with default weights and half-life.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		weights:  DefaultSourceWeights(),
		halfLife: DefaultHalfLifeHours,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AddSignal buffers one signal for the next aggregation pass.
func (a *Aggregator) AddSignal(s signal.Signal) {
	a.buf = append(a.buf, s)
}

// AddSignals buffers a batch of signals.
func (a *Aggregator) AddSignals(ss []signal.Signal) {
	a.buf = append(a.buf, ss...)
}

// Clear empties the buffer. The Aggregator's configuration survives.
func (a *Aggregator) Clear() {
	a.buf = a.buf[:0]
}

// Len reports how many signals are buffered.
func (a *Aggregator) Len() int {
	return len(a.buf)
}

// Aggregate fuses every buffered signal.
func (a *Aggregator) Aggregate() Result {
	return a.aggregate(a.buf)
}

// AggregateTopic fuses only the signals whose topic exactly matches topic.
// Matching is literal: no case folding, no trimming.
func (a *Aggregator) AggregateTopic(topic string) Result {
	var picked []signal.Signal
	for _, s := range a.buf {
		if s.Topic == topic {
			picked = append(picked, s)
		}
	}
	return a.aggregate(picked)
}

func (a *Aggregator) aggregate(signals []signal.Signal) Result {
	if len(signals) == 0 {
		return Result{Topics: map[string]TopicScore{}}
	}

	now := a.now()

	// Group by topic, remembering first-seen order so conflict output is
	// deterministic across runs.
	byTopic := make(map[string][]signal.Signal)
	var order []string
	for _, s := range signals {
		if _, ok := byTopic[s.Topic]; !ok {
			order = append(order, s.Topic)
		}
		byTopic[s.Topic] = append(byTopic[s.Topic], s)
	}

	topics := make(map[string]TopicScore, len(byTopic))
	var overallSum, overallWeight float64
	for _, topic := range order {
		score, weight, ts := a.scoreTopic(byTopic[topic], now)
		topics[topic] = ts
		// Overall blends the full-precision topic scores; rounding happens
		// once, at the edge.
		overallSum += score * weight
		overallWeight += weight
	}

	overall := 0.0
	if overallWeight > 0 {
		overall = overallSum / overallWeight
	}

	return Result{
		Topics:       topics,
		OverallScore: round4(overall),
		SignalCount:  len(signals),
		Conflicts:    detectConflicts(byTopic, order),
	}
}

// scoreTopic returns the full-precision score and total weight alongside the
// rounded TopicScore, so the overall computation never sees rounded values.
func (a *Aggregator) scoreTopic(sigs []signal.Signal, now time.Time) (float64, float64, TopicScore) {
	var weightedSum, weightTotal, confSum float64
	var positives, negatives int
	seen := make(map[signal.Source]bool)
	var sources []signal.Source

	for _, s := range sigs {
		w := s.Confidence * a.sourceWeight(s.Source) * a.timeWeight(s.Timestamp, now)
		weightedSum += s.Value * w
		weightTotal += w
		confSum += s.Confidence

		switch s.Direction {
		case signal.Positive:
			positives++
		case signal.Negative:
			negatives++
		}

		if !seen[s.Source] {
			seen[s.Source] = true
			sources = append(sources, s.Source)
		}
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })

	score := 0.0
	if weightTotal > 0 {
		score = weightedSum / weightTotal
	}

	consensus := ConsensusMixed
	switch {
	case positives > negatives*2:
		consensus = ConsensusPositive
	case negatives > positives*2:
		consensus = ConsensusNegative
	}

	return score, weightTotal, TopicScore{
		Score:         round4(score),
		TotalWeight:   round4(weightTotal),
		SignalCount:   len(sigs),
		Consensus:     consensus,
		Sources:       sources,
		AvgConfidence: round3(confSum / float64(len(sigs))),
	}
}

// sourceWeight looks up the configured weight, falling back to the unknown
// floor for sources outside the table.
func (a *Aggregator) sourceWeight(src signal.Source) float64 {
	if w, ok := a.weights[src]; ok {
		return w
	}
	return unknownSourceWeight
}

// timeWeight halves a signal's contribution every halfLife hours. Future
// timestamps clamp to zero age rather than amplifying the signal.
func (a *Aggregator) timeWeight(ts, now time.Time) float64 {
	if a.halfLife <= 0 {
		return 1
	}
	age := now.Sub(ts).Hours()
	if age < 0 {
		age = 0
	}
	return math.Pow(0.5, age/a.halfLife)
}

// detectConflicts runs as a separate pass over the grouped signals so the
// scoring arithmetic stays auditable on its own. A conflict needs credible
// disagreement: at least one signal on each side, both sides averaging
// confidence strictly above 0.5.
func detectConflicts(byTopic map[string][]signal.Signal, order []string) []Conflict {
	var conflicts []Conflict
	for _, topic := range order {
		var pos, neg []signal.Signal
		for _, s := range byTopic[topic] {
			switch s.Direction {
			case signal.Positive:
				pos = append(pos, s)
			case signal.Negative:
				neg = append(neg, s)
			}
		}
		if len(pos) == 0 || len(neg) == 0 {
			continue
		}

		avgPos := meanConfidence(pos)
		avgNeg := meanConfidence(neg)
		if avgPos <= 0.5 || avgNeg <= 0.5 {
			continue
		}

		severity := SeverityModerate
		if math.Min(avgPos, avgNeg) > 0.7 {
			severity = SeverityHigh
		}

		conflicts = append(conflicts, Conflict{
			Topic:           topic,
			PositiveSources: sourcesOf(pos),
			NegativeSources: sourcesOf(neg),
			Severity:        severity,
		})
	}
	return conflicts
}

func meanConfidence(sigs []signal.Signal) float64 {
	var sum float64
	for _, s := range sigs {
		sum += s.Confidence
	}
	return sum / float64(len(sigs))
}

// sourcesOf keeps one entry per signal, duplicates included, in buffer
// order. Conflict reports use the repetition as an evidence count.
func sourcesOf(sigs []signal.Signal) []signal.Source {
	out := make([]signal.Source, len(sigs))
	for i, s := range sigs {
		out[i] = s.Source
	}
	return out
}
