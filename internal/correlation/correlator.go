// Package correlation surfaces emerging patterns from streams of weak
// signals.
//
// Where the fusion aggregator answers "what does the evidence say right
// now", the correlator answers "which faint signals are starting to move
// together". It buffers low-confidence signals and, on demand, runs four
// detection passes: topic-pair co-occurrence, single-topic clustering,
// cross-source convergence, and rising-confidence trends. Individually none
// of the buffered signals would move a decision; the correlator exists to
// notice when several of them rhyme.
//
// A Correlator is not synchronized; callers sharing one across goroutines
// must serialize access themselves.
package correlation

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/maelcolin/fuseboard/internal/signal"
)

// NoiseFloor is the minimum confidence a signal needs to enter the buffer.
// Anything fainter is noise even for a weak-signal detector.
const NoiseFloor = 0.15

// DefaultWindow bounds how far apart two signals may sit and still count as
// co-occurring.
const DefaultWindow = 72 * time.Hour

const (
	// clusterMin is the minimum signals on one topic before the cluster
	// pass reports it.
	clusterMin = 3

	// emitStrength gates pair correlations that agree on direction: the
	// combined confidence must clear it. Disagreeing pairs always emit.
	emitStrength = 0.4

	// highStrength splits severities, mirroring the fusion conflict tiers.
	highStrength = 0.7

	// convergenceBoost rewards agreement across independent sources.
	convergenceBoost = 1.2
)

// Kind names the detection pass that produced a correlation.
type Kind string

const (
	KindPair        Kind = "topic_pair"
	KindCluster     Kind = "topic_cluster"
	KindCrossSource Kind = "cross_source"
	KindTrend       Kind = "trend"
)

// Severity grades a correlation for triage.
type Severity string

const (
	SeverityHigh     Severity = "high"
	SeverityModerate Severity = "moderate"
)

// Correlation is one detected pattern. TopicB is set only for pair
// correlations; the other kinds describe a single topic.
type Correlation struct {
	Kind        Kind            `json:"kind"`
	TopicA      string          `json:"topic_a"`
	TopicB      string          `json:"topic_b,omitempty"`
	Strength    float64         `json:"correlation_strength"`
	Severity    Severity        `json:"severity"`
	Sources     []signal.Source `json:"contributing_sources"`
	SignalCount int             `json:"signal_count"`
	Narrative   string          `json:"narrative"`
	DetectedAt  time.Time       `json:"detected_at"`
}

// Correlator buffers weak signals and detects correlations on demand.
type Correlator struct {
	window time.Duration
	now    func() time.Time
	buf    []signal.Signal
}

// Option configures a Correlator at construction.
type Option func(*Correlator)

// WithWindow overrides the co-occurrence window. Non-positive values are
// ignored.
func WithWindow(d time.Duration) Option {
	return func(c *Correlator) {
		if d > 0 {
			c.window = d
		}
	}
}

// WithClock overrides the time source used to stamp detections.
func WithClock(now func() time.Time) Option {
	return func(c *Correlator) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a Correlator with the default window.
func New(opts ...Option) *Correlator {
	c := &Correlator{
		window: DefaultWindow,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddSignal buffers s unless its confidence sits below the noise floor.
// Dropped signals do not count toward SignalCount.
func (c *Correlator) AddSignal(s signal.Signal) {
	if s.Confidence < NoiseFloor {
		return
	}
	c.buf = append(c.buf, s)
}

// AddSignals buffers a batch, applying the noise floor per signal.
func (c *Correlator) AddSignals(ss []signal.Signal) {
	for _, s := range ss {
		c.AddSignal(s)
	}
}

// Clear empties the buffer.
func (c *Correlator) Clear() {
	c.buf = c.buf[:0]
}

// SignalCount reports how many signals survived the noise floor.
func (c *Correlator) SignalCount() int {
	return len(c.buf)
}

// DetectCorrelations runs all four passes over the buffer and returns the
// findings sorted by strength, strongest first. The buffer is left intact.
func (c *Correlator) DetectCorrelations() []Correlation {
	byTopic, order := c.grouped()
	now := c.now()

	var out []Correlation
	out = append(out, c.pairCorrelations(byTopic, order, now)...)
	out = append(out, c.topicClusters(byTopic, order, now)...)
	out = append(out, c.crossSourceConvergence(byTopic, order, now)...)
	out = append(out, c.confidenceTrends(byTopic, order, now)...)

	sort.SliceStable(out, func(i, j int) bool { return out[i].Strength > out[j].Strength })
	return out
}

// grouped splits the buffer by topic, remembering first-seen order so every
// pass iterates deterministically.
func (c *Correlator) grouped() (map[string][]signal.Signal, []string) {
	byTopic := make(map[string][]signal.Signal)
	var order []string
	for _, s := range c.buf {
		if _, ok := byTopic[s.Topic]; !ok {
			order = append(order, s.Topic)
		}
		byTopic[s.Topic] = append(byTopic[s.Topic], s)
	}
	return byTopic, order
}

// pairCorrelations links two topics whose signals land within the window of
// each other. A pair that disagrees on direction always emits; a pair that
// agrees must clear the combined-strength gate first.
func (c *Correlator) pairCorrelations(byTopic map[string][]signal.Signal, order []string, now time.Time) []Correlation {
	var out []Correlation
	for i := 0; i < len(order); i++ {
		for j := i + 1; j < len(order); j++ {
			a, b := order[i], order[j]
			sa, sb := c.coOccurring(byTopic[a], byTopic[b])
			if len(sa) == 0 || len(sb) == 0 {
				continue
			}

			da, db := dominantDirection(sa), dominantDirection(sb)
			disagree := (da == signal.Positive && db == signal.Negative) ||
				(da == signal.Negative && db == signal.Positive)

			strength := combineStrength(sa, sb)
			if !disagree && strength <= emitStrength {
				continue
			}

			narrative := fmt.Sprintf("%d signals link %s and %s within %dh",
				len(sa)+len(sb), a, b, int(c.window.Hours()))
			if disagree {
				narrative += " with opposing directions"
			}

			out = append(out, Correlation{
				Kind:        KindPair,
				TopicA:      a,
				TopicB:      b,
				Strength:    round3(strength),
				Severity:    severityFor(strength),
				Sources:     distinctSources(sa, sb),
				SignalCount: len(sa) + len(sb),
				Narrative:   narrative,
				DetectedAt:  now,
			})
		}
	}
	return out
}

// topicClusters reports topics accumulating enough weak signals to matter in
// aggregate. No window applies: the buffer's lifetime is the horizon.
func (c *Correlator) topicClusters(byTopic map[string][]signal.Signal, order []string, now time.Time) []Correlation {
	var out []Correlation
	for _, topic := range order {
		sigs := byTopic[topic]
		if len(sigs) < clusterMin {
			continue
		}
		strength := combineStrength(sigs)
		out = append(out, Correlation{
			Kind:        KindCluster,
			TopicA:      topic,
			Strength:    round3(strength),
			Severity:    severityFor(strength),
			Sources:     distinctSources(sigs),
			SignalCount: len(sigs),
			Narrative:   fmt.Sprintf("%d weak signals accumulating on %s", len(sigs), topic),
			DetectedAt:  now,
		})
	}
	return out
}

// crossSourceConvergence reports topics where independent sources agree.
// Agreement across producers is worth more than volume from one, so the
// combined strength gets a boost.
func (c *Correlator) crossSourceConvergence(byTopic map[string][]signal.Signal, order []string, now time.Time) []Correlation {
	var out []Correlation
	for _, topic := range order {
		sigs := byTopic[topic]
		sources := distinctSources(sigs)
		if len(sources) < 2 {
			continue
		}
		strength := math.Min(1, combineStrength(sigs)*convergenceBoost)
		out = append(out, Correlation{
			Kind:        KindCrossSource,
			TopicA:      topic,
			Strength:    round3(strength),
			Severity:    severityFor(strength),
			Sources:     sources,
			SignalCount: len(sigs),
			Narrative:   fmt.Sprintf("%d independent sources converge on %s", len(sources), topic),
			DetectedAt:  now,
		})
	}
	return out
}

// confidenceTrends reports topics whose signal confidence keeps climbing.
// At least 60% of the consecutive steps must rise; the projected strength
// extrapolates the per-step rate three steps out.
func (c *Correlator) confidenceTrends(byTopic map[string][]signal.Signal, order []string, now time.Time) []Correlation {
	var out []Correlation
	for _, topic := range order {
		sigs := byTopic[topic]
		if len(sigs) < clusterMin {
			continue
		}

		sorted := make([]signal.Signal, len(sigs))
		copy(sorted, sigs)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Timestamp.Before(sorted[j].Timestamp)
		})

		increases := 0
		for i := 1; i < len(sorted); i++ {
			if sorted[i].Confidence > sorted[i-1].Confidence {
				increases++
			}
		}
		if float64(increases) < float64(len(sorted))*0.6 {
			continue
		}

		first := sorted[0].Confidence
		last := sorted[len(sorted)-1].Confidence
		rate := (last - first) / float64(len(sorted)-1)
		strength := math.Min(1, last+rate*3)

		out = append(out, Correlation{
			Kind:        KindTrend,
			TopicA:      topic,
			Strength:    round3(strength),
			Severity:    severityFor(strength),
			Sources:     distinctSources(sorted),
			SignalCount: len(sorted),
			Narrative:   fmt.Sprintf("confidence on %s rising across %d signals", topic, len(sorted)),
			DetectedAt:  now,
		})
	}
	return out
}

// coOccurring filters each side down to the signals that have at least one
// counterpart on the other side within the window.
func (c *Correlator) coOccurring(as, bs []signal.Signal) ([]signal.Signal, []signal.Signal) {
	var outA, outB []signal.Signal
	for _, a := range as {
		if c.anyWithin(a, bs) {
			outA = append(outA, a)
		}
	}
	for _, b := range bs {
		if c.anyWithin(b, as) {
			outB = append(outB, b)
		}
	}
	return outA, outB
}

func (c *Correlator) anyWithin(s signal.Signal, others []signal.Signal) bool {
	for _, o := range others {
		d := s.Timestamp.Sub(o.Timestamp)
		if d < 0 {
			d = -d
		}
		if d <= c.window {
			return true
		}
	}
	return false
}

func dominantDirection(sigs []signal.Signal) signal.Direction {
	var pos, neg int
	for _, s := range sigs {
		switch s.Direction {
		case signal.Positive:
			pos++
		case signal.Negative:
			neg++
		}
	}
	switch {
	case pos > neg:
		return signal.Positive
	case neg > pos:
		return signal.Negative
	}
	return signal.Neutral
}

// combineStrength treats each confidence as an independent probability of
// the pattern being real: 1 - ∏(1 - confidence), capped at 1.
func combineStrength(groups ...[]signal.Signal) float64 {
	p := 1.0
	for _, sigs := range groups {
		for _, s := range sigs {
			p *= 1 - s.Confidence
		}
	}
	return math.Min(1, 1-p)
}

func severityFor(strength float64) Severity {
	if strength > highStrength {
		return SeverityHigh
	}
	return SeverityModerate
}

// distinctSources returns the unique sources across the groups, sorted.
func distinctSources(groups ...[]signal.Signal) []signal.Source {
	seen := make(map[signal.Source]bool)
	var out []signal.Source
	for _, sigs := range groups {
		for _, s := range sigs {
			if !seen[s.Source] {
				seen[s.Source] = true
				out = append(out, s.Source)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1e3) / 1e3
}
