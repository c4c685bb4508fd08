package fusion

import (
	"math"

	"github.com/maelcolin/fuseboard/internal/signal"
)

// Consensus labels the directional agreement of a topic's signals.
type Consensus string

const (
	ConsensusPositive Consensus = "positive"
	ConsensusNegative Consensus = "negative"
	ConsensusMixed    Consensus = "mixed"
)

// Severity grades how sharply sources disagree on a topic.
type Severity string

const (
	SeverityHigh     Severity = "HIGH"
	SeverityModerate Severity = "MODERATE"
)

// TopicScore is the fused view of a single topic.
type TopicScore struct {
	// Score is the weighted mean of signal values, rounded to 4 decimals.
	Score float64 `json:"score"`

	// TotalWeight is the summed effective weight behind Score, rounded to
	// 4 decimals. A low total means the score rests on thin evidence.
	TotalWeight float64 `json:"total_weight"`

	SignalCount int `json:"signal_count"`

	// Consensus is positive only when positive signals outnumber negative
	// ones by better than two to one (and symmetrically for negative).
	// Neutral signals never vote.
	Consensus Consensus `json:"consensus"`

	// Sources lists the distinct contributing sources, sorted.
	Sources []signal.Source `json:"sources"`

	// AvgConfidence is the unweighted mean confidence, rounded to 3 decimals.
	AvgConfidence float64 `json:"avg_confidence"`
}

// Conflict records a topic where credible sources pull in opposite
// directions. Source lists carry one entry per signal, so a source that
// fired twice appears twice: the duplication is the evidence count.
type Conflict struct {
	Topic           string          `json:"topic"`
	PositiveSources []signal.Source `json:"positive_sources"`
	NegativeSources []signal.Source `json:"negative_sources"`
	Severity        Severity        `json:"severity"`
}

// Result is one aggregation pass over the buffered signals.
type Result struct {
	Topics       map[string]TopicScore `json:"topics"`
	OverallScore float64               `json:"overall_score"`
	SignalCount  int                   `json:"signal_count"`
	Conflicts    []Conflict            `json:"conflicts,omitempty"`
}

// round4 and round3 implement the display contract: scores and weights carry
// 4 decimals, confidences 3. All internal arithmetic stays full precision.
func round4(v float64) float64 { return math.Round(v*1e4) / 1e4 }

func round3(v float64) float64 { return math.Round(v*1e3) / 1e3 }
