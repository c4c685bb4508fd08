// Package gap measures deviations between planned and realized financials.
//
// A gap is the most direct feedback the pipeline has: the plan said one
// number, reality produced another. The Calculator derives gaps from stored
// budget lines, cashflow entries, and contract invoicing; every Result
// converts into a feedback signal for the fusion layer via Signal.
package gap

import (
	"math"
	"time"

	"github.com/maelcolin/fuseboard/internal/signal"
)

// Severity grades a gap by how far reality drifted from the plan.
type Severity string

const (
	SeverityNominal  Severity = "nominal"
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
	SeverityAlert    Severity = "alert"
)

// Result is a single predicted-versus-actual measurement.
type Result struct {
	// Kind names the measurement family: budget, cashflow, or contract.
	Kind     string   `json:"kind"`
	Label    string   `json:"label"`
	Category string   `json:"category,omitempty"`
	Predicted float64 `json:"predicted"`
	Actual    float64 `json:"actual"`

	// Gap is Actual - Predicted: positive means reality came in above plan.
	Gap    float64 `json:"gap"`
	GapPct float64 `json:"gap_pct"`

	Severity Severity `json:"severity"`

	// Success means the plan held within 10%.
	Success bool `json:"is_success"`

	Period     string    `json:"period,omitempty"`
	ComputedAt time.Time `json:"computed_at"`
}

// Measure derives a full Result from a predicted/actual pair. Callers set
// Category and Period afterwards; everything else is computed here.
func Measure(kind, label string, predicted, actual float64) Result {
	r := Result{
		Kind:       kind,
		Label:      label,
		Predicted:  predicted,
		Actual:     actual,
		Gap:        actual - predicted,
		GapPct:     gapPct(predicted, actual),
		ComputedAt: time.Now().UTC(),
	}
	r.Severity = severityFor(r.GapPct)
	r.Success = math.Abs(r.GapPct) < 10
	return r
}

// gapPct is the relative gap in percent of the predicted magnitude. A zero
// baseline yields a flat 0: with nothing planned there is no meaningful
// percentage, and the ratio must not explode.
func gapPct(predicted, actual float64) float64 {
	if predicted == 0 {
		return 0
	}
	return (actual - predicted) / math.Abs(predicted) * 100
}

func severityFor(gapPct float64) Severity {
	abs := math.Abs(gapPct)
	switch {
	case abs < 5:
		return SeverityNominal
	case abs < 10:
		return SeverityInfo
	case abs < 20:
		return SeverityWarning
	case abs < 35:
		return SeverityCritical
	}
	return SeverityAlert
}

// severityMagnitude maps severity grades to signal magnitudes. The grades
// here are the producer-facing vocabulary accepted from any gap record;
// the calculator's own tiers overlap it only at "critical", and everything
// unrecognized takes a cautious middle value.
var severityMagnitude = map[string]float64{
	"low":      0.2,
	"medium":   0.5,
	"high":     0.8,
	"critical": 1.0,
}

const unknownMagnitude = 0.3

// Signal converts the gap into fusion evidence: a feedback signal on the
// gap's category, carrying the full record as metadata. A missing severity
// reads as "low"; a missing category files under "unknown".
func (r Result) Signal() signal.Signal {
	sev := string(r.Severity)
	if sev == "" {
		sev = "low"
	}
	mag, ok := severityMagnitude[sev]
	if !ok {
		mag = unknownMagnitude
	}

	topic := r.Category
	if topic == "" {
		topic = "unknown"
	}

	value := -mag
	dir := signal.Neutral
	if value < 0 {
		dir = signal.Negative
	}

	s := signal.New(signal.SourceFeedback, topic, value, 0.9, dir)
	s.Metadata = map[string]any{
		"kind":       r.Kind,
		"label":      r.Label,
		"category":   r.Category,
		"predicted":  r.Predicted,
		"actual":     r.Actual,
		"gap":        r.Gap,
		"gap_pct":    r.GapPct,
		"severity":   string(r.Severity),
		"is_success": r.Success,
		"period":     r.Period,
	}
	return s
}

// Report summarizes one calculation pass across all gap kinds.
type Report struct {
	FiscalYear   int              `json:"fiscal_year"`
	Gaps         []Result         `json:"gaps"`
	TotalGaps    int              `json:"total_gaps"`
	SuccessCount int              `json:"success_count"`
	FailureCount int              `json:"failure_count"`

	// SuccessRate is a percentage with one decimal.
	SuccessRate float64 `json:"success_rate"`

	BySeverity map[Severity]int `json:"severity_distribution"`
}

// Summarize folds a set of gaps into a Report.
func Summarize(fiscalYear int, gaps []Result) Report {
	rep := Report{
		FiscalYear: fiscalYear,
		Gaps:       gaps,
		TotalGaps:  len(gaps),
		BySeverity: make(map[Severity]int),
	}
	for _, g := range gaps {
		if g.Success {
			rep.SuccessCount++
		} else {
			rep.FailureCount++
		}
		rep.BySeverity[g.Severity]++
	}
	if rep.TotalGaps > 0 {
		rep.SuccessRate = math.Round(float64(rep.SuccessCount)/float64(rep.TotalGaps)*1000) / 10
	}
	return rep
}
