package simulate

import "github.com/maelcolin/fuseboard/internal/signal"

// riskValues maps a monte carlo risk grade to a fusion value. Better
// grades push positive, worse grades push hard negative.
var riskValues = map[string]float64{
	"LOW":      0.6,
	"MODERATE": 0.2,
	"HIGH":     -0.3,
	"CRITICAL": -0.8,
}

// RiskAssessment returns the run's risk grade. Only monte carlo runs carry
// one; every other kind reads as empty.
func (r Result) RiskAssessment() string {
	if r.MonteCarlo != nil {
		return r.MonteCarlo.RiskAssessment
	}
	return ""
}

// Signal converts the run into fusion evidence keyed by its simulation
// kind. Runs without a risk grade count as MODERATE; a grade outside the
// known scale carries zero value and flags negative, so it drags on the
// topic without inventing a magnitude.
func (r Result) Signal() signal.Signal {
	risk := r.RiskAssessment()
	if risk == "" {
		risk = "MODERATE"
	}
	value := riskValues[risk]

	topic := string(r.Kind)
	if topic == "" {
		topic = "unknown"
	}

	dir := signal.Negative
	if value > 0 {
		dir = signal.Positive
	}

	s := signal.New(signal.SourceSimulation, topic, value, 0.85, dir)
	s.Metadata = map[string]any{"risk_assessment": risk}
	return s
}
