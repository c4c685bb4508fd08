// Package tactical turns fused topic scores into a prioritized action
// plan. Every scored topic yields exactly one decision; the plan orders
// decisions worst-first so the top of the list is always the most urgent.
package tactical

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/maelcolin/fuseboard/internal/fusion"
)

// Decision is one actionable recommendation derived from a topic's fused
// score.
type Decision struct {
	ID          string           `json:"id"`
	Topic       string           `json:"topic"`
	Title       string           `json:"title"`
	Category    string           `json:"category"`
	Priority    string           `json:"priority"`
	Score       float64          `json:"score"`
	Consensus   fusion.Consensus `json:"consensus"`
	Rationale   string           `json:"rationale"`
	Actions     []string         `json:"actions"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// Plan is a full decision cycle: the ordered decisions plus the
// aggregation they were derived from.
type Plan struct {
	Decisions   []Decision    `json:"decisions"`
	Aggregation fusion.Result `json:"aggregation_summary"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// priorityThresholds maps score ceilings to priorities, checked in order.
// Scores above every ceiling are routine.
var priorityThresholds = []struct {
	max      float64
	priority string
}{
	{-0.6, "P1"},
	{-0.3, "P2"},
	{0.0, "P3"},
	{0.3, "P4"},
}

// categoryRules routes a topic to its decision category by substring,
// checked in order. First match wins.
var categoryRules = []struct {
	keywords []string
	category string
}{
	{[]string{"budget", "opex", "capex"}, "budget"},
	{[]string{"cashflow", "cash", "liquidity"}, "cashflow"},
	{[]string{"contract", "supplier", "renegotiation"}, "contract"},
	{[]string{"monte_carlo", "risk", "simulation"}, "risk"},
}

var titleCaser = cases.Title(language.English)

// Planner builds decision plans from fusion results. Stateless apart from
// its clock.
type Planner struct {
	now func() time.Time
}

// Option configures a Planner.
type Option func(*Planner)

// WithClock replaces the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Planner) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a Planner.
func New(opts ...Option) *Planner {
	p := &Planner{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan derives one decision per scored topic, ordered worst score first.
// IDs are assigned after ordering, so TD-0001 is always the most urgent
// decision of the cycle.
func (p *Planner) Plan(res fusion.Result) Plan {
	now := p.now()

	topics := make([]string, 0, len(res.Topics))
	for topic := range res.Topics {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	decisions := make([]Decision, 0, len(topics))
	for _, topic := range topics {
		decisions = append(decisions, p.decide(topic, res.Topics[topic], now))
	}

	sort.SliceStable(decisions, func(i, j int) bool {
		return decisions[i].Score < decisions[j].Score
	})
	for i := range decisions {
		decisions[i].ID = fmt.Sprintf("TD-%04d", i+1)
	}

	return Plan{Decisions: decisions, Aggregation: res, GeneratedAt: now}
}

func (p *Planner) decide(topic string, ts fusion.TopicScore, now time.Time) Decision {
	category := categoryFor(topic)
	priority := priorityFor(ts.Score)
	sources := make([]string, len(ts.Sources))
	for i, s := range ts.Sources {
		sources[i] = string(s)
	}
	return Decision{
		Topic:     topic,
		Title:     titleFor(topic, ts.Score),
		Category:  category,
		Priority:  priority,
		Score:     ts.Score,
		Consensus: ts.Consensus,
		Rationale: fmt.Sprintf("%d signals from %s with %s consensus (avg confidence %.0f%%). Aggregated score: %.3f.",
			ts.SignalCount, strings.Join(sources, ", "), ts.Consensus, ts.AvgConfidence*100, ts.Score),
		Actions:     actionsFor(category, priority, ts.Score),
		GeneratedAt: now,
	}
}

func priorityFor(score float64) string {
	for _, t := range priorityThresholds {
		if score <= t.max {
			return t.priority
		}
	}
	return "P4"
}

func categoryFor(topic string) string {
	lower := strings.ToLower(topic)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.category
			}
		}
	}
	return "general"
}

func titleFor(topic string, score float64) string {
	label := titleCaser.String(strings.ReplaceAll(topic, "_", " "))
	if score < 0 {
		return "Risk: " + label
	}
	return "Opportunity: " + label
}

func actionsFor(category, priority string, score float64) []string {
	var actions []string
	if priority == "P1" || priority == "P2" {
		actions = append(actions, "Schedule emergency review with CFO")
	}

	switch category {
	case "budget":
		if score < -0.3 {
			actions = append(actions,
				"Freeze non-essential spending",
				"Request detailed OPEX breakdown")
		} else {
			actions = append(actions, "Review budget trends at next cycle")
		}
	case "cashflow":
		if score < -0.3 {
			actions = append(actions,
				"Accelerate receivables collection",
				"Negotiate payment terms with key suppliers")
		} else {
			actions = append(actions, "Monitor cash position weekly")
		}
	case "contract":
		actions = append(actions, "Audit top-5 contracts by annual value")
		if score < -0.3 {
			actions = append(actions, "Open renegotiation with key suppliers")
		}
	case "risk":
		actions = append(actions, "Update the risk register")
		if score < -0.5 {
			actions = append(actions, "Prepare contingency funding plan")
		}
	}

	if len(actions) == 0 {
		actions = append(actions, "Continue monitoring and report in next cycle")
	}
	return actions
}
