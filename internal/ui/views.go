package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/maelcolin/fuseboard/internal/otel"
	"github.com/maelcolin/fuseboard/internal/simulate"
)

// moneyPrinter formats amounts with thousands separators.
var moneyPrinter = message.NewPrinter(language.English)

func money(v float64) string {
	return moneyPrinter.Sprintf("%.0f", v)
}

func formatScore(v float64) string {
	return fmt.Sprintf("%+.3f", v)
}

// formatAge returns a short human age for the title bar.
func formatAge(t time.Time) string {
	age := time.Since(t)
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(age.Hours()/24))
	}
}

// truncate shortens s to max runes, appending an ellipsis when cut.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	if max < 1 {
		return ""
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}

// capLines trims a rendered block to at most height lines.
func capLines(lines []string, height int) string {
	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n") + "\n"
}

func (d Dashboard) viewTitle() string {
	left := " FUSEBOARD "
	var right string
	switch {
	case d.loading:
		right = d.spin.View() + " refreshing "
	case d.haveSnap:
		right = fmt.Sprintf("%d signals, %d conflicts, updated %s ",
			d.snap.SignalCount, len(d.snap.Plan.Aggregation.Conflicts), formatAge(d.lastRun))
	default:
		right = "no data yet "
	}

	padding := d.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 0 {
		padding = 0
	}
	return TitleBar.Width(d.width).Render(left + strings.Repeat(" ", padding) + right)
}

func (d Dashboard) viewTabs() string {
	parts := make([]string, 0, tabCount)
	for i, name := range tabNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if Tab(i) == d.tab {
			parts = append(parts, TabActive.Render(label))
		} else {
			parts = append(parts, TabInactive.Render(label))
		}
	}
	return strings.Join(parts, " ")
}

// sortedTopics returns the fused topic names in stable display order.
func (d Dashboard) sortedTopics() []string {
	topics := d.snap.Plan.Aggregation.Topics
	names := make([]string, 0, len(topics))
	for name := range topics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d Dashboard) viewOverview(height int) string {
	if !d.haveSnap {
		return HelpStyle.Render("Waiting for the first cycle. Press 'r' to refresh.") + "\n"
	}

	agg := d.snap.Plan.Aggregation
	var lines []string

	// Overall score gauge: map [-1, 1] onto the bar.
	g := d.gauge
	g.Width = d.width - 24
	if g.Width > 48 {
		g.Width = 48
	}
	if g.Width < 10 {
		g.Width = 10
	}
	gauge := g.ViewAs((agg.OverallScore + 1) / 2)
	lines = append(lines, fmt.Sprintf(" Overall %s %s", gauge, scoreStyle(agg.OverallScore).Render(formatScore(agg.OverallScore))))
	lines = append(lines, "")

	names := d.sortedTopics()
	for i, name := range names {
		ts := agg.Topics[name]
		meta := fmt.Sprintf("  %-8s  %2d sig  %3.0f%% conf", ts.Consensus, ts.SignalCount, ts.AvgConfidence*100)
		if i == d.cursor {
			plain := fmt.Sprintf("%-20s %s%s", truncate(name, 20), formatScore(ts.Score), meta)
			lines = append(lines, SelectedRow.Render(plain))
			continue
		}
		row := fmt.Sprintf("%-20s ", truncate(name, 20)) + scoreStyle(ts.Score).Render(formatScore(ts.Score)) + meta
		lines = append(lines, NormalRow.Render(row))
	}

	if len(agg.Conflicts) > 0 {
		lines = append(lines, PanelTitle.Render("Conflicts"))
		for i, c := range agg.Conflicts {
			if i >= 3 {
				lines = append(lines, MutedRow.Render(fmt.Sprintf("and %d more", len(agg.Conflicts)-3)))
				break
			}
			row := fmt.Sprintf("%s %s: %v against %v (%s)",
				AlertBadge.Render("!"), c.Topic, c.PositiveSources, c.NegativeSources, c.Severity)
			lines = append(lines, NormalRow.Render(row))
		}
	}

	if len(d.snap.Correlations) > 0 {
		lines = append(lines, PanelTitle.Render("Correlations"))
		for i, c := range d.snap.Correlations {
			if i >= 3 {
				lines = append(lines, MutedRow.Render(fmt.Sprintf("and %d more", len(d.snap.Correlations)-3)))
				break
			}
			row := fmt.Sprintf("%s (strength %.2f)", truncate(c.Narrative, d.width-24), c.Strength)
			lines = append(lines, NormalRow.Render(row))
		}
	}

	lines = append(lines, "")
	summary := fmt.Sprintf("Gaps: %d measured, %.1f%% on plan. Feed signals: %d.",
		d.snap.Gaps.TotalGaps, d.snap.Gaps.SuccessRate, d.snap.FeedSignals)
	lines = append(lines, MutedRow.Render(summary))

	return capLines(lines, height)
}

func (d Dashboard) viewDecisions(height int) string {
	decs := d.snap.Plan.Decisions
	if len(decs) == 0 {
		return HelpStyle.Render("No open decisions. Press 'r' to refresh.") + "\n"
	}

	var lines []string
	for i, dec := range decs {
		badge := priorityStyle(dec.Priority).Render(dec.Priority)
		title := truncate(dec.Title, d.width-28)
		if i == d.cursor {
			plain := fmt.Sprintf("%s %s %s  %s", dec.ID, dec.Priority, formatScore(dec.Score), title)
			lines = append(lines, SelectedRow.Render(plain))
			continue
		}
		row := fmt.Sprintf("%s %s %s  %s", dec.ID, badge, scoreStyle(dec.Score).Render(formatScore(dec.Score)), title)
		lines = append(lines, NormalRow.Render(row))
	}

	// Detail pane for the highlighted decision.
	if d.cursor < len(decs) {
		sel := decs[d.cursor]
		lines = append(lines, PanelTitle.Render(sel.Title))
		lines = append(lines, MutedRow.Render(sel.Rationale))
		for _, action := range sel.Actions {
			lines = append(lines, NormalRow.Render("- "+action))
		}
		lines = append(lines, MutedRow.Render("enter marks this decision resolved"))
	}

	return capLines(lines, height)
}

func (d Dashboard) viewSimulations(height int) string {
	results := d.snap.Simulations
	if len(results) == 0 {
		return HelpStyle.Render("No simulation results yet. Press 'r' to refresh.") + "\n"
	}

	var lines []string
	for i, r := range results {
		row := simSummary(r)
		if i == d.cursor {
			lines = append(lines, SelectedRow.Render(row))
		} else {
			lines = append(lines, NormalRow.Render(row))
		}
	}

	if d.cursor < len(results) {
		lines = append(lines, "")
		lines = append(lines, simDetail(results[d.cursor])...)
	}

	return capLines(lines, height)
}

// simSummary is the one-line list entry for a simulation result.
func simSummary(r simulate.Result) string {
	if !r.OK() {
		return fmt.Sprintf("%-22s failed: %s", r.Kind, r.Err)
	}
	switch {
	case r.Budget != nil:
		return fmt.Sprintf("%-22s %d scenarios on base %s", r.Kind, len(r.Budget.Scenarios), money(r.Budget.BaseBudget))
	case r.Cashflow != nil:
		s := fmt.Sprintf("%-22s final %s, min %s on day %d", r.Kind,
			money(r.Cashflow.FinalBalance), money(r.Cashflow.MinBalance), r.Cashflow.MinBalanceDay)
		if r.Cashflow.RiskAlert {
			s += " " + AlertBadge.Render("LOW BALANCE")
		}
		return s
	case r.MonteCarlo != nil:
		return fmt.Sprintf("%-22s mean %s, P(loss) %.1f%%, %s risk", r.Kind,
			money(r.MonteCarlo.MeanProfit), r.MonteCarlo.ProbabilityOfLoss*100, r.MonteCarlo.RiskAssessment)
	case r.Renegotiation != nil:
		return fmt.Sprintf("%-22s net savings %s over %d years", r.Kind,
			money(r.Renegotiation.NetSavings), r.Renegotiation.DurationYears)
	}
	return string(r.Kind)
}

// simDetail expands the highlighted result into a few descriptive lines.
func simDetail(r simulate.Result) []string {
	if !r.OK() {
		return []string{ErrorStyle.Render(fmt.Sprintf("%s: %s", r.Kind, r.Err))}
	}

	var lines []string
	switch {
	case r.Budget != nil:
		b := r.Budget
		for _, sc := range b.Scenarios {
			lines = append(lines, MutedRow.Render(fmt.Sprintf("%+5.0f%%  total %s (delta %s)",
				sc.VariationPct, money(sc.TotalBudget), money(sc.Delta))))
		}
		lines = append(lines, NormalRow.Render(b.Recommendation))

	case r.Cashflow != nil:
		cf := r.Cashflow
		lines = append(lines,
			MutedRow.Render(fmt.Sprintf("start %s, final %s over %d days", money(cf.InitialBalance), money(cf.FinalBalance), len(cf.Days))),
			MutedRow.Render(fmt.Sprintf("avg daily net %s, low point %s on day %d", money(cf.AvgDailyNet), money(cf.MinBalance), cf.MinBalanceDay)),
		)
		if cf.RiskAlert {
			lines = append(lines, AlertBadge.Render("projected balance goes negative"))
		}

	case r.MonteCarlo != nil:
		mc := r.MonteCarlo
		lines = append(lines,
			MutedRow.Render(fmt.Sprintf("%d iterations over %d periods", mc.Iterations, mc.Periods)),
			MutedRow.Render(fmt.Sprintf("mean %s, stddev %s", money(mc.MeanProfit), money(mc.StdDev))),
			MutedRow.Render(fmt.Sprintf("p5 %s, p50 %s, p95 %s", money(mc.Percentiles["p5"]), money(mc.Percentiles["p50"]), money(mc.Percentiles["p95"]))),
			NormalRow.Render(fmt.Sprintf("VaR(95) %s, risk %s", money(mc.ValueAtRisk95), mc.RiskAssessment)),
		)

	case r.Renegotiation != nil:
		rn := r.Renegotiation
		lines = append(lines,
			MutedRow.Render(fmt.Sprintf("current %s, renegotiated %s", money(rn.TotalCurrent), money(rn.TotalRenegotiated))),
			MutedRow.Render(fmt.Sprintf("gross savings %s, exit penalty %s, net %s", money(rn.GrossSavings), money(rn.ExitPenalty), money(rn.NetSavings))),
		)
		if rn.ROIPct != nil {
			lines = append(lines, MutedRow.Render(fmt.Sprintf("ROI on penalty %.0f%%", *rn.ROIPct)))
		}
		lines = append(lines, NormalRow.Render(rn.Recommendation))
	}
	return lines
}

func levelStyle(l otel.Level) lipgloss.Style {
	switch l {
	case otel.LevelError:
		return ScoreNegative
	case otel.LevelWarn:
		return AlertBadge
	case otel.LevelDebug:
		return MutedRow
	default:
		return NormalRow
	}
}

// eventDetail condenses an event's optional fields into one fragment.
func eventDetail(e otel.Event) string {
	switch {
	case e.Err != "":
		return e.Err
	case e.Msg != "":
		return e.Msg
	}
	var parts []string
	if e.Count > 0 {
		parts = append(parts, fmt.Sprintf("n=%d", e.Count))
	}
	if e.Score != 0 {
		parts = append(parts, fmt.Sprintf("score=%+.3f", e.Score))
	}
	if e.Priority != "" {
		parts = append(parts, e.Priority)
	}
	if e.Source != "" {
		parts = append(parts, e.Source)
	}
	if e.Dur > 0 {
		parts = append(parts, e.Dur.Round(time.Millisecond).String())
	}
	return strings.Join(parts, " ")
}

func (d Dashboard) viewEvents(height int) string {
	if d.ring == nil || d.ring.Len() == 0 {
		return HelpStyle.Render("No diagnostic events yet.") + "\n"
	}

	// Pipeline stats header (keyed lookups, not map iteration).
	stats := d.ring.Stats()
	header := fmt.Sprintf("cycles %d, fusions %d, feed fetches %d (%d errors), buffer %d/%d",
		stats[otel.KindCycleComplete], stats[otel.KindFusionAggregate],
		stats[otel.KindFeedFetch], stats[otel.KindFeedError],
		d.ring.Len(), d.ring.Cap())

	events := d.ring.Last(eventsShown)

	// Newest first; cursor 0 is the most recent event.
	lines := []string{MutedRow.Render(header), ""}
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		row := fmt.Sprintf("%s %s %-18s %-6s %s",
			e.Time.Format("15:04:05"),
			levelStyle(e.Level).Render(fmt.Sprintf("%-5s", e.Level)),
			e.Kind, e.Comp, truncate(eventDetail(e), d.width-42))
		if len(events)-1-i == d.cursor {
			plain := fmt.Sprintf("%s %-5s %-18s %-6s %s",
				e.Time.Format("15:04:05"), e.Level, e.Kind, e.Comp, truncate(eventDetail(e), d.width-42))
			lines = append(lines, SelectedRow.Render(plain))
		} else {
			lines = append(lines, NormalRow.Render(row))
		}
	}
	return capLines(lines, height)
}

func (d Dashboard) viewStatusBar() string {
	var position string
	if d.loading {
		position = " refreshing... "
	} else {
		position = fmt.Sprintf(" %d/%d ", d.cursor+1, d.listLen())
	}

	keys := []string{
		StatusBarKey.Render("tab") + StatusBarText.Render(":pane"),
		StatusBarKey.Render("j/k") + StatusBarText.Render(":nav"),
		StatusBarKey.Render("enter") + StatusBarText.Render(":resolve"),
		StatusBarKey.Render("r") + StatusBarText.Render(":refresh"),
		StatusBarKey.Render("q") + StatusBarText.Render(":quit"),
	}
	keyHints := strings.Join(keys, " ")

	padding := d.width - lipgloss.Width(position) - lipgloss.Width(keyHints)
	if padding < 0 {
		padding = 0
	}
	bar := position + strings.Repeat(" ", padding) + keyHints
	return StatusBar.Width(d.width).Render(bar)
}
