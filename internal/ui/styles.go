package ui

import "github.com/charmbracelet/lipgloss"

// Colors used in the dashboard.
var (
	colorPrimary  = lipgloss.Color("62")  // Purple
	colorSubtle   = lipgloss.Color("241") // Gray
	colorMuted    = lipgloss.Color("240") // Darker gray
	colorAccent   = lipgloss.Color("212") // Pink
	colorPositive = lipgloss.Color("78")  // Green
	colorNegative = lipgloss.Color("203") // Red
	colorWarning  = lipgloss.Color("214") // Orange
)

// TitleBar style for the top application bar.
var TitleBar = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary).
	Padding(0, 1)

// TabActive style for the selected tab label.
var TabActive = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary).
	Padding(0, 1)

// TabInactive style for unselected tab labels.
var TabInactive = lipgloss.NewStyle().
	Foreground(colorSubtle).
	Padding(0, 1)

// PanelTitle style for section headers inside a pane.
var PanelTitle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorAccent).
	MarginTop(1).
	Padding(0, 1)

// SelectedRow style for the currently highlighted row.
var SelectedRow = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary).
	Padding(0, 1)

// NormalRow style for unselected rows.
var NormalRow = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Padding(0, 1)

// MutedRow style for secondary detail lines.
var MutedRow = lipgloss.NewStyle().
	Foreground(colorSubtle).
	Padding(0, 1)

// ScorePositive style for scores above zero.
var ScorePositive = lipgloss.NewStyle().
	Foreground(colorPositive)

// ScoreNegative style for scores below zero.
var ScoreNegative = lipgloss.NewStyle().
	Foreground(colorNegative)

// ScoreNeutral style for scores at zero.
var ScoreNeutral = lipgloss.NewStyle().
	Foreground(colorSubtle)

// PriorityCritical style for P1 decisions.
var PriorityCritical = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("160")).
	Padding(0, 1)

// PriorityHigh style for P2 decisions.
var PriorityHigh = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("232")).
	Background(colorWarning).
	Padding(0, 1)

// PriorityNormal style for P3 and P4 decisions.
var PriorityNormal = lipgloss.NewStyle().
	Foreground(colorSubtle).
	Padding(0, 1)

// AlertBadge style for risk alerts and conflicts.
var AlertBadge = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorWarning)

// StatusBar style for the bottom status bar.
var StatusBar = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("236")).
	Padding(0, 1)

// StatusBarKey style for key hints in the status bar.
var StatusBarKey = lipgloss.NewStyle().
	Foreground(colorAccent).
	Bold(true)

// StatusBarText style for descriptive text in the status bar.
var StatusBarText = lipgloss.NewStyle().
	Foreground(colorSubtle)

// ErrorStyle for displaying errors.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("196")).
	Bold(true).
	Padding(0, 1)

// HelpStyle for help and empty-state text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(colorMuted).
	Padding(1, 2)

// scoreStyle picks the style matching a score's sign.
func scoreStyle(v float64) lipgloss.Style {
	switch {
	case v > 0:
		return ScorePositive
	case v < 0:
		return ScoreNegative
	default:
		return ScoreNeutral
	}
}

// priorityStyle picks the badge style for a decision priority.
func priorityStyle(p string) lipgloss.Style {
	switch p {
	case "P1":
		return PriorityCritical
	case "P2":
		return PriorityHigh
	default:
		return PriorityNormal
	}
}
