// Package tui provides Bubble Tea views for the ikernel CLI.
//
// TUI mode is opt-in (--tui) and read-only. Views show the same payloads
// the non-interactive renderers print.
package tui

import "github.com/charmbracelet/lipgloss"

// Palette.
var (
	violet = lipgloss.Color("#7C3AED")
	green  = lipgloss.Color("#10B981")
	amber  = lipgloss.Color("#F59E0B")
	red    = lipgloss.Color("#EF4444")
	gray   = lipgloss.Color("#6B7280")
	blue   = lipgloss.Color("#3B82F6")
	white  = lipgloss.Color("#FFFFFF")
)

// Text.
var (
	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(violet).MarginBottom(1)
	LabelStyle   = lipgloss.NewStyle().Foreground(gray).Width(18)
	ValueStyle   = lipgloss.NewStyle().Foreground(white)
	HelpStyle    = lipgloss.NewStyle().Foreground(gray).MarginTop(1)
	SuccessStyle = lipgloss.NewStyle().Foreground(green)
	WarningStyle = lipgloss.NewStyle().Foreground(amber)
	ErrorStyle   = lipgloss.NewStyle().Foreground(red)
)

// Containers.
var (
	BoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(gray).Padding(1, 2)

	// CodeStyle marks cell source and output with a left rule.
	CodeStyle = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(blue).PaddingLeft(1)

	StatBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(blue).
			Padding(0, 2).Width(20).Align(lipgloss.Center)
	StatLabelStyle = lipgloss.NewStyle().Foreground(gray).Align(lipgloss.Center)
	StatValueStyle = lipgloss.NewStyle().Bold(true).Foreground(white).Align(lipgloss.Center)
)

// StatusStyle colors an execution status (ok, error) or a kernel
// execution_state (starting, busy, idle).
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case "ok", "idle":
		return SuccessStyle
	case "busy", "starting":
		return WarningStyle
	case "error":
		return ErrorStyle
	}
	return ValueStyle
}
