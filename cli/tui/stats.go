package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/ikernel/history"
)

// StatsModel shows a history summary as stat boxes.
type StatsModel struct {
	data     any
	quitting bool
}

// NewStatsModel creates a stats model over a *history.Stats.
func NewStatsModel(data any) StatsModel {
	return StatsModel{data: data}
}

// Init implements tea.Model.
func (m StatsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model.
func (m StatsModel) View() string {
	if m.quitting {
		return ""
	}
	return m.renderStats() + "\n" + HelpStyle.Render("Press q or Ctrl+C to quit")
}

func (m StatsModel) renderStats() string {
	st, ok := m.data.(*history.Stats)
	if !ok {
		return "Invalid data type for stats_history"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Execution History"))
	b.WriteString("\n\n")

	boxes := []string{
		renderStatBox("Executions", fmt.Sprintf("%d", st.Total), blue),
		renderStatBox("OK", fmt.Sprintf("%d", st.OK), green),
		renderStatBox("Failed", fmt.Sprintf("%d", st.Failed), red),
		renderStatBox("Sessions", fmt.Sprintf("%d", st.Sessions), violet),
		renderStatBox("Avg ms", fmt.Sprintf("%.1f", st.AvgDurationMs), amber),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))

	if len(st.Errors) > 0 {
		b.WriteString("\n\n")
		b.WriteString(TitleStyle.Render("Failures"))
		b.WriteString("\n")
		for _, e := range st.Errors {
			fmt.Fprintf(&b, "%s %s\n",
				ErrorStyle.Render(fmt.Sprintf("%5d", e.Count)),
				ValueStyle.Render(e.Ename))
		}
	}

	return b.String()
}

func renderStatBox(label, value string, color lipgloss.Color) string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		StatValueStyle.Foreground(color).Render(value),
		StatLabelStyle.Render(label),
	)
	return StatBoxStyle.BorderForeground(color).Render(content)
}

// RenderStatsStatic renders the view without starting a program.
func RenderStatsStatic(data any) string {
	return lipgloss.NewStyle().Padding(1, 2).Render(NewStatsModel(data).View())
}
