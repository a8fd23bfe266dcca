package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/ikernel/history"
)

// HistoryModel lists executions in a table and shows the selected cell's
// code and output below it.
type HistoryModel struct {
	entries  []history.Entry
	table    table.Model
	quitting bool
}

// NewHistoryModel creates a history model over a []history.Entry.
func NewHistoryModel(data any) (HistoryModel, error) {
	entries, ok := data.([]history.Entry)
	if !ok {
		return HistoryModel{}, fmt.Errorf("invalid data type for %s: %T", ViewHistory, data)
	}

	rows := make([]table.Row, len(entries))
	for i, e := range entries {
		rows[i] = table.Row{
			e.StartedAt.Local().Format("2006-01-02 15:04:05"),
			shortSession(e.Session),
			fmt.Sprintf("%d", e.ExecutionCount),
			e.Status,
			fmt.Sprintf("%d", e.DurationMs),
			summary(e.Code, 40),
		}
	}

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Started", Width: 19},
			{Title: "Session", Width: 8},
			{Title: "#", Width: 5},
			{Title: "Status", Width: 6},
			{Title: "ms", Width: 6},
			{Title: "Code", Width: 40},
		}),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(min(len(rows), 15)+1),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(gray).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.Foreground(white).Background(violet)
	t.SetStyles(styles)

	return HistoryModel{entries: entries, table: t}, nil
}

// Init implements tea.Model.
func (m HistoryModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m HistoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m HistoryModel) View() string {
	if m.quitting {
		return ""
	}
	if len(m.entries) == 0 {
		return TitleStyle.Render("Execution History") + "\n(no results)\n" +
			HelpStyle.Render("Press q to quit")
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("Execution History (%d)", len(m.entries))))
	b.WriteString("\n")
	b.WriteString(m.table.View())
	b.WriteString("\n\n")
	b.WriteString(m.renderSelected())
	b.WriteString("\n")
	b.WriteString(HelpStyle.Render(fmt.Sprintf("%s • %s • %s",
		keys.Up.Help().Key+" "+keys.Up.Help().Desc,
		keys.Down.Help().Key+" "+keys.Down.Help().Desc,
		keys.Quit.Help().Key+" "+keys.Quit.Help().Desc)))
	return b.String()
}

func (m HistoryModel) renderSelected() string {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.entries) {
		return ""
	}
	e := m.entries[i]

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render("Session:"), ValueStyle.Render(e.Session))
	fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render("Status:"), StatusStyle(e.Status).Render(e.Status))
	if e.Ename != "" {
		fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render("Error:"), ErrorStyle.Render(e.Ename))
	}
	b.WriteString(CodeStyle.Render(e.Code))
	if e.Output != "" {
		b.WriteString("\n")
		b.WriteString(CodeStyle.BorderForeground(StatusStyle(e.Status).GetForeground()).Render(e.Output))
	}
	return b.String()
}

// shortSession keeps the first eight characters of a session id.
func shortSession(s string) string {
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// summary flattens code to one line of at most n runes.
func summary(code string, n int) string {
	line := strings.Join(strings.Fields(code), " ")
	r := []rune(line)
	if len(r) <= n {
		return line
	}
	return string(r[:n-1]) + "…"
}
