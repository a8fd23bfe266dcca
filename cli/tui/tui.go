package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// View types.
const (
	ViewHistory       = "history"
	ViewHistoryStats  = "stats_history"
	ViewInspectKernel = "inspect_kernel"
)

// Run opens the view for viewType over data.
func Run(viewType string, data any) error {
	var model tea.Model
	switch viewType {
	case ViewHistory:
		m, err := NewHistoryModel(data)
		if err != nil {
			return err
		}
		model = m
	case ViewHistoryStats:
		model = NewStatsModel(data)
	case ViewInspectKernel:
		model = NewInspectModel(data)
	default:
		return fmt.Errorf("TUI mode is not supported for %s", viewType)
	}

	_, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

// IsTUISupported reports whether viewType has an interactive view.
func IsTUISupported(viewType string) bool {
	for _, v := range SupportedTUIViews() {
		if v == viewType {
			return true
		}
	}
	return false
}

// SupportedTUIViews lists the view types Run accepts.
func SupportedTUIViews() []string {
	return []string{ViewHistory, ViewHistoryStats, ViewInspectKernel}
}

type keyMap struct {
	Quit key.Binding
	Up   key.Binding
	Down key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q", "quit"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
}
