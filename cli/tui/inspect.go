package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/ikernel/types"
)

// InspectModel shows the kernel_info_reply a frontend would receive.
type InspectModel struct {
	data     any
	quitting bool
}

// NewInspectModel creates an inspect model over a *types.KernelInfoReply.
func NewInspectModel(data any) InspectModel {
	return InspectModel{data: data}
}

// Init implements tea.Model.
func (m InspectModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model.
func (m InspectModel) View() string {
	if m.quitting {
		return ""
	}
	return m.renderKernelInfo() + "\n" + HelpStyle.Render("Press q or Ctrl+C to quit")
}

func (m InspectModel) renderKernelInfo() string {
	info, ok := m.data.(*types.KernelInfoReply)
	if !ok {
		return "Invalid data type for inspect_kernel"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Kernel"))
	b.WriteString("\n\n")

	rows := [][2]string{
		{"Implementation", info.Implementation + " " + info.ImplementationVersion},
		{"Protocol", info.ProtocolVersion},
		{"Language", info.LanguageInfo.Name + " " + info.LanguageInfo.Version},
		{"Mimetype", info.LanguageInfo.Mimetype},
		{"File extension", info.LanguageInfo.FileExtension},
		{"Debugger", fmt.Sprintf("%t", info.Debugger)},
	}
	for _, row := range rows {
		fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render(row[0]+":"), ValueStyle.Render(row[1]))
	}

	if info.Banner != "" {
		b.WriteString("\n")
		b.WriteString(CodeStyle.Render(info.Banner))
		b.WriteString("\n")
	}
	if len(info.HelpLinks) > 0 {
		b.WriteString("\n")
		b.WriteString(LabelStyle.Render("Help:"))
		b.WriteString("\n")
		for _, link := range info.HelpLinks {
			fmt.Fprintf(&b, "  • %s %s\n", ValueStyle.Render(link.Text), StatLabelStyle.Render(link.URL))
		}
	}

	return BoxStyle.Render(b.String())
}

// RenderInspectStatic renders the view without starting a program.
func RenderInspectStatic(data any) string {
	return lipgloss.NewStyle().Padding(1, 2).Render(NewInspectModel(data).View())
}
