package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Chandanbam/openstack-rca-system/internal/models"
)

// View renders the entire chat UI.
func (m *Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	if !m.ready {
		return "Initializing...\n"
	}

	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	b.WriteString(m.renderSeparator())
	b.WriteString("\n")

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.lastError != nil {
		b.WriteString(m.renderError())
		b.WriteString("\n")
	}

	b.WriteString(m.renderSeparator())
	b.WriteString("\n")

	b.WriteString(m.renderInput())

	b.WriteString("\n")
	b.WriteString(m.renderHelp())

	return b.String()
}

// renderHeader renders the title, analysis mode, and API endpoint.
func (m *Model) renderHeader() string {
	title := titleStyle.Render("OPENSTACK RCA")
	mode := m.renderModeIndicator()
	endpoint := sessionInfoStyle.Render(m.apiURL)

	titleWidth := lipgloss.Width(title)
	modeWidth := lipgloss.Width(mode)
	endpointWidth := lipgloss.Width(endpoint)
	spacing := m.width - titleWidth - modeWidth - endpointWidth - 4

	if spacing < 0 {
		spacing = 1
	}

	return fmt.Sprintf("%s%s%s%s%s",
		title,
		strings.Repeat(" ", spacing/2),
		mode,
		strings.Repeat(" ", spacing-spacing/2),
		endpoint,
	)
}

// renderModeIndicator renders the mode the next request will use.
func (m *Model) renderModeIndicator() string {
	if m.mode == models.ModeFast {
		return modeFastStyle.Render("mode: fast")
	}
	return modeHybridStyle.Render("mode: hybrid")
}

// renderSeparator renders a horizontal separator line.
func (m *Model) renderSeparator() string {
	return separatorStyle.Render(strings.Repeat("─", m.width-2))
}

// renderInput renders the input area, or the progress line while a
// request is in flight.
func (m *Model) renderInput() string {
	if m.processing {
		return processingStyle.Render(m.spinner.View() + " Analyzing... (press Ctrl+C to quit)")
	}
	return m.textArea.View()
}

// renderError renders the last error below the viewport.
func (m *Model) renderError() string {
	return errorStyle.Render(fmt.Sprintf("Error: %v", m.lastError))
}

// renderHelp renders the help bar at the bottom.
func (m *Model) renderHelp() string {
	keys := []struct {
		key  string
		desc string
	}{
		{"enter", "analyze"},
		{"shift+enter", "newline"},
		{"ctrl+t", "toggle mode"},
		{"/stats /refresh", "commands"},
		{"pgup/pgdn", "scroll"},
		{"ctrl+c", "quit"},
	}

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %s", helpKeyStyle.Render(k.key), k.desc))
	}

	return helpStyle.Render(strings.Join(parts, " • "))
}
