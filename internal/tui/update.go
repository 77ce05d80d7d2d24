package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/Chandanbam/openstack-rca-system/internal/models"
)

// Update handles all incoming messages and updates the model accordingly.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Filter out OSC escape sequences (terminal color responses like
		// ]11;rgb:...). These are not actual keyboard input.
		keyStr := msg.String()
		if strings.Contains(keyStr, "rgb:") ||
			strings.HasPrefix(keyStr, "11;") ||
			strings.HasPrefix(keyStr, "]11;") ||
			(keyStr != "" && keyStr[0] == ']' && strings.Contains(keyStr, ";")) {
			return m, nil
		}
		return m.handleKeyMsg(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		// Set ready immediately on first WindowSizeMsg to avoid delay
		m.ready = true

		if m.mdRenderer == nil || m.width != msg.Width {
			m.mdRenderer, _ = glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(msg.Width-8),
			)
		}

		m.width = msg.Width
		m.height = msg.Height
		m.textArea.SetWidth(msg.Width - 4)

		// Total height minus header, two separators, input, help, margins
		inputHeight := 2
		viewportHeight := msg.Height - 7 - inputHeight
		if viewportHeight < 3 {
			viewportHeight = 3
		}
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = viewportHeight

		m.updateViewport()
		return m, nil

	case spinner.TickMsg:
		if !m.processing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case analysisDoneMsg:
		m.processing = false
		m.lastError = nil
		m.appendReport(msg.report, msg.elapsed)
		m.updateViewport()
		return m, nil

	case analysisFailedMsg:
		m.processing = false
		m.lastError = msg.err
		return m, nil

	case statsDoneMsg:
		m.processing = false
		m.lastError = nil
		m.appendMarkdown(buildStatsMarkdown(msg.stats))
		m.updateViewport()
		return m, nil

	case refreshDoneMsg:
		m.processing = false
		m.lastError = nil
		m.appendNotice(fmt.Sprintf("Index refreshed: %d entries indexed, fingerprint %s, took %s",
			msg.result.IndexedEntries, msg.result.Fingerprint, msg.elapsed.Round(time.Millisecond)))
		m.updateViewport()
		return m, nil

	case commandFailedMsg:
		m.processing = false
		m.lastError = fmt.Errorf("%s failed: %w", msg.command, msg.err)
		return m, nil
	}

	if !m.processing {
		var cmd tea.Cmd
		m.textArea, cmd = m.textArea.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleKeyMsg handles keyboard input.
func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "ctrl+t":
		m.toggleMode()
		return m, nil

	case "enter":
		if m.processing {
			return m, nil
		}
		value := m.textArea.Value()

		// A trailing backslash continues the line instead of submitting
		if strings.HasSuffix(value, "\\") {
			m.textArea.SetValue(strings.TrimSuffix(value, "\\") + "\n")
			m.textArea.CursorEnd()
			return m, nil
		}

		input := strings.TrimSpace(value)
		if input == "" {
			return m, nil
		}
		m.textArea.Reset()

		if strings.HasPrefix(input, "/") {
			return m.handleCommand(input)
		}
		return m.startAnalysis(input)

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case "ctrl+up":
		m.viewport.LineUp(3)
		return m, nil

	case "ctrl+down":
		m.viewport.LineDown(3)
		return m, nil
	}

	if !m.processing {
		var cmd tea.Cmd
		m.textArea, cmd = m.textArea.Update(msg)
		return m, cmd
	}

	return m, nil
}

// startAnalysis submits an issue description to the API.
func (m *Model) startAnalysis(query string) (tea.Model, tea.Cmd) {
	m.appendUserMessage(query)
	m.processing = true
	m.lastError = nil
	m.updateViewport()

	return m, tea.Batch(m.spinner.Tick, m.analyzeCmd(query))
}

// handleCommand dispatches slash commands.
func (m *Model) handleCommand(input string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(input)

	switch fields[0] {
	case "/stats":
		m.processing = true
		m.lastError = nil
		return m, tea.Batch(m.spinner.Tick, m.statsCmd())

	case "/refresh":
		m.processing = true
		m.lastError = nil
		return m, tea.Batch(m.spinner.Tick, m.refreshCmd())

	case "/mode":
		if len(fields) > 1 {
			switch fields[1] {
			case string(models.ModeFast):
				m.mode = models.ModeFast
			case string(models.ModeHybrid):
				m.mode = models.ModeHybrid
			default:
				m.lastError = fmt.Errorf("unknown mode %q (hybrid or fast)", fields[1])
			}
		} else {
			m.toggleMode()
		}
		return m, nil

	default:
		m.lastError = fmt.Errorf("unknown command %s (available: /stats, /refresh, /mode)", fields[0])
		return m, nil
	}
}
