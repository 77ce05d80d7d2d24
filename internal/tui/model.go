// Package tui implements the interactive chat interface for the RCA
// analysis API. The user types an issue description, the report comes
// back rendered as markdown in a scrollable viewport.
package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/Chandanbam/openstack-rca-system/internal/corpus"
	"github.com/Chandanbam/openstack-rca-system/internal/mcp/client"
	"github.com/Chandanbam/openstack-rca-system/internal/models"
)

const (
	historySeparatorWidth = 80
	evidenceDisplayLimit  = 5
)

// RCAClient is the slice of the API client the chat UI depends on.
type RCAClient interface {
	Analyze(ctx context.Context, p client.AnalyzeParams) (*models.RCAReport, error)
	RefreshIndex(ctx context.Context) (*client.RefreshResult, error)
	CorpusStats(ctx context.Context) (*corpus.Stats, error)
}

// Model is the main Bubble Tea model for the chat UI.
type Model struct {
	// Dimensions
	width  int
	height int

	// UI components
	textArea   textarea.Model
	viewport   viewport.Model
	spinner    spinner.Model
	mdRenderer *glamour.TermRenderer

	// API access
	client RCAClient
	apiURL string

	// Transcript of the whole session, styled and ready for the viewport
	history *strings.Builder

	// State
	mode       models.AnalysisMode
	ready      bool
	processing bool
	quitting   bool
	lastError  error
}

// NewModel creates a chat model talking to the given API client.
func NewModel(apiClient RCAClient, apiURL string, mode models.AnalysisMode) Model {
	ta := textarea.New()
	ta.Placeholder = "Describe an incident to investigate..."
	ta.Focus()
	ta.CharLimit = 4000
	ta.SetWidth(80)
	ta.SetHeight(2)
	ta.MaxHeight = 10
	ta.ShowLineNumbers = false
	// Prompt only on the first line, continuation lines stay aligned
	ta.SetPromptFunc(2, func(lineIdx int) string {
		if lineIdx == 0 {
			return "> "
		}
		return "  "
	})
	ta.FocusedStyle.Prompt = inputPromptStyle
	ta.BlurredStyle.Prompt = inputPromptStyle
	// Shift+enter inserts a newline, plain enter submits
	ta.KeyMap.InsertNewline.SetKeys("shift+enter")

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = processingStyle

	vp := viewport.New(80, 20)
	vp.SetContent("")
	vp.MouseWheelEnabled = true

	mdRenderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(76),
	)

	if mode != models.ModeFast {
		mode = models.ModeHybrid
	}

	return Model{
		textArea:   ta,
		viewport:   vp,
		spinner:    s,
		mdRenderer: mdRenderer,
		client:     apiClient,
		apiURL:     apiURL,
		mode:       mode,
		history:    &strings.Builder{},
	}
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	// Request window size immediately to avoid delay
	return tea.WindowSize()
}

// toggleMode flips between hybrid and fast for subsequent requests.
func (m *Model) toggleMode() {
	if m.mode == models.ModeFast {
		m.mode = models.ModeHybrid
	} else {
		m.mode = models.ModeFast
	}
}

// appendSeparator writes a session separator when history is non-empty.
func (m *Model) appendSeparator() {
	if m.history.Len() == 0 {
		return
	}
	m.history.WriteString("\n")
	m.history.WriteString(strings.Repeat("═", historySeparatorWidth))
	m.history.WriteString("\n\n")
}

// appendUserMessage records a submitted query in the transcript.
func (m *Model) appendUserMessage(content string) {
	m.appendSeparator()
	m.history.WriteString(userMessageLabelStyle.Render("You: "))

	lines := wrapText(content, m.wrapWidth())
	// Indent continuation lines to stay under the label
	m.history.WriteString(userMessageStyle.Render(strings.Join(lines, "\n     ")))
	m.history.WriteString("\n\n")
}

// appendReport renders a completed report into the transcript.
func (m *Model) appendReport(report *models.RCAReport, elapsed time.Duration) {
	m.history.WriteString(m.renderMarkdown(ReportMarkdown(report)))
	meta := fmt.Sprintf("%s mode, %d relevant entries, %s",
		report.ModeUsed, report.RelevantLogCount, elapsed.Round(time.Millisecond))
	m.history.WriteString(reportMetaStyle.Render(meta))
	m.history.WriteString("\n")
}

// appendNotice writes a plain informational line to the transcript.
func (m *Model) appendNotice(text string) {
	m.history.WriteString(reportMetaStyle.Render(text))
	m.history.WriteString("\n")
}

// appendMarkdown renders markdown into the transcript.
func (m *Model) appendMarkdown(md string) {
	m.history.WriteString(m.renderMarkdown(md))
}

// updateViewport refreshes the viewport from the transcript and scrolls
// to the newest content.
func (m *Model) updateViewport() {
	m.viewport.SetContent(m.history.String())
	m.viewport.GotoBottom()
}

// renderMarkdown renders markdown content with styling.
func (m *Model) renderMarkdown(content string) string {
	if m.mdRenderer == nil {
		return content
	}
	rendered, err := m.mdRenderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n") + "\n"
}

// wrapWidth bounds user message wrapping to a readable column.
func (m *Model) wrapWidth() int {
	w := m.width - 10
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

// analyzeCmd runs an analysis request off the UI goroutine.
func (m *Model) analyzeCmd(query string) tea.Cmd {
	apiClient := m.client
	mode := m.mode
	return func() tea.Msg {
		start := time.Now()
		report, err := apiClient.Analyze(context.Background(), client.AnalyzeParams{
			Query: query,
			Mode:  string(mode),
		})
		if err != nil {
			return analysisFailedMsg{err: err}
		}
		return analysisDoneMsg{report: report, elapsed: time.Since(start)}
	}
}

// statsCmd fetches corpus composition counts.
func (m *Model) statsCmd() tea.Cmd {
	apiClient := m.client
	return func() tea.Msg {
		stats, err := apiClient.CorpusStats(context.Background())
		if err != nil {
			return commandFailedMsg{command: "/stats", err: err}
		}
		return statsDoneMsg{stats: stats}
	}
}

// refreshCmd triggers a corpus reload and index rebuild.
func (m *Model) refreshCmd() tea.Cmd {
	apiClient := m.client
	return func() tea.Msg {
		start := time.Now()
		result, err := apiClient.RefreshIndex(context.Background())
		if err != nil {
			return commandFailedMsg{command: "/refresh", err: err}
		}
		return refreshDoneMsg{result: result, elapsed: time.Since(start)}
	}
}

// ReportMarkdown formats a report for the glamour renderer.
func ReportMarkdown(report *models.RCAReport) string {
	var b strings.Builder

	b.WriteString("## Root Cause Analysis\n\n")
	b.WriteString(strings.TrimSpace(report.Narrative))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "*Category:* %s  \n", report.Category)
	fmt.Fprintf(&b, "*Confidence:* %s  \n", report.ConfidenceLabel)
	if report.IndexUsed {
		fmt.Fprintf(&b, "*Semantic index:* used\n")
	} else {
		fmt.Fprintf(&b, "*Semantic index:* not used\n")
	}

	if len(report.Candidates) > 0 {
		b.WriteString("\n### Top Evidence\n\n")
		limit := len(report.Candidates)
		if limit > evidenceDisplayLimit {
			limit = evidenceDisplayLimit
		}
		for _, c := range report.Candidates[:limit] {
			fmt.Fprintf(&b, "%d. `%s` (fused %.3f%s)\n",
				c.Rank, c.EntryID, c.FusedScore, formatBreakdown(c.Breakdown))
		}
	}

	return b.String()
}

// formatBreakdown lists the normalized signal contributions that are present.
func formatBreakdown(bd models.SignalBreakdown) string {
	var parts []string
	if bd.Importance != nil {
		parts = append(parts, fmt.Sprintf("imp %.2f", *bd.Importance))
	}
	if bd.Semantic != nil {
		parts = append(parts, fmt.Sprintf("sem %.2f", *bd.Semantic))
	}
	if bd.Lexical != nil {
		parts = append(parts, fmt.Sprintf("lex %.2f", *bd.Lexical))
	}
	if len(parts) == 0 {
		return ""
	}
	return ", " + strings.Join(parts, " / ")
}

// buildStatsMarkdown formats corpus stats for the glamour renderer.
func buildStatsMarkdown(stats *corpus.Stats) string {
	var b strings.Builder

	b.WriteString("## Corpus\n\n")
	fmt.Fprintf(&b, "*Entries:* %d  \n", stats.TotalEntries)
	if !stats.Earliest.IsZero() {
		fmt.Fprintf(&b, "*Window:* %s to %s  \n",
			stats.Earliest.UTC().Format(time.RFC3339),
			stats.Latest.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "*Fingerprint:* `%s`\n", stats.Fingerprint)

	if len(stats.Services) > 0 {
		b.WriteString("\n### Services\n\n")
		names := make([]string, 0, len(stats.Services))
		for name := range stats.Services {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "- %s: %d\n", name, stats.Services[name])
		}
	}

	return b.String()
}

// wrapText wraps text to fit within maxWidth characters.
func wrapText(text string, maxWidth int) []string {
	if maxWidth <= 0 {
		maxWidth = 80
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	currentLine := words[0]
	for _, word := range words[1:] {
		if len(currentLine)+1+len(word) <= maxWidth {
			currentLine += " " + word
		} else {
			lines = append(lines, currentLine)
			currentLine = word
		}
	}
	lines = append(lines, currentLine)

	return lines
}
