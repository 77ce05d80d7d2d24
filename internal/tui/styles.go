package tui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	colorPrimary = lipgloss.Color("#00D4FF") // Cyan
	colorSuccess = lipgloss.Color("#10B981") // Green
	colorWarning = lipgloss.Color("#F59E0B") // Yellow/Orange
	colorError   = lipgloss.Color("#EF4444") // Red
	colorMuted   = lipgloss.Color("#6B7280") // Gray
	colorText    = lipgloss.Color("#E5E7EB") // Light gray
	colorDim     = lipgloss.Color("#4B5563") // Darker gray
)

// Header styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	modeHybridStyle = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)

	modeFastStyle = lipgloss.NewStyle().
			Foreground(colorWarning).
			Bold(true)

	sessionInfoStyle = lipgloss.NewStyle().
				Foreground(colorMuted)
)

// Input styles
var (
	inputPromptStyle = lipgloss.NewStyle().
				Foreground(colorSuccess).
				Bold(true)
)

// Chat styles
var (
	userMessageStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("#1E3A5F")).
				Foreground(colorText).
				Padding(0, 1).
				MarginBottom(1)

	userMessageLabelStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	reportMetaStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	processingStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)
)

// Separator style
var separatorStyle = lipgloss.NewStyle().
	Foreground(colorDim)

// Help bar style
var (
	helpStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			MarginTop(1)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(colorPrimary)
)
