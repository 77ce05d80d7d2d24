package tui

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/Chandanbam/openstack-rca-system/internal/models"
)

// App manages the chat UI lifecycle.
type App struct {
	model *Model
}

// Config contains configuration for the chat UI.
type Config struct {
	// Client talks to the analysis API
	Client RCAClient

	// APIURL is shown in the header
	APIURL string

	// Mode is the initial analysis mode, hybrid when empty
	Mode models.AnalysisMode
}

// NewApp creates a new chat application.
func NewApp(cfg Config) *App {
	model := NewModel(cfg.Client, cfg.APIURL, cfg.Mode)
	return &App{model: &model}
}

// Run starts the chat UI and blocks until the user quits or the context
// is canceled.
func (a *App) Run(ctx context.Context) error {
	program := tea.NewProgram(
		a.model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("chat ui error: %w", err)
	}
	return nil
}

// IsTerminal returns true if stdout is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
