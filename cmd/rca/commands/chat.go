package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Chandanbam/openstack-rca-system/internal/logging"
	"github.com/Chandanbam/openstack-rca-system/internal/mcp/client"
	"github.com/Chandanbam/openstack-rca-system/internal/models"
	"github.com/Chandanbam/openstack-rca-system/internal/tui"
)

var (
	chatAPIURL string
	chatMode   string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive chat UI against a running RCA server",
	Long: `Start a terminal chat session for investigating incidents. Each message
is analyzed by the connected RCA server and answered with a rendered
report.

In-session commands:
  /stats    show corpus statistics
  /refresh  reload the server's corpus and rebuild the index
  /mode     switch between hybrid and fast analysis

Examples:
  # Chat with a local server
  rca chat

  # Connect to a specific server in fast mode
  rca chat --api-url http://rca.internal:8080 --mode fast`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatAPIURL, "api-url", getEnv("RCA_API_URL", "http://localhost:8080"), "URL of the RCA API server")
	chatCmd.Flags().StringVar(&chatMode, "mode", "hybrid", "Initial analysis mode: hybrid or fast")
}

func runChat(cmd *cobra.Command, args []string) error {
	if err := setupLog(logLevelFlags, nil); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	if !tui.IsTerminal() {
		return fmt.Errorf("chat needs an interactive terminal, use 'rca analyze' for scripted runs")
	}

	mode := models.AnalysisMode(chatMode)
	if mode != models.ModeHybrid && mode != models.ModeFast {
		return fmt.Errorf("invalid mode %q (hybrid or fast)", chatMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	apiClient := client.New(chatAPIURL)
	if err := apiClient.PingWithRetry(ctx, logging.GetLogger("chat")); err != nil {
		return fmt.Errorf("cannot reach the RCA API at %s: %w", chatAPIURL, err)
	}

	app := tui.NewApp(tui.Config{
		Client: apiClient,
		APIURL: chatAPIURL,
		Mode:   mode,
	})
	return app.Run(ctx)
}
