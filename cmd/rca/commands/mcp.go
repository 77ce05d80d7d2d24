package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/Chandanbam/openstack-rca-system/internal/logging"
	"github.com/Chandanbam/openstack-rca-system/internal/mcp"
)

var (
	mcpAPIURL       string
	httpAddr        string
	transportType   string
	mcpEndpointPath string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol (MCP) server that exposes the RCA
toolset to AI assistants: analyze_logs, get_corpus_stats, and
refresh_index, all backed by a running RCA API server.

Supports two transport modes:
  - http: HTTP server mode (default, suitable for independent deployment)
  - stdio: Standard input/output mode (for subprocess-based MCP clients)

HTTP mode includes a /health endpoint for health checks.`,
	Run: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpAPIURL, "api-url", getEnv("RCA_API_URL", "http://localhost:8080"), "URL of the RCA API server")
	mcpCmd.Flags().StringVar(&httpAddr, "http-addr", getEnv("MCP_HTTP_ADDR", ":8082"), "HTTP server address (host:port)")
	mcpCmd.Flags().StringVar(&transportType, "transport", "http", "Transport type: http or stdio")
	mcpCmd.Flags().StringVar(&mcpEndpointPath, "mcp-endpoint", getEnv("MCP_ENDPOINT", "/mcp"), "HTTP endpoint path for MCP requests")
}

func runMCP(cmd *cobra.Command, args []string) {
	// Set up logging
	if err := setupLog(logLevelFlags, nil); err != nil {
		HandleError(err, "Failed to setup logging")
	}
	logger := logging.GetLogger("mcp")
	logger.Info("Starting RCA MCP Server (transport: %s)", transportType)
	logger.Info("Connecting to RCA API at %s", mcpAPIURL)

	// Set up signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("Received signal: %v, shutting down gracefully...", sig)
		cancel()
	}()

	rcaServer, err := mcp.NewServer(ctx, mcp.Options{
		APIURL:  mcpAPIURL,
		Version: Version,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal("Failed to create MCP server: %v", err)
	}
	logger.Info("Successfully connected to RCA API")

	mcpServer := rcaServer.MCPServer()

	// Start appropriate transport
	switch transportType {
	case "http":
		endpointPath := normalizeEndpointPath(mcpEndpointPath)
		logger.Info("Starting HTTP server on %s (endpoint: %s)", httpAddr, endpointPath)

		// Custom mux with a health endpoint next to the MCP handler
		mux := http.NewServeMux()
		mux.HandleFunc("/health", healthHandler)

		httpSrv := &http.Server{
			Addr:              httpAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second, // Prevent Slowloris attacks
		}

		// Stateless mode keeps compatibility with clients that do not
		// manage sessions
		streamableServer := server.NewStreamableHTTPServer(
			mcpServer,
			server.WithEndpointPath(endpointPath),
			server.WithStateLess(true),
			server.WithStreamableHTTPServer(httpSrv),
		)
		mux.Handle(endpointPath, streamableServer)

		errCh := make(chan error, 1)
		go func() {
			if err := streamableServer.Start(httpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		// Wait for shutdown signal or error
		select {
		case <-ctx.Done():
			logger.Info("Shutting down HTTP server...")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()

			if err := streamableServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("Error during shutdown: %v", err)
			}
		case err := <-errCh:
			logger.Error("Server error: %v", err)
			os.Exit(1)
		}

	case "stdio":
		logger.Info("Starting stdio transport")
		if err := server.ServeStdio(mcpServer); err != nil {
			logger.Error("Stdio transport error: %v", err)
		}

	default:
		logger.Fatal("Invalid transport type: %s (must be 'http' or 'stdio')", transportType)
	}

	logger.Info("Server stopped")
}

// normalizeEndpointPath guarantees a leading slash, defaulting empty
// values to /mcp.
func normalizeEndpointPath(p string) string {
	if p == "" {
		return "/mcp"
	}
	if p[0] != '/' {
		return "/" + p
	}
	return p
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
