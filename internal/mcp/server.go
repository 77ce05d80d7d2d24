// Package mcp exposes the RCA system over the Model Context Protocol so AI
// assistants can run analyses, refresh the index, and inspect the corpus.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Chandanbam/openstack-rca-system/internal/logging"
	"github.com/Chandanbam/openstack-rca-system/internal/mcp/client"
	"github.com/Chandanbam/openstack-rca-system/internal/mcp/tools"
)

// Tool is the interface every RCA tool implementation satisfies.
type Tool interface {
	Execute(ctx context.Context, input json.RawMessage) (interface{}, error)
}

// Server wraps an mcp-go server with the RCA toolset.
type Server struct {
	mcpServer *server.MCPServer
	apiClient *client.Client
	tools     map[string]Tool
	version   string
}

// Options configures the MCP server.
type Options struct {
	// APIURL is the base URL of the running RCA API server
	APIURL string

	// Version is reported to MCP clients during initialization
	Version string

	// Logger receives connection retry messages, may be nil
	Logger *logging.Logger
}

// NewServer connects to the RCA API and builds the MCP server. Connection is
// verified up front with retries so a client gets a clear failure instead of
// three broken tools.
func NewServer(ctx context.Context, opts Options) (*Server, error) {
	apiClient := client.New(opts.APIURL)
	if err := apiClient.PingWithRetry(ctx, opts.Logger); err != nil {
		return nil, fmt.Errorf("failed to connect to RCA API: %w", err)
	}

	mcpServer := server.NewMCPServer(
		"OpenStack RCA MCP Server",
		opts.Version,
		server.WithToolCapabilities(false),
		server.WithLogging(),
	)

	s := &Server{
		mcpServer: mcpServer,
		apiClient: apiClient,
		tools:     make(map[string]Tool),
		version:   opts.Version,
	}

	s.registerTools()
	s.registerPrompts()

	return s, nil
}

func (s *Server) registerTools() {
	s.registerTool(
		"analyze_logs",
		"Run root cause analysis over the loaded OpenStack logs for a described issue. Returns a narrative analysis with ranked evidence entries.",
		tools.NewAnalyzeLogsTool(s.apiClient),
		map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Description of the issue to analyze, e.g. 'instances failing to spawn with database errors'",
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"hybrid", "fast"},
					"description": "Optional: analysis mode. hybrid (default) includes semantic search, fast skips it",
				},
				"from": map[string]interface{}{
					"type":        "string",
					"description": "Optional: window start as Unix seconds or a phrase like '30 minutes ago'",
				},
				"to": map[string]interface{}{
					"type":        "string",
					"description": "Optional: window end as Unix seconds or a human-readable date",
				},
				"max_candidates": map[string]interface{}{
					"type":        "integer",
					"description": "Optional: max evidence entries to return (default 10, max 50)",
				},
			},
			"required": []string{"query"},
		},
	)

	s.registerTool(
		"refresh_index",
		"Reload the log corpus from disk and rebuild the semantic search index against it.",
		tools.NewRefreshIndexTool(s.apiClient),
		map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
	)

	s.registerTool(
		"corpus_stats",
		"Get composition of the loaded log corpus: entry counts by service and severity, and the covered time range.",
		tools.NewCorpusStatsTool(s.apiClient),
		map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
	)
}

func (s *Server) registerTool(name, description string, tool Tool, inputSchema map[string]interface{}) {
	s.tools[name] = tool

	schemaJSON, err := json.Marshal(inputSchema)
	if err != nil {
		// schemas are compile-time literals
		panic(fmt.Sprintf("failed to marshal schema for tool %s: %v", name, err))
	}

	mcpTool := mcp.NewToolWithRawSchema(name, description, schemaJSON)
	s.mcpServer.AddTool(mcpTool, s.createToolHandler(tool))
}

func (s *Server) createToolHandler(tool Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(request.Params.Arguments)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		result, err := tool.Execute(ctx, args)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("tool execution failed: %v", err)), nil
		}

		resultJSON, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to format result: %v", err)), nil
		}

		return mcp.NewToolResultText(string(resultJSON)), nil
	}
}

func (s *Server) registerPrompts() {
	investigatePrompt := mcp.Prompt{
		Name:        "investigate_incident",
		Description: "Guided root cause investigation of an OpenStack incident",
		Arguments: []mcp.PromptArgument{
			{Name: "issue", Description: "Brief description of the observed problem", Required: true},
			{Name: "from", Description: "Optional incident window start (Unix seconds or phrase)", Required: false},
			{Name: "to", Description: "Optional incident window end", Required: false},
		},
	}

	s.mcpServer.AddPrompt(investigatePrompt, func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		issue := request.Params.Arguments["issue"]
		from := request.Params.Arguments["from"]
		to := request.Params.Arguments["to"]

		text := fmt.Sprintf("Investigate this OpenStack issue: %s. "+
			"Start with corpus_stats to see which services and time range are covered, "+
			"then run analyze_logs with a focused query. Cite evidence entries by their entry_id.", issue)
		if from != "" || to != "" {
			text += fmt.Sprintf(" Restrict the analysis window to [%s, %s].", from, to)
		}

		return &mcp.GetPromptResult{
			Description: "Incident investigation workflow",
			Messages: []mcp.PromptMessage{
				{
					Role: mcp.RoleUser,
					Content: mcp.TextContent{
						Type: "text",
						Text: text,
					},
				},
			},
		}, nil
	})
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}
