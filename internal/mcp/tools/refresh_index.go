package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Chandanbam/openstack-rca-system/internal/mcp/client"
)

// RefreshIndexTool implements the refresh_index MCP tool.
type RefreshIndexTool struct {
	client *client.Client
}

// NewRefreshIndexTool creates the refresh_index tool.
func NewRefreshIndexTool(c *client.Client) *RefreshIndexTool {
	return &RefreshIndexTool{client: c}
}

// RefreshIndexOutput is the output of the refresh_index tool.
type RefreshIndexOutput struct {
	IndexedEntries int    `json:"indexed_entries"`
	Fingerprint    string `json:"fingerprint"`
	DurationMs     int64  `json:"duration_ms"`
}

// Execute runs the refresh_index tool. The tool takes no arguments.
func (t *RefreshIndexTool) Execute(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	start := time.Now()
	result, err := t.client.RefreshIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("index refresh failed: %w", err)
	}

	return &RefreshIndexOutput{
		IndexedEntries: result.IndexedEntries,
		Fingerprint:    result.Fingerprint,
		DurationMs:     time.Since(start).Milliseconds(),
	}, nil
}
