package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Chandanbam/openstack-rca-system/internal/mcp/client"
)

// CorpusStatsTool implements the corpus_stats MCP tool.
type CorpusStatsTool struct {
	client *client.Client
}

// NewCorpusStatsTool creates the corpus_stats tool.
func NewCorpusStatsTool(c *client.Client) *CorpusStatsTool {
	return &CorpusStatsTool{client: c}
}

// CorpusStatsOutput is the output of the corpus_stats tool.
type CorpusStatsOutput struct {
	TotalEntries int            `json:"total_entries"`
	Services     map[string]int `json:"services"`
	Levels       map[string]int `json:"levels"`
	Earliest     string         `json:"earliest,omitempty"`
	Latest       string         `json:"latest,omitempty"`
	Fingerprint  string         `json:"fingerprint"`
}

// Execute runs the corpus_stats tool. The tool takes no arguments.
func (t *CorpusStatsTool) Execute(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	stats, err := t.client.CorpusStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats query failed: %w", err)
	}

	return &CorpusStatsOutput{
		TotalEntries: stats.TotalEntries,
		Services:     stats.Services,
		Levels:       stats.Levels,
		Earliest:     FormatTimestamp(stats.Earliest),
		Latest:       FormatTimestamp(stats.Latest),
		Fingerprint:  stats.Fingerprint,
	}, nil
}
