package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Chandanbam/openstack-rca-system/internal/mcp/client"
	"github.com/Chandanbam/openstack-rca-system/internal/models"
)

// AnalyzeLogsTool implements the analyze_logs MCP tool.
type AnalyzeLogsTool struct {
	client *client.Client
}

// NewAnalyzeLogsTool creates the analyze_logs tool.
func NewAnalyzeLogsTool(c *client.Client) *AnalyzeLogsTool {
	return &AnalyzeLogsTool{client: c}
}

// AnalyzeLogsInput is the input for the analyze_logs tool.
type AnalyzeLogsInput struct {
	Query         string `json:"query"`
	Mode          string `json:"mode,omitempty"`
	From          string `json:"from,omitempty"`
	To            string `json:"to,omitempty"`
	MaxCandidates int    `json:"max_candidates,omitempty"` // default 10, max 50
}

// CandidateSummary is one ranked evidence line in the tool output. EntryID
// has the form "sourcefile:line" and identifies an entry in the loaded corpus.
type CandidateSummary struct {
	Rank       int      `json:"rank"`
	EntryID    string   `json:"entry_id"`
	Score      float64  `json:"score"`
	Importance *float64 `json:"importance,omitempty"`
	Semantic   *float64 `json:"semantic,omitempty"`
	Lexical    *float64 `json:"lexical,omitempty"`
}

// AnalyzeLogsOutput is the output of the analyze_logs tool.
type AnalyzeLogsOutput struct {
	Query             string             `json:"query"`
	RootCauseAnalysis string             `json:"root_cause_analysis"`
	Confidence        string             `json:"confidence"`
	IssueCategory     string             `json:"issue_category"`
	AnalysisMode      string             `json:"analysis_mode"`
	RelevantLogCount  int                `json:"relevant_logs_count"`
	VectorDBUsed      bool               `json:"vector_db_used"`
	TopCandidates     []CandidateSummary `json:"top_candidates"`
}

// Execute runs the analyze_logs tool.
func (t *AnalyzeLogsTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var params AnalyzeLogsInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if strings.TrimSpace(params.Query) == "" {
		return nil, fmt.Errorf("query is required")
	}

	report, err := t.client.Analyze(ctx, client.AnalyzeParams{
		Query: params.Query,
		Mode:  params.Mode,
		From:  params.From,
		To:    params.To,
	})
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}

	maxCandidates := ApplyDefaultLimit(params.MaxCandidates, 10, 50)
	return buildAnalyzeOutput(report, maxCandidates), nil
}

func buildAnalyzeOutput(report *models.RCAReport, maxCandidates int) *AnalyzeLogsOutput {
	out := &AnalyzeLogsOutput{
		Query:             report.Query,
		RootCauseAnalysis: report.Narrative,
		Confidence:        report.ConfidenceLabel,
		IssueCategory:     string(report.Category),
		AnalysisMode:      report.ModeUsed,
		RelevantLogCount:  report.RelevantLogCount,
		VectorDBUsed:      report.IndexUsed,
		TopCandidates:     make([]CandidateSummary, 0, maxCandidates),
	}

	for _, c := range report.Candidates {
		if len(out.TopCandidates) >= maxCandidates {
			break
		}
		out.TopCandidates = append(out.TopCandidates, CandidateSummary{
			Rank:       c.Rank,
			EntryID:    c.EntryID,
			Score:      c.FusedScore,
			Importance: c.Breakdown.Importance,
			Semantic:   c.Breakdown.Semantic,
			Lexical:    c.Breakdown.Lexical,
		})
	}
	return out
}
