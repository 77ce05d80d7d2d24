package report

import (
	"fmt"
	"strings"
	"time"
)

// analysisSystemPrompt instructs the narrative provider. The ranking, the
// evidence selection, and the category are computed before the call; the
// provider only writes prose over them.
const analysisSystemPrompt = `You are an OpenStack operations engineer performing root cause analysis.

You receive an issue description and the highest-ranked log evidence
selected by a multi-signal ranking engine (learned importance, semantic
similarity, lexical relevance). Each evidence line carries its rank,
timestamp, service, severity, and fused relevance score. Work only from
this evidence; never invent log lines.

Structure your answer as:

1. **Root Cause**: the most likely underlying cause, in one or two sentences.
2. **Evidence**: the log entries that support it, cited by rank as [N].
3. **Remediation**: concrete next steps for the operator.

Be precise. When the evidence is inconclusive, say so rather than speculate.`

// maxPromptMessageLen bounds each evidence message in the prompt so a
// multi-line traceback cannot crowd out the rest of the evidence.
const maxPromptMessageLen = 240

// buildUserPrompt assembles the analysis prompt from the query, the resolved
// top evidence, and the mined pattern summary. Deterministic: identical
// inputs produce identical prompts.
func buildUserPrompt(query string, rows []scoredEntry, patternLines []string) string {
	var sb strings.Builder

	sb.WriteString("Issue:\n")
	sb.WriteString(query)
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Top evidence (%d entries):\n", len(rows)))
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("%2d. [%s] %s %s (score %.3f): %s\n",
			row.Candidate.Rank,
			row.Entry.Timestamp.UTC().Format(time.RFC3339),
			row.Entry.Service,
			row.Entry.Level,
			row.Candidate.FusedScore,
			truncateMessage(row.Entry.Message)))
	}

	if len(patternLines) > 0 {
		sb.WriteString("\nRecurring patterns across the corpus:\n")
		for _, line := range patternLines {
			sb.WriteString("- ")
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\nProduce the root cause analysis.")
	return sb.String()
}

func truncateMessage(s string) string {
	if len(s) <= maxPromptMessageLen {
		return s
	}
	return s[:maxPromptMessageLen] + "..."
}
