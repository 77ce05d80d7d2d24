package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/Chandanbam/openstack-rca-system/internal/models"
)

// buildTemplateNarrative produces the fallback summary used when narrative
// generation has failed twice. Built purely from structured candidate data:
// identical inputs produce byte-identical text.
func buildTemplateNarrative(query string, category models.IssueCategory, rows []scoredEntry, patternLines []string) string {
	var sb strings.Builder

	// 1. Header and classification
	sb.WriteString("Root cause analysis (template summary; narrative generation unavailable).\n\n")
	sb.WriteString("Issue: ")
	sb.WriteString(query)
	sb.WriteString("\n")
	sb.WriteString("Category: ")
	sb.WriteString(string(category))
	sb.WriteString("\n")

	// 2. Ranked evidence
	if len(rows) > 0 {
		sb.WriteString("\nTop evidence:\n")
		for _, row := range rows {
			sb.WriteString(fmt.Sprintf("%2d. [%s] %s %s (score %.3f): %s\n",
				row.Candidate.Rank,
				row.Entry.Timestamp.UTC().Format(time.RFC3339),
				row.Entry.Service,
				row.Entry.Level,
				row.Candidate.FusedScore,
				truncateMessage(row.Entry.Message)))
		}
	}

	// 3. Pattern summary
	if len(patternLines) > 0 {
		sb.WriteString("\nRecurring patterns:\n")
		for _, line := range patternLines {
			sb.WriteString("- ")
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}

	// 4. Guidance
	sb.WriteString("\nThe entries above carry the strongest combined importance and ")
	sb.WriteString("relevance for this issue. Start the investigation with the ")
	sb.WriteString("highest-ranked services and timestamps.")

	return sb.String()
}
