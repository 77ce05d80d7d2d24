package report

import (
	"strings"

	"github.com/Chandanbam/openstack-rca-system/internal/models"
)

// categoryRules lists, per category, the keywords that vote for it.
// Matching is case-insensitive substring over the query plus the top
// evidence messages; each keyword votes at most once. Rule order breaks
// vote ties, so the specific categories come before service_failure.
var categoryRules = []struct {
	category models.IssueCategory
	keywords []string
}{
	{models.CategoryResourceShortage, []string{
		"disk", "space", "insufficient", "storage", "quota", "memory",
		"no valid host", "claim", "capacity", "exhaust", "over limit",
	}},
	{models.CategoryNetworkIssues, []string{
		"network", "dhcp", "neutron", "ip address", "port", "vif",
		"connectivity", "dns", "unreachable", "connection",
	}},
	{models.CategoryAuthenticationIssues, []string{
		"auth", "token", "keystone", "unauthorized", "credential",
		"denied", "forbidden", "expired", "permission",
	}},
	{models.CategoryServiceFailure, []string{
		"traceback", "exception", "crash", "internal error",
		"service unavailable", "died", "not responding", "terminating",
	}},
}

// maxCategorizeEvidence bounds how many evidence messages vote, keeping the
// classification stable as the ranking tail changes.
const maxCategorizeEvidence = 5

// Categorize classifies the reported issue from the query and the top
// evidence entries. Purely deterministic; returns CategoryUnknown when no
// rule matches.
func Categorize(query string, evidence []models.LogEntry) models.IssueCategory {
	var sb strings.Builder
	sb.WriteString(query)
	for i, e := range evidence {
		if i >= maxCategorizeEvidence {
			break
		}
		sb.WriteString("\n")
		sb.WriteString(e.Message)
	}
	text := strings.ToLower(sb.String())

	best := models.CategoryUnknown
	bestVotes := 0
	for _, rule := range categoryRules {
		votes := 0
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				votes++
			}
		}
		if votes > bestVotes {
			best = rule.category
			bestVotes = votes
		}
	}
	return best
}
