package models

import "time"

// AnalysisMode selects which signals an analysis request runs.
type AnalysisMode string

const (
	// ModeHybrid runs importance, semantic, and lexical signals
	ModeHybrid AnalysisMode = "hybrid"
	// ModeFast runs without the semantic index
	ModeFast AnalysisMode = "fast"
)

// ParseAnalysisMode maps a request string to a mode, defaulting to hybrid.
func ParseAnalysisMode(s string) AnalysisMode {
	if AnalysisMode(s) == ModeFast {
		return ModeFast
	}
	return ModeHybrid
}

// Mode-used values reported on the RCAReport. A downgraded hybrid request is
// distinguishable from a fast request the caller asked for.
const (
	ModeUsedHybrid       = "hybrid"
	ModeUsedFast         = "fast"
	ModeUsedFastDegraded = "fast (degraded)"
)

// Confidence labels attached to the report narrative.
const (
	ConfidenceHigh             = "high"
	ConfidenceMedium           = "medium"
	ConfidenceLow              = "low"
	ConfidenceTemplateFallback = "low (template fallback)"
)

// IssueCategory is the deterministic classification of the reported problem.
type IssueCategory string

const (
	// CategoryResourceShortage covers capacity, quota, and claim failures
	CategoryResourceShortage IssueCategory = "resource_shortage"
	// CategoryNetworkIssues covers connectivity, DHCP, and port binding failures
	CategoryNetworkIssues IssueCategory = "network_issues"
	// CategoryAuthenticationIssues covers keystone and token failures
	CategoryAuthenticationIssues IssueCategory = "authentication_issues"
	// CategoryServiceFailure covers crashes, tracebacks, and service errors
	CategoryServiceFailure IssueCategory = "service_failure"
	// CategoryUnknown is used when no rule matches
	CategoryUnknown IssueCategory = "unknown"
)

// RCAReport is the terminal artifact of one analysis request. Immutable once
// returned; every completed request produces one, even under maximal
// degradation.
type RCAReport struct {
	// Query is the operator-supplied issue description
	Query string `json:"query"`

	// Candidates is the fused evidence ranking, best first
	Candidates []RCACandidate `json:"candidates"`

	// Narrative is the generated root-cause prose, or the template summary
	Narrative string `json:"root_cause_analysis"`

	// ConfidenceLabel qualifies the narrative ("high", "medium", "low",
	// "low (template fallback)")
	ConfidenceLabel string `json:"confidence_label"`

	// Category is the deterministic issue classification
	Category IssueCategory `json:"issue_category"`

	// ModeUsed records the signals that actually ran, including degradation
	ModeUsed string `json:"analysis_mode"`

	// RelevantLogCount is the number of candidates in the ranking
	RelevantLogCount int `json:"relevant_logs_count"`

	// IndexUsed reports whether the semantic index contributed
	IndexUsed bool `json:"vector_db_used"`

	// GeneratedAt is when the report was composed
	GeneratedAt time.Time `json:"generated_at"`

	// ModelVersions records the classifier and embedding model ids that
	// contributed, keyed by signal name
	ModelVersions map[string]string `json:"model_versions,omitempty"`
}
