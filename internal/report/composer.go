// Package report composes the terminal RCAReport for a request: narrative
// generation with a bounded retry, a deterministic template fallback,
// confidence labeling, and issue categorization. The fused ranking is an
// input here; composition can degrade the narrative but never the ranking.
package report

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Chandanbam/openstack-rca-system/internal/config"
	"github.com/Chandanbam/openstack-rca-system/internal/corpus"
	"github.com/Chandanbam/openstack-rca-system/internal/llm"
	"github.com/Chandanbam/openstack-rca-system/internal/logging"
	"github.com/Chandanbam/openstack-rca-system/internal/metrics"
	"github.com/Chandanbam/openstack-rca-system/internal/models"
	"github.com/Chandanbam/openstack-rca-system/internal/patterns"
)

const (
	defaultReportTopN  = 10
	defaultCallTimeout = 30 * time.Second

	// maxPatternLines bounds the mined-pattern section of the prompt.
	maxPatternLines = 5
)

// Input carries everything the composer needs for one report.
type Input struct {
	Query         string
	Corpus        *corpus.Corpus
	Candidates    []models.RCACandidate
	Groups        []patterns.TemplateGroup
	ModeUsed      string
	IndexUsed     bool
	ModelVersions map[string]string
}

// scoredEntry pairs a ranked candidate with its resolved corpus entry.
type scoredEntry struct {
	Candidate models.RCACandidate
	Entry     models.LogEntry
}

// Composer turns a fused candidate ranking into the final RCAReport.
// A nil provider is allowed; every narrative then comes from the template.
type Composer struct {
	provider llm.Provider
	logger   *logging.Logger
	metrics  *metrics.Metrics

	// tunMu guards the reloadable knobs below.
	tunMu       sync.RWMutex
	topN        int
	callTimeout time.Duration
}

// NewComposer creates a composer over the given narrative provider.
func NewComposer(provider llm.Provider, scoring config.ScoringConfig, timeouts config.TimeoutConfig) *Composer {
	c := &Composer{
		provider: provider,
		logger:   logging.GetLogger("report"),
	}
	c.UpdateTunables(scoring, timeouts)
	return c
}

// UpdateTunables swaps the evidence depth and narrative call budget.
func (c *Composer) UpdateTunables(scoring config.ScoringConfig, timeouts config.TimeoutConfig) {
	topN := scoring.ReportTopN
	if topN <= 0 {
		topN = defaultReportTopN
	}
	callTimeout := time.Duration(timeouts.LLMMS) * time.Millisecond
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	c.tunMu.Lock()
	c.topN = topN
	c.callTimeout = callTimeout
	c.tunMu.Unlock()
}

// WithMetrics attaches instrumentation to the composer. Optional; without
// it the narrative counters simply stay silent.
func (c *Composer) WithMetrics(m *metrics.Metrics) *Composer {
	c.metrics = m
	return c
}

// Compose builds the report for one analysis request. It always returns a
// report: narrative failures degrade to the template summary, never to an
// error.
func (c *Composer) Compose(ctx context.Context, in Input) *models.RCAReport {
	rows := c.resolveEvidence(in)
	patternLines := patterns.Summarize(in.Groups, in.Corpus, maxPatternLines)

	entries := make([]models.LogEntry, len(rows))
	for i, row := range rows {
		entries[i] = row.Entry
	}
	category := Categorize(in.Query, entries)

	narrative, label := c.narrative(ctx, in.Query, category, rows, patternLines, in.Candidates)

	return &models.RCAReport{
		Query:            in.Query,
		Candidates:       in.Candidates,
		Narrative:        narrative,
		ConfidenceLabel:  label,
		Category:         category,
		ModeUsed:         in.ModeUsed,
		RelevantLogCount: len(in.Candidates),
		IndexUsed:        in.IndexUsed,
		GeneratedAt:      time.Now().UTC(),
		ModelVersions:    in.ModelVersions,
	}
}

// narrative calls the provider with the per-call timeout and exactly one
// retry on transient failure. Two consecutive failures fall back to the
// template summary.
func (c *Composer) narrative(ctx context.Context, query string, category models.IssueCategory, rows []scoredEntry, patternLines []string, candidates []models.RCACandidate) (string, string) {
	if c.provider == nil {
		return buildTemplateNarrative(query, category, rows, patternLines), models.ConfidenceTemplateFallback
	}

	prompt := buildUserPrompt(query, rows, patternLines)

	text, err := c.complete(ctx, prompt)
	if err == nil {
		return text, confidenceFromEvidence(candidates)
	}

	if retryable(err) && ctx.Err() == nil {
		if c.metrics != nil {
			c.metrics.NarrativeRetries.Inc()
		}
		c.logger.WarnWithFields("narrative generation failed, retrying",
			logging.Field("provider", c.provider.Name()),
			logging.Field("error", err.Error()))

		text, err = c.complete(ctx, prompt)
		if err == nil {
			return text, confidenceFromEvidence(candidates)
		}
	}

	if c.metrics != nil {
		c.metrics.NarrativeFallbacks.Inc()
	}
	c.logger.WarnWithFields("narrative generation failed, using template fallback",
		logging.Field("provider", c.provider.Name()),
		logging.Field("error", err.Error()))
	return buildTemplateNarrative(query, category, rows, patternLines), models.ConfidenceTemplateFallback
}

func (c *Composer) complete(ctx context.Context, prompt string) (string, error) {
	c.tunMu.RLock()
	callTimeout := c.callTimeout
	c.tunMu.RUnlock()
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	return c.provider.Complete(callCtx, analysisSystemPrompt, prompt)
}

// retryable reports whether the failure is transient. Caller cancellation
// is not.
func retryable(err error) bool {
	return errors.Is(err, models.ErrLLMTimeout) || errors.Is(err, models.ErrLLMError)
}

// resolveEvidence resolves the top-N candidates against the corpus.
func (c *Composer) resolveEvidence(in Input) []scoredEntry {
	c.tunMu.RLock()
	topN := c.topN
	c.tunMu.RUnlock()
	n := min(topN, len(in.Candidates))
	rows := make([]scoredEntry, 0, n)
	for _, cand := range in.Candidates[:n] {
		entry, ok := in.Corpus.Get(cand.EntryID)
		if !ok {
			continue
		}
		rows = append(rows, scoredEntry{Candidate: cand, Entry: entry})
	}
	return rows
}

// confidenceFromEvidence derives the narrative confidence label from the
// strength of the top candidate: its fused score and how many signals
// contributed to it.
func confidenceFromEvidence(candidates []models.RCACandidate) string {
	if len(candidates) == 0 {
		return models.ConfidenceLow
	}
	top := candidates[0]
	switch {
	case top.FusedScore >= 0.75 && top.Breakdown.Present() >= 2:
		return models.ConfidenceHigh
	case top.FusedScore >= 0.4:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}
