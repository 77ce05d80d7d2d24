// Package analysis orchestrates root cause analysis requests. The engine runs
// the active scoring signals concurrently over an immutable corpus snapshot,
// fuses them into a deterministic candidate ranking, and hands the ranking to
// the report composer. Signal failures degrade the request rather than abort
// it: a valid query over a non-empty corpus always produces a report.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Chandanbam/openstack-rca-system/internal/config"
	"github.com/Chandanbam/openstack-rca-system/internal/corpus"
	"github.com/Chandanbam/openstack-rca-system/internal/fusion"
	"github.com/Chandanbam/openstack-rca-system/internal/logging"
	"github.com/Chandanbam/openstack-rca-system/internal/metrics"
	"github.com/Chandanbam/openstack-rca-system/internal/models"
	"github.com/Chandanbam/openstack-rca-system/internal/patterns"
	"github.com/Chandanbam/openstack-rca-system/internal/report"
)

// maxQueryLen bounds the operator query in bytes.
const maxQueryLen = 2000

// defaultTopK is the semantic hit count when the index config leaves it unset.
const defaultTopK = 20

// ImportanceScorer produces classifier probabilities over a whole corpus.
// Satisfied by *importance.Scorer.
type ImportanceScorer interface {
	Score(ctx context.Context, c *corpus.Corpus) (map[string]models.ImportanceScore, error)
	ModelVersion() string
}

// LexicalScorer ranks corpus entries against a query.
// Satisfied by *lexical.Scorer.
type LexicalScorer interface {
	Score(ctx context.Context, query string, c *corpus.Corpus) (map[string]float64, error)
}

// SemanticSearcher is the semantic index capability the engine depends on.
// Satisfied by *semindex.Index.
type SemanticSearcher interface {
	Search(ctx context.Context, corpusFingerprint, query string, k int) ([]models.SearchResult, error)
	Refresh(ctx context.Context, c *corpus.Corpus) error
	Ready() bool
	ModelID() string
	Size() int
}

// ReportComposer turns a ranking into the final report.
// Satisfied by *report.Composer.
type ReportComposer interface {
	Compose(ctx context.Context, in report.Input) *models.RCAReport
}

// Deps are the engine collaborators. Importance and Semantic may be nil,
// which disables the signal: a missing semantic searcher downgrades hybrid
// requests, a missing importance scorer just leaves the signal absent.
type Deps struct {
	Importance ImportanceScorer
	Lexical    LexicalScorer
	Semantic   SemanticSearcher
	Composer   ReportComposer
}

// Engine runs analysis requests against a corpus.
type Engine struct {
	deps   Deps
	miner  *patterns.Miner
	logger *logging.Logger

	// tunMu guards the reloadable tunables below. Each request takes one
	// snapshot at entry; UpdateTunables only affects later requests.
	tunMu    sync.RWMutex
	scoring  config.ScoringConfig
	timeouts config.TimeoutConfig
	topK     int

	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// NewEngine creates an engine with the configured weights, time budgets, and
// semantic hit count.
func NewEngine(deps Deps, cfg *config.Config) *Engine {
	topK := cfg.Index.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Engine{
		deps:     deps,
		miner:    patterns.NewMiner(patterns.DefaultMinerConfig()),
		scoring:  cfg.Scoring,
		timeouts: cfg.Timeouts,
		topK:     topK,
		logger:   logging.GetLogger("analysis"),
	}
}

// WithMetrics attaches request metrics.
func (e *Engine) WithMetrics(m *metrics.Metrics) *Engine {
	e.metrics = m
	return e
}

// WithTracer attaches a tracer for per-request spans.
func (e *Engine) WithTracer(t trace.Tracer) *Engine {
	e.tracer = t
	return e
}

// UpdateTunables swaps the scoring weights, time budgets, and semantic hit
// count. In-flight requests finish with the snapshot they started on.
func (e *Engine) UpdateTunables(scoring config.ScoringConfig, timeouts config.TimeoutConfig, topK int) {
	if topK <= 0 {
		topK = defaultTopK
	}
	e.tunMu.Lock()
	e.scoring = scoring
	e.timeouts = timeouts
	e.topK = topK
	e.tunMu.Unlock()
	e.logger.InfoWithFields("tunables updated",
		logging.Field("max_candidates", scoring.MaxCandidates),
		logging.Field("top_k", topK))
}

// tunables returns the snapshot one request runs on.
func (e *Engine) tunables() (config.ScoringConfig, config.TimeoutConfig, int) {
	e.tunMu.RLock()
	defer e.tunMu.RUnlock()
	return e.scoring, e.timeouts, e.topK
}

// Analyze runs one root cause analysis request. Invalid queries and empty
// corpora are rejected before any signal work; after that the only error
// return is request cancellation. Signal failures are absorbed: importance
// drops out of the fusion, semantic failures downgrade hybrid to fast, and
// narrative failures fall back to the template inside the composer.
func (e *Engine) Analyze(ctx context.Context, query string, c *corpus.Corpus, mode models.AnalysisMode) (*models.RCAReport, error) {
	if err := validateQuery(query); err != nil {
		return nil, err
	}
	if c == nil || c.Len() == 0 {
		return nil, fmt.Errorf("%w: no log entries to analyze", models.ErrEmptyCorpus)
	}

	start := time.Now()
	scoring, timeouts, topK := e.tunables()
	var span trace.Span
	if e.tracer != nil {
		ctx, span = e.tracer.Start(ctx, "analysis.Analyze")
		defer span.End()
		span.SetAttributes(
			attribute.String("mode_requested", string(mode)),
			attribute.Int("corpus_entries", c.Len()),
		)
		if sc := span.SpanContext(); sc.HasTraceID() {
			ctx = logging.WithTrace(ctx, sc.TraceID().String(), sc.SpanID().String())
		}
	}

	mc := NewModeController(mode)
	if mc.Current() == models.ModeHybrid && e.deps.Semantic == nil {
		e.downgrade(mc, "semantic index not configured")
	}

	// Signals run concurrently over the read-only snapshot and never cancel
	// each other; a failure parks in its slot and degrades that signal alone.
	var (
		g         errgroup.Group
		impScores map[string]models.ImportanceScore
		impErr    error
		lexScores map[string]float64
		lexErr    error
		semHits   []models.SearchResult
		semErr    error
	)

	if e.deps.Importance != nil {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, millis(timeouts.ClassifierMS))
			defer cancel()
			impScores, impErr = e.deps.Importance.Score(cctx, c)
			return nil
		})
	}

	g.Go(func() error {
		lexScores, lexErr = e.deps.Lexical.Score(ctx, query, c)
		return nil
	})

	semRan := mc.Current() == models.ModeHybrid
	if semRan {
		semCtx, cancel := context.WithDeadline(ctx, semanticDeadline(start, timeouts))
		defer cancel()
		g.Go(func() error {
			semHits, semErr = e.deps.Semantic.Search(semCtx, c.Fingerprint(), query, topK)
			return nil
		})
	}

	_ = g.Wait() // goroutines report through the slot variables

	if err := ctx.Err(); err != nil {
		err = fmt.Errorf("analysis canceled: %w", err)
		if span != nil {
			span.RecordError(err)
		}
		return nil, err
	}

	if impErr != nil {
		e.signalFailure("importance", impErr)
		impScores = nil
	}
	if lexErr != nil {
		e.signalFailure("lexical", lexErr)
		lexScores = nil
	}
	if semErr != nil {
		e.signalFailure("semantic", semErr)
		e.downgrade(mc, downgradeReason(semErr))
		semHits = nil
	}

	weights := scoring.FastWeights
	if mc.Current() == models.ModeHybrid {
		weights = scoring.HybridWeights
	}
	candidates := fusion.NewRanker(weights).Fuse(c, fusion.Signals{
		Importance: impScores,
		Lexical:    lexScores,
		Semantic:   semHits,
	}, scoring.MaxCandidates)

	indexUsed := semRan && semErr == nil

	versions := make(map[string]string, 2)
	if impScores != nil {
		versions["importance"] = e.deps.Importance.ModelVersion()
	}
	if indexUsed {
		versions["embedding"] = e.deps.Semantic.ModelID()
	}
	if len(versions) == 0 {
		versions = nil
	}

	rep := e.deps.Composer.Compose(ctx, report.Input{
		Query:         query,
		Corpus:        c,
		Candidates:    candidates,
		Groups:        e.minePatterns(c),
		ModeUsed:      mc.ModeUsed(),
		IndexUsed:     indexUsed,
		ModelVersions: versions,
	})

	elapsed := time.Since(start)
	if e.metrics != nil {
		e.metrics.RequestsTotal.WithLabelValues(rep.ModeUsed).Inc()
		e.metrics.RequestSeconds.Observe(elapsed.Seconds())
	}
	if span != nil {
		span.SetAttributes(
			attribute.String("mode_used", rep.ModeUsed),
			attribute.Int("candidates", len(rep.Candidates)),
		)
	}
	e.logger.WithContext(ctx).InfoWithFields("analysis complete",
		logging.Field("mode_used", rep.ModeUsed),
		logging.Field("candidates", len(rep.Candidates)),
		logging.Field("duration_ms", elapsed.Milliseconds()))
	return rep, nil
}

// RefreshIndex (re)builds the semantic index from the corpus. Out-of-band
// with respect to analysis requests; concurrent searches keep serving the
// previous snapshot until the swap.
func (e *Engine) RefreshIndex(ctx context.Context, c *corpus.Corpus) error {
	if e.deps.Semantic == nil {
		return fmt.Errorf("%w: no semantic index configured", models.ErrIndexUnavailable)
	}
	if c == nil || c.Len() == 0 {
		return fmt.Errorf("%w: nothing to index", models.ErrEmptyCorpus)
	}

	var span trace.Span
	if e.tracer != nil {
		ctx, span = e.tracer.Start(ctx, "analysis.RefreshIndex")
		defer span.End()
	}

	if err := e.deps.Semantic.Refresh(ctx, c); err != nil {
		if span != nil {
			span.RecordError(err)
		}
		return err
	}
	if e.metrics != nil {
		e.metrics.IndexRefreshes.Inc()
		e.metrics.IndexVectors.Set(float64(e.deps.Semantic.Size()))
	}
	return nil
}

// minePatterns clusters the incident-relevant slice of the corpus into
// template groups for the report. Mining failures cost the report its pattern
// lines, nothing else.
func (e *Engine) minePatterns(c *corpus.Corpus) []patterns.TemplateGroup {
	important, err := c.FilterImportant()
	if err != nil || important.Len() == 0 {
		return nil
	}
	return e.miner.Mine(important)
}

// downgrade applies the hybrid-to-fast transition once, with metrics and log.
func (e *Engine) downgrade(mc *ModeController, reason string) {
	if !mc.Downgrade(reason) {
		return
	}
	if e.metrics != nil {
		e.metrics.DowngradesTotal.Inc()
	}
	e.logger.WarnWithFields("downgrading to fast mode", logging.Field("reason", reason))
}

// signalFailure records a degraded signal.
func (e *Engine) signalFailure(signal string, err error) {
	if e.metrics != nil {
		e.metrics.SignalFailures.WithLabelValues(signal).Inc()
	}
	e.logger.WarnWithFields("signal unavailable, continuing without it",
		logging.Field("signal", signal),
		logging.Field("error", err.Error()))
}

// semanticDeadline is the semantic wait bound: the per-call search budget,
// capped by the request-level deadline so a hybrid request downgrades instead
// of spending its whole budget waiting on one signal.
func semanticDeadline(start time.Time, timeouts config.TimeoutConfig) time.Time {
	d := start.Add(millis(timeouts.SearchMS))
	if timeouts.RequestMS > 0 {
		if rd := start.Add(millis(timeouts.RequestMS)); rd.Before(d) {
			d = rd
		}
	}
	return d
}

// downgradeReason maps a semantic failure to its downgrade reason.
func downgradeReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "semantic search timed out"
	case errors.Is(err, models.ErrIndexUnavailable):
		return "semantic index unavailable"
	case errors.Is(err, models.ErrEmbeddingService):
		return "embedding service error"
	default:
		return "semantic search failed"
	}
}

// millis converts a config budget to a duration. Zero budgets get a generous
// default so hand-built configs do not produce instant timeouts.
func millis(ms int) time.Duration {
	if ms <= 0 {
		return time.Minute
	}
	return time.Duration(ms) * time.Millisecond
}

// validateQuery rejects queries the engine will not analyze.
func validateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: query is empty", models.ErrInvalidQuery)
	}
	if len(query) > maxQueryLen {
		return fmt.Errorf("%w: query exceeds %d bytes", models.ErrInvalidQuery, maxQueryLen)
	}
	return nil
}
