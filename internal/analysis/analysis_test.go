package analysis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chandanbam/openstack-rca-system/internal/config"
	"github.com/Chandanbam/openstack-rca-system/internal/corpus"
	"github.com/Chandanbam/openstack-rca-system/internal/llm"
	"github.com/Chandanbam/openstack-rca-system/internal/metrics"
	"github.com/Chandanbam/openstack-rca-system/internal/models"
	"github.com/Chandanbam/openstack-rca-system/internal/report"
	"github.com/Chandanbam/openstack-rca-system/internal/scoring/lexical"
)

func testEntry(file string, line int, service string, level models.Severity, msg string, ts time.Time) models.LogEntry {
	return models.LogEntry{
		Timestamp:  ts,
		Service:    service,
		Level:      level,
		Message:    msg,
		RawText:    msg,
		Tokens:     corpus.Tokenize(msg),
		SourceFile: file,
		LineOffset: line,
	}
}

// scenarioCorpus holds five entries: two database-timeout errors and three
// routine lines sharing no term with the query.
func scenarioCorpus(t *testing.T) *corpus.Corpus {
	t.Helper()
	base := time.Date(2017, 5, 16, 0, 0, 0, 0, time.UTC)
	c, err := corpus.NewCorpus([]models.LogEntry{
		testEntry("nova-api.log", 1, "nova-api", models.SeverityError,
			"Database connection timeout while contacting mysql server", base),
		testEntry("nova-api.log", 2, "nova-api", models.SeverityInfo,
			"GET /v2.1/servers/detail HTTP 200 len 1874", base.Add(time.Second)),
		testEntry("nova-compute.log", 3, "nova-compute", models.SeverityError,
			"Database query timeout during compute state sync", base.Add(2*time.Second)),
		testEntry("nova-compute.log", 4, "nova-compute", models.SeverityInfo,
			"Instance spawned successfully in 19.32 seconds", base.Add(3*time.Second)),
		testEntry("neutron-dhcp.log", 5, "neutron-dhcp-agent", models.SeverityInfo,
			"DHCP lease renewed for subnet internal-net", base.Add(4*time.Second)),
	})
	require.NoError(t, err)
	return c
}

func scenarioImportance() map[string]models.ImportanceScore {
	probs := map[string]float64{
		"nova-api.log:1":     0.9,
		"nova-api.log:2":     0.1,
		"nova-compute.log:3": 0.8,
		"nova-compute.log:4": 0.2,
		"neutron-dhcp.log:5": 0.05,
	}
	out := make(map[string]models.ImportanceScore, len(probs))
	for id, p := range probs {
		out[id] = models.ImportanceScore{EntryID: id, Probability: p, ModelVersion: "lstm-importance@3"}
	}
	return out
}

type fakeImportance struct {
	mu     sync.Mutex
	scores map[string]models.ImportanceScore
	err    error
	calls  int
}

func (f *fakeImportance) Score(_ context.Context, _ *corpus.Corpus) (map[string]models.ImportanceScore, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.scores, nil
}

func (f *fakeImportance) ModelVersion() string { return "lstm-importance@3" }

func (f *fakeImportance) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSearcher struct {
	mu              sync.Mutex
	hits            []models.SearchResult
	searchErr       error
	refreshErr      error
	delay           time.Duration
	size            int
	searches        int
	refreshes       int
	lastFingerprint string
	lastK           int
}

func (f *fakeSearcher) Search(ctx context.Context, fingerprint, _ string, k int) ([]models.SearchResult, error) {
	f.mu.Lock()
	f.searches++
	f.lastFingerprint = fingerprint
	f.lastK = k
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.hits, nil
}

func (f *fakeSearcher) Refresh(_ context.Context, c *corpus.Corpus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	if f.refreshErr != nil {
		return f.refreshErr
	}
	f.size = c.Len()
	return nil
}

func (f *fakeSearcher) Ready() bool { return true }

func (f *fakeSearcher) ModelID() string { return "all-MiniLM-L12-v2" }

func (f *fakeSearcher) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.size
}

func (f *fakeSearcher) searchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searches
}

var (
	_ ImportanceScorer = (*fakeImportance)(nil)
	_ SemanticSearcher = (*fakeSearcher)(nil)
)

func newTestComposer(cfg *config.Config, script ...llm.FakeResult) *report.Composer {
	if len(script) == 0 {
		script = []llm.FakeResult{{Text: "The database tier stopped answering connection attempts."}}
	}
	return report.NewComposer(llm.NewFake(script...), cfg.Scoring, cfg.Timeouts)
}

func TestAnalyzeFastModeScenario(t *testing.T) {
	cfg := config.DefaultConfig()
	c := scenarioCorpus(t)
	imp := &fakeImportance{scores: scenarioImportance()}

	eng := NewEngine(Deps{
		Importance: imp,
		Lexical:    lexical.NewScorer(),
		Composer:   newTestComposer(cfg),
	}, cfg)

	rep, err := eng.Analyze(context.Background(), "database timeout", c, models.ModeFast)
	require.NoError(t, err)
	require.NotNil(t, rep)

	assert.Equal(t, models.ModeUsedFast, rep.ModeUsed)
	assert.False(t, rep.IndexUsed)
	assert.Equal(t, map[string]string{"importance": "lstm-importance@3"}, rep.ModelVersions)

	require.Len(t, rep.Candidates, 5)
	assert.Equal(t, "nova-api.log:1", rep.Candidates[0].EntryID)
	assert.Equal(t, "nova-compute.log:3", rep.Candidates[1].EntryID)
	for i, cand := range rep.Candidates {
		assert.Equal(t, i+1, cand.Rank)
		assert.Nil(t, cand.Breakdown.Semantic)
		if i > 0 {
			assert.LessOrEqual(t, cand.FusedScore, rep.Candidates[i-1].FusedScore)
		}
	}
}

func TestAnalyzeFastWeightsRenormalize(t *testing.T) {
	cfg := config.DefaultConfig()
	c := scenarioCorpus(t)

	eng := NewEngine(Deps{
		Importance: &fakeImportance{scores: scenarioImportance()},
		Lexical:    lexical.NewScorer(),
		Composer:   newTestComposer(cfg),
	}, cfg)

	rep, err := eng.Analyze(context.Background(), "database timeout", c, models.ModeFast)
	require.NoError(t, err)

	for _, cand := range rep.Candidates {
		imp, lex := cand.Breakdown.Importance, cand.Breakdown.Lexical
		switch {
		case imp != nil && lex != nil:
			assert.InDelta(t, 0.6*(*imp)+0.4*(*lex), cand.FusedScore, 1e-12, cand.EntryID)
		case imp != nil:
			// lexical never touched the entry, so importance carries the
			// whole weight
			assert.InDelta(t, *imp, cand.FusedScore, 1e-12, cand.EntryID)
		}
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	run := func() *models.RCAReport {
		cfg := config.DefaultConfig()
		eng := NewEngine(Deps{
			Importance: &fakeImportance{scores: scenarioImportance()},
			Lexical:    lexical.NewScorer(),
			Composer:   newTestComposer(cfg, llm.FakeResult{Err: models.ErrLLMError}),
		}, cfg)
		rep, err := eng.Analyze(context.Background(), "database timeout", scenarioCorpus(t), models.ModeFast)
		require.NoError(t, err)
		return rep
	}

	a, b := run(), run()
	assert.Equal(t, a.Candidates, b.Candidates)
	assert.Equal(t, a.Narrative, b.Narrative)
	assert.Equal(t, a.ConfidenceLabel, b.ConfidenceLabel)
	assert.Equal(t, a.Category, b.Category)
	assert.Equal(t, a.ModeUsed, b.ModeUsed)
}

func TestAnalyzeHybridUsesSemanticSignal(t *testing.T) {
	cfg := config.DefaultConfig()
	c := scenarioCorpus(t)
	sem := &fakeSearcher{hits: []models.SearchResult{
		{EntryID: "nova-compute.log:3", Similarity: 0.97, Rank: 1},
		{EntryID: "nova-api.log:1", Similarity: 0.95, Rank: 2},
	}}

	eng := NewEngine(Deps{
		Importance: &fakeImportance{scores: scenarioImportance()},
		Lexical:    lexical.NewScorer(),
		Semantic:   sem,
		Composer:   newTestComposer(cfg),
	}, cfg)

	rep, err := eng.Analyze(context.Background(), "database timeout", c, models.ModeHybrid)
	require.NoError(t, err)

	assert.Equal(t, models.ModeUsedHybrid, rep.ModeUsed)
	assert.True(t, rep.IndexUsed)
	assert.Equal(t, "all-MiniLM-L12-v2", rep.ModelVersions["embedding"])
	assert.Equal(t, c.Fingerprint(), sem.lastFingerprint)
	assert.Equal(t, cfg.Index.TopK, sem.lastK)

	require.NotEmpty(t, rep.Candidates)
	// the semantic hit on entry 3 outweighs entry 1's importance edge
	assert.Equal(t, "nova-compute.log:3", rep.Candidates[0].EntryID)
	assert.NotNil(t, rep.Candidates[0].Breakdown.Semantic)
}

func TestAnalyzeDowngradesWhenIndexUnavailable(t *testing.T) {
	cfg := config.DefaultConfig()
	c := scenarioCorpus(t)
	sem := &fakeSearcher{searchErr: fmt.Errorf("%w: index not built", models.ErrIndexUnavailable)}

	m := metrics.NewMetrics(prometheus.NewRegistry(), "test")
	eng := NewEngine(Deps{
		Importance: &fakeImportance{scores: scenarioImportance()},
		Lexical:    lexical.NewScorer(),
		Semantic:   sem,
		Composer:   newTestComposer(cfg),
	}, cfg).WithMetrics(m)

	rep, err := eng.Analyze(context.Background(), "database timeout", c, models.ModeHybrid)
	require.NoError(t, err)

	assert.Equal(t, models.ModeUsedFastDegraded, rep.ModeUsed)
	assert.False(t, rep.IndexUsed)
	assert.NotContains(t, rep.ModelVersions, "embedding")
	require.Len(t, rep.Candidates, 5)
	for _, cand := range rep.Candidates {
		assert.Nil(t, cand.Breakdown.Semantic, cand.EntryID)
	}
	// fast weights take over: the top entry carries full importance and
	// lexical agreement
	assert.Equal(t, "nova-api.log:1", rep.Candidates[0].EntryID)
	assert.InDelta(t, 1.0, rep.Candidates[0].FusedScore, 1e-12)
}

func TestAnalyzeDowngradesOnSemanticTimeout(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Timeouts.SearchMS = 20
	c := scenarioCorpus(t)
	sem := &fakeSearcher{
		delay: 2 * time.Second,
		hits:  []models.SearchResult{{EntryID: "nova-api.log:1", Similarity: 0.9, Rank: 1}},
	}

	eng := NewEngine(Deps{
		Importance: &fakeImportance{scores: scenarioImportance()},
		Lexical:    lexical.NewScorer(),
		Semantic:   sem,
		Composer:   newTestComposer(cfg),
	}, cfg)

	start := time.Now()
	rep, err := eng.Analyze(context.Background(), "database timeout", c, models.ModeHybrid)
	require.NoError(t, err)

	assert.Equal(t, models.ModeUsedFastDegraded, rep.ModeUsed)
	assert.False(t, rep.IndexUsed)
	assert.Less(t, time.Since(start), time.Second, "timed-out search must not be waited for")
}

func TestAnalyzeDowngradesWhenSearcherMissing(t *testing.T) {
	cfg := config.DefaultConfig()

	eng := NewEngine(Deps{
		Importance: &fakeImportance{scores: scenarioImportance()},
		Lexical:    lexical.NewScorer(),
		Composer:   newTestComposer(cfg),
	}, cfg)

	rep, err := eng.Analyze(context.Background(), "database timeout", scenarioCorpus(t), models.ModeHybrid)
	require.NoError(t, err)
	assert.Equal(t, models.ModeUsedFastDegraded, rep.ModeUsed)
	assert.False(t, rep.IndexUsed)
}

func TestAnalyzeImportanceFailureKeepsMode(t *testing.T) {
	cfg := config.DefaultConfig()
	c := scenarioCorpus(t)
	sem := &fakeSearcher{hits: []models.SearchResult{
		{EntryID: "nova-api.log:1", Similarity: 0.95, Rank: 1},
		{EntryID: "nova-compute.log:3", Similarity: 0.91, Rank: 2},
	}}

	eng := NewEngine(Deps{
		Importance: &fakeImportance{err: fmt.Errorf("%w: onnx session failed", models.ErrModelUnavailable)},
		Lexical:    lexical.NewScorer(),
		Semantic:   sem,
		Composer:   newTestComposer(cfg),
	}, cfg)

	rep, err := eng.Analyze(context.Background(), "database timeout", c, models.ModeHybrid)
	require.NoError(t, err)

	// the classifier failing degrades its signal, not the mode
	assert.Equal(t, models.ModeUsedHybrid, rep.ModeUsed)
	assert.True(t, rep.IndexUsed)
	assert.NotContains(t, rep.ModelVersions, "importance")
	require.NotEmpty(t, rep.Candidates)
	for _, cand := range rep.Candidates {
		assert.Nil(t, cand.Breakdown.Importance, cand.EntryID)
	}
}

func TestAnalyzeRejectsInvalidQuery(t *testing.T) {
	cfg := config.DefaultConfig()
	c := scenarioCorpus(t)
	imp := &fakeImportance{scores: scenarioImportance()}
	sem := &fakeSearcher{}

	eng := NewEngine(Deps{
		Importance: imp,
		Lexical:    lexical.NewScorer(),
		Semantic:   sem,
		Composer:   newTestComposer(cfg),
	}, cfg)

	for _, query := range []string{"", "   \t  ", strings.Repeat("x", maxQueryLen+1)} {
		rep, err := eng.Analyze(context.Background(), query, c, models.ModeHybrid)
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrInvalidQuery)
		assert.Nil(t, rep)
	}
	assert.Zero(t, imp.callCount(), "rejected queries must not reach the classifier")
	assert.Zero(t, sem.searchCount(), "rejected queries must not reach the index")
}

func TestAnalyzeRejectsEmptyCorpus(t *testing.T) {
	cfg := config.DefaultConfig()
	imp := &fakeImportance{scores: scenarioImportance()}

	eng := NewEngine(Deps{
		Importance: imp,
		Lexical:    lexical.NewScorer(),
		Composer:   newTestComposer(cfg),
	}, cfg)

	empty, err := corpus.NewCorpus(nil)
	require.NoError(t, err)

	for _, c := range []*corpus.Corpus{nil, empty} {
		rep, err := eng.Analyze(context.Background(), "database timeout", c, models.ModeFast)
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrEmptyCorpus)
		assert.Nil(t, rep)
	}
	assert.Zero(t, imp.callCount())
}

func TestAnalyzeCancellation(t *testing.T) {
	cfg := config.DefaultConfig()

	eng := NewEngine(Deps{
		Importance: &fakeImportance{scores: scenarioImportance()},
		Lexical:    lexical.NewScorer(),
		Composer:   newTestComposer(cfg),
	}, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := eng.Analyze(ctx, "database timeout", scenarioCorpus(t), models.ModeFast)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, rep)
}

func TestRefreshIndex(t *testing.T) {
	cfg := config.DefaultConfig()
	c := scenarioCorpus(t)

	t.Run("no searcher configured", func(t *testing.T) {
		eng := NewEngine(Deps{Lexical: lexical.NewScorer(), Composer: newTestComposer(cfg)}, cfg)
		err := eng.RefreshIndex(context.Background(), c)
		assert.ErrorIs(t, err, models.ErrIndexUnavailable)
	})

	t.Run("empty corpus", func(t *testing.T) {
		eng := NewEngine(Deps{Lexical: lexical.NewScorer(), Semantic: &fakeSearcher{}, Composer: newTestComposer(cfg)}, cfg)
		err := eng.RefreshIndex(context.Background(), nil)
		assert.ErrorIs(t, err, models.ErrEmptyCorpus)
	})

	t.Run("success", func(t *testing.T) {
		sem := &fakeSearcher{}
		m := metrics.NewMetrics(prometheus.NewRegistry(), "test")
		eng := NewEngine(Deps{Lexical: lexical.NewScorer(), Semantic: sem, Composer: newTestComposer(cfg)}, cfg).WithMetrics(m)
		require.NoError(t, eng.RefreshIndex(context.Background(), c))
		assert.Equal(t, 1, sem.refreshes)
		assert.Equal(t, c.Len(), sem.Size())
	})

	t.Run("refresh failure passes through", func(t *testing.T) {
		sem := &fakeSearcher{refreshErr: fmt.Errorf("%w: service down", models.ErrEmbeddingService)}
		eng := NewEngine(Deps{Lexical: lexical.NewScorer(), Semantic: sem, Composer: newTestComposer(cfg)}, cfg)
		err := eng.RefreshIndex(context.Background(), c)
		assert.ErrorIs(t, err, models.ErrEmbeddingService)
	})
}

func TestUpdateTunablesAppliesToNextRequest(t *testing.T) {
	cfg := config.DefaultConfig()
	c := scenarioCorpus(t)
	sem := &fakeSearcher{hits: []models.SearchResult{
		{EntryID: "nova-api.log:1", Similarity: 0.95, Rank: 1},
	}}

	eng := NewEngine(Deps{
		Importance: &fakeImportance{scores: scenarioImportance()},
		Lexical:    lexical.NewScorer(),
		Semantic:   sem,
		Composer:   newTestComposer(cfg),
	}, cfg)

	_, err := eng.Analyze(context.Background(), "database timeout", c, models.ModeHybrid)
	require.NoError(t, err)
	assert.Equal(t, cfg.Index.TopK, sem.lastK)

	updated := config.DefaultConfig()
	updated.Scoring.MaxCandidates = 2
	eng.UpdateTunables(updated.Scoring, updated.Timeouts, 7)

	rep, err := eng.Analyze(context.Background(), "database timeout", c, models.ModeHybrid)
	require.NoError(t, err)
	assert.Equal(t, 7, sem.lastK)
	assert.Len(t, rep.Candidates, 2)

	// a zero hit count falls back to the default rather than disabling search
	eng.UpdateTunables(updated.Scoring, updated.Timeouts, 0)
	_, err = eng.Analyze(context.Background(), "database timeout", c, models.ModeHybrid)
	require.NoError(t, err)
	assert.Equal(t, defaultTopK, sem.lastK)
}

func TestModeController(t *testing.T) {
	t.Run("hybrid downgrade", func(t *testing.T) {
		mc := NewModeController(models.ModeHybrid)
		assert.Equal(t, models.ModeHybrid, mc.Current())
		assert.Equal(t, models.ModeUsedHybrid, mc.ModeUsed())
		assert.False(t, mc.Degraded())

		assert.True(t, mc.Downgrade("semantic index unavailable"))
		assert.Equal(t, models.ModeFast, mc.Current())
		assert.True(t, mc.Degraded())
		assert.Equal(t, models.ModeUsedFastDegraded, mc.ModeUsed())

		// fast is terminal; the first reason sticks
		assert.False(t, mc.Downgrade("embedding service error"))
		assert.Equal(t, "semantic index unavailable", mc.Reason())
	})

	t.Run("requested fast is not degraded", func(t *testing.T) {
		mc := NewModeController(models.ModeFast)
		assert.Equal(t, models.ModeUsedFast, mc.ModeUsed())
		assert.False(t, mc.Downgrade("anything"))
		assert.False(t, mc.Degraded())
		assert.Equal(t, models.ModeUsedFast, mc.ModeUsed())
	})

	t.Run("unknown mode defaults to hybrid", func(t *testing.T) {
		mc := NewModeController(models.AnalysisMode("bogus"))
		assert.Equal(t, models.ModeHybrid, mc.Current())
	})
}
