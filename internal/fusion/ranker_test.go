package fusion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chandanbam/openstack-rca-system/internal/config"
	"github.com/Chandanbam/openstack-rca-system/internal/corpus"
	"github.com/Chandanbam/openstack-rca-system/internal/models"
	"github.com/Chandanbam/openstack-rca-system/internal/scoring/lexical"
)

var (
	hybridWeights = config.SignalWeights{Importance: 0.4, Semantic: 0.4, Lexical: 0.2}
	fastWeights   = config.SignalWeights{Importance: 0.6, Semantic: 0, Lexical: 0.4}
)

func makeEntry(offset int, ts time.Time, msg string) models.LogEntry {
	return models.LogEntry{
		Timestamp:  ts,
		Service:    "nova-compute",
		Level:      models.SeverityInfo,
		Message:    msg,
		RawText:    msg,
		Tokens:     corpus.Tokenize(msg),
		SourceFile: "nova-compute.log",
		LineOffset: offset,
	}
}

func makeCorpus(t *testing.T, entries ...models.LogEntry) *corpus.Corpus {
	t.Helper()
	c, err := corpus.NewCorpus(entries)
	require.NoError(t, err)
	return c
}

func importanceSignal(probs map[string]float64) map[string]models.ImportanceScore {
	out := make(map[string]models.ImportanceScore, len(probs))
	for id, p := range probs {
		out[id] = models.ImportanceScore{EntryID: id, Probability: p, ModelVersion: "lstm-importance@1.0.0"}
	}
	return out
}

func TestFuseFiveEntryScenario(t *testing.T) {
	base := time.Date(2017, 5, 16, 0, 0, 0, 0, time.UTC)
	c := makeCorpus(t,
		makeEntry(1, base, "Database connection timeout while connecting to mysql"),
		makeEntry(2, base.Add(1*time.Second), "Instance spawned successfully"),
		makeEntry(3, base.Add(2*time.Second), "Database timeout during query execution"),
		makeEntry(4, base.Add(3*time.Second), "GET /v2/servers/detail status: 200"),
		makeEntry(5, base.Add(4*time.Second), "Periodic task heartbeat ok"),
	)

	sig := Signals{
		Importance: importanceSignal(map[string]float64{
			"nova-compute.log:1": 0.9,
			"nova-compute.log:2": 0.1,
			"nova-compute.log:3": 0.8,
			"nova-compute.log:4": 0.2,
			"nova-compute.log:5": 0.05,
		}),
		Lexical: lexical.BuildIndex(c).Score("database timeout"),
	}

	ranker := NewRanker(fastWeights)
	got := ranker.Fuse(c, sig, 0)
	require.Len(t, got, 5)

	var order []string
	for _, cand := range got {
		order = append(order, cand.EntryID)
	}
	assert.Equal(t, []string{
		"nova-compute.log:1",
		"nova-compute.log:3",
		"nova-compute.log:4",
		"nova-compute.log:2",
		"nova-compute.log:5",
	}, order)

	// fused scores never increase down the ranking
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].FusedScore, got[i].FusedScore)
	}
	for i, cand := range got {
		assert.Equal(t, i+1, cand.Rank)
		assert.Nil(t, cand.Breakdown.Semantic)
	}

	// identical inputs produce identical output
	again := ranker.Fuse(c, sig, 0)
	assert.Equal(t, got, again)
}

func TestFuseFastWeightsExact(t *testing.T) {
	base := time.Date(2017, 5, 16, 0, 0, 0, 0, time.UTC)
	c := makeCorpus(t,
		makeEntry(1, base, "database timeout"),
		makeEntry(2, base.Add(time.Second), "database lost"),
		makeEntry(3, base.Add(2*time.Second), "unrelated entry"),
	)

	sig := Signals{
		Importance: importanceSignal(map[string]float64{
			"nova-compute.log:1": 0.9,
			"nova-compute.log:2": 0.3,
			"nova-compute.log:3": 0.1,
		}),
		Lexical: map[string]float64{
			"nova-compute.log:1": 1.0,
			"nova-compute.log:2": 0.25,
		},
	}

	got := NewRanker(fastWeights).Fuse(c, sig, 0)
	byID := make(map[string]models.RCACandidate)
	for _, cand := range got {
		byID[cand.EntryID] = cand
	}

	// when both active signals cover an entry the weights apply directly:
	// fused = 0.6*importance_norm + 0.4*lexical_norm
	e1 := byID["nova-compute.log:1"]
	require.NotNil(t, e1.Breakdown.Importance)
	require.NotNil(t, e1.Breakdown.Lexical)
	assert.InDelta(t, 0.6*(*e1.Breakdown.Importance)+0.4*(*e1.Breakdown.Lexical), e1.FusedScore, 1e-12)

	e2 := byID["nova-compute.log:2"]
	assert.InDelta(t, 0.6*(*e2.Breakdown.Importance)+0.4*(*e2.Breakdown.Lexical), e2.FusedScore, 1e-12)

	// lexical never touched entry 3, so its fused score is the importance
	// value alone, not importance scaled down by a zero lexical term
	e3 := byID["nova-compute.log:3"]
	assert.Nil(t, e3.Breakdown.Lexical)
	assert.InDelta(t, *e3.Breakdown.Importance, e3.FusedScore, 1e-12)
}

func TestFuseHybridWeights(t *testing.T) {
	base := time.Date(2017, 5, 16, 0, 0, 0, 0, time.UTC)
	c := makeCorpus(t,
		makeEntry(1, base, "database timeout"),
		makeEntry(2, base.Add(time.Second), "instance spawned"),
	)

	sig := Signals{
		Importance: importanceSignal(map[string]float64{
			"nova-compute.log:1": 0.8,
			"nova-compute.log:2": 0.2,
		}),
		Lexical: map[string]float64{
			"nova-compute.log:1": 1.0,
		},
		Semantic: []models.SearchResult{
			{EntryID: "nova-compute.log:1", Similarity: 0.9, Rank: 1},
			{EntryID: "nova-compute.log:2", Similarity: 0.4, Rank: 2},
		},
	}

	got := NewRanker(hybridWeights).Fuse(c, sig, 0)
	require.Len(t, got, 2)

	e1 := got[0]
	assert.Equal(t, "nova-compute.log:1", e1.EntryID)
	// all three present: 0.4*1 + 0.4*1 + 0.2*1 over denominator 1
	assert.InDelta(t, 1.0, e1.FusedScore, 1e-12)
	assert.Equal(t, 3, e1.Breakdown.Present())

	e2 := got[1]
	// no lexical for entry 2: denominator is 0.4+0.4
	assert.InDelta(t, 0.0, e2.FusedScore, 1e-12)
	assert.Equal(t, 2, e2.Breakdown.Present())
}

func TestFuseTieBreaks(t *testing.T) {
	base := time.Date(2017, 5, 16, 0, 0, 0, 0, time.UTC)

	t.Run("higher importance wins on equal fused score", func(t *testing.T) {
		c := makeCorpus(t,
			makeEntry(1, base, "entry one"),
			makeEntry(2, base.Add(time.Hour), "entry two"),
		)
		// entry 1 is importance-only, entry 2 lexical-only; both normalize
		// to 1.0, and raw importance outranks the later timestamp
		sig := Signals{
			Importance: importanceSignal(map[string]float64{"nova-compute.log:1": 0.8}),
			Lexical:    map[string]float64{"nova-compute.log:2": 3.5},
		}

		got := NewRanker(fastWeights).Fuse(c, sig, 0)
		require.Len(t, got, 2)
		assert.InDelta(t, got[0].FusedScore, got[1].FusedScore, 1e-12)
		assert.Equal(t, "nova-compute.log:1", got[0].EntryID)
	})

	t.Run("more recent timestamp wins on equal importance", func(t *testing.T) {
		c := makeCorpus(t,
			makeEntry(1, base, "entry one"),
			makeEntry(2, base.Add(time.Minute), "entry two"),
			makeEntry(3, base.Add(2*time.Minute), "entry three"),
		)
		sig := Signals{
			Importance: importanceSignal(map[string]float64{
				"nova-compute.log:1": 0.5,
				"nova-compute.log:2": 0.5,
				"nova-compute.log:3": 0.9,
			}),
		}

		got := NewRanker(fastWeights).Fuse(c, sig, 0)
		require.Len(t, got, 3)
		assert.Equal(t, "nova-compute.log:3", got[0].EntryID)
		// entries 1 and 2 tie at normalized 0 with equal raw importance;
		// the later entry 2 ranks first
		assert.Equal(t, "nova-compute.log:2", got[1].EntryID)
		assert.Equal(t, "nova-compute.log:1", got[2].EntryID)
	})

	t.Run("corpus order wins on equal timestamp", func(t *testing.T) {
		c := makeCorpus(t,
			makeEntry(1, base, "entry one"),
			makeEntry(2, base, "entry two"),
		)
		sig := Signals{
			Importance: importanceSignal(map[string]float64{
				"nova-compute.log:1": 0.5,
				"nova-compute.log:2": 0.5,
			}),
		}

		got := NewRanker(fastWeights).Fuse(c, sig, 0)
		require.Len(t, got, 2)
		assert.Equal(t, "nova-compute.log:1", got[0].EntryID)
		assert.Equal(t, "nova-compute.log:2", got[1].EntryID)
	})
}

func TestFuseTruncatesToMax(t *testing.T) {
	base := time.Date(2017, 5, 16, 0, 0, 0, 0, time.UTC)
	c := makeCorpus(t,
		makeEntry(1, base, "a"),
		makeEntry(2, base.Add(time.Second), "b"),
		makeEntry(3, base.Add(2*time.Second), "c"),
	)
	sig := Signals{
		Importance: importanceSignal(map[string]float64{
			"nova-compute.log:1": 0.9,
			"nova-compute.log:2": 0.5,
			"nova-compute.log:3": 0.1,
		}),
	}

	got := NewRanker(fastWeights).Fuse(c, sig, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "nova-compute.log:1", got[0].EntryID)
	assert.Equal(t, 1, got[0].Rank)
	assert.Equal(t, 2, got[1].Rank)
}

func TestFuseSkipsUnknownEntries(t *testing.T) {
	base := time.Date(2017, 5, 16, 0, 0, 0, 0, time.UTC)
	c := makeCorpus(t, makeEntry(1, base, "known entry"))

	sig := Signals{
		Lexical: map[string]float64{
			"nova-compute.log:1": 1.0,
			"other.log:99":       0.9,
		},
	}

	got := NewRanker(fastWeights).Fuse(c, sig, 0)
	require.Len(t, got, 1)
	assert.Equal(t, "nova-compute.log:1", got[0].EntryID)
}

func TestFuseNoSignals(t *testing.T) {
	base := time.Date(2017, 5, 16, 0, 0, 0, 0, time.UTC)
	c := makeCorpus(t, makeEntry(1, base, "entry"))

	got := NewRanker(fastWeights).Fuse(c, Signals{}, 0)
	assert.Empty(t, got)
}

func TestMinMaxNormalize(t *testing.T) {
	t.Run("scales to unit range", func(t *testing.T) {
		got := minMaxNormalize(map[string]float64{"a": 2, "b": 4, "c": 6})
		assert.InDelta(t, 0.0, got["a"], 1e-12)
		assert.InDelta(t, 0.5, got["b"], 1e-12)
		assert.InDelta(t, 1.0, got["c"], 1e-12)
	})

	t.Run("constant values map to one", func(t *testing.T) {
		got := minMaxNormalize(map[string]float64{"a": 0.3, "b": 0.3})
		assert.Equal(t, 1.0, got["a"])
		assert.Equal(t, 1.0, got["b"])
	})

	t.Run("nil passes through", func(t *testing.T) {
		assert.Nil(t, minMaxNormalize(nil))
	})
}
