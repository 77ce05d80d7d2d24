// Package fusion combines the importance, semantic, and lexical signals into
// one deterministically ordered candidate list. This is the center of the
// engine: given identical signal inputs it must produce identical output,
// with no hidden randomness and no wall-clock dependence.
package fusion

import (
	"sort"

	"github.com/Chandanbam/openstack-rca-system/internal/config"
	"github.com/Chandanbam/openstack-rca-system/internal/corpus"
	"github.com/Chandanbam/openstack-rca-system/internal/models"
)

// Signals carries the per-request scoring signal outputs. A nil map or slice
// means the signal did not run (model unavailable, index down, fast mode);
// it is then excluded from every entry's weight denominator rather than
// counted as zero relevance.
type Signals struct {
	// Importance maps entry identity to classifier output; covers the whole
	// corpus when present
	Importance map[string]models.ImportanceScore

	// Lexical maps entry identity to BM25 score; entries without term
	// overlap are omitted
	Lexical map[string]float64

	// Semantic holds the top-k index hits
	Semantic []models.SearchResult
}

// Ranker fuses signals under one weight set. The engine holds two: the
// hybrid weights and the fast weights applied when semantic is absent.
type Ranker struct {
	weights config.SignalWeights
}

// NewRanker creates a ranker with the given active weight set.
func NewRanker(weights config.SignalWeights) *Ranker {
	return &Ranker{weights: weights}
}

// Fuse builds the union of entries touched by any signal and scores each as
// a weighted sum of its normalized signal values. Each signal is min-max
// scaled to [0,1] over the entries it touched; a signal missing for an entry
// drops out of both numerator and denominator. Ties break by higher raw
// importance, then more recent timestamp, then corpus order. The result is
// truncated to max candidates with ranks assigned from 1.
func (r *Ranker) Fuse(c *corpus.Corpus, sig Signals, max int) []models.RCACandidate {
	impNorm := normalizeImportance(sig.Importance)
	lexNorm := minMaxNormalize(sig.Lexical)
	semNorm := normalizeSemantic(sig.Semantic)

	union := make(map[string]bool)
	for id := range impNorm {
		union[id] = true
	}
	for id := range lexNorm {
		union[id] = true
	}
	for id := range semNorm {
		union[id] = true
	}

	candidates := make([]models.RCACandidate, 0, len(union))
	for id := range union {
		if _, ok := c.Position(id); !ok {
			// signals may only reference entries of this corpus
			continue
		}

		var breakdown models.SignalBreakdown
		var weighted, denom float64

		if v, ok := impNorm[id]; ok && r.weights.Importance > 0 {
			breakdown.Importance = models.Float64Ptr(v)
			weighted += r.weights.Importance * v
			denom += r.weights.Importance
		}
		if v, ok := semNorm[id]; ok && r.weights.Semantic > 0 {
			breakdown.Semantic = models.Float64Ptr(v)
			weighted += r.weights.Semantic * v
			denom += r.weights.Semantic
		}
		if v, ok := lexNorm[id]; ok && r.weights.Lexical > 0 {
			breakdown.Lexical = models.Float64Ptr(v)
			weighted += r.weights.Lexical * v
			denom += r.weights.Lexical
		}
		if denom == 0 {
			continue
		}

		candidates = append(candidates, models.RCACandidate{
			EntryID:    id,
			FusedScore: weighted / denom,
			Breakdown:  breakdown,
		})
	}

	r.sortCandidates(c, sig, candidates)

	if max > 0 && len(candidates) > max {
		candidates = candidates[:max]
	}
	for i := range candidates {
		candidates[i].Rank = i + 1
	}
	return candidates
}

// sortCandidates applies the total order: fused score descending, then raw
// importance descending, then later timestamp first, then corpus order.
// Corpus positions are unique, so the order is never arbitrary.
func (r *Ranker) sortCandidates(c *corpus.Corpus, sig Signals, candidates []models.RCACandidate) {
	rawImportance := func(id string) float64 {
		if s, ok := sig.Importance[id]; ok {
			return s.Probability
		}
		return 0
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.FusedScore != b.FusedScore {
			return a.FusedScore > b.FusedScore
		}
		ia, ib := rawImportance(a.EntryID), rawImportance(b.EntryID)
		if ia != ib {
			return ia > ib
		}
		ea, _ := c.Get(a.EntryID)
		eb, _ := c.Get(b.EntryID)
		if !ea.Timestamp.Equal(eb.Timestamp) {
			return ea.Timestamp.After(eb.Timestamp)
		}
		pa, _ := c.Position(a.EntryID)
		pb, _ := c.Position(b.EntryID)
		return pa < pb
	})
}

// normalizeImportance min-max scales classifier probabilities over the
// entries the classifier touched.
func normalizeImportance(scores map[string]models.ImportanceScore) map[string]float64 {
	if scores == nil {
		return nil
	}
	raw := make(map[string]float64, len(scores))
	for id, s := range scores {
		raw[id] = s.Probability
	}
	return minMaxNormalize(raw)
}

// normalizeSemantic min-max scales similarities over the returned hits.
func normalizeSemantic(results []models.SearchResult) map[string]float64 {
	if results == nil {
		return nil
	}
	raw := make(map[string]float64, len(results))
	for _, r := range results {
		raw[r.EntryID] = r.Similarity
	}
	return minMaxNormalize(raw)
}

// minMaxNormalize scales values to [0,1]. When all values are equal, every
// touched entry maps to 1.0: each is simultaneously the minimum and maximum,
// and being touched at all separates it from entries the signal never saw.
func minMaxNormalize(values map[string]float64) map[string]float64 {
	if values == nil {
		return nil
	}
	out := make(map[string]float64, len(values))
	if len(values) == 0 {
		return out
	}

	first := true
	var lo, hi float64
	for _, v := range values {
		if first {
			lo, hi = v, v
			first = false
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	span := hi - lo
	for id, v := range values {
		if span == 0 {
			out[id] = 1.0
			continue
		}
		out[id] = (v - lo) / span
	}
	return out
}
