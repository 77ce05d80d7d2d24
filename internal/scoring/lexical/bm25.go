// Package lexical ranks log entries against a query with Okapi BM25. It is
// the always-available scoring signal: pure in-memory term statistics, no
// model files, no network, and deterministic for a given corpus and query.
package lexical

import (
	"context"
	"math"
	"sync"

	"github.com/Chandanbam/openstack-rca-system/internal/corpus"
)

// BM25 tuning constants, standard values from Robertson et al.
const (
	// k1 controls term frequency saturation
	k1 = 1.5

	// b controls document length normalization
	b = 0.75
)

// doc is the BM25 view of one log entry.
type doc struct {
	id  string
	tf  map[string]int
	len int
}

// Index holds precomputed term statistics for one corpus. Immutable after
// BuildIndex, safe for concurrent use.
type Index struct {
	docs        []doc
	idf         map[string]float64
	avgLen      float64
	fingerprint string
}

// BuildIndex computes term and document frequencies over the corpus.
// IDF uses Lucene-style smoothing, log((N+1)/(df+1)) + 1, so scores stay
// positive and no term divides by zero.
func BuildIndex(c *corpus.Corpus) *Index {
	entries := c.Entries()
	docs := make([]doc, 0, len(entries))
	df := make(map[string]int)
	totalLen := 0

	for _, entry := range entries {
		tf := make(map[string]int, len(entry.Tokens))
		for _, tok := range entry.Tokens {
			tf[tok]++
		}
		docs = append(docs, doc{id: entry.ID(), tf: tf, len: len(entry.Tokens)})
		totalLen += len(entry.Tokens)
		for term := range tf {
			df[term]++
		}
	}

	idx := &Index{
		docs:        docs,
		idf:         make(map[string]float64, len(df)),
		fingerprint: c.Fingerprint(),
	}
	if len(docs) > 0 {
		idx.avgLen = float64(totalLen) / float64(len(docs))
	}
	for term, docFreq := range df {
		idx.idf[term] = math.Log(float64(len(docs)+1)/float64(docFreq+1)) + 1.0
	}
	return idx
}

// Fingerprint returns the fingerprint of the indexed corpus.
func (idx *Index) Fingerprint() string {
	return idx.fingerprint
}

// Score ranks every entry against the query. Scores are max-normalized to
// [0, 1]; entries sharing no term with the query are omitted.
func (idx *Index) Score(query string) map[string]float64 {
	terms := corpus.Tokenize(query)
	if len(terms) == 0 || len(idx.docs) == 0 {
		return make(map[string]float64)
	}

	// deduplicate query terms; repeating a word in the query is noise
	termSet := make(map[string]bool, len(terms))
	for _, t := range terms {
		termSet[t] = true
	}

	scores := make(map[string]float64)
	var maxScore float64
	for _, d := range idx.docs {
		score := idx.scoreDoc(termSet, d)
		if score > 0 {
			scores[d.id] = score
			if score > maxScore {
				maxScore = score
			}
		}
	}

	if maxScore > 0 {
		for id := range scores {
			scores[id] /= maxScore
		}
	}
	return scores
}

func (idx *Index) scoreDoc(termSet map[string]bool, d doc) float64 {
	dl := float64(d.len)
	var score float64
	for term := range termSet {
		tf, inDoc := d.tf[term]
		if !inDoc {
			continue
		}
		termIDF := idx.idf[term]

		tfFloat := float64(tf)
		numerator := tfFloat * (k1 + 1)
		denominator := tfFloat + k1*(1.0-b+b*dl/idx.avgLen)
		score += termIDF * (numerator / denominator)
	}
	return score
}

// Scorer scores corpora against queries, reusing the index while the corpus
// fingerprint is unchanged.
type Scorer struct {
	mu     sync.Mutex
	cached *Index
}

// NewScorer creates a lexical scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score ranks the corpus entries against the query. The error return exists
// only to satisfy cancellation; BM25 itself cannot fail.
func (s *Scorer) Score(ctx context.Context, query string, c *corpus.Corpus) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	idx := s.cached
	if idx == nil || idx.fingerprint != c.Fingerprint() {
		idx = BuildIndex(c)
		s.cached = idx
	}
	s.mu.Unlock()

	return idx.Score(query), nil
}
