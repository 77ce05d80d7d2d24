package models

// ImportanceScore is the learned relevance probability for one entry, tagged
// with the classifier version that produced it. Scores are recomputed per run
// whenever the corpus or model version changes, never mutated in place.
type ImportanceScore struct {
	// EntryID is the scored entry's identity
	EntryID string `json:"entry_id"`

	// Probability is the classifier output in [0,1]
	Probability float64 `json:"probability"`

	// ModelVersion is the classifier version that produced the score
	ModelVersion string `json:"model_version"`
}

// SearchResult is one semantic-index hit for a query. Ephemeral, produced per
// search call.
type SearchResult struct {
	// EntryID is the matched entry's identity
	EntryID string `json:"entry_id"`

	// Similarity is cosine similarity in [-1,1], normalized vectors
	Similarity float64 `json:"similarity"`

	// Rank is the 1-based position within this result set
	Rank int `json:"rank"`
}

// SignalBreakdown carries the per-signal contributions behind a fused score.
// A nil pointer means the signal did not touch the entry and was excluded
// from the weight denominator, which is different from a present zero.
type SignalBreakdown struct {
	// Importance is the normalized importance contribution, nil when absent
	Importance *float64 `json:"importance,omitempty"`

	// Semantic is the normalized semantic contribution, nil when absent
	Semantic *float64 `json:"semantic,omitempty"`

	// Lexical is the normalized lexical contribution, nil when absent
	Lexical *float64 `json:"lexical,omitempty"`
}

// Present returns how many signals contributed.
func (b SignalBreakdown) Present() int {
	n := 0
	if b.Importance != nil {
		n++
	}
	if b.Semantic != nil {
		n++
	}
	if b.Lexical != nil {
		n++
	}
	return n
}

// RCACandidate is one ranked piece of evidence: an entry, its fused score,
// and the signal breakdown that produced it.
type RCACandidate struct {
	// EntryID is the candidate entry's identity
	EntryID string `json:"entry_id"`

	// FusedScore is the weighted combination of normalized signals in [0,1]
	FusedScore float64 `json:"fused_score"`

	// Breakdown records each signal's normalized contribution
	Breakdown SignalBreakdown `json:"breakdown"`

	// Rank is the 1-based position after fusion ordering
	Rank int `json:"rank"`
}

// Float64Ptr returns a pointer to v. Convenience for building breakdowns.
func Float64Ptr(v float64) *float64 {
	return &v
}
