// Package evaluation scores candidate rankings against labeled incidents.
// Matching is deliberately tolerant: log lines never reproduce a ground
// truth phrase verbatim, so a prediction counts when it shares two words
// with the truth or one contains the other.
package evaluation

import "strings"

// matchOverlapWords is the shared-word count that makes a prediction match.
const matchOverlapWords = 2

// Matches reports whether a predicted line satisfies the ground truth.
// Comparison is case-insensitive.
func Matches(prediction, truth string) bool {
	p := strings.ToLower(strings.TrimSpace(prediction))
	t := strings.ToLower(strings.TrimSpace(truth))
	if p == "" || t == "" {
		return false
	}

	if strings.Contains(p, t) || strings.Contains(t, p) {
		return true
	}

	truthWords := make(map[string]struct{})
	for _, w := range strings.Fields(t) {
		truthWords[w] = struct{}{}
	}

	overlap := 0
	seen := make(map[string]struct{})
	for _, w := range strings.Fields(p) {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		if _, ok := truthWords[w]; ok {
			overlap++
			if overlap >= matchOverlapWords {
				return true
			}
		}
	}
	return false
}

// matchRank returns the 1-based rank of the first prediction matching the
// truth, or 0 when none does.
func matchRank(predictions []string, truth string) int {
	for i, p := range predictions {
		if Matches(p, truth) {
			return i + 1
		}
	}
	return 0
}

// MeanReciprocalRank averages 1/rank of the first matching prediction over
// all cases. A case with no match contributes 0. ranked[i] is the
// prediction list for truths[i]; mismatched lengths yield 0.
func MeanReciprocalRank(ranked [][]string, truths []string) float64 {
	if len(ranked) == 0 || len(ranked) != len(truths) {
		return 0
	}

	sum := 0.0
	for i, predictions := range ranked {
		if rank := matchRank(predictions, truths[i]); rank > 0 {
			sum += 1.0 / float64(rank)
		}
	}
	return sum / float64(len(ranked))
}

// HitRateAtK is the fraction of cases whose first match lands within the
// top k predictions.
func HitRateAtK(ranked [][]string, truths []string, k int) float64 {
	if len(ranked) == 0 || len(ranked) != len(truths) || k <= 0 {
		return 0
	}

	hits := 0
	for i, predictions := range ranked {
		if rank := matchRank(predictions, truths[i]); rank > 0 && rank <= k {
			hits++
		}
	}
	return float64(hits) / float64(len(ranked))
}

// PrecisionAtK averages, over all cases, the fraction of the top k
// predictions that match the case's truth.
func PrecisionAtK(ranked [][]string, truths []string, k int) float64 {
	if len(ranked) == 0 || len(ranked) != len(truths) || k <= 0 {
		return 0
	}

	sum := 0.0
	for i, predictions := range ranked {
		top := predictions
		if len(top) > k {
			top = top[:k]
		}
		matching := 0
		for _, p := range top {
			if Matches(p, truths[i]) {
				matching++
			}
		}
		sum += float64(matching) / float64(k)
	}
	return sum / float64(len(ranked))
}
