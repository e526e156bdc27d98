package pipeline

import (
	"procure/internal/util"
)

// Matcher resolves free-form item names against the known catalog names.
// Candidates keep their catalog insertion order, which doubles as the
// tie-break: the first candidate to reach the top score wins.
type Matcher struct {
	threshold  float64
	candidates []string
}

// NewMatcher builds a matcher over the given candidate names. threshold is
// the confidence floor below which no match is reported.
func NewMatcher(threshold float64, candidates []string) *Matcher {
	return &Matcher{threshold: threshold, candidates: candidates}
}

// BestMatch returns the candidate most similar to query and its score, or
// ok=false when nothing reaches the confidence floor. The returned name is
// always one of the candidates, verbatim.
func (m *Matcher) BestMatch(query string) (string, float64, bool) {
	best := ""
	bestScore := 0.0
	for _, candidate := range m.candidates {
		score := Score(query, candidate)
		if score > bestScore {
			bestScore = score
			best = candidate
		}
	}
	if best == "" || bestScore < m.threshold {
		return "", bestScore, false
	}
	return best, bestScore, true
}

// Score rates how well query names candidate, in [0,1]. The whole-string
// Ratcliff/Obershelp ratio is combined with the best word-to-word ratio, so
// "need 10 laptops" still lands on "Laptop i7 16GB" even though the full
// strings share little.
func Score(query, candidate string) float64 {
	score := util.SimilarityRatio(query, candidate)

	queryTokens := util.Tokenize(query)
	candidateTokens := util.Tokenize(candidate)
	for _, qt := range queryTokens {
		for _, ct := range candidateTokens {
			if r := util.SimilarityRatio(qt, ct); r > score {
				score = r
			}
		}
	}
	return score
}
