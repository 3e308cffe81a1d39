package engine

import (
	"math"
	"sort"
)

// SuggestionRanker filters, orders and truncates scored candidates into a
// presentable suggestion list. Ranking is deterministic: identical inputs
// and configuration always produce an identical ordered list.
type SuggestionRanker struct {
	config *MatchingConfig
}

// NewSuggestionRanker creates a ranker with the given configuration
func NewSuggestionRanker(config *MatchingConfig) *SuggestionRanker {
	if config == nil {
		config = DefaultMatchingConfig()
	}
	return &SuggestionRanker{config: config}
}

// Rank returns the top suggestions: candidates below the confidence
// threshold are dropped, the rest are sorted descending by confidence with
// amount closeness, date delta and pair identity as tie-breaks, and the
// result is truncated to the configured maximum.
func (sr *SuggestionRanker) Rank(candidates []*Candidate) []*Candidate {
	filtered := make([]*Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.ConfidenceScore >= sr.config.ConfidenceThreshold {
			filtered = append(filtered, c)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		a, b := filtered[i], filtered[j]

		if a.ConfidenceScore != b.ConfidenceScore {
			return a.ConfidenceScore > b.ConfidenceScore
		}

		// Closer amount wins
		aGap := math.Abs(a.Features.AmountMatch - 1.0)
		bGap := math.Abs(b.Features.AmountMatch - 1.0)
		if aGap != bGap {
			return aGap < bGap
		}

		if a.DateDeltaDays != b.DateDeltaDays {
			return a.DateDeltaDays < b.DateDeltaDays
		}

		// Total order for full determinism
		return a.PairKey() < b.PairKey()
	})

	if len(filtered) > sr.config.MaxSuggestions {
		filtered = filtered[:sr.config.MaxSuggestions]
	}

	return filtered
}

// AutoReconcilable returns the candidates eligible for unattended commit,
// in ranked order.
func (sr *SuggestionRanker) AutoReconcilable(candidates []*Candidate) []*Candidate {
	ranked := sr.Rank(candidates)

	eligible := make([]*Candidate, 0, len(ranked))
	for _, c := range ranked {
		if c.AutoReconcilable {
			eligible = append(eligible, c)
		}
	}
	return eligible
}
