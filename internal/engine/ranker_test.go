package engine

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(invoiceID, txID string, confidence float64) *Candidate {
	return &Candidate{
		InvoiceIDs:      []string{invoiceID},
		TransactionIDs:  []string{txID},
		ConfidenceScore: confidence,
		RiskLevel:       ClassifyRisk(confidence),
		Features:        FeatureVector{AmountMatch: confidence},
		MatchAmount:     decimal.NewFromInt(100),
	}
}

func TestRankFiltersBelowThreshold(t *testing.T) {
	ranker := NewSuggestionRanker(DefaultMatchingConfig()) // threshold 0.5

	candidates := []*Candidate{
		candidate("INV-1", "TX-1", 0.9),
		candidate("INV-2", "TX-2", 0.49),
		candidate("INV-3", "TX-3", 0.5),
	}

	ranked := ranker.Rank(candidates)

	require.Len(t, ranked, 2)
	assert.Equal(t, []string{"INV-1"}, ranked[0].InvoiceIDs)
	assert.Equal(t, []string{"INV-3"}, ranked[1].InvoiceIDs)
}

func TestRankOrdersByConfidenceDescending(t *testing.T) {
	ranker := NewSuggestionRanker(DefaultMatchingConfig())

	candidates := []*Candidate{
		candidate("INV-1", "TX-1", 0.6),
		candidate("INV-2", "TX-2", 0.95),
		candidate("INV-3", "TX-3", 0.8),
	}

	ranked := ranker.Rank(candidates)

	require.Len(t, ranked, 3)
	assert.Equal(t, []string{"INV-2"}, ranked[0].InvoiceIDs)
	assert.Equal(t, []string{"INV-3"}, ranked[1].InvoiceIDs)
	assert.Equal(t, []string{"INV-1"}, ranked[2].InvoiceIDs)
}

func TestRankTieBreaks(t *testing.T) {
	ranker := NewSuggestionRanker(DefaultMatchingConfig())

	closer := candidate("INV-A", "TX-1", 0.8)
	closer.Features.AmountMatch = 0.99
	farther := candidate("INV-B", "TX-1", 0.8)
	farther.Features.AmountMatch = 0.90

	ranked := ranker.Rank([]*Candidate{farther, closer})
	require.Len(t, ranked, 2)
	assert.Equal(t, []string{"INV-A"}, ranked[0].InvoiceIDs)

	// Same confidence and amount gap: earlier date wins
	early := candidate("INV-C", "TX-2", 0.8)
	early.DateDeltaDays = 1
	late := candidate("INV-D", "TX-2", 0.8)
	late.DateDeltaDays = 9

	ranked = ranker.Rank([]*Candidate{late, early})
	require.Len(t, ranked, 2)
	assert.Equal(t, []string{"INV-C"}, ranked[0].InvoiceIDs)

	// Fully tied: pair identity gives a total order
	a := candidate("INV-E", "TX-3", 0.8)
	b := candidate("INV-F", "TX-3", 0.8)

	ranked = ranker.Rank([]*Candidate{b, a})
	require.Len(t, ranked, 2)
	assert.Equal(t, []string{"INV-E"}, ranked[0].InvoiceIDs)
}

func TestRankTruncatesToMaxSuggestions(t *testing.T) {
	ranker := NewSuggestionRanker(DefaultMatchingConfig()) // max 20

	candidates := make([]*Candidate, 0, 50)
	for i := 0; i < 50; i++ {
		candidates = append(candidates, candidate(
			fmt.Sprintf("INV-%02d", i), fmt.Sprintf("TX-%02d", i), 0.5+float64(i)*0.009))
	}

	ranked := ranker.Rank(candidates)

	require.Len(t, ranked, 20)
	// Highest confidence first
	assert.Equal(t, []string{"INV-49"}, ranked[0].InvoiceIDs)
}

func TestRankIsDeterministic(t *testing.T) {
	ranker := NewSuggestionRanker(DefaultMatchingConfig())

	build := func() []*Candidate {
		return []*Candidate{
			candidate("INV-3", "TX-3", 0.8),
			candidate("INV-1", "TX-1", 0.8),
			candidate("INV-2", "TX-2", 0.9),
		}
	}

	first := ranker.Rank(build())
	second := ranker.Rank(build())

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].PairKey(), second[i].PairKey())
	}
}

func TestAutoReconcilableFilter(t *testing.T) {
	ranker := NewSuggestionRanker(DefaultMatchingConfig())

	auto := candidate("INV-1", "TX-1", 0.95)
	auto.AutoReconcilable = true
	manual := candidate("INV-2", "TX-2", 0.92)

	eligible := ranker.AutoReconcilable([]*Candidate{manual, auto})

	require.Len(t, eligible, 1)
	assert.Equal(t, []string{"INV-1"}, eligible[0].InvoiceIDs)
}
