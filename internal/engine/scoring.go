package engine

import (
	"fmt"
)

// autoReconcileAmountGate is the minimum amount match for unattended commit.
// A high aggregate score must never authorize an auto-match when the amounts
// plainly disagree.
const autoReconcileAmountGate = 0.95

// Scorer converts a feature vector into a single confidence score. The
// production implementation is the deterministic WeightedScorer; a historical
// or ML model can be substituted without touching the engine's structure.
// Implementations must be deterministic: identical inputs yield identical
// scores.
type Scorer interface {
	Score(features FeatureVector, weights Weights) float64
}

// WeightedScorer computes the weighted sum of the feature vector, clamped to
// [0,1].
type WeightedScorer struct{}

// Score implements Scorer
func (WeightedScorer) Score(features FeatureVector, weights Weights) float64 {
	score := weights.Amount*features.AmountMatch +
		weights.Text*features.TextSimilarity +
		weights.Date*features.DateProximity +
		weights.Pattern*features.PatternScore

	return clamp01(score)
}

// ScoringModel turns raw pairs into fully classified candidates
type ScoringModel struct {
	config *MatchingConfig
	scorer Scorer
}

// NewScoringModel creates a scoring model. A nil scorer defaults to the
// deterministic WeightedScorer.
func NewScoringModel(config *MatchingConfig, scorer Scorer) *ScoringModel {
	if config == nil {
		config = DefaultMatchingConfig()
	}
	if scorer == nil {
		scorer = WeightedScorer{}
	}

	return &ScoringModel{
		config: config,
		scorer: scorer,
	}
}

// Evaluate scores a raw pair and derives its risk classification,
// auto-reconcile eligibility and audit reasons.
func (sm *ScoringModel) Evaluate(pair *RawPair) *Candidate {
	confidence := sm.scorer.Score(pair.Features, sm.config.Weights)

	candidate := &Candidate{
		InvoiceIDs:      []string{pair.Invoice.ID},
		TransactionIDs:  []string{pair.Transaction.ID},
		Features:        pair.Features,
		ConfidenceScore: confidence,
		RiskLevel:       ClassifyRisk(confidence),
		MatchAmount:     pair.MatchAmount,
		DateDeltaDays:   pair.DateDeltaDays,
	}

	candidate.AutoReconcilable = confidence > sm.config.AutoReconcileThreshold &&
		pair.Features.AmountMatch > autoReconcileAmountGate

	candidate.Reasons = sm.buildReasons(pair, confidence)

	return candidate
}

// EvaluateAll scores every raw pair in input order
func (sm *ScoringModel) EvaluateAll(pairs []*RawPair) []*Candidate {
	candidates := make([]*Candidate, 0, len(pairs))
	for _, pair := range pairs {
		candidates = append(candidates, sm.Evaluate(pair))
	}
	return candidates
}

// ClassifyRisk derives the risk level from a confidence score
func ClassifyRisk(confidence float64) RiskLevel {
	switch {
	case confidence > 0.8:
		return RiskLow
	case confidence > 0.6:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// buildReasons generates short factual explanations for audit purposes.
// Reasons never drive control flow.
func (sm *ScoringModel) buildReasons(pair *RawPair, confidence float64) []string {
	var reasons []string
	f := pair.Features

	switch {
	case f.AmountMatch >= 0.999:
		reasons = append(reasons, "exact amount match")
	case f.AmountMatch > 0.9:
		reasons = append(reasons, fmt.Sprintf("amount match %.0f%%", f.AmountMatch*100))
	case f.AmountMatch > 0.0:
		reasons = append(reasons, fmt.Sprintf("amounts differ by %s", pair.Invoice.OpenAmount.Sub(pair.Transaction.RemainingAmount.Abs()).Abs().String()))
	}

	switch {
	case pair.DateDeltaDays == 0:
		reasons = append(reasons, "same day")
	case f.DateProximity > 0.7:
		reasons = append(reasons, "same period")
	case f.DateProximity > 0.0:
		reasons = append(reasons, fmt.Sprintf("%d days apart", pair.DateDeltaDays))
	}

	if f.TextSimilarity > 0.8 {
		reasons = append(reasons, "counterparty name in description")
	} else if f.TextSimilarity > 0.4 {
		reasons = append(reasons, "partial counterparty name match")
	}

	if f.PatternScore > 0.7 {
		reasons = append(reasons, "strong historical pattern")
	}

	if confidence > sm.config.AutoReconcileThreshold && f.AmountMatch <= autoReconcileAmountGate {
		reasons = append(reasons, "auto-reconcile blocked by amount gate")
	}

	return reasons
}
