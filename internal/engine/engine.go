package engine

import (
	"invoice-reconciliation-engine/internal/models"
)

// MatchingEngine chains candidate generation, scoring and ranking into one
// deterministic pass over invoice and transaction snapshots.
type MatchingEngine struct {
	config       *MatchingConfig
	generator    *CandidateGenerator
	scoring      *ScoringModel
	ranker       *SuggestionRanker
	combinations *CombinationFinder
}

// NewMatchingEngine creates an engine with the specified configuration.
// A nil pattern provider falls back to the constant default; a nil scorer
// falls back to the weighted production scorer.
func NewMatchingEngine(config *MatchingConfig, patterns PatternScoreProvider, scorer Scorer) *MatchingEngine {
	if config == nil {
		config = DefaultMatchingConfig()
	}

	return &MatchingEngine{
		config:       config,
		generator:    NewCandidateGenerator(config, patterns),
		scoring:      NewScoringModel(config, scorer),
		ranker:       NewSuggestionRanker(config),
		combinations: NewCombinationFinder(config),
	}
}

// Suggest runs the full pipeline and returns the ranked, size-bounded
// suggestion list for the given snapshots.
func (me *MatchingEngine) Suggest(
	invoices []*models.Invoice,
	transactions []*models.Transaction,
	exclude *Exclusions,
) []*Candidate {

	pairs := me.generator.Generate(invoices, transactions, exclude)
	candidates := me.scoring.EvaluateAll(pairs)
	return me.ranker.Rank(candidates)
}

// AutoReconcilable returns the ranked candidates eligible for unattended
// commit.
func (me *MatchingEngine) AutoReconcilable(
	invoices []*models.Invoice,
	transactions []*models.Transaction,
	exclude *Exclusions,
) []*Candidate {

	pairs := me.generator.Generate(invoices, transactions, exclude)
	candidates := me.scoring.EvaluateAll(pairs)
	return me.ranker.AutoReconcilable(candidates)
}

// SuggestCombinations returns N:1 candidates pairing the transaction with
// groups of invoices whose residuals sum to its remaining amount.
func (me *MatchingEngine) SuggestCombinations(
	tx *models.Transaction,
	invoices []*models.Invoice,
) []*Candidate {

	return me.combinations.FindCombinations(tx, NewInvoiceIndex(invoices))
}

// Config returns a copy of the engine configuration
func (me *MatchingEngine) Config() *MatchingConfig {
	return me.config.Clone()
}
