package engine

import (
	"math"

	enginerrors "invoice-reconciliation-engine/pkg/errors"
	"invoice-reconciliation-engine/pkg/logger"

	"invoice-reconciliation-engine/internal/models"

	"github.com/shopspring/decimal"
)

// amountEpsilon guards the amount-match denominator against zero residuals
var amountEpsilon = decimal.New(1, -2) // 0.01

// defaultPatternScore is the documented fallback when no historical pattern
// provider is available or a lookup fails.
const defaultPatternScore = 0.5

// PatternScoreProvider supplies a historical-success-rate score for an
// invoice/transaction pairing. Implementations may consult committed
// reconciliation history or a trained model; the engine only requires the
// result to be in [0,1].
type PatternScoreProvider interface {
	PatternScore(inv *models.Invoice, tx *models.Transaction) (float64, error)
}

// ConstantPatternProvider returns a fixed score for every pairing. It is the
// default provider when no history is available.
type ConstantPatternProvider struct {
	Score float64
}

// PatternScore implements PatternScoreProvider
func (p ConstantPatternProvider) PatternScore(*models.Invoice, *models.Transaction) (float64, error) {
	return p.Score, nil
}

// RawPair is an unscored invoice/transaction pairing with its computed
// feature vector. The scoring model turns raw pairs into candidates.
type RawPair struct {
	Invoice     *models.Invoice
	Transaction *models.Transaction

	Features      FeatureVector
	DateDeltaDays int

	// MatchAmount is the amount a commit of this pair would reconcile:
	// the smaller of the invoice residual and the transaction residual.
	MatchAmount decimal.Decimal
}

// CandidateGenerator produces raw feature vectors for viable
// invoice/transaction pairs. It is pure over its inputs and configuration;
// malformed records are skipped and logged without failing the pass.
type CandidateGenerator struct {
	config   *MatchingConfig
	patterns PatternScoreProvider
	log      logger.Logger
}

// NewCandidateGenerator creates a generator with the given configuration and
// pattern provider. A nil provider falls back to the constant default score.
func NewCandidateGenerator(config *MatchingConfig, patterns PatternScoreProvider) *CandidateGenerator {
	if config == nil {
		config = DefaultMatchingConfig()
	}
	if patterns == nil {
		patterns = ConstantPatternProvider{Score: defaultPatternScore}
	}

	return &CandidateGenerator{
		config:   config,
		patterns: patterns,
		log:      logger.WithComponent("generator"),
	}
}

// Exclusions names snapshot items to leave out of a generation pass,
// typically because they were committed since the snapshot was taken.
type Exclusions struct {
	InvoiceIDs     map[string]struct{}
	TransactionIDs map[string]struct{}
}

// NewExclusions returns an empty exclusion set
func NewExclusions() *Exclusions {
	return &Exclusions{
		InvoiceIDs:     make(map[string]struct{}),
		TransactionIDs: make(map[string]struct{}),
	}
}

// ExcludeInvoice marks an invoice as stale for future generation passes
func (e *Exclusions) ExcludeInvoice(id string) {
	e.InvoiceIDs[id] = struct{}{}
}

// ExcludeTransaction marks a transaction as stale for future generation
// passes
func (e *Exclusions) ExcludeTransaction(id string) {
	e.TransactionIDs[id] = struct{}{}
}

func (e *Exclusions) excludesInvoice(id string) bool {
	if e == nil {
		return false
	}
	_, ok := e.InvoiceIDs[id]
	return ok
}

func (e *Exclusions) excludesTransaction(id string) bool {
	if e == nil {
		return false
	}
	_, ok := e.TransactionIDs[id]
	return ok
}

// Generate enumerates viable invoice/transaction pairs and computes their
// feature vectors. Pairs are pruned before feature computation when the
// signs are direction-incompatible or the date delta exceeds the configured
// window. The returned slice is ordered by input order and is deterministic
// for identical inputs.
func (cg *CandidateGenerator) Generate(
	invoices []*models.Invoice,
	transactions []*models.Transaction,
	exclude *Exclusions,
) []*RawPair {

	validInvoices := cg.validateInvoices(invoices, exclude)
	txIndex := NewTransactionIndex(cg.validateTransactions(transactions, exclude))

	var pairs []*RawPair
	for _, inv := range validInvoices {
		if !inv.IsOpen() {
			continue
		}

		for _, tx := range txIndex.CandidatesFor(inv, cg.config) {
			pairs = append(pairs, cg.buildPair(inv, tx))
		}
	}

	return pairs
}

// validateInvoices drops malformed invoice records with a logged
// ValidationError, per the skip-and-log recovery policy.
func (cg *CandidateGenerator) validateInvoices(invoices []*models.Invoice, exclude *Exclusions) []*models.Invoice {
	valid := make([]*models.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if inv == nil {
			continue
		}
		if exclude.excludesInvoice(inv.ID) {
			continue
		}
		if err := inv.Validate(); err != nil {
			verr := enginerrors.ValidationError("invoice", inv.ID, err)
			cg.log.WithError(verr).Warnf("skipping invalid invoice %s", inv.ID)
			continue
		}
		valid = append(valid, inv)
	}
	return valid
}

// validateTransactions drops malformed transaction records with a logged
// ValidationError.
func (cg *CandidateGenerator) validateTransactions(transactions []*models.Transaction, exclude *Exclusions) []*models.Transaction {
	valid := make([]*models.Transaction, 0, len(transactions))
	for _, tx := range transactions {
		if tx == nil {
			continue
		}
		if exclude.excludesTransaction(tx.ID) {
			continue
		}
		if err := tx.Validate(); err != nil {
			verr := enginerrors.ValidationError("transaction", tx.ID, err)
			cg.log.WithError(verr).Warnf("skipping invalid transaction %s", tx.ID)
			continue
		}
		valid = append(valid, tx)
	}
	return valid
}

// buildPair computes the full feature vector for one surviving pair
func (cg *CandidateGenerator) buildPair(inv *models.Invoice, tx *models.Transaction) *RawPair {
	pair := &RawPair{
		Invoice:       inv,
		Transaction:   tx,
		DateDeltaDays: models.DaysBetween(inv.EffectiveDate(), tx.TransactionDate),
		MatchAmount:   decimal.Min(inv.OpenAmount, tx.RemainingAmount),
	}

	pair.Features = FeatureVector{
		AmountMatch:    cg.amountMatch(inv, tx),
		TextSimilarity: TextSimilarity(inv.CounterpartyName, tx.Description),
		DateProximity:  cg.dateProximity(pair.DateDeltaDays),
		PatternScore:   cg.patternScore(inv, tx),
	}

	return pair
}

// amountMatch scores how closely the open residuals agree:
// 1 - |invOpen - txRemaining| / max(invOpen, txRemaining, epsilon)
func (cg *CandidateGenerator) amountMatch(inv *models.Invoice, tx *models.Transaction) float64 {
	invOpen := inv.OpenAmount
	txRemaining := tx.RemainingAmount.Abs()

	denominator := decimal.Max(invOpen, txRemaining, amountEpsilon)
	diff := invOpen.Sub(txRemaining).Abs()

	score := 1.0 - diff.Div(denominator).InexactFloat64()
	return clamp01(score)
}

// dateProximity decays linearly with the day distance, reaching zero at the
// configured horizon.
func (cg *CandidateGenerator) dateProximity(deltaDays int) float64 {
	horizon := cg.config.DateHorizonDays
	if deltaDays >= horizon {
		return 0.0
	}
	return clamp01(1.0 - float64(deltaDays)/float64(horizon))
}

// patternScore consults the pluggable provider, falling back to the
// documented default when the lookup fails or reports an out-of-range value.
func (cg *CandidateGenerator) patternScore(inv *models.Invoice, tx *models.Transaction) float64 {
	score, err := cg.patterns.PatternScore(inv, tx)
	if err != nil {
		serr := enginerrors.ScoringError("pattern_score", err)
		cg.log.WithError(serr).Debugf("pattern lookup failed for invoice %s, using default", inv.ID)
		return defaultPatternScore
	}

	if math.IsNaN(score) || score < 0.0 || score > 1.0 {
		return defaultPatternScore
	}

	return score
}

func clamp01(v float64) float64 {
	return math.Max(0.0, math.Min(1.0, v))
}
