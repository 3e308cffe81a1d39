package engine

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FeatureVector holds the raw per-pair feature scores computed by the
// candidate generator. Every component is in [0,1].
type FeatureVector struct {
	AmountMatch    float64 `json:"amount_match"`
	TextSimilarity float64 `json:"text_similarity"`
	DateProximity  float64 `json:"date_proximity"`
	PatternScore   float64 `json:"pattern_score"`
}

// Candidate is a scored potential pairing between one or more invoices and
// one or more transactions. Candidates are derived data: they are regenerated
// whenever the source snapshots change, never patched.
type Candidate struct {
	InvoiceIDs     []string `json:"invoice_ids"`
	TransactionIDs []string `json:"transaction_ids"`

	Features         FeatureVector `json:"features"`
	ConfidenceScore  float64       `json:"confidence_score"`
	RiskLevel        RiskLevel     `json:"risk_level"`
	AutoReconcilable bool          `json:"auto_reconcilable"`
	Reasons          []string      `json:"reasons"`

	// MatchAmount is the amount a commit of this candidate would reconcile
	MatchAmount decimal.Decimal `json:"match_amount"`

	// DateDeltaDays is the day distance used for ranking tie-breaks
	DateDeltaDays int `json:"date_delta_days"`
}

// PairKey returns a stable identity for 1:1 candidates, used for ranking
// tie-breaks and deduplication.
func (c *Candidate) PairKey() string {
	return strings.Join(c.InvoiceIDs, "+") + "|" + strings.Join(c.TransactionIDs, "+")
}

// String returns a short human-readable representation of the Candidate
func (c *Candidate) String() string {
	return fmt.Sprintf("Candidate{Invoices: %v, Transactions: %v, Confidence: %.3f, Risk: %s}",
		c.InvoiceIDs, c.TransactionIDs, c.ConfidenceScore, c.RiskLevel)
}
