package engine

import (
	"fmt"
	"testing"
	"time"

	"invoice-reconciliation-engine/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func testInvoice(id string, direction models.InvoiceDirection, open float64, issue string) *models.Invoice {
	amount := decimal.NewFromFloat(open)
	inv := models.NewInvoice(id, "Acme Logistics", direction, amount, date(issue))
	return inv
}

func testTransaction(id string, amount float64, txDate string) *models.Transaction {
	return models.NewTransaction(id, "Bank transfer Acme Logistics", decimal.NewFromFloat(amount), date(txDate))
}

func TestGeneratePairsReceivableWithInflow(t *testing.T) {
	gen := NewCandidateGenerator(DefaultMatchingConfig(), nil)

	invoices := []*models.Invoice{testInvoice("INV-1", models.DirectionReceivable, 500, "2026-01-10")}
	transactions := []*models.Transaction{
		testTransaction("TX-IN", 500, "2026-01-12"),
		testTransaction("TX-OUT", -500, "2026-01-12"),
	}

	pairs := gen.Generate(invoices, transactions, nil)

	require.Len(t, pairs, 1)
	assert.Equal(t, "TX-IN", pairs[0].Transaction.ID)
}

func TestGeneratePairsPayableWithOutflow(t *testing.T) {
	gen := NewCandidateGenerator(DefaultMatchingConfig(), nil)

	invoices := []*models.Invoice{testInvoice("INV-1", models.DirectionPayable, 500, "2026-01-10")}
	transactions := []*models.Transaction{
		testTransaction("TX-IN", 500, "2026-01-12"),
		testTransaction("TX-OUT", -500, "2026-01-12"),
	}

	pairs := gen.Generate(invoices, transactions, nil)

	require.Len(t, pairs, 1)
	assert.Equal(t, "TX-OUT", pairs[0].Transaction.ID)
}

func TestGenerateWithoutDirectionMatching(t *testing.T) {
	cfg := DefaultMatchingConfig()
	cfg.EnableDirectionMatching = false
	gen := NewCandidateGenerator(cfg, nil)

	invoices := []*models.Invoice{testInvoice("INV-1", models.DirectionReceivable, 500, "2026-01-10")}
	transactions := []*models.Transaction{
		testTransaction("TX-IN", 500, "2026-01-12"),
		testTransaction("TX-OUT", -500, "2026-01-12"),
	}

	pairs := gen.Generate(invoices, transactions, nil)
	assert.Len(t, pairs, 2)
}

func TestGenerateDateWindowPruning(t *testing.T) {
	cfg := DefaultMatchingConfig()
	cfg.DateWindowDays = 10
	gen := NewCandidateGenerator(cfg, nil)

	invoices := []*models.Invoice{testInvoice("INV-1", models.DirectionReceivable, 500, "2026-01-10")}
	transactions := []*models.Transaction{
		testTransaction("TX-NEAR", 500, "2026-01-15"),
		testTransaction("TX-FAR", 500, "2026-03-15"),
	}

	pairs := gen.Generate(invoices, transactions, nil)

	require.Len(t, pairs, 1)
	assert.Equal(t, "TX-NEAR", pairs[0].Transaction.ID)
}

func TestGenerateSkipsInvalidRecords(t *testing.T) {
	gen := NewCandidateGenerator(DefaultMatchingConfig(), nil)

	badInvoice := testInvoice("INV-BAD", models.DirectionReceivable, 500, "2026-01-10")
	badInvoice.CounterpartyName = ""

	badTransaction := testTransaction("TX-BAD", 500, "2026-01-12")
	badTransaction.RemainingAmount = decimal.NewFromInt(9999)

	invoices := []*models.Invoice{
		badInvoice,
		nil,
		testInvoice("INV-OK", models.DirectionReceivable, 500, "2026-01-10"),
	}
	transactions := []*models.Transaction{
		badTransaction,
		testTransaction("TX-OK", 500, "2026-01-12"),
	}

	pairs := gen.Generate(invoices, transactions, nil)

	require.Len(t, pairs, 1)
	assert.Equal(t, "INV-OK", pairs[0].Invoice.ID)
	assert.Equal(t, "TX-OK", pairs[0].Transaction.ID)
}

func TestGenerateHonorsExclusions(t *testing.T) {
	gen := NewCandidateGenerator(DefaultMatchingConfig(), nil)

	invoices := []*models.Invoice{
		testInvoice("INV-1", models.DirectionReceivable, 500, "2026-01-10"),
		testInvoice("INV-2", models.DirectionReceivable, 500, "2026-01-10"),
	}
	transactions := []*models.Transaction{testTransaction("TX-1", 500, "2026-01-12")}

	exclude := NewExclusions()
	exclude.ExcludeInvoice("INV-1")

	pairs := gen.Generate(invoices, transactions, exclude)

	require.Len(t, pairs, 1)
	assert.Equal(t, "INV-2", pairs[0].Invoice.ID)
}

func TestAmountMatchFormula(t *testing.T) {
	gen := NewCandidateGenerator(DefaultMatchingConfig(), nil)

	tests := []struct {
		name        string
		invoiceOpen float64
		txRemaining float64
		want        float64
	}{
		{"exact", 500.00, 500.00, 1.0},
		{"ninety percent", 450.00, 500.00, 0.9},
		{"half", 250.00, 500.00, 0.5},
		{"way off", 10.00, 500.00, 0.02},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := testInvoice("INV-1", models.DirectionReceivable, tt.invoiceOpen, "2026-01-10")
			tx := testTransaction("TX-1", tt.txRemaining, "2026-01-10")

			got := gen.amountMatch(inv, tx)
			assert.InDelta(t, tt.want, got, 0.0001)
		})
	}
}

func TestAmountMatchNegativeTransaction(t *testing.T) {
	gen := NewCandidateGenerator(DefaultMatchingConfig(), nil)

	// The sign of the transaction never affects the amount comparison
	inv := testInvoice("INV-1", models.DirectionPayable, 500.00, "2026-01-10")
	tx := testTransaction("TX-1", -500.00, "2026-01-10")

	assert.InDelta(t, 1.0, gen.amountMatch(inv, tx), 0.0001)
}

func TestDateProximityDecay(t *testing.T) {
	gen := NewCandidateGenerator(DefaultMatchingConfig(), nil) // 30-day horizon

	tests := []struct {
		deltaDays int
		want      float64
	}{
		{0, 1.0},
		{15, 0.5},
		{29, 1.0 - 29.0/30.0},
		{30, 0.0},
		{300, 0.0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("delta_%d", tt.deltaDays), func(t *testing.T) {
			assert.InDelta(t, tt.want, gen.dateProximity(tt.deltaDays), 0.0001)
		})
	}
}

type failingPatternProvider struct{}

func (failingPatternProvider) PatternScore(*models.Invoice, *models.Transaction) (float64, error) {
	return 0, fmt.Errorf("history store unavailable")
}

type outOfRangePatternProvider struct{}

func (outOfRangePatternProvider) PatternScore(*models.Invoice, *models.Transaction) (float64, error) {
	return 7.5, nil
}

func TestPatternScoreFallsBackToDefault(t *testing.T) {
	inv := testInvoice("INV-1", models.DirectionReceivable, 500, "2026-01-10")
	tx := testTransaction("TX-1", 500, "2026-01-12")

	failing := NewCandidateGenerator(DefaultMatchingConfig(), failingPatternProvider{})
	assert.Equal(t, defaultPatternScore, failing.patternScore(inv, tx))

	outOfRange := NewCandidateGenerator(DefaultMatchingConfig(), outOfRangePatternProvider{})
	assert.Equal(t, defaultPatternScore, outOfRange.patternScore(inv, tx))

	constant := NewCandidateGenerator(DefaultMatchingConfig(), ConstantPatternProvider{Score: 0.85})
	assert.Equal(t, 0.85, constant.patternScore(inv, tx))
}

func TestGeneratedFeaturesAreNormalized(t *testing.T) {
	gen := NewCandidateGenerator(DefaultMatchingConfig(), nil)

	invoices := []*models.Invoice{
		testInvoice("INV-1", models.DirectionReceivable, 123.45, "2026-01-01"),
		testInvoice("INV-2", models.DirectionReceivable, 99999.99, "2025-06-01"),
	}
	transactions := []*models.Transaction{
		testTransaction("TX-1", 123.45, "2026-01-05"),
		testTransaction("TX-2", 0.01, "2026-02-28"),
	}

	for _, pair := range gen.Generate(invoices, transactions, nil) {
		for name, score := range map[string]float64{
			"amount":  pair.Features.AmountMatch,
			"text":    pair.Features.TextSimilarity,
			"date":    pair.Features.DateProximity,
			"pattern": pair.Features.PatternScore,
		} {
			assert.GreaterOrEqual(t, score, 0.0, "%s for %s/%s", name, pair.Invoice.ID, pair.Transaction.ID)
			assert.LessOrEqual(t, score, 1.0, "%s for %s/%s", name, pair.Invoice.ID, pair.Transaction.ID)
		}
	}
}
