package engine

import (
	"testing"

	"invoice-reconciliation-engine/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindCombinationsTwoInvoices(t *testing.T) {
	finder := NewCombinationFinder(DefaultMatchingConfig())

	invoices := []*models.Invoice{
		testInvoice("INV-A", models.DirectionReceivable, 100.00, "2026-01-10"),
		testInvoice("INV-B", models.DirectionReceivable, 200.00, "2026-01-12"),
		testInvoice("INV-BIG", models.DirectionReceivable, 5000.00, "2026-01-12"),
	}
	tx := testTransaction("TX-1", 300.00, "2026-01-20")

	found := finder.FindCombinations(tx, NewInvoiceIndex(invoices))

	require.Len(t, found, 1)
	assert.Equal(t, []string{"INV-A", "INV-B"}, found[0].InvoiceIDs)
	assert.Equal(t, []string{"TX-1"}, found[0].TransactionIDs)
	assert.GreaterOrEqual(t, found[0].ConfidenceScore, combinationBaseConfidence)
	assert.True(t, found[0].MatchAmount.Equal(decimal.NewFromInt(300)))
}

func TestFindCombinationsWithinTolerance(t *testing.T) {
	finder := NewCombinationFinder(DefaultMatchingConfig()) // tolerance 1.00

	invoices := []*models.Invoice{
		testInvoice("INV-A", models.DirectionReceivable, 100.00, "2026-01-10"),
		testInvoice("INV-B", models.DirectionReceivable, 199.50, "2026-01-12"),
	}
	tx := testTransaction("TX-1", 300.00, "2026-01-20")

	found := finder.FindCombinations(tx, NewInvoiceIndex(invoices))

	require.Len(t, found, 1)
	// Near miss scores below a perfect sum
	assert.Less(t, found[0].Features.AmountMatch, 1.0)
}

func TestFindCombinationsRespectsDirection(t *testing.T) {
	finder := NewCombinationFinder(DefaultMatchingConfig())

	invoices := []*models.Invoice{
		testInvoice("INV-A", models.DirectionPayable, 100.00, "2026-01-10"),
		testInvoice("INV-B", models.DirectionPayable, 200.00, "2026-01-12"),
	}

	// Payable invoices cannot be settled by an inflow
	inflow := testTransaction("TX-IN", 300.00, "2026-01-20")
	assert.Empty(t, finder.FindCombinations(inflow, NewInvoiceIndex(invoices)))

	outflow := testTransaction("TX-OUT", -300.00, "2026-01-20")
	found := finder.FindCombinations(outflow, NewInvoiceIndex(invoices))
	require.Len(t, found, 1)
	assert.Equal(t, []string{"INV-A", "INV-B"}, found[0].InvoiceIDs)
}

func TestFindCombinationsNoMatch(t *testing.T) {
	finder := NewCombinationFinder(DefaultMatchingConfig())

	invoices := []*models.Invoice{
		testInvoice("INV-A", models.DirectionReceivable, 100.00, "2026-01-10"),
		testInvoice("INV-B", models.DirectionReceivable, 120.00, "2026-01-12"),
	}
	tx := testTransaction("TX-1", 300.00, "2026-01-20")

	assert.Empty(t, finder.FindCombinations(tx, NewInvoiceIndex(invoices)))
}

func TestFindCombinationsSkipsSettledTransaction(t *testing.T) {
	finder := NewCombinationFinder(DefaultMatchingConfig())

	invoices := []*models.Invoice{
		testInvoice("INV-A", models.DirectionReceivable, 100.00, "2026-01-10"),
		testInvoice("INV-B", models.DirectionReceivable, 200.00, "2026-01-12"),
	}
	tx := testTransaction("TX-1", 300.00, "2026-01-20")
	tx.ReconciliationStatus = models.ReconciliationStatusReconciled

	assert.Empty(t, finder.FindCombinations(tx, NewInvoiceIndex(invoices)))
}

func TestFindCombinationsTinyResidual(t *testing.T) {
	finder := NewCombinationFinder(DefaultMatchingConfig()) // tolerance 1.00

	invoices := []*models.Invoice{
		testInvoice("INV-A", models.DirectionReceivable, 0.20, "2026-01-10"),
		testInvoice("INV-B", models.DirectionReceivable, 0.20, "2026-01-12"),
	}
	tx := testTransaction("TX-1", 0.40, "2026-01-20")

	// Residuals inside half the tolerance are noise, not match targets
	assert.Empty(t, finder.FindCombinations(tx, NewInvoiceIndex(invoices)))
}

func TestFindCombinationsSequenceReason(t *testing.T) {
	finder := NewCombinationFinder(DefaultMatchingConfig())

	invA := testInvoice("INV-A", models.DirectionReceivable, 100.00, "2026-01-10")
	invA.DocNumber = "2026/41"
	invB := testInvoice("INV-B", models.DirectionReceivable, 200.00, "2026-01-11")
	invB.DocNumber = "2026/42"

	tx := testTransaction("TX-1", 300.00, "2026-01-20")

	found := finder.FindCombinations(tx, NewInvoiceIndex([]*models.Invoice{invA, invB}))

	require.Len(t, found, 1)
	assert.Contains(t, found[0].Reasons, "consecutive document numbers")
	assert.Contains(t, found[0].Reasons, "invoices issued in the same period")
}

func TestSequenceScore(t *testing.T) {
	makeInvoices := func(docNumbers ...string) []*models.Invoice {
		out := make([]*models.Invoice, 0, len(docNumbers))
		for i, dn := range docNumbers {
			inv := testInvoice(string(rune('A'+i)), models.DirectionReceivable, 100, "2026-01-10")
			inv.DocNumber = dn
			out = append(out, inv)
		}
		return out
	}

	assert.InDelta(t, 1.0, sequenceScore(makeInvoices("FT/10", "FT/11", "FT/12")), 0.001)
	assert.InDelta(t, 3.0/11.0, sequenceScore(makeInvoices("FT/10", "FT/15", "FT/20")), 0.001)
	assert.InDelta(t, 0.5, sequenceScore(makeInvoices("no-digits", "also-none")), 0.001)
}
