package engine

import (
	"sort"
	"time"

	"invoice-reconciliation-engine/internal/models"
)

// InvoiceIndex provides indexed access to open invoices for candidate
// generation and combination search.
type InvoiceIndex struct {
	// ByID maps invoice IDs to invoices
	ByID map[string]*models.Invoice

	// ByDirection groups invoices by commercial direction
	ByDirection map[models.InvoiceDirection][]*models.Invoice

	// OpenSorted holds open invoices sorted ascending by open amount,
	// which the combination search relies on for bounds pruning
	OpenSorted []*models.Invoice

	// All holds every indexed invoice in input order
	All []*models.Invoice
}

// NewInvoiceIndex creates a new invoice index from a slice of invoices.
// Settled invoices are indexed by ID but excluded from matching lookups.
func NewInvoiceIndex(invoices []*models.Invoice) *InvoiceIndex {
	index := &InvoiceIndex{
		ByID:        make(map[string]*models.Invoice, len(invoices)),
		ByDirection: make(map[models.InvoiceDirection][]*models.Invoice),
		All:         invoices,
	}

	for _, inv := range invoices {
		index.ByID[inv.ID] = inv

		if !inv.IsOpen() {
			continue
		}

		index.ByDirection[inv.Direction] = append(index.ByDirection[inv.Direction], inv)
		index.OpenSorted = append(index.OpenSorted, inv)
	}

	sort.Slice(index.OpenSorted, func(i, j int) bool {
		if !index.OpenSorted[i].OpenAmount.Equal(index.OpenSorted[j].OpenAmount) {
			return index.OpenSorted[i].OpenAmount.LessThan(index.OpenSorted[j].OpenAmount)
		}
		return index.OpenSorted[i].ID < index.OpenSorted[j].ID
	})

	return index
}

// OpenByCounterparty returns open invoices whose counterparty name has a
// minimum token similarity with the given text.
func (ii *InvoiceIndex) OpenByCounterparty(text string, minSimilarity float64) []*models.Invoice {
	var matched []*models.Invoice
	for _, inv := range ii.OpenSorted {
		if TextSimilarity(inv.CounterpartyName, text) >= minSimilarity {
			matched = append(matched, inv)
		}
	}
	return matched
}

// TransactionIndex provides indexed access to open transactions
type TransactionIndex struct {
	// ByID maps transaction IDs to transactions
	ByID map[string]*models.Transaction

	// Inflows and Outflows hold open transactions split by sign
	Inflows  []*models.Transaction
	Outflows []*models.Transaction

	// All holds every indexed transaction in input order
	All []*models.Transaction
}

// NewTransactionIndex creates a new transaction index from a slice of
// transactions. Settled transactions are indexed by ID only.
func NewTransactionIndex(transactions []*models.Transaction) *TransactionIndex {
	index := &TransactionIndex{
		ByID: make(map[string]*models.Transaction, len(transactions)),
		All:  transactions,
	}

	for _, tx := range transactions {
		index.ByID[tx.ID] = tx

		if !tx.IsOpen() {
			continue
		}

		if tx.IsInflow() {
			index.Inflows = append(index.Inflows, tx)
		} else {
			index.Outflows = append(index.Outflows, tx)
		}
	}

	return index
}

// CandidatesFor returns the open transactions sign-compatible with the
// invoice under the given configuration, applying the optional date window.
// With direction matching disabled every open transaction qualifies.
func (ti *TransactionIndex) CandidatesFor(inv *models.Invoice, config *MatchingConfig) []*models.Transaction {
	var pool []*models.Transaction

	if !config.EnableDirectionMatching {
		pool = append(pool, ti.Inflows...)
		pool = append(pool, ti.Outflows...)
	} else if inv.Direction == models.DirectionReceivable {
		pool = ti.Inflows
	} else {
		pool = ti.Outflows
	}

	if config.DateWindowDays <= 0 {
		return pool
	}

	return filterByDateWindow(pool, inv.EffectiveDate(), config.DateWindowDays)
}

func filterByDateWindow(transactions []*models.Transaction, pivot time.Time, windowDays int) []*models.Transaction {
	filtered := make([]*models.Transaction, 0, len(transactions))
	for _, tx := range transactions {
		if models.DaysBetween(pivot, tx.TransactionDate) <= windowDays {
			filtered = append(filtered, tx)
		}
	}
	return filtered
}
