// Package executor turns committable zones and auto-reconcilable candidates
// into reconciliation commits. Commits are idempotent per invoice and
// transaction pair, fan out with bounded concurrency, and report per-pair
// outcomes so one failed pair never hides its siblings' results.
package executor

import (
	"context"
	"fmt"
	"sync"

	"invoice-reconciliation-engine/internal/models"
	enginerrors "invoice-reconciliation-engine/pkg/errors"

	"github.com/shopspring/decimal"
)

// ReconciliationService applies a single reconciliation link between an
// invoice and a transaction for the given amount. Implementations must treat
// each call as one atomic posting; the executor handles idempotency and
// fan-out on top.
type ReconciliationService interface {
	CommitReconciliation(ctx context.Context, invoiceID, transactionID string, amount decimal.Decimal) error
}

// LedgerService is an in-memory ReconciliationService that tracks residual
// open amounts per invoice and transaction. It backs the CLI and tests; a
// production deployment substitutes a persistence-backed implementation.
type LedgerService struct {
	mu sync.Mutex

	invoiceResiduals     map[string]decimal.Decimal
	transactionResiduals map[string]decimal.Decimal
	committedPairs       map[string]struct{}
}

// NewLedgerService creates a ledger seeded with the open amounts of the
// given snapshot.
func NewLedgerService(invoices []*models.Invoice, transactions []*models.Transaction) *LedgerService {
	ls := &LedgerService{
		invoiceResiduals:     make(map[string]decimal.Decimal),
		transactionResiduals: make(map[string]decimal.Decimal),
		committedPairs:       make(map[string]struct{}),
	}

	for _, inv := range invoices {
		if inv != nil {
			ls.invoiceResiduals[inv.ID] = inv.OpenAmount
		}
	}
	for _, tx := range transactions {
		if tx != nil {
			ls.transactionResiduals[tx.ID] = tx.RemainingAmount.Abs()
		}
	}
	return ls
}

// CommitReconciliation posts one reconciliation link, reducing both
// residuals by the amount. A pair is posted at most once; a repeated call
// for the same pair reports the already-reconciled conflict instead of
// posting again. Unknown entities and over-allocations are rejected without
// mutating the ledger.
func (ls *LedgerService) CommitReconciliation(ctx context.Context, invoiceID, transactionID string, amount decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return enginerrors.CommitError(invoiceID, transactionID, "context canceled", err)
	}

	if amount.LessThanOrEqual(decimal.Zero) {
		return enginerrors.New(enginerrors.CategoryCommit, enginerrors.CodeCommitRejected,
			fmt.Sprintf("commit amount must be positive, got %s", amount.String()))
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if _, done := ls.committedPairs[pairKey(invoiceID, transactionID)]; done {
		return enginerrors.ConflictError(enginerrors.CodeAlreadyReconciled, "pair",
			pairKey(invoiceID, transactionID), "pair was committed previously")
	}

	invResidual, ok := ls.invoiceResiduals[invoiceID]
	if !ok {
		return enginerrors.ConflictError(enginerrors.CodeItemStale, "invoice", invoiceID, "unknown to ledger")
	}
	txResidual, ok := ls.transactionResiduals[transactionID]
	if !ok {
		return enginerrors.ConflictError(enginerrors.CodeItemStale, "transaction", transactionID, "unknown to ledger")
	}

	if invResidual.IsZero() {
		return enginerrors.ConflictError(enginerrors.CodeAlreadyReconciled, "invoice", invoiceID, "no open amount remains")
	}
	if txResidual.IsZero() {
		return enginerrors.ConflictError(enginerrors.CodeAlreadyReconciled, "transaction", transactionID, "no remaining amount")
	}

	if amount.GreaterThan(invResidual) {
		return enginerrors.New(enginerrors.CategoryCommit, enginerrors.CodeCommitRejected,
			fmt.Sprintf("amount %s exceeds invoice %s residual %s", amount.String(), invoiceID, invResidual.String()))
	}
	if amount.GreaterThan(txResidual) {
		return enginerrors.New(enginerrors.CategoryCommit, enginerrors.CodeCommitRejected,
			fmt.Sprintf("amount %s exceeds transaction %s residual %s", amount.String(), transactionID, txResidual.String()))
	}

	ls.invoiceResiduals[invoiceID] = invResidual.Sub(amount)
	ls.transactionResiduals[transactionID] = txResidual.Sub(amount)
	ls.committedPairs[pairKey(invoiceID, transactionID)] = struct{}{}
	return nil
}

// InvoiceResidual returns the remaining open amount for an invoice
func (ls *LedgerService) InvoiceResidual(invoiceID string) (decimal.Decimal, bool) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	residual, ok := ls.invoiceResiduals[invoiceID]
	return residual, ok
}

// TransactionResidual returns the remaining unreconciled amount for a
// transaction
func (ls *LedgerService) TransactionResidual(transactionID string) (decimal.Decimal, bool) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	residual, ok := ls.transactionResiduals[transactionID]
	return residual, ok
}

// DryRunService accepts every commit without side effects. It lets the CLI
// preview what an auto-reconcile batch would do.
type DryRunService struct{}

// CommitReconciliation implements ReconciliationService as a no-op
func (DryRunService) CommitReconciliation(ctx context.Context, invoiceID, transactionID string, amount decimal.Decimal) error {
	return ctx.Err()
}
