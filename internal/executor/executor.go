package executor

import (
	"context"
	"sort"
	"sync"

	"invoice-reconciliation-engine/internal/engine"
	"invoice-reconciliation-engine/internal/models"
	"invoice-reconciliation-engine/internal/workspace"
	enginerrors "invoice-reconciliation-engine/pkg/errors"
	"invoice-reconciliation-engine/pkg/logger"

	"github.com/shopspring/decimal"
)

// defaultMaxConcurrency bounds the commit fan-out when the caller does not
// specify a limit
const defaultMaxConcurrency = 4

// CommitStatus classifies the outcome of one commit attempt
type CommitStatus string

const (
	// StatusSuccess means the reconciliation link was applied
	StatusSuccess CommitStatus = "success"
	// StatusAlreadyReconciled means the same pair was committed before;
	// the repeat is acknowledged without a second posting
	StatusAlreadyReconciled CommitStatus = "already_reconciled"
	// StatusFailure means the service rejected or failed the commit
	StatusFailure CommitStatus = "failure"
)

// CommitResult reports the outcome of committing one invoice/transaction
// pair
type CommitResult struct {
	InvoiceID     string          `json:"invoice_id"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Status        CommitStatus    `json:"status"`
	Reason        string          `json:"reason,omitempty"`
}

// pairKey identifies a commit for idempotency tracking
func pairKey(invoiceID, transactionID string) string {
	return invoiceID + "|" + transactionID
}

// ZoneCommitResult aggregates the per-pair outcomes of a zone commit
type ZoneCommitResult struct {
	ZoneID            string          `json:"zone_id"`
	Results           []*CommitResult `json:"results"`
	Succeeded         int             `json:"succeeded"`
	Failed            int             `json:"failed"`
	AlreadyReconciled int             `json:"already_reconciled"`
	Cleared           bool            `json:"cleared"`
}

// BatchResult aggregates the outcomes of an auto-reconcile batch
type BatchResult struct {
	Results           []*CommitResult `json:"results"`
	Succeeded         int             `json:"succeeded"`
	Failed            int             `json:"failed"`
	AlreadyReconciled int             `json:"already_reconciled"`
}

// commitPair is one planned allocation between an invoice and a transaction
type commitPair struct {
	invoiceID     string
	transactionID string
	amount        decimal.Decimal
}

// CommitExecutor drives reconciliation commits against a service. It keeps
// an idempotency ledger of applied pairs, fans out independent pairs with
// bounded concurrency, and records committed entities as stale so later
// suggestion passes exclude them.
type CommitExecutor struct {
	service        ReconciliationService
	maxConcurrency int

	mu      sync.Mutex
	applied map[string]*CommitResult
	stale   *engine.Exclusions

	log logger.Logger
}

// NewCommitExecutor creates an executor over the given service.
// maxConcurrency bounds the number of in-flight commits; values below one
// fall back to the default.
func NewCommitExecutor(service ReconciliationService, maxConcurrency int) *CommitExecutor {
	if maxConcurrency < 1 {
		maxConcurrency = defaultMaxConcurrency
	}

	return &CommitExecutor{
		service:        service,
		maxConcurrency: maxConcurrency,
		applied:        make(map[string]*CommitResult),
		stale:          engine.NewExclusions(),
		log:            logger.GetGlobalLogger().WithComponent("executor"),
	}
}

// StaleEntities returns the invoices and transactions committed through this
// executor, for exclusion from subsequent suggestion passes.
func (ce *CommitExecutor) StaleEntities() *engine.Exclusions {
	ce.mu.Lock()
	defer ce.mu.Unlock()

	out := engine.NewExclusions()
	for id := range ce.stale.InvoiceIDs {
		out.ExcludeInvoice(id)
	}
	for id := range ce.stale.TransactionIDs {
		out.ExcludeTransaction(id)
	}
	return out
}

// CommitZone commits a committable zone. The zone's invoices and
// transactions are decomposed into pair allocations, each pair is committed
// independently, and per-pair results are returned even when some pairs
// fail. The zone is cleared only when every pair succeeded. Cancelling the
// context stops dispatching new pairs; pairs already in flight run to
// completion and report their real outcome.
func (ce *CommitExecutor) CommitZone(ctx context.Context, ws *workspace.Workspace, zoneID string) (*ZoneCommitResult, error) {
	op := logger.NewOperationLogger("zone_commit", ce.log).WithField("zone_id", zoneID)

	if ok, reason := ws.Committable(zoneID); !ok {
		err := enginerrors.ConflictError(enginerrors.CodeZoneNotCommittable, "zone", zoneID, reason)
		op.Failure(err, "Zone is not committable")
		return nil, err
	}

	zone, err := ws.Zone(zoneID)
	if err != nil {
		return nil, err
	}

	pairs, err := ce.decompose(ws, zone)
	if err != nil {
		op.Failure(err, "Zone decomposition failed")
		return nil, err
	}
	op.Step("decomposed")

	results := ce.commitPairs(ctx, pairs)

	outcome := &ZoneCommitResult{ZoneID: zoneID, Results: results}
	for _, r := range results {
		switch r.Status {
		case StatusSuccess:
			outcome.Succeeded++
		case StatusAlreadyReconciled:
			outcome.AlreadyReconciled++
		case StatusFailure:
			outcome.Failed++
		}
	}

	if outcome.Failed == 0 {
		if _, err := ws.ClearZone(zoneID); err != nil {
			ce.log.WithError(err).WithField("zone_id", zoneID).Warn("Failed to clear committed zone")
		} else {
			outcome.Cleared = true
		}
		ce.markStale(zone)
	}

	op.WithField("succeeded", outcome.Succeeded).
		WithField("failed", outcome.Failed).
		WithField("already_reconciled", outcome.AlreadyReconciled).
		Success("Zone commit finished")

	return outcome, nil
}

// AutoReconcile commits a batch of candidates, one pair per candidate.
// Candidates that are not auto-reconcilable are skipped with a failure
// result rather than an error, so one bad candidate never aborts the batch.
func (ce *CommitExecutor) AutoReconcile(ctx context.Context, candidates []*engine.Candidate) *BatchResult {
	pairs := make([]commitPair, 0, len(candidates))
	var rejected []*CommitResult

	for _, c := range candidates {
		if len(c.InvoiceIDs) != 1 || len(c.TransactionIDs) != 1 {
			rejected = append(rejected, &CommitResult{
				Status: StatusFailure,
				Reason: "auto-reconcile only commits one-to-one candidates",
			})
			continue
		}
		if !c.AutoReconcilable {
			rejected = append(rejected, &CommitResult{
				InvoiceID:     c.InvoiceIDs[0],
				TransactionID: c.TransactionIDs[0],
				Amount:        c.MatchAmount,
				Status:        StatusFailure,
				Reason:        "candidate is not auto-reconcilable",
			})
			continue
		}

		pairs = append(pairs, commitPair{
			invoiceID:     c.InvoiceIDs[0],
			transactionID: c.TransactionIDs[0],
			amount:        c.MatchAmount,
		})
	}

	results := append(ce.commitPairs(ctx, pairs), rejected...)

	batch := &BatchResult{Results: results}
	for _, r := range results {
		switch r.Status {
		case StatusSuccess:
			batch.Succeeded++
			ce.markStalePair(r.InvoiceID, r.TransactionID)
		case StatusAlreadyReconciled:
			batch.AlreadyReconciled++
		case StatusFailure:
			batch.Failed++
		}
	}

	ce.log.WithFields(logger.Fields{
		"succeeded":          batch.Succeeded,
		"failed":             batch.Failed,
		"already_reconciled": batch.AlreadyReconciled,
	}).Info("Auto-reconcile batch finished")

	return batch
}

// decompose turns a zone into pair allocations with a greedy residual walk:
// invoices and transactions are taken in insertion order and each allocation
// consumes the smaller of the two residuals. Within tolerance, the
// allocations cover the zone's entire matched amount.
func (ce *CommitExecutor) decompose(ws *workspace.Workspace, zone *workspace.Zone) ([]commitPair, error) {
	invoices, err := ce.zoneInvoices(ws, zone)
	if err != nil {
		return nil, err
	}
	transactions, err := ce.zoneTransactions(ws, zone)
	if err != nil {
		return nil, err
	}

	type residual struct {
		id     string
		amount decimal.Decimal
	}

	invResiduals := make([]residual, 0, len(invoices))
	for _, inv := range invoices {
		invResiduals = append(invResiduals, residual{id: inv.ID, amount: inv.OpenAmount})
	}
	txResiduals := make([]residual, 0, len(transactions))
	for _, tx := range transactions {
		txResiduals = append(txResiduals, residual{id: tx.ID, amount: tx.RemainingAmount.Abs()})
	}

	var pairs []commitPair
	i, j := 0, 0
	for i < len(invResiduals) && j < len(txResiduals) {
		inv, tx := &invResiduals[i], &txResiduals[j]

		allocation := decimal.Min(inv.amount, tx.amount)
		if allocation.GreaterThan(decimal.Zero) {
			pairs = append(pairs, commitPair{
				invoiceID:     inv.id,
				transactionID: tx.id,
				amount:        allocation,
			})
			inv.amount = inv.amount.Sub(allocation)
			tx.amount = tx.amount.Sub(allocation)
		}

		// At least one side is exhausted after each allocation, so the
		// walk always advances
		if inv.amount.IsZero() {
			i++
		}
		if tx.amount.IsZero() {
			j++
		}
	}

	return pairs, nil
}

// commitPairs fans the allocations out over the service with bounded
// concurrency, consulting the idempotency ledger first.
func (ce *CommitExecutor) commitPairs(ctx context.Context, pairs []commitPair) []*CommitResult {
	var (
		wg        sync.WaitGroup
		resultsMu sync.Mutex
		results   = make([]*CommitResult, 0, len(pairs))
		semaphore = make(chan struct{}, ce.maxConcurrency)
	)

	record := func(r *CommitResult) {
		resultsMu.Lock()
		results = append(results, r)
		resultsMu.Unlock()
	}

	for _, pair := range pairs {
		if prior := ce.priorCommit(pair); prior != nil {
			record(&CommitResult{
				InvoiceID:     pair.invoiceID,
				TransactionID: pair.transactionID,
				Amount:        prior.Amount,
				Status:        StatusAlreadyReconciled,
				Reason:        "pair was committed previously",
			})
			continue
		}

		if err := ctx.Err(); err != nil {
			record(&CommitResult{
				InvoiceID:     pair.invoiceID,
				TransactionID: pair.transactionID,
				Amount:        pair.amount,
				Status:        StatusFailure,
				Reason:        "canceled before dispatch",
			})
			continue
		}

		wg.Add(1)
		semaphore <- struct{}{}

		go func(p commitPair) {
			defer wg.Done()
			defer func() { <-semaphore }()

			record(ce.commitOne(ctx, p))
		}(pair)
	}

	wg.Wait()

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.InvoiceID != b.InvoiceID {
			return a.InvoiceID < b.InvoiceID
		}
		return a.TransactionID < b.TransactionID
	})

	return results
}

// commitOne applies a single pair and records it in the ledger on success
func (ce *CommitExecutor) commitOne(ctx context.Context, pair commitPair) *CommitResult {
	result := &CommitResult{
		InvoiceID:     pair.invoiceID,
		TransactionID: pair.transactionID,
		Amount:        pair.amount,
	}

	err := ce.service.CommitReconciliation(ctx, pair.invoiceID, pair.transactionID, pair.amount)
	switch {
	case err == nil:
		result.Status = StatusSuccess
		ce.recordCommit(pair, result)
	case isAlreadyReconciled(err):
		result.Status = StatusAlreadyReconciled
		result.Reason = err.Error()
		ce.recordCommit(pair, result)
	default:
		result.Status = StatusFailure
		result.Reason = err.Error()
		ce.log.WithError(err).WithFields(logger.Fields{
			"invoice_id":     pair.invoiceID,
			"transaction_id": pair.transactionID,
		}).Warn("Commit failed")
	}

	return result
}

func (ce *CommitExecutor) priorCommit(pair commitPair) *CommitResult {
	ce.mu.Lock()
	defer ce.mu.Unlock()
	return ce.applied[pairKey(pair.invoiceID, pair.transactionID)]
}

func (ce *CommitExecutor) recordCommit(pair commitPair, result *CommitResult) {
	ce.mu.Lock()
	defer ce.mu.Unlock()
	ce.applied[pairKey(pair.invoiceID, pair.transactionID)] = result
}

func (ce *CommitExecutor) markStale(zone *workspace.Zone) {
	ce.mu.Lock()
	defer ce.mu.Unlock()

	for _, id := range zone.InvoiceIDs() {
		ce.stale.ExcludeInvoice(id)
	}
	for _, id := range zone.TransactionIDs() {
		ce.stale.ExcludeTransaction(id)
	}
}

func (ce *CommitExecutor) markStalePair(invoiceID, transactionID string) {
	ce.mu.Lock()
	defer ce.mu.Unlock()

	ce.stale.ExcludeInvoice(invoiceID)
	ce.stale.ExcludeTransaction(transactionID)
}

func (ce *CommitExecutor) zoneInvoices(ws *workspace.Workspace, zone *workspace.Zone) ([]*models.Invoice, error) {
	ids := zone.InvoiceIDs()
	invoices := make([]*models.Invoice, 0, len(ids))
	for _, id := range ids {
		inv, ok := ws.Invoice(id)
		if !ok {
			return nil, enginerrors.ConflictError(enginerrors.CodeItemStale, "invoice", id, "invoice left the snapshot")
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}

func (ce *CommitExecutor) zoneTransactions(ws *workspace.Workspace, zone *workspace.Zone) ([]*models.Transaction, error) {
	ids := zone.TransactionIDs()
	transactions := make([]*models.Transaction, 0, len(ids))
	for _, id := range ids {
		tx, ok := ws.Transaction(id)
		if !ok {
			return nil, enginerrors.ConflictError(enginerrors.CodeItemStale, "transaction", id, "transaction left the snapshot")
		}
		transactions = append(transactions, tx)
	}
	return transactions, nil
}

// isAlreadyReconciled reports whether the service error means the pair was
// previously settled, which the executor treats as an acknowledged repeat
// rather than a failure.
func isAlreadyReconciled(err error) bool {
	if engineErr, ok := enginerrors.AsEngineError(err); ok {
		return engineErr.Code == enginerrors.CodeAlreadyReconciled
	}
	return false
}
