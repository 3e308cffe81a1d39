package engine

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"invoice-reconciliation-engine/internal/models"

	"github.com/shopspring/decimal"
)

const (
	// combinationBaseConfidence is the floor for any combination whose sum
	// lands within tolerance; precision and date coherence add on top.
	combinationBaseConfidence = 0.6

	// combinationMinSimilarity scopes the invoice pool to counterparties
	// plausibly named in the transaction description
	combinationMinSimilarity = 0.4

	// combinationDateHorizonDays is the issue-date spread beyond which the
	// date coherence bonus decays to zero
	combinationDateHorizonDays = 45

	// maxCombinationSuggestions caps the suggestions returned per
	// transaction
	maxCombinationSuggestions = 15
)

var docNumberPattern = regexp.MustCompile(`\d+`)

// CombinationFinder searches for groups of invoices whose open amounts sum to
// a transaction's residual within the close tolerance, producing N:1
// candidates for transactions that settle several invoices at once.
type CombinationFinder struct {
	config *MatchingConfig

	// now is injectable for deterministic time-budget tests
	now func() time.Time
}

// NewCombinationFinder creates a finder with the given configuration
func NewCombinationFinder(config *MatchingConfig) *CombinationFinder {
	if config == nil {
		config = DefaultMatchingConfig()
	}
	return &CombinationFinder{
		config: config,
		now:    time.Now,
	}
}

// FindCombinations returns candidates pairing the transaction with two or
// more invoices whose residuals sum to the transaction residual within the
// close tolerance. The invoice pool is scoped to counterparties matching the
// transaction description; the subset search is bounds-pruned and abandons
// gracefully when the configured time budget runs out.
func (cf *CombinationFinder) FindCombinations(tx *models.Transaction, invoices *InvoiceIndex) []*Candidate {
	if tx == nil || !tx.IsOpen() {
		return nil
	}

	target := tx.RemainingAmount.Abs()
	if target.LessThanOrEqual(cf.config.CloseTolerance.Div(decimal.NewFromInt(2))) {
		return nil
	}

	pool := cf.buildPool(tx, invoices, target)
	if len(pool) < 2 {
		return nil
	}

	deadline := cf.now().Add(time.Duration(cf.config.MaxCombinationSearchMillis) * time.Millisecond)

	var found []*Candidate
	maxSize := cf.config.MaxCombinationSize
	if maxSize > len(pool) {
		maxSize = len(pool)
	}

	for size := 2; size <= maxSize; size++ {
		if cf.now().After(deadline) {
			break
		}

		cf.search(pool, size, target, deadline, func(combo []*models.Invoice, sum decimal.Decimal) {
			found = append(found, cf.buildCandidate(tx, combo, sum, target))
		})

		if len(found) >= 10 {
			break
		}
	}

	return cf.dedupeAndSort(found)
}

// buildPool selects open invoices plausibly belonging to this transaction,
// sorted ascending by open amount for bounds pruning.
func (cf *CombinationFinder) buildPool(tx *models.Transaction, invoices *InvoiceIndex, target decimal.Decimal) []*models.Invoice {
	upperBound := target.Mul(decimal.NewFromFloat(1.2))
	halfTolerance := cf.config.CloseTolerance.Div(decimal.NewFromInt(2))

	var pool []*models.Invoice
	for _, inv := range invoices.OpenByCounterparty(tx.Description, combinationMinSimilarity) {
		if cf.config.EnableDirectionMatching {
			if inv.Direction == models.DirectionReceivable && !tx.IsInflow() {
				continue
			}
			if inv.Direction == models.DirectionPayable && !tx.IsOutflow() {
				continue
			}
		}

		if inv.OpenAmount.LessThanOrEqual(halfTolerance) || inv.OpenAmount.GreaterThan(upperBound) {
			continue
		}

		pool = append(pool, inv)
	}

	sort.Slice(pool, func(i, j int) bool {
		if !pool[i].OpenAmount.Equal(pool[j].OpenAmount) {
			return pool[i].OpenAmount.LessThan(pool[j].OpenAmount)
		}
		return pool[i].ID < pool[j].ID
	})

	return pool
}

// search enumerates size-element combinations of the ascending pool whose
// sums land within tolerance of the target, pruning branches that cannot
// reach it.
func (cf *CombinationFinder) search(
	pool []*models.Invoice,
	size int,
	target decimal.Decimal,
	deadline time.Time,
	emit func([]*models.Invoice, decimal.Decimal),
) {
	tolerance := cf.config.CloseTolerance
	combo := make([]*models.Invoice, 0, size)

	var recurse func(start int, sum decimal.Decimal, needed int)
	recurse = func(start int, sum decimal.Decimal, needed int) {
		if cf.now().After(deadline) {
			return
		}

		if needed == 0 {
			if sum.Sub(target).Abs().LessThanOrEqual(tolerance) {
				emit(append([]*models.Invoice(nil), combo...), sum)
			}
			return
		}

		for i := start; i <= len(pool)-needed; i++ {
			inv := pool[i]
			newSum := sum.Add(inv.OpenAmount)

			// Pool is ascending: once over budget, later items only overshoot more
			if newSum.GreaterThan(target.Add(tolerance.Mul(decimal.NewFromInt(int64(needed))))) {
				break
			}

			if !cf.canReachTarget(pool[i+1:], newSum, needed-1, target) {
				continue
			}

			combo = append(combo, inv)
			recurse(i+1, newSum, needed-1)
			combo = combo[:len(combo)-1]
		}
	}

	recurse(0, decimal.Zero, size)
}

// canReachTarget checks quick bounds: the smallest and largest possible
// completions must bracket the target.
func (cf *CombinationFinder) canReachTarget(remaining []*models.Invoice, sum decimal.Decimal, needed int, target decimal.Decimal) bool {
	if needed == 0 {
		return sum.Sub(target).Abs().LessThanOrEqual(cf.config.CloseTolerance)
	}

	if len(remaining) < needed {
		return false
	}

	minPossible := sum
	for _, inv := range remaining[:needed] {
		minPossible = minPossible.Add(inv.OpenAmount)
	}

	maxPossible := sum
	for _, inv := range remaining[len(remaining)-needed:] {
		maxPossible = maxPossible.Add(inv.OpenAmount)
	}

	return minPossible.LessThanOrEqual(target.Add(cf.config.CloseTolerance)) &&
		maxPossible.GreaterThanOrEqual(target.Sub(cf.config.CloseTolerance))
}

// buildCandidate scores one in-tolerance combination
func (cf *CombinationFinder) buildCandidate(
	tx *models.Transaction,
	combo []*models.Invoice,
	sum decimal.Decimal,
	target decimal.Decimal,
) *Candidate {

	precision := 1.0 - sum.Sub(target).Abs().Div(decimal.Max(target, amountEpsilon)).InexactFloat64()
	precision = clamp01(precision)

	dateBonus := cf.dateCoherence(combo)
	sequence := sequenceScore(combo)

	confidence := clamp01(combinationBaseConfidence + precision*0.3 + dateBonus*0.1)

	invoiceIDs := make([]string, 0, len(combo))
	for _, inv := range combo {
		invoiceIDs = append(invoiceIDs, inv.ID)
	}
	sort.Strings(invoiceIDs)

	reasons := []string{
		fmt.Sprintf("%d invoices sum to %s against %s", len(combo), sum.String(), target.String()),
	}
	if sequence > 0.8 {
		reasons = append(reasons, "consecutive document numbers")
	}
	if dateBonus > 0.7 {
		reasons = append(reasons, "invoices issued in the same period")
	}

	return &Candidate{
		InvoiceIDs:     invoiceIDs,
		TransactionIDs: []string{tx.ID},
		Features: FeatureVector{
			AmountMatch:    precision,
			TextSimilarity: combinationMinSimilarity,
			DateProximity:  dateBonus,
			PatternScore:   sequence,
		},
		ConfidenceScore: confidence,
		RiskLevel:       ClassifyRisk(confidence),
		MatchAmount:     decimal.Min(sum, target),
		Reasons:         reasons,
	}
}

// dateCoherence rewards combinations issued close together, decaying to
// zero over the coherence horizon.
func (cf *CombinationFinder) dateCoherence(combo []*models.Invoice) float64 {
	if len(combo) < 2 {
		return 0.0
	}

	minDate, maxDate := combo[0].IssueDate, combo[0].IssueDate
	for _, inv := range combo[1:] {
		if inv.IssueDate.Before(minDate) {
			minDate = inv.IssueDate
		}
		if inv.IssueDate.After(maxDate) {
			maxDate = inv.IssueDate
		}
	}

	spread := models.DaysBetween(minDate, maxDate)
	return clamp01(1.0 - float64(spread)/float64(combinationDateHorizonDays))
}

// sequenceScore measures how consecutive the document numbers are: a dense
// run of numbers suggests a deliberate multi-invoice payment.
func sequenceScore(combo []*models.Invoice) float64 {
	if len(combo) < 2 {
		return 0.5
	}

	var numbers []int
	for _, inv := range combo {
		matches := docNumberPattern.FindAllString(inv.DocNumber, -1)
		if len(matches) == 0 {
			continue
		}
		if n, err := strconv.Atoi(matches[len(matches)-1]); err == nil {
			numbers = append(numbers, n)
		}
	}

	if len(numbers) < 2 {
		return 0.5
	}

	sort.Ints(numbers)
	span := numbers[len(numbers)-1] - numbers[0] + 1
	return float64(len(numbers)) / float64(span)
}

// dedupeAndSort removes duplicate invoice sets and orders suggestions by
// confidence, sequence density and identity.
func (cf *CombinationFinder) dedupeAndSort(found []*Candidate) []*Candidate {
	seen := make(map[string]struct{}, len(found))
	unique := make([]*Candidate, 0, len(found))

	for _, c := range found {
		key := c.PairKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, c)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		a, b := unique[i], unique[j]
		if a.ConfidenceScore != b.ConfidenceScore {
			return a.ConfidenceScore > b.ConfidenceScore
		}
		if a.Features.PatternScore != b.Features.PatternScore {
			return a.Features.PatternScore > b.Features.PatternScore
		}
		return a.PairKey() < b.PairKey()
	})

	if len(unique) > maxCombinationSuggestions {
		unique = unique[:maxCombinationSuggestions]
	}

	return unique
}
