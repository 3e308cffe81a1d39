// Package models defines the invoice and bank transaction snapshots consumed
// by the matching engine. Snapshots are supplied by external collaborators
// (importers, APIs); the engine only reads them, so every type here is treated
// as immutable once validated.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceDirection indicates the commercial direction of an invoice.
type InvoiceDirection string

const (
	// DirectionReceivable marks an invoice issued to a customer; payment
	// is expected as an inflow.
	DirectionReceivable InvoiceDirection = "RECEIVABLE"
	// DirectionPayable marks a supplier invoice; payment is expected as
	// an outflow.
	DirectionPayable InvoiceDirection = "PAYABLE"
)

// String returns the string representation of InvoiceDirection
func (d InvoiceDirection) String() string {
	return string(d)
}

// IsValid checks if the invoice direction is valid
func (d InvoiceDirection) IsValid() bool {
	return d == DirectionReceivable || d == DirectionPayable
}

// PaymentStatus represents the payment lifecycle state of an invoice
type PaymentStatus string

const (
	PaymentStatusOpen          PaymentStatus = "OPEN"
	PaymentStatusPartiallyPaid PaymentStatus = "PARTIALLY_PAID"
	PaymentStatusPaid          PaymentStatus = "PAID"
	PaymentStatusOverdue       PaymentStatus = "OVERDUE"
)

// String returns the string representation of PaymentStatus
func (ps PaymentStatus) String() string {
	return string(ps)
}

// IsValid checks if the payment status is valid
func (ps PaymentStatus) IsValid() bool {
	switch ps {
	case PaymentStatusOpen, PaymentStatusPartiallyPaid, PaymentStatusPaid, PaymentStatusOverdue:
		return true
	}
	return false
}

// IsSettled reports whether the invoice no longer needs reconciliation
func (ps PaymentStatus) IsSettled() bool {
	return ps == PaymentStatusPaid
}

// ReconciliationStatus represents how much of a bank transaction has been
// consumed by committed reconciliations.
type ReconciliationStatus string

const (
	ReconciliationStatusUnreconciled        ReconciliationStatus = "UNRECONCILED"
	ReconciliationStatusPartiallyReconciled ReconciliationStatus = "PARTIALLY_RECONCILED"
	ReconciliationStatusReconciled          ReconciliationStatus = "RECONCILED"
)

// String returns the string representation of ReconciliationStatus
func (rs ReconciliationStatus) String() string {
	return string(rs)
}

// IsValid checks if the reconciliation status is valid
func (rs ReconciliationStatus) IsValid() bool {
	switch rs {
	case ReconciliationStatusUnreconciled, ReconciliationStatusPartiallyReconciled, ReconciliationStatusReconciled:
		return true
	}
	return false
}

// IsSettled reports whether the transaction is fully reconciled
func (rs ReconciliationStatus) IsSettled() bool {
	return rs == ReconciliationStatusReconciled
}

// Invoice represents an outstanding invoice snapshot
type Invoice struct {
	ID               string           `json:"id"`
	DocNumber        string           `json:"doc_number,omitempty"`
	CounterpartyName string           `json:"counterparty_name"`
	Direction        InvoiceDirection `json:"direction"`
	TotalAmount      decimal.Decimal  `json:"total_amount"`
	OpenAmount       decimal.Decimal  `json:"open_amount"`
	IssueDate        time.Time        `json:"issue_date"`
	DueDate          *time.Time       `json:"due_date,omitempty"`
	PaymentStatus    PaymentStatus    `json:"payment_status"`
}

// NewInvoice creates a new Invoice instance with an open residual equal to
// the total amount.
func NewInvoice(id, counterparty string, direction InvoiceDirection, total decimal.Decimal, issueDate time.Time) *Invoice {
	return &Invoice{
		ID:               id,
		CounterpartyName: counterparty,
		Direction:        direction,
		TotalAmount:      total,
		OpenAmount:       total,
		IssueDate:        issueDate,
		PaymentStatus:    PaymentStatusOpen,
	}
}

// Validate performs basic validation on the Invoice
func (inv *Invoice) Validate() error {
	if strings.TrimSpace(inv.ID) == "" {
		return fmt.Errorf("invoice ID cannot be empty")
	}

	if strings.TrimSpace(inv.CounterpartyName) == "" {
		return fmt.Errorf("invoice counterparty name cannot be empty")
	}

	if !inv.Direction.IsValid() {
		return fmt.Errorf("invalid invoice direction: %s", inv.Direction)
	}

	if !inv.TotalAmount.IsPositive() {
		return fmt.Errorf("invoice total amount must be positive, got %s", inv.TotalAmount)
	}

	if inv.OpenAmount.IsNegative() {
		return fmt.Errorf("invoice open amount cannot be negative, got %s", inv.OpenAmount)
	}

	if inv.OpenAmount.GreaterThan(inv.TotalAmount) {
		return fmt.Errorf("invoice open amount %s exceeds total amount %s", inv.OpenAmount, inv.TotalAmount)
	}

	if inv.IssueDate.IsZero() {
		return fmt.Errorf("invoice issue date cannot be zero")
	}

	if inv.DueDate != nil && inv.DueDate.Before(inv.IssueDate) {
		return fmt.Errorf("invoice due date %s precedes issue date %s",
			inv.DueDate.Format("2006-01-02"), inv.IssueDate.Format("2006-01-02"))
	}

	if !inv.PaymentStatus.IsValid() {
		return fmt.Errorf("invalid payment status: %s", inv.PaymentStatus)
	}

	return nil
}

// IsOpen reports whether the invoice still has an unpaid residual worth matching
func (inv *Invoice) IsOpen() bool {
	return !inv.PaymentStatus.IsSettled() && inv.OpenAmount.IsPositive()
}

// EffectiveDate returns the date used for proximity scoring: the due date
// when present, the issue date otherwise.
func (inv *Invoice) EffectiveDate() time.Time {
	if inv.DueDate != nil {
		return *inv.DueDate
	}
	return inv.IssueDate
}

// String returns a string representation of the Invoice
func (inv *Invoice) String() string {
	return fmt.Sprintf("Invoice{ID: %s, Counterparty: %s, Open: %s/%s, Status: %s}",
		inv.ID, inv.CounterpartyName, inv.OpenAmount.String(), inv.TotalAmount.String(), inv.PaymentStatus)
}

// MarshalJSON implements custom JSON marshaling for Invoice
func (inv *Invoice) MarshalJSON() ([]byte, error) {
	type Alias Invoice
	var due string
	if inv.DueDate != nil {
		due = inv.DueDate.Format("2006-01-02")
	}
	return json.Marshal(&struct {
		TotalAmount string `json:"total_amount"`
		OpenAmount  string `json:"open_amount"`
		IssueDate   string `json:"issue_date"`
		DueDate     string `json:"due_date,omitempty"`
		*Alias
	}{
		TotalAmount: inv.TotalAmount.String(),
		OpenAmount:  inv.OpenAmount.String(),
		IssueDate:   inv.IssueDate.Format("2006-01-02"),
		DueDate:     due,
		Alias:       (*Alias)(inv),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for Invoice
func (inv *Invoice) UnmarshalJSON(data []byte) error {
	type Alias Invoice
	aux := &struct {
		TotalAmount string `json:"total_amount"`
		OpenAmount  string `json:"open_amount"`
		IssueDate   string `json:"issue_date"`
		DueDate     string `json:"due_date,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(inv),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	inv.TotalAmount, err = decimal.NewFromString(aux.TotalAmount)
	if err != nil {
		return fmt.Errorf("invalid total amount format: %w", err)
	}

	inv.OpenAmount, err = decimal.NewFromString(aux.OpenAmount)
	if err != nil {
		return fmt.Errorf("invalid open amount format: %w", err)
	}

	inv.IssueDate, err = ParseDateWithFormats(aux.IssueDate)
	if err != nil {
		return fmt.Errorf("invalid issue date format: %w", err)
	}

	if aux.DueDate != "" {
		due, err := ParseDateWithFormats(aux.DueDate)
		if err != nil {
			return fmt.Errorf("invalid due date format: %w", err)
		}
		inv.DueDate = &due
	}

	return nil
}

// Transaction represents a bank transaction snapshot
type Transaction struct {
	ID                   string               `json:"id"`
	Description          string               `json:"description"`
	Amount               decimal.Decimal      `json:"amount"`
	TransactionDate      time.Time            `json:"transaction_date"`
	ReconciliationStatus ReconciliationStatus `json:"reconciliation_status"`
	RemainingAmount      decimal.Decimal      `json:"remaining_amount"`
}

// NewTransaction creates a new Transaction instance with the full amount
// still available for reconciliation.
func NewTransaction(id, description string, amount decimal.Decimal, date time.Time) *Transaction {
	return &Transaction{
		ID:                   id,
		Description:          description,
		Amount:               amount,
		TransactionDate:      date,
		ReconciliationStatus: ReconciliationStatusUnreconciled,
		RemainingAmount:      amount.Abs(),
	}
}

// Validate performs basic validation on the Transaction
func (tx *Transaction) Validate() error {
	if strings.TrimSpace(tx.ID) == "" {
		return fmt.Errorf("transaction ID cannot be empty")
	}

	if tx.Amount.IsZero() {
		return fmt.Errorf("transaction amount cannot be zero")
	}

	if tx.TransactionDate.IsZero() {
		return fmt.Errorf("transaction date cannot be zero")
	}

	if !tx.ReconciliationStatus.IsValid() {
		return fmt.Errorf("invalid reconciliation status: %s", tx.ReconciliationStatus)
	}

	if tx.RemainingAmount.IsNegative() {
		return fmt.Errorf("transaction remaining amount cannot be negative, got %s", tx.RemainingAmount)
	}

	if tx.RemainingAmount.GreaterThan(tx.Amount.Abs()) {
		return fmt.Errorf("transaction remaining amount %s exceeds amount %s", tx.RemainingAmount, tx.Amount.Abs())
	}

	return nil
}

// IsInflow returns true if the transaction credits the account
func (tx *Transaction) IsInflow() bool {
	return tx.Amount.IsPositive()
}

// IsOutflow returns true if the transaction debits the account
func (tx *Transaction) IsOutflow() bool {
	return tx.Amount.IsNegative()
}

// IsOpen reports whether the transaction still has a residual worth matching
func (tx *Transaction) IsOpen() bool {
	return !tx.ReconciliationStatus.IsSettled() && tx.RemainingAmount.IsPositive()
}

// AbsoluteAmount returns the absolute value of the transaction amount
func (tx *Transaction) AbsoluteAmount() decimal.Decimal {
	return tx.Amount.Abs()
}

// String returns a string representation of the Transaction
func (tx *Transaction) String() string {
	return fmt.Sprintf("Transaction{ID: %s, Amount: %s, Remaining: %s, Date: %s, Status: %s}",
		tx.ID, tx.Amount.String(), tx.RemainingAmount.String(),
		tx.TransactionDate.Format("2006-01-02"), tx.ReconciliationStatus)
}

// MarshalJSON implements custom JSON marshaling for Transaction
func (tx *Transaction) MarshalJSON() ([]byte, error) {
	type Alias Transaction
	return json.Marshal(&struct {
		Amount          string `json:"amount"`
		RemainingAmount string `json:"remaining_amount"`
		TransactionDate string `json:"transaction_date"`
		*Alias
	}{
		Amount:          tx.Amount.String(),
		RemainingAmount: tx.RemainingAmount.String(),
		TransactionDate: tx.TransactionDate.Format("2006-01-02"),
		Alias:           (*Alias)(tx),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for Transaction
func (tx *Transaction) UnmarshalJSON(data []byte) error {
	type Alias Transaction
	aux := &struct {
		Amount          string `json:"amount"`
		RemainingAmount string `json:"remaining_amount"`
		TransactionDate string `json:"transaction_date"`
		*Alias
	}{
		Alias: (*Alias)(tx),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	tx.Amount, err = decimal.NewFromString(aux.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount format: %w", err)
	}

	tx.RemainingAmount, err = decimal.NewFromString(aux.RemainingAmount)
	if err != nil {
		return fmt.Errorf("invalid remaining amount format: %w", err)
	}

	tx.TransactionDate, err = ParseDateWithFormats(aux.TransactionDate)
	if err != nil {
		return fmt.Errorf("invalid transaction date format: %w", err)
	}

	return nil
}

// Utility functions shared by snapshot loaders and tests

// ParseDecimalFromString parses a decimal value from string with validation
func ParseDecimalFromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	// Strip common currency symbols and thousand separators
	s = strings.ReplaceAll(s, "€", "")
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	return d, nil
}

// ParseDateWithFormats attempts to parse a date from string using common formats
func ParseDateWithFormats(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}

	formats := []string{
		"2006-01-02",
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"02/01/2006",
		"2006/01/02",
	}

	var lastErr error
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date '%s': %w", s, lastErr)
}

// DaysBetween returns the absolute whole-day distance between two dates
func DaysBetween(a, b time.Time) int {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return int(diff.Hours() / 24)
}

// CompareAmountsWithTolerance compares two decimal amounts with a tolerance
func CompareAmountsWithTolerance(a, b, tolerance decimal.Decimal) bool {
	diff := a.Sub(b).Abs()
	return diff.LessThanOrEqual(tolerance)
}
