package models

import (
	"encoding/json"
	"testing"
	"time"

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

func TestInvoiceValidate(t *testing.T) {
	valid := func() *Invoice {
		return &Invoice{
			ID:               "INV-001",
			CounterpartyName: "Acme Logistics",
			Direction:        DirectionReceivable,
			TotalAmount:      decimal.NewFromFloat(500.00),
			OpenAmount:       decimal.NewFromFloat(500.00),
			IssueDate:        date("2026-01-15"),
			PaymentStatus:    PaymentStatusOpen,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Invoice)
		wantErr bool
	}{
		{"valid invoice", func(*Invoice) {}, false},
		{"empty ID", func(inv *Invoice) { inv.ID = " " }, true},
		{"empty counterparty", func(inv *Invoice) { inv.CounterpartyName = "" }, true},
		{"invalid direction", func(inv *Invoice) { inv.Direction = "SIDEWAYS" }, true},
		{"zero total", func(inv *Invoice) { inv.TotalAmount = decimal.Zero }, true},
		{"negative open", func(inv *Invoice) { inv.OpenAmount = decimal.NewFromInt(-1) }, true},
		{"open exceeds total", func(inv *Invoice) { inv.OpenAmount = decimal.NewFromInt(501) }, true},
		{"zero issue date", func(inv *Invoice) { inv.IssueDate = time.Time{} }, true},
		{"due before issue", func(inv *Invoice) {
			due := date("2026-01-01")
			inv.DueDate = &due
		}, true},
		{"invalid payment status", func(inv *Invoice) { inv.PaymentStatus = "MAYBE" }, true},
		{"partial open amount", func(inv *Invoice) {
			inv.OpenAmount = decimal.NewFromFloat(250.00)
			inv.PaymentStatus = PaymentStatusPartiallyPaid
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := valid()
			tt.mutate(inv)

			err := inv.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestInvoiceIsOpen(t *testing.T) {
	inv := NewInvoice("INV-001", "Acme", DirectionReceivable, decimal.NewFromInt(100), date("2026-01-01"))
	assert.True(t, inv.IsOpen())

	inv.PaymentStatus = PaymentStatusPaid
	assert.False(t, inv.IsOpen())

	inv.PaymentStatus = PaymentStatusOpen
	inv.OpenAmount = decimal.Zero
	assert.False(t, inv.IsOpen())
}

func TestInvoiceEffectiveDate(t *testing.T) {
	inv := NewInvoice("INV-001", "Acme", DirectionReceivable, decimal.NewFromInt(100), date("2026-01-01"))
	assert.Equal(t, date("2026-01-01"), inv.EffectiveDate())

	due := date("2026-02-01")
	inv.DueDate = &due
	assert.Equal(t, due, inv.EffectiveDate())
}

func TestTransactionValidate(t *testing.T) {
	valid := func() *Transaction {
		return &Transaction{
			ID:                   "TX-001",
			Description:          "Payment Acme Logistics",
			Amount:               decimal.NewFromFloat(-500.00),
			TransactionDate:      date("2026-01-20"),
			ReconciliationStatus: ReconciliationStatusUnreconciled,
			RemainingAmount:      decimal.NewFromFloat(500.00),
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Transaction)
		wantErr bool
	}{
		{"valid transaction", func(*Transaction) {}, false},
		{"empty ID", func(tx *Transaction) { tx.ID = "" }, true},
		{"zero amount", func(tx *Transaction) { tx.Amount = decimal.Zero }, true},
		{"zero date", func(tx *Transaction) { tx.TransactionDate = time.Time{} }, true},
		{"invalid status", func(tx *Transaction) { tx.ReconciliationStatus = "PENDING" }, true},
		{"negative remaining", func(tx *Transaction) { tx.RemainingAmount = decimal.NewFromInt(-1) }, true},
		{"remaining exceeds amount", func(tx *Transaction) { tx.RemainingAmount = decimal.NewFromInt(501) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := valid()
			tt.mutate(tx)

			err := tx.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTransactionDirectionHelpers(t *testing.T) {
	inflow := NewTransaction("TX-001", "incoming", decimal.NewFromInt(100), date("2026-01-01"))
	assert.True(t, inflow.IsInflow())
	assert.False(t, inflow.IsOutflow())
	assert.True(t, inflow.RemainingAmount.Equal(decimal.NewFromInt(100)))

	outflow := NewTransaction("TX-002", "outgoing", decimal.NewFromInt(-250), date("2026-01-01"))
	assert.True(t, outflow.IsOutflow())
	assert.True(t, outflow.RemainingAmount.Equal(decimal.NewFromInt(250)))
	assert.True(t, outflow.AbsoluteAmount().Equal(decimal.NewFromInt(250)))
}

func TestInvoiceJSONRoundTrip(t *testing.T) {
	due := date("2026-03-01")
	original := &Invoice{
		ID:               "INV-042",
		DocNumber:        "2026/42",
		CounterpartyName: "Acme Logistics Srl",
		Direction:        DirectionReceivable,
		TotalAmount:      decimal.NewFromFloat(1234.56),
		OpenAmount:       decimal.NewFromFloat(1000.00),
		IssueDate:        date("2026-01-15"),
		DueDate:          &due,
		PaymentStatus:    PaymentStatusPartiallyPaid,
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Invoice
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, original.ID, decoded.ID)
	assert.Equal(t, original.DocNumber, decoded.DocNumber)
	assert.Equal(t, original.Direction, decoded.Direction)
	assert.True(t, original.TotalAmount.Equal(decoded.TotalAmount))
	assert.True(t, original.OpenAmount.Equal(decoded.OpenAmount))
	assert.Equal(t, original.IssueDate, decoded.IssueDate)
	require.NotNil(t, decoded.DueDate)
	assert.Equal(t, due, *decoded.DueDate)
}

func TestTransactionJSONRoundTrip(t *testing.T) {
	original := NewTransaction("TX-042", "Bonifico Acme", decimal.NewFromFloat(-750.25), date("2026-02-10"))

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Transaction
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, original.ID, decoded.ID)
	assert.True(t, original.Amount.Equal(decoded.Amount))
	assert.True(t, original.RemainingAmount.Equal(decoded.RemainingAmount))
	assert.Equal(t, original.TransactionDate, decoded.TransactionDate)
}

func TestParseDecimalFromString(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"1234.56", "1234.56", false},
		{"€1,234.56", "1234.56", false},
		{"$500", "500", false},
		{"  42.00  ", "42", false},
		{"", "", true},
		{"abc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDecimalFromString(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			want, _ := decimal.NewFromString(tt.want)
			assert.True(t, want.Equal(got), "got %s, want %s", got, want)
		})
	}
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 0, DaysBetween(date("2026-01-10"), date("2026-01-10")))
	assert.Equal(t, 5, DaysBetween(date("2026-01-10"), date("2026-01-15")))
	assert.Equal(t, 5, DaysBetween(date("2026-01-15"), date("2026-01-10")))
}

func TestCompareAmountsWithTolerance(t *testing.T) {
	tol := decimal.NewFromFloat(0.5)
	assert.True(t, CompareAmountsWithTolerance(decimal.NewFromFloat(100.0), decimal.NewFromFloat(100.4), tol))
	assert.False(t, CompareAmountsWithTolerance(decimal.NewFromFloat(100.0), decimal.NewFromFloat(101.0), tol))
}
