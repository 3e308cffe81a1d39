package config

import (
	"os"
	"path/filepath"
	"testing"

	"invoice-reconciliation-engine/internal/reporter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMatchingConfigPresets(t *testing.T) {
	noOverrides := MatchingOverrides{ConfidenceThreshold: -1, AutoReconcileThreshold: -1}

	for _, preset := range []string{"", "default", "strict", "relaxed"} {
		cfg, err := CreateMatchingConfig(preset, noOverrides)
		require.NoError(t, err, "preset %q", preset)
		assert.NoError(t, cfg.Validate())
	}

	_, err := CreateMatchingConfig("bogus", noOverrides)
	assert.Error(t, err)
}

func TestCreateMatchingConfigOverrides(t *testing.T) {
	cfg, err := CreateMatchingConfig("default", MatchingOverrides{
		ConfidenceThreshold:    0.75,
		AutoReconcileThreshold: 0.99,
		MaxSuggestions:         5,
		DateHorizonDays:        10,
		DateWindowDays:         20,
	})
	require.NoError(t, err)

	assert.Equal(t, 0.75, cfg.ConfidenceThreshold)
	assert.Equal(t, 0.99, cfg.AutoReconcileThreshold)
	assert.Equal(t, 5, cfg.MaxSuggestions)
	assert.Equal(t, 10, cfg.DateHorizonDays)
	assert.Equal(t, 20, cfg.DateWindowDays)
}

func TestCreateMatchingConfigRejectsInvalidOverride(t *testing.T) {
	_, err := CreateMatchingConfig("default", MatchingOverrides{
		ConfidenceThreshold:    1.7,
		AutoReconcileThreshold: -1,
	})
	assert.Error(t, err)
}

func TestCreateReportConfig(t *testing.T) {
	tests := []struct {
		format string
		want   reporter.OutputFormat
	}{
		{"", reporter.FormatConsole},
		{"console", reporter.FormatConsole},
		{"json", reporter.FormatJSON},
		{"csv", reporter.FormatCSV},
	}

	for _, tt := range tests {
		cfg, err := CreateReportConfig(tt.format, true)
		require.NoError(t, err, "format %q", tt.format)
		assert.Equal(t, tt.want, cfg.Format)
		assert.True(t, cfg.IncludeFeatures)
	}

	_, err := CreateReportConfig("yaml", false)
	assert.Error(t, err)
}

func TestLoadSnapshots(t *testing.T) {
	dir := t.TempDir()

	invoicePath := filepath.Join(dir, "invoices.json")
	invoiceJSON := `[
		{
			"id": "INV-1",
			"counterparty_name": "Acme Logistics",
			"direction": "RECEIVABLE",
			"total_amount": "500.00",
			"open_amount": "500.00",
			"issue_date": "2026-01-10",
			"payment_status": "OPEN"
		}
	]`
	require.NoError(t, os.WriteFile(invoicePath, []byte(invoiceJSON), 0o644))

	transactionPath := filepath.Join(dir, "transactions.json")
	transactionJSON := `[
		{
			"id": "TX-1",
			"description": "Payment Acme Logistics",
			"amount": "-500.00",
			"remaining_amount": "500.00",
			"transaction_date": "2026-01-20",
			"reconciliation_status": "UNRECONCILED"
		}
	]`
	require.NoError(t, os.WriteFile(transactionPath, []byte(transactionJSON), 0o644))

	invoices, err := LoadInvoices(invoicePath)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, "INV-1", invoices[0].ID)
	assert.NoError(t, invoices[0].Validate())

	transactions, err := LoadTransactions(transactionPath)
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	assert.Equal(t, "TX-1", transactions[0].ID)
	assert.NoError(t, transactions[0].Validate())
}

func TestLoadSnapshotsErrors(t *testing.T) {
	_, err := LoadInvoices(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	badPath := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte("{not json"), 0o644))

	_, err = LoadTransactions(badPath)
	assert.Error(t, err)
}
