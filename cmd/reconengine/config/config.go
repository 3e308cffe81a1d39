// Package config assembles engine and report configurations from CLI flags
// and loads entity snapshots from disk.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"invoice-reconciliation-engine/internal/engine"
	"invoice-reconciliation-engine/internal/models"
	"invoice-reconciliation-engine/internal/reporter"
	enginerrors "invoice-reconciliation-engine/pkg/errors"
)

// MatchingOverrides carries the CLI flag values that override the selected
// preset. Negative numeric values mean "not set".
type MatchingOverrides struct {
	ConfidenceThreshold    float64
	AutoReconcileThreshold float64
	MaxSuggestions         int
	DateHorizonDays        int
	DateWindowDays         int
}

// CreateMatchingConfig builds a matching configuration from a preset name
// with CLI overrides applied on top.
func CreateMatchingConfig(preset string, overrides MatchingOverrides) (*engine.MatchingConfig, error) {
	var cfg *engine.MatchingConfig

	switch preset {
	case "", "default":
		cfg = engine.DefaultMatchingConfig()
	case "strict":
		cfg = engine.StrictMatchingConfig()
	case "relaxed":
		cfg = engine.RelaxedMatchingConfig()
	default:
		return nil, enginerrors.ConfigurationError("preset", preset,
			fmt.Errorf("unknown preset, valid presets: default, strict, relaxed"))
	}

	if overrides.ConfidenceThreshold >= 0 {
		cfg.ConfidenceThreshold = overrides.ConfidenceThreshold
	}
	if overrides.AutoReconcileThreshold >= 0 {
		cfg.AutoReconcileThreshold = overrides.AutoReconcileThreshold
	}
	if overrides.MaxSuggestions > 0 {
		cfg.MaxSuggestions = overrides.MaxSuggestions
	}
	if overrides.DateHorizonDays > 0 {
		cfg.DateHorizonDays = overrides.DateHorizonDays
	}
	if overrides.DateWindowDays > 0 {
		cfg.DateWindowDays = overrides.DateWindowDays
	}

	if err := cfg.Validate(); err != nil {
		return nil, enginerrors.ConfigurationError("matching", "overrides", err)
	}

	return cfg, nil
}

// CreateReportConfig creates a report configuration for the specified output
// format
func CreateReportConfig(format string, includeFeatures bool) (*reporter.ReportConfig, error) {
	cfg := reporter.DefaultReportConfig()
	cfg.IncludeFeatures = includeFeatures

	switch format {
	case "", "console":
		cfg.Format = reporter.FormatConsole
	case "json":
		cfg.Format = reporter.FormatJSON
	case "csv":
		cfg.Format = reporter.FormatCSV
	default:
		return nil, enginerrors.ConfigurationError("output-format", format,
			fmt.Errorf("valid formats: console, json, csv"))
	}

	return cfg, nil
}

// LoadInvoices reads an invoice snapshot from a JSON file
func LoadInvoices(path string) ([]*models.Invoice, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read invoice file %s: %w", path, err)
	}

	var invoices []*models.Invoice
	if err := json.Unmarshal(data, &invoices); err != nil {
		return nil, enginerrors.ValidationError("invoice file", path, err)
	}
	return invoices, nil
}

// LoadTransactions reads a transaction snapshot from a JSON file
func LoadTransactions(path string) ([]*models.Transaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction file %s: %w", path, err)
	}

	var transactions []*models.Transaction
	if err := json.Unmarshal(data, &transactions); err != nil {
		return nil, enginerrors.ValidationError("transaction file", path, err)
	}
	return transactions, nil
}
