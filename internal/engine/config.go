// Package engine implements the reconciliation matching core: candidate
// generation over invoice and transaction snapshots, feature scoring, risk
// classification and deterministic suggestion ranking.
//
// The pipeline is pure over its inputs: snapshots in, scored candidates out.
// Nothing in this package mutates an invoice or transaction, performs I/O, or
// depends on randomness, so a pass can be recomputed in the background
// whenever source snapshots change.
//
// Example usage:
//
//	config := engine.DefaultMatchingConfig()
//	config.ConfidenceThreshold = 0.5
//
//	eng := engine.NewMatchingEngine(config, nil, nil)
//	suggestions := eng.Suggest(invoices, transactions, nil)
package engine

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// RiskLevel classifies how much manual review a candidate may need
type RiskLevel string

const (
	// RiskLow marks candidates with confidence above 0.8; these usually
	// require no manual review.
	RiskLow RiskLevel = "low"
	// RiskMedium marks candidates with confidence above 0.6
	RiskMedium RiskLevel = "medium"
	// RiskHigh marks everything else; careful review is required and the
	// pairing may be a false positive.
	RiskHigh RiskLevel = "high"
)

// String returns the string representation of RiskLevel
func (rl RiskLevel) String() string {
	return string(rl)
}

// Weights defines the relative importance of the four matching features.
// The exact historical weighting scheme of the legacy tool was ambiguous, so
// weights are an explicit configuration record rather than a hard-coded
// formula; they must sum to approximately 1.0.
type Weights struct {
	Amount  float64 `json:"amount" mapstructure:"amount"`
	Text    float64 `json:"text" mapstructure:"text"`
	Date    float64 `json:"date" mapstructure:"date"`
	Pattern float64 `json:"pattern" mapstructure:"pattern"`
}

// Validate checks if the weights are valid
func (w *Weights) Validate() error {
	for name, v := range map[string]float64{
		"amount":  w.Amount,
		"text":    w.Text,
		"date":    w.Date,
		"pattern": w.Pattern,
	} {
		if v < 0.0 || v > 1.0 {
			return fmt.Errorf("%s weight must be between 0.0 and 1.0: %f", name, v)
		}
	}

	total := w.Amount + w.Text + w.Date + w.Pattern
	if math.Abs(total-1.0) > 0.01 {
		return fmt.Errorf("weights should sum to 1.0, got %f", total)
	}

	return nil
}

// MatchingConfig holds the thresholds, tolerances and weights that control
// candidate generation, scoring, ranking and zone balance classification.
//
// Use the provided factory functions for common scenarios:
//   - DefaultMatchingConfig(): balanced approach for most use cases
//   - StrictMatchingConfig(): tight thresholds for unattended reconciliation
//   - RelaxedMatchingConfig(): loose thresholds for exploratory matching
type MatchingConfig struct {
	// ConfidenceThreshold is the minimum confidence score for a candidate
	// to appear in the suggestion list
	ConfidenceThreshold float64 `json:"confidence_threshold" mapstructure:"confidence_threshold"`

	// AutoReconcileThreshold is the minimum confidence score for a
	// candidate to be eligible for unattended commit. The amount-match
	// hard gate applies on top of it.
	AutoReconcileThreshold float64 `json:"auto_reconcile_threshold" mapstructure:"auto_reconcile_threshold"`

	// MaxSuggestions bounds the size of the ranked suggestion list
	MaxSuggestions int `json:"max_suggestions" mapstructure:"max_suggestions"`

	// CloseTolerance is the maximum amount mismatch, in currency units,
	// for a zone to still be considered reconcilable
	CloseTolerance decimal.Decimal `json:"close_tolerance" mapstructure:"close_tolerance"`

	// DateHorizonDays is the day distance at which date proximity decays
	// to zero
	DateHorizonDays int `json:"date_horizon_days" mapstructure:"date_horizon_days"`

	// DateWindowDays prunes pairs whose date delta exceeds the window
	// before any feature is computed. Zero means unbounded.
	DateWindowDays int `json:"date_window_days" mapstructure:"date_window_days"`

	// EnableDirectionMatching prunes pairs whose signs are incompatible
	// for a payment: receivable invoices pair with inflows, payables with
	// outflows
	EnableDirectionMatching bool `json:"enable_direction_matching" mapstructure:"enable_direction_matching"`

	// MaxCombinationSize bounds the invoice count per cumulative (N:1)
	// suggestion
	MaxCombinationSize int `json:"max_combination_size" mapstructure:"max_combination_size"`

	// MaxCombinationSearchMillis bounds the time spent searching invoice
	// combinations for a single transaction
	MaxCombinationSearchMillis int `json:"max_combination_search_millis" mapstructure:"max_combination_search_millis"`

	// Weights are the relative priorities of the matching features
	Weights Weights `json:"weights" mapstructure:"weights"`
}

// DefaultMatchingConfig returns a configuration with sensible defaults
func DefaultMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		ConfidenceThreshold:        0.5,
		AutoReconcileThreshold:     0.9,
		MaxSuggestions:             20,
		CloseTolerance:             decimal.NewFromFloat(1.00),
		DateHorizonDays:            30,
		DateWindowDays:             0,
		EnableDirectionMatching:    true,
		MaxCombinationSize:         5,
		MaxCombinationSearchMillis: 30000,
		Weights: Weights{
			Amount:  0.4,
			Text:    0.25,
			Date:    0.2,
			Pattern: 0.15,
		},
	}
}

// StrictMatchingConfig returns a configuration for unattended reconciliation
func StrictMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		ConfidenceThreshold:        0.8,
		AutoReconcileThreshold:     0.95,
		MaxSuggestions:             10,
		CloseTolerance:             decimal.NewFromFloat(0.01),
		DateHorizonDays:            14,
		DateWindowDays:             30,
		EnableDirectionMatching:    true,
		MaxCombinationSize:         3,
		MaxCombinationSearchMillis: 10000,
		Weights: Weights{
			Amount:  0.55,
			Text:    0.2,
			Date:    0.15,
			Pattern: 0.1,
		},
	}
}

// RelaxedMatchingConfig returns a configuration for exploratory matching
func RelaxedMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		ConfidenceThreshold:        0.3,
		AutoReconcileThreshold:     0.9,
		MaxSuggestions:             50,
		CloseTolerance:             decimal.NewFromFloat(5.00),
		DateHorizonDays:            60,
		DateWindowDays:             0,
		EnableDirectionMatching:    false,
		MaxCombinationSize:         5,
		MaxCombinationSearchMillis: 30000,
		Weights: Weights{
			Amount:  0.35,
			Text:    0.25,
			Date:    0.2,
			Pattern: 0.2,
		},
	}
}

// Validate checks if the matching configuration is valid
func (mc *MatchingConfig) Validate() error {
	if mc.ConfidenceThreshold < 0.0 || mc.ConfidenceThreshold > 1.0 {
		return fmt.Errorf("confidence threshold must be between 0.0 and 1.0: %f", mc.ConfidenceThreshold)
	}

	if mc.AutoReconcileThreshold < 0.0 || mc.AutoReconcileThreshold > 1.0 {
		return fmt.Errorf("auto-reconcile threshold must be between 0.0 and 1.0: %f", mc.AutoReconcileThreshold)
	}

	if mc.MaxSuggestions <= 0 {
		return fmt.Errorf("max suggestions must be positive: %d", mc.MaxSuggestions)
	}

	if mc.CloseTolerance.IsNegative() {
		return fmt.Errorf("close tolerance cannot be negative: %s", mc.CloseTolerance)
	}

	if mc.DateHorizonDays <= 0 {
		return fmt.Errorf("date horizon days must be positive: %d", mc.DateHorizonDays)
	}

	if mc.DateWindowDays < 0 {
		return fmt.Errorf("date window days cannot be negative: %d", mc.DateWindowDays)
	}

	if mc.MaxCombinationSize < 2 {
		return fmt.Errorf("max combination size must be at least 2: %d", mc.MaxCombinationSize)
	}

	if mc.MaxCombinationSearchMillis <= 0 {
		return fmt.Errorf("max combination search millis must be positive: %d", mc.MaxCombinationSearchMillis)
	}

	if err := mc.Weights.Validate(); err != nil {
		return fmt.Errorf("invalid weights: %w", err)
	}

	return nil
}

// Clone creates a deep copy of the matching configuration
func (mc *MatchingConfig) Clone() *MatchingConfig {
	if mc == nil {
		return nil
	}

	clone := *mc
	return &clone
}

// String returns a human-readable description of the configuration
func (mc *MatchingConfig) String() string {
	return fmt.Sprintf("MatchingConfig{Confidence: %.2f, AutoReconcile: %.2f, MaxSuggestions: %d, CloseTolerance: %s, DateHorizon: %dd}",
		mc.ConfidenceThreshold, mc.AutoReconcileThreshold, mc.MaxSuggestions,
		mc.CloseTolerance.String(), mc.DateHorizonDays)
}
