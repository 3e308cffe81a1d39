// Package reporter renders suggestion lists and commit outcomes for human
// and programmatic consumption.
//
// Supported output formats:
//   - Console: Human-readable tabular output for terminal display
//   - JSON: Structured data format for programmatic consumption
//   - CSV: Comma-separated format for spreadsheet applications
//
// Example usage:
//
//	generator, err := reporter.NewReportGenerator(reporter.DefaultReportConfig())
//	err = generator.WriteSuggestions(suggestions, os.Stdout)
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"invoice-reconciliation-engine/internal/engine"
	"invoice-reconciliation-engine/internal/executor"
)

// OutputFormat represents the supported report output formats
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// Detail level options
	IncludeReasons  bool `json:"include_reasons"`
	IncludeFeatures bool `json:"include_features"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:          FormatConsole,
		IncludeReasons:  true,
		IncludeFeatures: false,
		CSVDelimiter:    ',',
		CSVHeaders:      true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	return nil
}

// suggestionReport is the JSON envelope for a suggestion list
type suggestionReport struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Count       int                 `json:"count"`
	Suggestions []*engine.Candidate `json:"suggestions"`
}

// ReportGenerator renders suggestions and commit outcomes in the configured
// format
type ReportGenerator struct {
	config *ReportConfig
	now    func() time.Time
}

// NewReportGenerator creates a new report generator with the specified
// configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{
		config: config,
		now:    time.Now,
	}, nil
}

// WriteSuggestions renders a ranked suggestion list to the writer
func (rg *ReportGenerator) WriteSuggestions(suggestions []*engine.Candidate, writer io.Writer) error {
	switch rg.config.Format {
	case FormatConsole:
		return rg.writeSuggestionsConsole(suggestions, writer)
	case FormatJSON:
		return rg.writeSuggestionsJSON(suggestions, writer)
	case FormatCSV:
		return rg.writeSuggestionsCSV(suggestions, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

func (rg *ReportGenerator) writeSuggestionsConsole(suggestions []*engine.Candidate, writer io.Writer) error {
	fmt.Fprintf(writer, "RECONCILIATION SUGGESTIONS\n")
	fmt.Fprintf(writer, "Generated: %s\n", rg.now().Format(time.RFC3339))
	fmt.Fprintf(writer, "Total: %d\n\n", len(suggestions))

	if len(suggestions) == 0 {
		fmt.Fprintf(writer, "No suggestions above the confidence threshold.\n")
		return nil
	}

	for i, s := range suggestions {
		marker := " "
		if s.AutoReconcilable {
			marker = "*"
		}

		fmt.Fprintf(writer, "%3d.%s [%.2f %s] invoices %s <-> transactions %s (amount %s)\n",
			i+1, marker,
			s.ConfidenceScore, strings.ToUpper(string(s.RiskLevel)),
			strings.Join(s.InvoiceIDs, ","),
			strings.Join(s.TransactionIDs, ","),
			s.MatchAmount.StringFixed(2))

		if rg.config.IncludeFeatures {
			fmt.Fprintf(writer, "      amount=%.2f text=%.2f date=%.2f pattern=%.2f\n",
				s.Features.AmountMatch, s.Features.TextSimilarity,
				s.Features.DateProximity, s.Features.PatternScore)
		}

		if rg.config.IncludeReasons && len(s.Reasons) > 0 {
			fmt.Fprintf(writer, "      %s\n", strings.Join(s.Reasons, "; "))
		}
	}

	fmt.Fprintf(writer, "\n* eligible for auto-reconcile\n")
	return nil
}

func (rg *ReportGenerator) writeSuggestionsJSON(suggestions []*engine.Candidate, writer io.Writer) error {
	report := &suggestionReport{
		GeneratedAt: rg.now(),
		Count:       len(suggestions),
		Suggestions: suggestions,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func (rg *ReportGenerator) writeSuggestionsCSV(suggestions []*engine.Candidate, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter
	defer csvWriter.Flush()

	if rg.config.CSVHeaders {
		headers := []string{
			"Rank",
			"Invoice_IDs",
			"Transaction_IDs",
			"Confidence",
			"Risk",
			"Auto_Reconcilable",
			"Match_Amount",
			"Amount_Match",
			"Text_Similarity",
			"Date_Proximity",
			"Pattern_Score",
			"Reasons",
		}
		if err := csvWriter.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for i, s := range suggestions {
		record := []string{
			fmt.Sprintf("%d", i+1),
			strings.Join(s.InvoiceIDs, ";"),
			strings.Join(s.TransactionIDs, ";"),
			fmt.Sprintf("%.4f", s.ConfidenceScore),
			string(s.RiskLevel),
			fmt.Sprintf("%t", s.AutoReconcilable),
			s.MatchAmount.StringFixed(2),
			fmt.Sprintf("%.4f", s.Features.AmountMatch),
			fmt.Sprintf("%.4f", s.Features.TextSimilarity),
			fmt.Sprintf("%.4f", s.Features.DateProximity),
			fmt.Sprintf("%.4f", s.Features.PatternScore),
			strings.Join(s.Reasons, "; "),
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write suggestion record: %w", err)
		}
	}

	return nil
}

// WriteBatchResult renders an auto-reconcile batch outcome to the writer
func (rg *ReportGenerator) WriteBatchResult(batch *executor.BatchResult, writer io.Writer) error {
	if batch == nil {
		return fmt.Errorf("batch result cannot be nil")
	}

	switch rg.config.Format {
	case FormatJSON:
		encoder := json.NewEncoder(writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(batch)
	case FormatConsole, FormatCSV:
		return rg.writeBatchConsole(batch, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

func (rg *ReportGenerator) writeBatchConsole(batch *executor.BatchResult, writer io.Writer) error {
	fmt.Fprintf(writer, "AUTO-RECONCILE SUMMARY\n")
	fmt.Fprintf(writer, "Succeeded:          %d\n", batch.Succeeded)
	fmt.Fprintf(writer, "Already reconciled: %d\n", batch.AlreadyReconciled)
	fmt.Fprintf(writer, "Failed:             %d\n\n", batch.Failed)

	for _, r := range batch.Results {
		line := fmt.Sprintf("%-18s invoice %s <-> transaction %s (%s)",
			strings.ToUpper(string(r.Status)), r.InvoiceID, r.TransactionID, r.Amount.StringFixed(2))
		if r.Reason != "" {
			line += ": " + r.Reason
		}
		fmt.Fprintln(writer, line)
	}
	return nil
}

// WriteZoneCommitResult renders a zone commit outcome to the writer
func (rg *ReportGenerator) WriteZoneCommitResult(result *executor.ZoneCommitResult, writer io.Writer) error {
	if result == nil {
		return fmt.Errorf("zone commit result cannot be nil")
	}

	switch rg.config.Format {
	case FormatJSON:
		encoder := json.NewEncoder(writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	case FormatConsole, FormatCSV:
		fmt.Fprintf(writer, "ZONE COMMIT %s\n", result.ZoneID)
		fmt.Fprintf(writer, "Succeeded: %d, already reconciled: %d, failed: %d, cleared: %t\n\n",
			result.Succeeded, result.AlreadyReconciled, result.Failed, result.Cleared)
		for _, r := range result.Results {
			line := fmt.Sprintf("%-18s invoice %s <-> transaction %s (%s)",
				strings.ToUpper(string(r.Status)), r.InvoiceID, r.TransactionID, r.Amount.StringFixed(2))
			if r.Reason != "" {
				line += ": " + r.Reason
			}
			fmt.Fprintln(writer, line)
		}
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}
