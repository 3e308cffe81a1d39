package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"invoice-reconciliation-engine/cmd/reconengine/config"
	"invoice-reconciliation-engine/internal/engine"
	"invoice-reconciliation-engine/internal/models"
	"invoice-reconciliation-engine/internal/reporter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the suggest command
var (
	invoicesFile     string
	transactionsFile string
	outputFormat     string
	outputFile       string
	preset           string

	confidenceThreshold    float64
	autoReconcileThreshold float64
	maxSuggestions         int
	dateHorizonDays        int
	dateWindowDays         int

	showFeatures    bool
	combinationsFor string
)

// suggestCmd represents the suggest command
var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest invoice/transaction matches",
	Long: `Suggest scores every viable invoice and transaction pairing and prints a
ranked list of reconciliation suggestions.

This command requires:
- An invoice snapshot file (JSON format)
- A transaction snapshot file (JSON format)

Examples:
  # Basic suggestions
  reconengine suggest --invoices invoices.json --transactions transactions.json

  # Strict preset with a custom cap, JSON output
  reconengine suggest --invoices inv.json --transactions tx.json \
    --preset strict --max-suggestions 10 --output-format json

  # Multi-invoice combinations for one transaction
  reconengine suggest --invoices inv.json --transactions tx.json \
    --combinations-for TX-042`,

	PreRunE: validateSuggestFlags,
	RunE:    runSuggest,
}

func init() {
	rootCmd.AddCommand(suggestCmd)

	// Required flags
	suggestCmd.Flags().StringVarP(&invoicesFile, "invoices", "i", "", "path to invoice snapshot JSON file (required)")
	suggestCmd.Flags().StringVarP(&transactionsFile, "transactions", "t", "", "path to transaction snapshot JSON file (required)")

	// Output flags
	suggestCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	suggestCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")

	// Matching configuration flags
	suggestCmd.Flags().StringVarP(&preset, "preset", "p", "default", "configuration preset: default, strict, relaxed")
	suggestCmd.Flags().Float64Var(&confidenceThreshold, "confidence-threshold", -1, "minimum confidence for a suggestion (0.0-1.0)")
	suggestCmd.Flags().Float64Var(&autoReconcileThreshold, "auto-threshold", -1, "minimum confidence for auto-reconcile eligibility (0.0-1.0)")
	suggestCmd.Flags().IntVar(&maxSuggestions, "max-suggestions", 0, "maximum suggestions to return")
	suggestCmd.Flags().IntVar(&dateHorizonDays, "date-horizon", 0, "days until date proximity decays to zero")
	suggestCmd.Flags().IntVar(&dateWindowDays, "date-window", 0, "hard date window in days (0 disables)")

	// Detail flags
	suggestCmd.Flags().BoolVar(&showFeatures, "features", false, "include per-feature scores in the output")
	suggestCmd.Flags().StringVar(&combinationsFor, "combinations-for", "", "suggest multi-invoice combinations for this transaction ID")

	suggestCmd.MarkFlagRequired("invoices")
	suggestCmd.MarkFlagRequired("transactions")

	viper.BindPFlag("invoices", suggestCmd.Flags().Lookup("invoices"))
	viper.BindPFlag("transactions", suggestCmd.Flags().Lookup("transactions"))
	viper.BindPFlag("output-format", suggestCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", suggestCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("preset", suggestCmd.Flags().Lookup("preset"))
}

func validateSuggestFlags(cmd *cobra.Command, args []string) error {
	invoicesFile = viper.GetString("invoices")
	transactionsFile = viper.GetString("transactions")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	preset = viper.GetString("preset")

	if invoicesFile == "" {
		return fmt.Errorf("invoices file is required")
	}
	if transactionsFile == "" {
		return fmt.Errorf("transactions file is required")
	}

	if err := validateFileExists(invoicesFile, "invoice snapshot file"); err != nil {
		return err
	}
	if err := validateFileExists(transactionsFile, "transaction snapshot file"); err != nil {
		return err
	}

	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	return nil
}

func runSuggest(cmd *cobra.Command, args []string) error {
	invoices, err := config.LoadInvoices(invoicesFile)
	if err != nil {
		return err
	}
	transactions, err := config.LoadTransactions(transactionsFile)
	if err != nil {
		return err
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Loaded %d invoices and %d transactions\n", len(invoices), len(transactions))
	}

	matchingConfig, err := config.CreateMatchingConfig(preset, config.MatchingOverrides{
		ConfidenceThreshold:    confidenceThreshold,
		AutoReconcileThreshold: autoReconcileThreshold,
		MaxSuggestions:         maxSuggestions,
		DateHorizonDays:        dateHorizonDays,
		DateWindowDays:         dateWindowDays,
	})
	if err != nil {
		return err
	}

	matchingEngine := engine.NewMatchingEngine(matchingConfig, nil, nil)

	var suggestions []*engine.Candidate
	if combinationsFor != "" {
		tx := findTransaction(transactions, combinationsFor)
		if tx == nil {
			return fmt.Errorf("transaction %s not found in snapshot", combinationsFor)
		}
		suggestions = matchingEngine.SuggestCombinations(tx, invoices)
	} else {
		suggestions = matchingEngine.Suggest(invoices, transactions, nil)
	}

	reportConfig, err := config.CreateReportConfig(outputFormat, showFeatures)
	if err != nil {
		return err
	}
	reportGenerator, err := reporter.NewReportGenerator(reportConfig)
	if err != nil {
		return err
	}

	output, cleanup, err := openOutput(outputFile)
	if err != nil {
		return err
	}
	defer cleanup()

	return reportGenerator.WriteSuggestions(suggestions, output)
}

// findTransaction looks a transaction up by ID in the loaded snapshot
func findTransaction(transactions []*models.Transaction, id string) *models.Transaction {
	for _, tx := range transactions {
		if tx != nil && tx.ID == id {
			return tx
		}
	}
	return nil
}

// openOutput returns the writer for report output and a cleanup function
func openOutput(path string) (*os.File, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return file, func() { file.Close() }, nil
}
