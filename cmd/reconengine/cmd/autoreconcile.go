package cmd

import (
	"context"
	"fmt"
	"os"

	"invoice-reconciliation-engine/cmd/reconengine/config"
	"invoice-reconciliation-engine/internal/engine"
	"invoice-reconciliation-engine/internal/executor"
	"invoice-reconciliation-engine/internal/reporter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the autoreconcile command
var (
	autoInvoicesFile     string
	autoTransactionsFile string
	autoOutputFormat     string
	autoOutputFile       string
	autoPreset           string
	dryRun               bool
	maxConcurrency       int
)

// autoReconcileCmd represents the autoreconcile command
var autoReconcileCmd = &cobra.Command{
	Use:   "autoreconcile",
	Short: "Commit high-confidence matches automatically",
	Long: `Autoreconcile scores every viable pairing, selects the candidates whose
confidence and amount agreement clear the unattended-commit thresholds, and
commits them. Each pair is committed at most once; repeats are acknowledged
without a second posting.

Examples:
  # Preview what would be committed
  reconengine autoreconcile --invoices inv.json --transactions tx.json --dry-run

  # Commit with the strict preset
  reconengine autoreconcile --invoices inv.json --transactions tx.json --preset strict`,

	PreRunE: validateAutoReconcileFlags,
	RunE:    runAutoReconcile,
}

func init() {
	rootCmd.AddCommand(autoReconcileCmd)

	autoReconcileCmd.Flags().StringVarP(&autoInvoicesFile, "invoices", "i", "", "path to invoice snapshot JSON file (required)")
	autoReconcileCmd.Flags().StringVarP(&autoTransactionsFile, "transactions", "t", "", "path to transaction snapshot JSON file (required)")
	autoReconcileCmd.Flags().StringVarP(&autoOutputFormat, "output-format", "f", "console", "output format: console, json")
	autoReconcileCmd.Flags().StringVarP(&autoOutputFile, "output-file", "o", "", "output file path (default: stdout)")
	autoReconcileCmd.Flags().StringVarP(&autoPreset, "preset", "p", "default", "configuration preset: default, strict, relaxed")
	autoReconcileCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be committed without applying anything")
	autoReconcileCmd.Flags().IntVar(&maxConcurrency, "max-concurrency", 4, "maximum in-flight commits")

	autoReconcileCmd.MarkFlagRequired("invoices")
	autoReconcileCmd.MarkFlagRequired("transactions")
}

func validateAutoReconcileFlags(cmd *cobra.Command, args []string) error {
	if err := validateFileExists(autoInvoicesFile, "invoice snapshot file"); err != nil {
		return err
	}
	if err := validateFileExists(autoTransactionsFile, "transaction snapshot file"); err != nil {
		return err
	}
	if maxConcurrency < 1 {
		return fmt.Errorf("max-concurrency must be at least 1")
	}
	return nil
}

func runAutoReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	invoices, err := config.LoadInvoices(autoInvoicesFile)
	if err != nil {
		return err
	}
	transactions, err := config.LoadTransactions(autoTransactionsFile)
	if err != nil {
		return err
	}

	matchingConfig, err := config.CreateMatchingConfig(autoPreset, config.MatchingOverrides{
		ConfidenceThreshold:    -1,
		AutoReconcileThreshold: -1,
	})
	if err != nil {
		return err
	}

	matchingEngine := engine.NewMatchingEngine(matchingConfig, nil, nil)
	candidates := matchingEngine.AutoReconcilable(invoices, transactions, nil)

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Found %d auto-reconcilable candidates\n", len(candidates))
	}

	var service executor.ReconciliationService
	if dryRun {
		service = executor.DryRunService{}
	} else {
		service = executor.NewLedgerService(invoices, transactions)
	}

	commitExecutor := executor.NewCommitExecutor(service, maxConcurrency)
	batch := commitExecutor.AutoReconcile(ctx, candidates)

	reportConfig, err := config.CreateReportConfig(autoOutputFormat, false)
	if err != nil {
		return err
	}
	reportGenerator, err := reporter.NewReportGenerator(reportConfig)
	if err != nil {
		return err
	}

	output, cleanup, err := openOutput(autoOutputFile)
	if err != nil {
		return err
	}
	defer cleanup()

	if dryRun {
		fmt.Fprintf(output, "DRY RUN: no commits were applied\n\n")
	}

	return reportGenerator.WriteBatchResult(batch, output)
}
