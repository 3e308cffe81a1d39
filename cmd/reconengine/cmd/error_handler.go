package cmd

import (
	"fmt"
	"os"

	enginerrors "invoice-reconciliation-engine/pkg/errors"
	"invoice-reconciliation-engine/pkg/logger"

	"github.com/spf13/viper"
)

// CLIErrorHandler provides user-friendly error handling for CLI operations
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
	}
}

// HandleError prints a user-facing message for the error and returns the
// process exit code.
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Error("Command failed")

	if engineErr, ok := enginerrors.AsEngineError(err); ok {
		return h.handleEngineError(engineErr)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}

// handleEngineError handles EngineError with detailed context
func (h *CLIErrorHandler) handleEngineError(err *enginerrors.EngineError) int {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Message)

	if len(err.Context) > 0 {
		fmt.Fprintf(os.Stderr, "\nContext:\n")
		for key, value := range err.Context {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", key, value)
		}
	}

	fmt.Fprintf(os.Stderr, "\n%s\n", h.getCategoryHelp(err.Category))

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(os.Stderr, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

// getCategoryHelp returns category-specific help text
func (h *CLIErrorHandler) getCategoryHelp(category enginerrors.ErrorCategory) string {
	switch category {
	case enginerrors.CategoryValidation:
		return `Validation error help:
• Check that all required fields have values
• Verify date formats use YYYY-MM-DD
• Ensure amounts are decimal numbers without currency symbols
• Check that open amounts do not exceed totals`

	case enginerrors.CategoryConfiguration:
		return `Configuration error help:
• Check your command-line flags and arguments
• Verify configuration file syntax if using --config
• Thresholds and weights must lie in their documented ranges
• Try running with default settings first`

	case enginerrors.CategoryConflict:
		return `Conflict error help:
• The referenced item may have been reconciled since the snapshot was taken
• Reload the snapshots and regenerate suggestions
• Items already placed in another zone must be removed there first`

	case enginerrors.CategoryCommit:
		return `Commit error help:
• Check that the zone balances within the close tolerance
• Verify the invoices and transactions still have open amounts
• Failed pairs can be retried; committed pairs are never posted twice`

	default:
		return `For more help:
• Use 'reconengine --help' for general help
• Use 'reconengine suggest --help' for command-specific help
• Run with --verbose for more detailed error information`
	}
}
