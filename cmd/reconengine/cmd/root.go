package cmd

import (
	"fmt"
	"os"

	"invoice-reconciliation-engine/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "reconengine",
	Short: "Invoice reconciliation matching engine",
	Long: `Reconengine matches open invoices against bank transactions. It scores
candidate pairings on amount, counterparty text, date proximity and payment
patterns, proposes ranked suggestions, and commits confirmed matches with
idempotent semantics.

Examples:
  reconengine suggest --invoices invoices.json --transactions transactions.json
  reconengine suggest --invoices inv.json --transactions tx.json --output-format json
  reconengine autoreconcile --invoices inv.json --transactions tx.json --dry-run
  reconengine version`,
	Version: getVersionString(),
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)

		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
			os.Exit(1)
		}

		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}

	viper.SetEnvPrefix("RECONENGINE")
	viper.AutomaticEnv()

	if viper.GetBool("verbose") {
		if debugLogger, err := logger.NewLogger(logger.DebugConfig()); err == nil {
			logger.SetGlobalLogger(debugLogger)
		}
	}
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
