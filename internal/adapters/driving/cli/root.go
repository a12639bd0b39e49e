// Package cli implements the finsync command line interface.
package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/finsync-labs/finsync-server/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "finsync",
	Short: "Financial document assistant server",
	Long: `FinSync is a conversational assistant over your financial documents.
Uploaded PDFs and text files are split, embedded and indexed; questions
are answered by an agent that searches the knowledge base and, when
configured, the web.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
		// Secrets can come from a .env file in development.
		_ = godotenv.Load()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (TOML)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
