// Package cli implements the docpipe command-line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docpipe/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	cfgPath string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "docpipe",
	Short: "Incremental document ingestion and retrieval pipeline",
	Long: `docpipe keeps a local vector index in sync with a cloud file store
and an IMAP mailbox. Documents are extracted, chunked and embedded
incrementally; the index serves attributed similarity search.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to the config file (default ~/.docpipe/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
