package main

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/inlet/internal/adapters/driven/config/file"
	"github.com/custodia-labs/inlet/internal/logger"
)

var version = "dev"

var (
	cfgPath string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "inlet",
	Short: "Incremental connector indexing service",
	Long: `Inlet indexes content from workspace tools (Slack, Notion, GitHub,
Linear) into search spaces. Each connector tracks a watermark so runs
only fetch what changed since the last successful sync.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", file.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
