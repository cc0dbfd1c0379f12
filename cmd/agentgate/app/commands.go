// Package app provides the entry point for the agentgate command-line application.
package app

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agentgate/agentgate/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:               "agentgate",
	DisableAutoGenTag: true,
	Short:             "agentgate is a frontend gateway for AI agent backends",
	Long: `agentgate is a frontend gateway for AI agent backends.

It resolves, from the process environment, which backend to call (a local
process, a managed agent-engine endpoint, or a containerized service) and
forwards API requests to it, attaching workload-identity bearer tokens only
when the deployment type requires them.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		// Re-initialize so the --debug flag takes effect after parsing.
		logger.Initialize()
	},
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			logger.Errorf("Error displaying help: %v", err)
		}
	},
}

// NewRootCmd creates a new root command for the agentgate CLI.
func NewRootCmd() *cobra.Command {
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		logger.Fatalf("Failed to bind debug flag: %v", err)
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}
