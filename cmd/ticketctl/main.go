package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "ticketctl",
		Short:        "Operator tools for the ticket service",
		Long:         `ticketctl runs migrations, drives SLA sweeps by hand, reports performance and issues actor tokens.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newMigrateCommand(),
		newTickCommand(),
		newFollowupsCommand(),
		newReconcileCommand(),
		newPerformanceCommand(),
		newTokenCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
