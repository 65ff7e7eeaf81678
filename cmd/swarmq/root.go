package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "swarmq",
	Short: "Goal decomposition and swarm scheduling",
	Long: `Swarmq turns free-text goals into dependency-ordered micro-tasks and
schedules them across a capability-tagged worker pool.

Core capabilities:
- Decomposes goals into typed micro-task plans
- Wires task dependencies from a static, acyclic rule table
- Scores and dispatches tasks across priority queues
- Tracks worker performance and recommends pool scaling
- Records every run in a local SQLite audit trail`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
