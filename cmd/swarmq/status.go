package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/swarmq/swarmq/internal/audit"
	"github.com/swarmq/swarmq/internal/config"
)

var (
	statusRun   string
	statusLimit int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent runs from the audit trail",
	Long: `Display recent runs recorded in the local audit database.

Without flags, lists recent runs with their task outcome counts.
With --run, lists every task in that run.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusRun, "run", "", "Show tasks for a specific run id")
	statusCmd.Flags().IntVar(&statusLimit, "limit", 20, "Maximum number of runs to list")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	path := cfg.Audit.Path
	if path == "" {
		path = audit.DefaultPath()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Println("No runs recorded yet. Run 'swarmq submit <goal>' to start.")
		return nil
	}

	store, err := audit.Open(path)
	if err != nil {
		return fmt.Errorf("open audit store: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate audit store: %w", err)
	}

	if statusRun != "" {
		return displayRunTasks(store, statusRun)
	}
	return displayRuns(store, statusLimit)
}

func displayRuns(store *audit.Store, limit int) error {
	runs, err := store.Runs(limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet. Run 'swarmq submit <goal>' to start.")
		return nil
	}

	fmt.Println("Recent runs:")
	for _, run := range runs {
		outcome := color.GreenString("%d completed", run.Completed)
		if run.Failed > 0 {
			outcome += ", " + color.RedString("%d failed", run.Failed)
		}
		if run.Cancelled > 0 {
			outcome += fmt.Sprintf(", %d cancelled", run.Cancelled)
		}
		if inFlight := run.Total - run.Completed - run.Failed - run.Cancelled; inFlight > 0 {
			outcome += fmt.Sprintf(", %d in flight", inFlight)
		}
		fmt.Printf("  %s: %d tasks (%s) %s ago\n",
			run.RunID, run.Total, outcome, formatDuration(time.Since(run.FirstSeen)))
	}
	return nil
}

func displayRunTasks(store *audit.Store, runID string) error {
	tasks, err := store.Tasks(runID)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	if len(tasks) == 0 {
		fmt.Printf("No tasks recorded for run %s.\n", runID)
		return nil
	}

	fmt.Printf("Run %s:\n", runID)
	for _, task := range tasks {
		line := fmt.Sprintf("  %s  %-22s %-10s %s", task.ID, task.Type, task.Priority, statusColor(task.Status))
		if task.WorkerID != "" {
			line += fmt.Sprintf(" on %s", task.WorkerID)
		}
		if task.Duration > 0 {
			line += fmt.Sprintf(" (%s)", task.Duration.Round(time.Millisecond))
		}
		fmt.Println(line)
		if task.Error != "" {
			fmt.Printf("      %s\n", color.RedString(task.Error))
		}
	}
	return nil
}

func statusColor(status string) string {
	switch status {
	case "completed":
		return color.GreenString(status)
	case "failed":
		return color.RedString(status)
	case "cancelled":
		return color.YellowString(status)
	default:
		return status
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	return fmt.Sprintf("%dd", days)
}
