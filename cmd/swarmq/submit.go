package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/swarmq/swarmq/internal/swarm"
)

var (
	submitWorkers  int
	submitBackend  string
	submitMaxTasks int
	submitContext  []string
	submitDebug    bool
	submitNoWait   bool
)

var submitCmd = &cobra.Command{
	Use:   "submit <goal> [goal...]",
	Short: "Decompose goals and run them on the worker pool",
	Long: `Decompose one or more goals into micro-task plans and run them.

Each goal becomes its own run: the decomposer picks a strategy from the
goal text, the rule table wires task dependencies, the scorer assigns
priorities, and the pool executes everything in dependency order.

Context values feed the decomposition strategies, for example:
  swarmq submit "Analyze sales data" --context data_sources=db,s3
  swarmq submit "Generate a report" --context content_type=report --context quantity=3

The simulate backend (default) completes tasks instantly; the claude
backend sends each task through the Anthropic API.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().IntVar(&submitWorkers, "workers", 0, "Initial worker count (overrides config)")
	submitCmd.Flags().StringVar(&submitBackend, "backend", "", "Execution backend: simulate or claude (overrides config)")
	submitCmd.Flags().IntVar(&submitMaxTasks, "max-tasks", 0, "Cap on micro-tasks per goal (overrides config)")
	submitCmd.Flags().StringArrayVar(&submitContext, "context", nil, "Goal context as key=value (repeatable; comma-separated values become lists)")
	submitCmd.Flags().BoolVar(&submitDebug, "debug", false, "Write a coordinator debug log")
	submitCmd.Flags().BoolVar(&submitNoWait, "no-wait", false, "Exit after dispatch without waiting for completion")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(runtimeOptions{
		workers: submitWorkers,
		backend: submitBackend,
		debug:   submitDebug,
	})
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, err := parseContext(submitContext)
	if err != nil {
		return err
	}

	maxTasks := submitMaxTasks
	if maxTasks <= 0 {
		maxTasks = rt.cfg.Decompose.MaxTasks
	}

	started := time.Now()
	results, err := rt.coord.SubmitGoals(args, ctx, maxTasks)
	if err != nil {
		return err
	}

	total := 0
	for _, result := range results {
		total += len(result.Tasks)
		fmt.Printf("%s %s\n", color.GreenString("✓"), result.Goal)
		fmt.Printf("  tasks %d: %d assigned, %d queued, %d held\n",
			len(result.Tasks), result.Dispatch.Immediate, result.Dispatch.Queued, result.Dispatch.Held)
		fmt.Printf("  %d task types, %d immediately parallelizable, ~%s estimated\n",
			result.Stats.TaskTypes, result.Stats.Parallelizable, result.Stats.TotalEstimated)
	}

	printRecommendations(rt.coord.Optimize())

	if submitNoWait {
		return nil
	}

	status := rt.waitForDrain(50 * time.Millisecond)

	elapsed := time.Since(started).Round(time.Millisecond)
	switch {
	case status.Held > 0:
		fmt.Printf("\n%s %d/%d tasks completed, %d failed, %d blocked by failed dependencies (%s)\n",
			color.YellowString("⚠"), status.CompletedTasks, total, status.FailedTasks, status.Held, elapsed)
	case status.FailedTasks > 0:
		fmt.Printf("\n%s %d/%d tasks completed, %d failed (%s)\n",
			color.YellowString("⚠"), status.CompletedTasks, total, status.FailedTasks, elapsed)
	default:
		fmt.Printf("\n%s %d tasks completed (%s)\n",
			color.GreenString("✓"), status.CompletedTasks, elapsed)
	}

	return nil
}

func printRecommendations(recs []swarm.Recommendation) {
	for _, rec := range recs {
		switch rec.Action {
		case swarm.ActionScaleUp, swarm.ActionScaleDown:
			fmt.Printf("%s %s: %d -> %d workers (%s)\n",
				color.CyanString("»"), rec.Action, rec.CurrentWorkers, rec.TargetWorkers, rec.Reason)
		case swarm.ActionReplaceWorkers:
			fmt.Printf("%s %s: %d workers underperforming (%s)\n",
				color.CyanString("»"), rec.Action, len(rec.WorkerIDs), rec.Reason)
		}
	}
}
