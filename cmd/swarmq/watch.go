package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/swarmq/swarmq/internal/config"
	"github.com/swarmq/swarmq/internal/tui"
)

var (
	watchWorkers  int
	watchBackend  string
	watchMaxTasks int
	watchContext  []string
)

var watchCmd = &cobra.Command{
	Use:   "watch <goal> [goal...]",
	Short: "Run goals with a live dashboard",
	Long: `Submit goals and watch them execute in a terminal dashboard.

The dashboard shows worker status, per-level queue depths, and a rolling
task event log. Edits to the scheduling rules file
(` + "`swarmq init`" + ` writes it under the user config directory) are picked
up live: new runs use the updated dependency rules.

Press q to quit.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().IntVar(&watchWorkers, "workers", 0, "Initial worker count (overrides config)")
	watchCmd.Flags().StringVar(&watchBackend, "backend", "", "Execution backend: simulate or claude (overrides config)")
	watchCmd.Flags().IntVar(&watchMaxTasks, "max-tasks", 0, "Cap on micro-tasks per goal (overrides config)")
	watchCmd.Flags().StringArrayVar(&watchContext, "context", nil, "Goal context as key=value (repeatable)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(runtimeOptions{
		workers: watchWorkers,
		backend: watchBackend,
		noAudit: true,
	})
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, err := parseContext(watchContext)
	if err != nil {
		return err
	}

	maxTasks := watchMaxTasks
	if maxTasks <= 0 {
		maxTasks = rt.cfg.Decompose.MaxTasks
	}

	// Hot-reload the scheduling rules while the dashboard runs. Invalid
	// edits keep the previous rules; runs already dispatched keep their
	// edges either way.
	watcher, err := config.WatchRules(config.RulesPath(),
		func(rules *config.SchedulingRules) {
			table, err := rules.RuleTable()
			if err != nil {
				fmt.Fprintf(os.Stderr, "rules reload: %v\n", err)
				return
			}
			rt.coord.SetRules(table)
		},
		func(err error) {
			fmt.Fprintf(os.Stderr, "rules watch: %v\n", err)
		})
	if err != nil {
		return err
	}
	defer watcher.Stop()

	go func() {
		if _, err := rt.coord.SubmitGoals(args, ctx, maxTasks); err != nil {
			fmt.Fprintf(os.Stderr, "submit: %v\n", err)
		}
	}()

	return tui.Run(rt.coord.Pool(), rt.cfg.TUI.RefreshRate)
}
