package orchestrator

import (
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/swarmq/swarmq/internal/decompose"
	"github.com/swarmq/swarmq/internal/graph"
	"github.com/swarmq/swarmq/internal/priority"
	"github.com/swarmq/swarmq/internal/swarm"
	"github.com/swarmq/swarmq/pkg/models"
)

// Coordinator runs the full pipeline for a goal: decomposition,
// dependency resolution, priority scoring, and dispatch onto the pool.
type Coordinator struct {
	decomposer *decompose.Decomposer
	pool       *swarm.Pool
	log        *DebugLogger

	mu    sync.RWMutex
	rules graph.Rules
}

// Options configures a Coordinator.
type Options struct {
	// Rules is the dependency rule table. Defaults to the built-in table.
	Rules graph.Rules
	// Pool is the worker pool to dispatch onto. Required.
	Pool *swarm.Pool
	// Logger receives debug output. Defaults to a no-op logger.
	Logger *DebugLogger
}

// New creates a Coordinator. The rule table is validated up front;
// a cyclic table is a startup failure, not a per-run one.
func New(opts Options) (*Coordinator, error) {
	if opts.Pool == nil {
		return nil, fmt.Errorf("coordinator requires a pool")
	}
	rules := opts.Rules
	if rules == nil {
		rules = graph.DefaultRules()
	}
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("dependency rules: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = NopLogger()
	}

	return &Coordinator{
		decomposer: decompose.New(),
		pool:       opts.Pool,
		log:        logger,
		rules:      rules,
	}, nil
}

// GoalResult is the outcome of submitting one goal.
type GoalResult struct {
	// Goal is the submitted goal text.
	Goal string
	// Tasks is the run's resolved, scored task list.
	Tasks []*models.Task
	// Stats summarizes the plan as it looked before dispatch.
	Stats decompose.RunStats
	// Dispatch summarizes how the run landed on the pool.
	Dispatch swarm.DispatchResult
}

// SubmitGoal decomposes a goal into a run, wires its dependencies,
// scores it, and dispatches it onto the pool.
func (c *Coordinator) SubmitGoal(goal string, ctx map[string]any, maxTasks int) (GoalResult, error) {
	tasks, err := c.decomposer.Decompose(goal, ctx, maxTasks)
	if err != nil {
		return GoalResult{}, err
	}

	c.mu.RLock()
	rules := c.rules
	c.mu.RUnlock()
	rules.Resolve(tasks)

	priority.Apply(tasks)
	stats := decompose.Stats(tasks)

	result, err := c.pool.Dispatch(tasks)
	if err != nil {
		return GoalResult{}, fmt.Errorf("dispatch: %w", err)
	}

	c.log.Log("goal submitted: strategy=%s tasks=%d immediate=%d queued=%d held=%d",
		c.decomposer.Classify(goal), len(tasks), result.Immediate, result.Queued, result.Held)

	return GoalResult{Goal: goal, Tasks: tasks, Stats: stats, Dispatch: result}, nil
}

// SubmitGoals submits several goals concurrently. Decomposition and
// scoring run in parallel; the pool serializes the dispatches. Results
// keep the input order. The first error wins and cancels nothing: each
// goal stands alone.
func (c *Coordinator) SubmitGoals(goals []string, ctx map[string]any, maxTasks int) ([]GoalResult, error) {
	results := make([]GoalResult, len(goals))

	var g errgroup.Group
	for i, goal := range goals {
		g.Go(func() error {
			result, err := c.SubmitGoal(goal, ctx, maxTasks)
			if err != nil {
				return fmt.Errorf("goal %q: %w", goal, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// SetRules swaps in a new dependency rule table after validating it.
// Runs already dispatched keep their existing edges.
func (c *Coordinator) SetRules(rules graph.Rules) error {
	if err := rules.Validate(); err != nil {
		return fmt.Errorf("dependency rules: %w", err)
	}
	c.mu.Lock()
	c.rules = rules
	c.mu.Unlock()
	c.log.Log("dependency rules replaced: %d task types", len(rules))
	return nil
}

// Pool exposes the underlying worker pool.
func (c *Coordinator) Pool() *swarm.Pool {
	return c.pool
}

// Optimize derives scaling advice from the pool's current snapshot.
func (c *Coordinator) Optimize() []swarm.Recommendation {
	return swarm.Optimize(c.pool.Snapshot())
}

// Allocate runs one greedy allocation pass for the given pending tasks
// against a bounded resource pool.
func (c *Coordinator) Allocate(budget models.Resources, pending []*models.Task) swarm.AllocationResult {
	return swarm.Allocate(budget, pending)
}

// Stop shuts down the pool and closes the debug log.
func (c *Coordinator) Stop() {
	c.pool.Stop()
	c.log.Close()
}
