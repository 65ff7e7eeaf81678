// Package decompose expands high-level goals into bounded runs of
// micro-tasks.
package decompose

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/swarmq/swarmq/pkg/models"
)

// ErrEmptyGoal indicates the goal text was empty. Classification itself
// never fails; unmatched goals fall through to the generic strategy.
var ErrEmptyGoal = errors.New("goal text is empty")

// DefaultMaxTasks bounds a run when the caller passes no cap.
const DefaultMaxTasks = 2000

// Strategy emits the micro-tasks for one goal class, organized into
// groups so the cap can shrink variable groups first.
type Strategy func(goal string, ctx map[string]any, maxTasks int, runID string) []taskGroup

// classification pairs a goal predicate with its strategy. Rules are
// evaluated in order; the first match wins.
type classification struct {
	name     string
	keywords []string
	strategy Strategy
}

func (c classification) matches(goal string) bool {
	lower := strings.ToLower(goal)
	for _, kw := range c.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Decomposer classifies goals and expands them into micro-task runs.
type Decomposer struct {
	rules   []classification
	generic Strategy
}

// New creates a Decomposer with the built-in classification table.
func New() *Decomposer {
	return &Decomposer{
		rules: []classification{
			{name: "data_analysis", keywords: []string{"analyze", "data", "statistics"}, strategy: dataAnalysisStrategy},
			{name: "content_generation", keywords: []string{"generate", "create", "write"}, strategy: contentGenerationStrategy},
			{name: "tech_scouting", keywords: []string{"scout", "discover", "find"}, strategy: techScoutingStrategy},
			{name: "learning", keywords: []string{"learn", "study", "research"}, strategy: learningStrategy},
			{name: "simulation", keywords: []string{"simulate", "test", "experiment"}, strategy: simulationStrategy},
			{name: "media_creation", keywords: []string{"image", "video", "media"}, strategy: mediaCreationStrategy},
		},
		generic: genericStrategy,
	}
}

// Classify returns the name of the strategy that would handle the goal.
func (d *Decomposer) Classify(goal string) string {
	for _, rule := range d.rules {
		if rule.matches(goal) {
			return rule.name
		}
	}
	return "generic"
}

// Decompose expands a goal into at most maxTasks micro-tasks sharing one
// run ID. A maxTasks of zero or less falls back to DefaultMaxTasks.
func (d *Decomposer) Decompose(goal string, ctx map[string]any, maxTasks int) ([]*models.Task, error) {
	if strings.TrimSpace(goal) == "" {
		return nil, ErrEmptyGoal
	}
	if maxTasks <= 0 {
		maxTasks = DefaultMaxTasks
	}
	if ctx == nil {
		ctx = map[string]any{}
	}

	strategy := d.generic
	for _, rule := range d.rules {
		if rule.matches(goal) {
			strategy = rule.strategy
			break
		}
	}

	runID := uuid.New().String()
	groups := strategy(goal, ctx, maxTasks, runID)
	return capGroups(groups, maxTasks), nil
}

// taskGroup is one composition unit within a strategy's output.
// Variable groups absorb truncation before fixed ones; the terminal
// group survives any cap.
type taskGroup struct {
	fixed    bool
	terminal bool
	tasks    []*models.Task
}

// capGroups enforces the run cap. Variable groups shrink first (down to
// one task each), then fixed groups, preserving at least one instance of
// every fixed group and the terminal task. When the cap is smaller than
// the number of groups, single slots go to the terminal group first,
// then fixed groups, then variable groups, in declaration order.
func capGroups(groups []taskGroup, maxTasks int) []*models.Task {
	total := 0
	nonEmpty := 0
	for _, g := range groups {
		total += len(g.tasks)
		if len(g.tasks) > 0 {
			nonEmpty++
		}
	}

	if total > maxTasks && maxTasks >= nonEmpty {
		// Shrink variable groups toward one task each, last group first.
		for i := len(groups) - 1; i >= 0 && total > maxTasks; i-- {
			if groups[i].fixed || groups[i].terminal {
				continue
			}
			total -= shrinkGroup(&groups[i], total-maxTasks)
		}
		// Then fixed groups, still keeping one instance of each.
		for i := len(groups) - 1; i >= 0 && total > maxTasks; i-- {
			if groups[i].terminal {
				continue
			}
			total -= shrinkGroup(&groups[i], total-maxTasks)
		}
	} else if maxTasks < nonEmpty {
		groups = singleSlotGroups(groups, maxTasks)
	}

	var tasks []*models.Task
	for _, g := range groups {
		tasks = append(tasks, g.tasks...)
	}
	return tasks
}

// shrinkGroup removes up to excess tasks from the tail of the group,
// never going below one task. Returns the number removed.
func shrinkGroup(g *taskGroup, excess int) int {
	removable := len(g.tasks) - 1
	if removable <= 0 {
		return 0
	}
	if removable > excess {
		removable = excess
	}
	g.tasks = g.tasks[:len(g.tasks)-removable]
	return removable
}

// singleSlotGroups keeps one task per group until the cap is exhausted,
// favoring the terminal group, then fixed groups, then variable groups.
func singleSlotGroups(groups []taskGroup, maxTasks int) []taskGroup {
	var kept []taskGroup
	take := func(want func(taskGroup) bool) {
		for _, g := range groups {
			if len(kept) >= maxTasks || len(g.tasks) == 0 || !want(g) {
				continue
			}
			g.tasks = g.tasks[:1]
			kept = append(kept, g)
		}
	}
	take(func(g taskGroup) bool { return g.terminal })
	take(func(g taskGroup) bool { return g.fixed && !g.terminal })
	take(func(g taskGroup) bool { return !g.fixed && !g.terminal })
	return kept
}
