// Package graph wires dependency edges between the micro-tasks of a run
// and tracks task readiness during dispatch.
package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gammazero/toposort"

	"github.com/swarmq/swarmq/pkg/models"
)

// ErrRuleCycle indicates the static dependency rule table is cyclic.
// This is a startup-time configuration error, never a per-run condition.
var ErrRuleCycle = errors.New("dependency rule table contains a cycle")

// Rules maps a task type to the predecessor task types it requires.
// Edges produced from the table always point from a task to every task
// of a required predecessor type in the same run (fan-in).
type Rules map[string][]string

// DefaultRules returns the built-in predecessor table covering the
// task types emitted by the decomposition strategies.
func DefaultRules() Rules {
	return Rules{
		"data_processing":       {"data_collection"},
		"data_analysis":         {"data_processing"},
		"synthesis":             {"data_analysis"},
		"content_creation":      {"outline", "research"},
		"review":                {"content_creation"},
		"tech_evaluation":       {"tech_scan"},
		"knowledge_compression": {"data_ingest"},
		"simulation_analysis":   {"simulation"},
		"media_generation":      {"style_research"},
	}
}

// Validate checks that the rule table is acyclic. Because per-run edges
// only ever point at fixed predecessor types, an acyclic table guarantees
// every run's task graph is acyclic too.
func (r Rules) Validate() error {
	var edges []toposort.Edge
	seen := make(map[string]bool)
	for taskType, preds := range r {
		if !seen[taskType] {
			seen[taskType] = true
			edges = append(edges, toposort.Edge{nil, taskType})
		}
		for _, pred := range preds {
			// Edge (pred, taskType): pred must come before taskType.
			edges = append(edges, toposort.Edge{pred, taskType})
		}
	}

	if _, err := toposort.Toposort(edges); err != nil {
		return fmt.Errorf("%w: %v", ErrRuleCycle, err)
	}
	return nil
}

// Resolve adds dependency edges to every task in the run according to
// the rule table. For each required predecessor type that is present in
// the run, the task gains an edge to every task of that type.
// Tasks whose resulting dependency set is empty are immediately
// dispatchable.
func (r Rules) Resolve(tasks []*models.Task) {
	byType := make(map[string][]*models.Task)
	for _, task := range tasks {
		byType[task.Type] = append(byType[task.Type], task)
	}

	for _, task := range tasks {
		for _, predType := range r[task.Type] {
			for _, pred := range byType[predType] {
				task.DependsOn = append(task.DependsOn, pred.ID)
			}
		}
	}
}

// Types returns the task types named by the table, rule keys and
// predecessors alike, in sorted order.
func (r Rules) Types() []string {
	seen := make(map[string]bool)
	for taskType, preds := range r {
		seen[taskType] = true
		for _, pred := range preds {
			seen[pred] = true
		}
	}
	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
