package graph

import (
	"fmt"
	"sync"

	"github.com/swarmq/swarmq/pkg/models"
)

// RunGraph is the dependency graph for one run's micro-tasks.
// Nodes are tasks, edges are "blocked by" relationships. The dispatcher
// uses it to hold back tasks until their dependencies complete.
type RunGraph struct {
	mu sync.RWMutex
	// nodes maps task ID to the task itself.
	nodes map[string]*models.Task
	// edges maps task ID to the IDs of tasks it depends on.
	edges map[string][]string
	// completed tracks which tasks have finished successfully.
	completed map[string]bool
}

// Build constructs a RunGraph from a resolved task list.
// Returns an error if a dependency references a task outside the run.
func Build(tasks []*models.Task) (*RunGraph, error) {
	g := &RunGraph{
		nodes:     make(map[string]*models.Task, len(tasks)),
		edges:     make(map[string][]string, len(tasks)),
		completed: make(map[string]bool),
	}

	for _, task := range tasks {
		g.nodes[task.ID] = task
		g.edges[task.ID] = nil
	}
	for _, task := range tasks {
		for _, depID := range task.DependsOn {
			if _, ok := g.nodes[depID]; !ok {
				return nil, fmt.Errorf("task %s depends on unknown task %s", task.ID, depID)
			}
			g.edges[task.ID] = append(g.edges[task.ID], depID)
		}
	}
	return g, nil
}

// Ready reports whether every dependency of the task has completed.
// Tasks with no dependencies are always ready.
func (g *RunGraph) Ready(taskID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.readyLocked(taskID)
}

func (g *RunGraph) readyLocked(taskID string) bool {
	for _, depID := range g.edges[taskID] {
		if !g.completed[depID] {
			return false
		}
	}
	return true
}

// MarkComplete records a finished task and returns the IDs of dependents
// that became ready as a result.
func (g *RunGraph) MarkComplete(taskID string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.completed[taskID] {
		return nil
	}
	g.completed[taskID] = true

	var released []string
	for id, deps := range g.edges {
		if g.completed[id] || id == taskID {
			continue
		}
		dependsOnThis := false
		for _, depID := range deps {
			if depID == taskID {
				dependsOnThis = true
				break
			}
		}
		if dependsOnThis && g.readyLocked(id) {
			released = append(released, id)
		}
	}
	return released
}

// Dependents returns the IDs of tasks that depend on the given task.
func (g *RunGraph) Dependents(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var dependents []string
	for id, deps := range g.edges {
		for _, depID := range deps {
			if depID == taskID {
				dependents = append(dependents, id)
				break
			}
		}
	}
	return dependents
}

// DependentCount returns how many tasks list the given task as a dependency.
func (g *RunGraph) DependentCount(taskID string) int {
	return len(g.Dependents(taskID))
}

// Task returns the task for a given ID, or nil if not found.
func (g *RunGraph) Task(taskID string) *models.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[taskID]
}

// Size returns the number of tasks in the graph.
func (g *RunGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// TopologicalOrder returns task IDs with every dependency before its
// dependents. Rule-table validation guarantees the graph is acyclic, so
// this never fails for graphs built through Rules.Resolve.
func (g *RunGraph) TopologicalOrder() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := make(map[string]bool, len(g.nodes))
	result := make([]string, 0, len(g.nodes))

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, depID := range g.edges[id] {
			visit(depID)
		}
		result = append(result, id)
	}

	for id := range g.nodes {
		visit(id)
	}
	return result
}
