package decompose

import (
	"time"

	"github.com/swarmq/swarmq/pkg/models"
)

// RunStats summarizes one run's decomposition.
type RunStats struct {
	TotalTasks     int           `json:"total_tasks"`
	Pending        int           `json:"pending"`
	Running        int           `json:"running"`
	Completed      int           `json:"completed"`
	Failed         int           `json:"failed"`
	Parallelizable int           `json:"parallelizable"`
	TaskTypes      int           `json:"task_types"`
	TotalEstimated time.Duration `json:"total_estimated"`
}

// Stats computes summary statistics for a task list. Parallelizable
// counts pending tasks with no dependencies.
func Stats(tasks []*models.Task) RunStats {
	stats := RunStats{TotalTasks: len(tasks)}
	types := make(map[string]bool)

	for _, t := range tasks {
		types[t.Type] = true
		stats.TotalEstimated += t.EstimatedDuration

		switch t.Status {
		case models.TaskStatusPending:
			stats.Pending++
			if len(t.DependsOn) == 0 {
				stats.Parallelizable++
			}
		case models.TaskStatusRunning:
			stats.Running++
		case models.TaskStatusCompleted:
			stats.Completed++
		case models.TaskStatusFailed:
			stats.Failed++
		}
	}

	stats.TaskTypes = len(types)
	return stats
}
