package swarm

import (
	"github.com/swarmq/swarmq/pkg/models"
)

// queueSet holds one FIFO queue per priority level. It is not
// goroutine-safe; the pool mutex guards all access.
type queueSet struct {
	queues map[models.PriorityLevel][]*models.Task
}

func newQueueSet() *queueSet {
	qs := &queueSet{
		queues: make(map[models.PriorityLevel][]*models.Task, len(models.Levels)),
	}
	for _, level := range models.Levels {
		qs.queues[level] = nil
	}
	return qs
}

// Push appends a task to its level's queue.
func (qs *queueSet) Push(task *models.Task) {
	qs.queues[task.Priority] = append(qs.queues[task.Priority], task)
}

// Peek returns the head of the given level without removing it, or nil
// when the level is empty.
func (qs *queueSet) Peek(level models.PriorityLevel) *models.Task {
	q := qs.queues[level]
	if len(q) == 0 {
		return nil
	}
	return q[0]
}

// Pop removes and returns the head of the given level, or nil when the
// level is empty.
func (qs *queueSet) Pop(level models.PriorityLevel) *models.Task {
	q := qs.queues[level]
	if len(q) == 0 {
		return nil
	}
	task := q[0]
	qs.queues[level] = q[1:]
	return task
}

// Remove deletes the task with the given id from whichever queue holds
// it, preserving the order of the rest. Returns false when absent.
func (qs *queueSet) Remove(taskID string) bool {
	for level, q := range qs.queues {
		for i, task := range q {
			if task.ID == taskID {
				qs.queues[level] = append(q[:i:i], q[i+1:]...)
				return true
			}
		}
	}
	return false
}

// Depth returns the number of queued tasks at the given level.
func (qs *queueSet) Depth(level models.PriorityLevel) int {
	return len(qs.queues[level])
}

// Total returns the number of queued tasks across all levels.
func (qs *queueSet) Total() int {
	total := 0
	for _, q := range qs.queues {
		total += len(q)
	}
	return total
}

// Depths returns a snapshot of per-level queue depths.
func (qs *queueSet) Depths() map[models.PriorityLevel]int {
	depths := make(map[models.PriorityLevel]int, len(models.Levels))
	for _, level := range models.Levels {
		depths[level] = len(qs.queues[level])
	}
	return depths
}
