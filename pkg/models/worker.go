package models

import "time"

// CapabilityGeneral is the wildcard capability: a worker holding it
// accepts any task type.
const CapabilityGeneral = "general"

// perfTimeThreshold is the average execution time below which a worker
// earns the full speed bonus in its performance score.
const perfTimeThreshold = 10 * time.Second

// WorkerStatus represents the current state of a worker.
type WorkerStatus string

const (
	// WorkerStatusIdle indicates the worker is ready for a task.
	WorkerStatusIdle WorkerStatus = "idle"
	// WorkerStatusWorking indicates the worker is executing a task.
	WorkerStatusWorking WorkerStatus = "working"
	// WorkerStatusFailed indicates the worker is unusable.
	WorkerStatusFailed WorkerStatus = "failed"
	// WorkerStatusMaintenance indicates the worker was taken out of
	// rotation by external control.
	WorkerStatusMaintenance WorkerStatus = "maintenance"
)

// Valid returns true if the status is a known value.
func (s WorkerStatus) Valid() bool {
	switch s {
	case WorkerStatusIdle, WorkerStatusWorking, WorkerStatusFailed, WorkerStatusMaintenance:
		return true
	default:
		return false
	}
}

// Worker is a capability-tagged executor holding at most one task at a time.
// Mutable fields are guarded by the owning pool's lock.
type Worker struct {
	// ID is the unique identifier for this worker.
	ID string `json:"id"`
	// Capabilities lists the task types this worker accepts.
	Capabilities []string `json:"capabilities"`
	// Status is the current state of the worker.
	Status WorkerStatus `json:"status"`
	// CurrentTask is the ID of the task being executed, if any.
	CurrentTask string `json:"current_task,omitempty"`
	// Completed counts successful task executions.
	Completed int `json:"completed"`
	// Failed counts failed task executions.
	Failed int `json:"failed"`
	// TotalExecution is the cumulative execution time across all attempts.
	TotalExecution time.Duration `json:"total_execution"`
	// CreatedAt is when the worker joined the pool.
	CreatedAt time.Time `json:"created_at"`
}

// CanHandle reports whether the worker accepts the given task type.
// The wildcard "general" capability matches any type.
func (w *Worker) CanHandle(taskType string) bool {
	for _, c := range w.Capabilities {
		if c == taskType || c == CapabilityGeneral {
			return true
		}
	}
	return false
}

// PerformanceScore estimates the worker's historical quality in [0,1].
// Workers with no history default to 1.0 so new workers are preferred
// over proven underperformers.
func (w *Worker) PerformanceScore() float64 {
	total := w.Completed + w.Failed
	if total == 0 {
		return 1.0
	}
	successRate := float64(w.Completed) / float64(total)
	avg := w.TotalExecution / time.Duration(total)
	speedBonus := 0.15
	if avg < perfTimeThreshold {
		speedBonus = 0.3
	}
	return successRate*0.7 + speedBonus
}
