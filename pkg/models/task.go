package models

import (
	"fmt"
	"time"
)

// TaskStatus represents the current state of a micro-task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has not been assigned yet.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusAssigned indicates the task has been handed to a worker.
	TaskStatusAssigned TaskStatus = "assigned"
	// TaskStatusRunning indicates the task is executing.
	TaskStatusRunning TaskStatus = "running"
	// TaskStatusCompleted indicates the task finished successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task finished with an error.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusCancelled indicates the task was removed before execution.
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusAssigned, TaskStatusRunning,
		TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal returns true if no further transitions are allowed from this status.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// statusRank orders the forward path pending -> assigned -> running -> completed.
var statusRank = map[TaskStatus]int{
	TaskStatusPending:   0,
	TaskStatusAssigned:  1,
	TaskStatusRunning:   2,
	TaskStatusCompleted: 3,
}

// CanTransition reports whether a task may move from s to next.
// The forward path is strictly monotonic; failed and cancelled are
// reachable from any non-terminal status and are themselves terminal.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s.Terminal() {
		return false
	}
	if next == TaskStatusFailed || next == TaskStatusCancelled {
		return true
	}
	return statusRank[next] == statusRank[s]+1
}

// ErrIllegalTransition is returned when a status change violates the
// task state machine.
type ErrIllegalTransition struct {
	From TaskStatus
	To   TaskStatus
}

func (e *ErrIllegalTransition) Error() string {
	return fmt.Sprintf("illegal task transition %s -> %s", e.From, e.To)
}

// PriorityLevel is the dispatch queue tier for a task.
type PriorityLevel string

const (
	// LevelCritical is the highest dispatch tier.
	LevelCritical PriorityLevel = "critical"
	// LevelHigh is the second dispatch tier.
	LevelHigh PriorityLevel = "high"
	// LevelNormal is the default dispatch tier.
	LevelNormal PriorityLevel = "normal"
	// LevelLow is the fourth dispatch tier.
	LevelLow PriorityLevel = "low"
	// LevelBackground is the lowest dispatch tier.
	LevelBackground PriorityLevel = "background"
)

// Levels lists all priority levels in strict dispatch order.
var Levels = []PriorityLevel{
	LevelCritical, LevelHigh, LevelNormal, LevelLow, LevelBackground,
}

// Valid returns true if the level is a known value.
func (l PriorityLevel) Valid() bool {
	switch l {
	case LevelCritical, LevelHigh, LevelNormal, LevelLow, LevelBackground:
		return true
	default:
		return false
	}
}

// Task represents the smallest unit of decomposed work.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// RunID groups all tasks produced by one decomposition call.
	RunID string `json:"run_id"`
	// Type tags the task for capability matching and dependency rules.
	Type string `json:"type"`
	// Description is a human-readable summary of the work.
	Description string `json:"description"`
	// Params carries opaque strategy-specific parameters.
	Params map[string]any `json:"params,omitempty"`
	// Hint is the explicit priority suggested by the decomposition strategy.
	Hint PriorityLevel `json:"hint,omitempty"`
	// Score is the numeric priority computed by the scorer.
	Score float64 `json:"score"`
	// Priority is the dispatch queue level derived from Score.
	Priority PriorityLevel `json:"priority"`
	// DependsOn lists task IDs that must complete before this task runs.
	DependsOn []string `json:"depends_on,omitempty"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// EstimatedDuration is the expected execution time.
	EstimatedDuration time.Duration `json:"estimated_duration"`
	// Requires declares the resource units this task consumes.
	Requires Resources `json:"requires"`
	// Terminal marks the run's final synthesis-style task.
	Terminal bool `json:"terminal,omitempty"`
	// AssignedWorker is the ID of the worker executing this task, if any.
	AssignedWorker string `json:"assigned_worker,omitempty"`
	// Result holds the execution output for completed tasks.
	Result map[string]any `json:"result,omitempty"`
	// Error contains the failure detail for failed tasks.
	Error string `json:"error,omitempty"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// CompletedAt is when the task reached a terminal status, if it has.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Transition moves the task to the given status, enforcing the state machine.
func (t *Task) Transition(next TaskStatus) error {
	if !t.Status.CanTransition(next) {
		return &ErrIllegalTransition{From: t.Status, To: next}
	}
	t.Status = next
	if next.Terminal() {
		now := time.Now()
		t.CompletedAt = &now
	}
	return nil
}
