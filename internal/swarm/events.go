// Package swarm implements the worker pool and dispatch core: priority
// queues, capability matching, completion bookkeeping, resource
// allocation, and scaling advice.
package swarm

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/swarmq/swarmq/pkg/models"
)

// EventType identifies a pool lifecycle event.
type EventType string

const (
	// EventTaskAssigned fires when a task is handed to a worker.
	EventTaskAssigned EventType = "task_assigned"
	// EventTaskQueued fires when a task enters a priority queue.
	EventTaskQueued EventType = "task_queued"
	// EventTaskHeld fires when a task is held back on unmet dependencies.
	EventTaskHeld EventType = "task_held"
	// EventTaskCompleted fires when a task finishes successfully.
	EventTaskCompleted EventType = "task_completed"
	// EventTaskFailed fires when a task finishes with an error.
	EventTaskFailed EventType = "task_failed"
	// EventTaskCancelled fires when a pending task is removed.
	EventTaskCancelled EventType = "task_cancelled"
	// EventWorkerAdded fires when a worker joins the pool.
	EventWorkerAdded EventType = "worker_added"
	// EventWorkerRemoved fires when a worker leaves the pool.
	EventWorkerRemoved EventType = "worker_removed"
)

// Event is one pool lifecycle notification. Subscribers include the
// watch dashboard and the audit sink.
type Event struct {
	// Type identifies the event.
	Type EventType
	// TaskID is the affected task, if any.
	TaskID string
	// RunID is the affected task's run, if any.
	RunID string
	// TaskType is the affected task's type tag, if any.
	TaskType string
	// WorkerID is the affected worker, if any.
	WorkerID string
	// Priority is the task's dispatch level, if any.
	Priority models.PriorityLevel
	// Err holds the failure detail for task_failed events.
	Err string
	// Duration is the execution time for completion events.
	Duration time.Duration
	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// EventEmitter provides thread-safe, non-blocking event delivery to
// subscribers. When the buffer stays full past a short grace period the
// event is dropped and counted rather than stalling the dispatcher.
type EventEmitter struct {
	events       chan Event
	droppedCount atomic.Uint64
}

// NewEventEmitter creates an EventEmitter with the given buffer size.
func NewEventEmitter(bufferSize int) *EventEmitter {
	return &EventEmitter{
		events: make(chan Event, bufferSize),
	}
}

// Emit sends an event to subscribers. If the channel is full it retries
// briefly, then drops the event.
func (e *EventEmitter) Emit(event Event) {
	select {
	case e.events <- event:
		return
	default:
	}

	select {
	case e.events <- event:
		return
	case <-time.After(100 * time.Millisecond):
		count := e.droppedCount.Add(1)
		if count%10 == 1 { // Log every 10th drop to avoid spam
			log.Printf("[swarm] WARNING: event channel full, dropped event (total dropped: %d): type=%s", count, event.Type)
		}
	}
}

// DroppedCount returns the total number of events dropped so far.
func (e *EventEmitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Events returns the read-only subscriber channel.
func (e *EventEmitter) Events() <-chan Event {
	return e.events
}

// Close closes the events channel. Call only after the pool has stopped.
func (e *EventEmitter) Close() {
	close(e.events)
}
