// Package exec defines the pluggable execution backend invoked by the
// dispatcher for each micro-task.
package exec

import (
	"context"

	"github.com/swarmq/swarmq/pkg/models"
)

// Backend executes the actual work behind a micro-task. The dispatcher
// treats it as opaque: it may block, await I/O, or fan out further. It
// is always invoked outside the dispatch lock.
type Backend interface {
	// Execute runs the task and returns its result payload.
	// Errors are captured per task by the dispatcher; they never
	// propagate past the completion bookkeeping.
	Execute(ctx context.Context, task *models.Task) (map[string]any, error)
}

// BackendFunc adapts a plain function to the Backend interface.
type BackendFunc func(ctx context.Context, task *models.Task) (map[string]any, error)

// Execute implements Backend.
func (f BackendFunc) Execute(ctx context.Context, task *models.Task) (map[string]any, error) {
	return f(ctx, task)
}
