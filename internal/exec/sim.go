package exec

import (
	"context"
	"time"

	"github.com/swarmq/swarmq/pkg/models"
)

// Simulator is the default backend. It produces deterministic canned
// results per task type, optionally after a fixed delay. It exists so
// the scheduler can be exercised end to end without any external
// execution service.
type Simulator struct {
	// Delay is slept per task before completing, honoring ctx.
	Delay time.Duration
	// Fail, when set, is consulted per task; a non-nil error marks the
	// task failed. Used to inject failures in tests and demos.
	Fail func(task *models.Task) error
}

// NewSimulator creates a Simulator with no delay and no failures.
func NewSimulator() *Simulator {
	return &Simulator{}
}

// Execute implements Backend.
func (s *Simulator) Execute(ctx context.Context, task *models.Task) (map[string]any, error) {
	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if s.Fail != nil {
		if err := s.Fail(task); err != nil {
			return nil, err
		}
	}

	switch task.Type {
	case "data_processing":
		return map[string]any{"processed": true, "chunk_id": task.Params["chunk_id"]}, nil
	case "data_collection":
		return map[string]any{"collected": true, "source": task.Params["source"]}, nil
	case "data_analysis":
		return map[string]any{"analysis_type": task.Params["analysis_type"], "findings": []any{}}, nil
	case "text_processing", "content_creation":
		return map[string]any{"processed_text": "result", "word_count": 100}, nil
	case "api_calls":
		return map[string]any{"api_response": "success"}, nil
	case "validation":
		return map[string]any{"valid": true, "errors": []any{}}, nil
	case "ml_inference":
		return map[string]any{"predictions": []any{}, "confidence": 0.95}, nil
	case "media_generation":
		return map[string]any{"media_type": task.Params["media_type"], "uri": "generated"}, nil
	default:
		return map[string]any{"status": "completed", "type": task.Type}, nil
	}
}

var _ Backend = (*Simulator)(nil)
