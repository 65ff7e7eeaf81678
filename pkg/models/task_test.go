package models

import (
	"errors"
	"testing"
	"time"
)

func TestTaskStatusValid(t *testing.T) {
	valid := []TaskStatus{
		TaskStatusPending, TaskStatusAssigned, TaskStatusRunning,
		TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled,
	}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("status %q should be valid", s)
		}
	}
	if TaskStatus("unknown").Valid() {
		t.Error("unknown status should not be valid")
	}
}

func TestTaskStatusCanTransition_ForwardPath(t *testing.T) {
	steps := []TaskStatus{TaskStatusPending, TaskStatusAssigned, TaskStatusRunning, TaskStatusCompleted}
	for i := 0; i < len(steps)-1; i++ {
		if !steps[i].CanTransition(steps[i+1]) {
			t.Errorf("%s -> %s should be allowed", steps[i], steps[i+1])
		}
	}

	// Skipping a step is not allowed.
	if TaskStatusPending.CanTransition(TaskStatusRunning) {
		t.Error("pending -> running should not be allowed")
	}
	if TaskStatusAssigned.CanTransition(TaskStatusCompleted) {
		t.Error("assigned -> completed should not be allowed")
	}

	// Going backwards is not allowed.
	if TaskStatusRunning.CanTransition(TaskStatusPending) {
		t.Error("running -> pending should not be allowed")
	}
}

func TestTaskStatusCanTransition_FailureAndCancellation(t *testing.T) {
	for _, from := range []TaskStatus{TaskStatusPending, TaskStatusAssigned, TaskStatusRunning} {
		if !from.CanTransition(TaskStatusFailed) {
			t.Errorf("%s -> failed should be allowed", from)
		}
		if !from.CanTransition(TaskStatusCancelled) {
			t.Errorf("%s -> cancelled should be allowed", from)
		}
	}

	for _, terminal := range []TaskStatus{TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled} {
		for _, to := range []TaskStatus{TaskStatusPending, TaskStatusRunning, TaskStatusFailed, TaskStatusCancelled} {
			if terminal.CanTransition(to) {
				t.Errorf("%s -> %s should not be allowed", terminal, to)
			}
		}
	}
}

func TestTaskTransition(t *testing.T) {
	task := &Task{ID: "t1", Status: TaskStatusPending}

	if err := task.Transition(TaskStatusAssigned); err != nil {
		t.Fatalf("Transition to assigned failed: %v", err)
	}
	if task.Status != TaskStatusAssigned {
		t.Errorf("Status = %s, want assigned", task.Status)
	}

	err := task.Transition(TaskStatusCompleted)
	if err == nil {
		t.Fatal("expected error for assigned -> completed")
	}
	var illegal *ErrIllegalTransition
	if !errors.As(err, &illegal) {
		t.Errorf("error type = %T, want *ErrIllegalTransition", err)
	}

	if err := task.Transition(TaskStatusRunning); err != nil {
		t.Fatalf("Transition to running failed: %v", err)
	}
	if err := task.Transition(TaskStatusCompleted); err != nil {
		t.Fatalf("Transition to completed failed: %v", err)
	}
	if task.CompletedAt == nil {
		t.Error("CompletedAt should be set on terminal transition")
	}
}

func TestWorkerCanHandle(t *testing.T) {
	w := &Worker{ID: "w1", Capabilities: []string{"data_processing"}}
	if !w.CanHandle("data_processing") {
		t.Error("worker should handle its own capability")
	}
	if w.CanHandle("image_processing") {
		t.Error("worker should not handle foreign capability")
	}

	general := &Worker{ID: "w2", Capabilities: []string{CapabilityGeneral}}
	if !general.CanHandle("anything_at_all") {
		t.Error("general worker should handle any task type")
	}
}

func TestWorkerPerformanceScore(t *testing.T) {
	fresh := &Worker{ID: "w1"}
	if got := fresh.PerformanceScore(); got != 1.0 {
		t.Errorf("fresh worker score = %v, want 1.0", got)
	}

	// 8/10 successes, fast: 0.7*0.8 + 0.3 = 0.86
	fast := &Worker{ID: "w2", Completed: 8, Failed: 2, TotalExecution: 20 * time.Second}
	if got := fast.PerformanceScore(); got != 0.86 {
		t.Errorf("fast worker score = %v, want 0.86", got)
	}

	// 8/10 successes, slow: 0.7*0.8 + 0.15 = 0.71
	slow := &Worker{ID: "w3", Completed: 8, Failed: 2, TotalExecution: 200 * time.Second}
	if got := slow.PerformanceScore(); got != 0.71 {
		t.Errorf("slow worker score = %v, want 0.71", got)
	}
}

func TestResourcesFitsAndSub(t *testing.T) {
	pool := Resources{CPU: 4, MemoryMB: 4096, GPU: 1}

	req := Resources{CPU: 2, MemoryMB: 1024}
	if !req.Fits(pool) {
		t.Error("request should fit pool")
	}

	remaining := req.Sub(pool)
	if remaining.CPU != 2 || remaining.MemoryMB != 3072 || remaining.GPU != 1 {
		t.Errorf("remaining = %+v, want {2 3072 1}", remaining)
	}

	tooBig := Resources{CPU: 2, MemoryMB: 1024, GPU: 2}
	if tooBig.Fits(pool) {
		t.Error("request exceeding one dimension should not fit")
	}
}
