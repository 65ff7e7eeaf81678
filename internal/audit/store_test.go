package audit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/swarmq/swarmq/internal/swarm"
	"github.com/swarmq/swarmq/pkg/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := store.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_RecordsTaskLifecycle(t *testing.T) {
	store := openTestStore(t)
	now := time.Now()

	events := []swarm.Event{
		{Type: swarm.EventTaskQueued, TaskID: "t1", RunID: "run-1", TaskType: "data_processing", Priority: models.LevelNormal, Timestamp: now},
		{Type: swarm.EventTaskAssigned, TaskID: "t1", RunID: "run-1", TaskType: "data_processing", Priority: models.LevelNormal, WorkerID: "worker-000000", Timestamp: now},
		{Type: swarm.EventTaskCompleted, TaskID: "t1", RunID: "run-1", TaskType: "data_processing", Priority: models.LevelNormal, WorkerID: "worker-000000", Duration: 120 * time.Millisecond, Timestamp: now},
		{Type: swarm.EventTaskAssigned, TaskID: "t2", RunID: "run-1", TaskType: "validation", Priority: models.LevelHigh, WorkerID: "worker-000001", Timestamp: now},
		{Type: swarm.EventTaskFailed, TaskID: "t2", RunID: "run-1", TaskType: "validation", Priority: models.LevelHigh, WorkerID: "worker-000001", Err: "boom", Timestamp: now},
	}
	for _, ev := range events {
		if err := store.Record(ev); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	tasks, err := store.Tasks("run-1")
	if err != nil {
		t.Fatalf("Tasks failed: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}

	byID := map[string]TaskRecord{}
	for _, task := range tasks {
		byID[task.ID] = task
	}
	if got := byID["t1"]; got.Status != "completed" || got.WorkerID != "worker-000000" || got.Duration != 120*time.Millisecond {
		t.Errorf("t1 = %+v, want completed on worker-000000", got)
	}
	if got := byID["t2"]; got.Status != "failed" || got.Error != "boom" {
		t.Errorf("t2 = %+v, want failed with detail", got)
	}
}

func TestStore_RunSummaries(t *testing.T) {
	store := openTestStore(t)
	now := time.Now()

	for i, runID := range []string{"run-a", "run-b"} {
		ts := now.Add(time.Duration(i) * time.Minute)
		store.Record(swarm.Event{Type: swarm.EventTaskQueued, TaskID: runID + "-t1", RunID: runID, TaskType: "api_calls", Priority: models.LevelNormal, Timestamp: ts})
		store.Record(swarm.Event{Type: swarm.EventTaskCompleted, TaskID: runID + "-t2", RunID: runID, TaskType: "api_calls", Priority: models.LevelNormal, Timestamp: ts})
	}

	runs, err := store.Runs(10)
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].RunID != "run-b" {
		t.Errorf("first run = %s, want newest first", runs[0].RunID)
	}
	if runs[0].Total != 2 || runs[0].Completed != 1 || runs[0].Pending != 1 {
		t.Errorf("summary = %+v, want 2 tasks, 1 completed, 1 pending", runs[0])
	}
}

func TestStore_WorkerEventsHaveNoTaskRow(t *testing.T) {
	store := openTestStore(t)

	if err := store.Record(swarm.Event{Type: swarm.EventWorkerAdded, WorkerID: "worker-000000", Timestamp: time.Now()}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	runs, err := store.Runs(10)
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("got %d runs, want none from worker events", len(runs))
	}
}

func TestStore_PurgeOldRuns(t *testing.T) {
	store := openTestStore(t)

	store.Record(swarm.Event{Type: swarm.EventTaskQueued, TaskID: "old", RunID: "run-old", TaskType: "api_calls", Priority: models.LevelNormal, Timestamp: time.Now().Add(-48 * time.Hour)})
	store.Record(swarm.Event{Type: swarm.EventTaskQueued, TaskID: "new", RunID: "run-new", TaskType: "api_calls", Priority: models.LevelNormal, Timestamp: time.Now()})

	deleted, err := store.PurgeOldRuns(24 * time.Hour)
	if err != nil {
		t.Fatalf("PurgeOldRuns failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	runs, err := store.Runs(10)
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != "run-new" {
		t.Errorf("runs = %+v, want only run-new", runs)
	}
}

func TestStore_PurgeOldRunsReportsFailure(t *testing.T) {
	store := openTestStore(t)
	store.Close()

	if _, err := store.PurgeOldRuns(24 * time.Hour); err == nil {
		t.Error("purge on a closed store should return an error")
	}
}
