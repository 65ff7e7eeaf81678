package main

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/swarmq/swarmq/internal/config"
	"github.com/swarmq/swarmq/internal/exec"
	"github.com/swarmq/swarmq/internal/orchestrator"
	"github.com/swarmq/swarmq/internal/swarm"
	"github.com/swarmq/swarmq/pkg/models"
)

func TestParseContext(t *testing.T) {
	ctx, err := parseContext([]string{
		"data_sources=db, s3",
		"content_type=report",
	})
	if err != nil {
		t.Fatalf("parseContext failed: %v", err)
	}

	want := map[string]any{
		"data_sources": []string{"db", "s3"},
		"content_type": "report",
	}
	if !reflect.DeepEqual(ctx, want) {
		t.Errorf("got %v, want %v", ctx, want)
	}
}

func TestParseContext_Empty(t *testing.T) {
	ctx, err := parseContext(nil)
	if err != nil {
		t.Fatalf("parseContext failed: %v", err)
	}
	if ctx != nil {
		t.Errorf("got %v, want nil", ctx)
	}
}

func TestParseContext_Invalid(t *testing.T) {
	for _, pair := range []string{"novalue", "=orphan"} {
		if _, err := parseContext([]string{pair}); err == nil {
			t.Errorf("parseContext(%q) should fail", pair)
		}
	}
}

func TestWaitForDrain_FailedDependencyEndsWait(t *testing.T) {
	backend := exec.BackendFunc(func(ctx context.Context, task *models.Task) (map[string]any, error) {
		return nil, errors.New("backend unavailable")
	})
	pool := swarm.NewPool(swarm.Config{
		InitialWorkers: 1,
		Palette:        [][]string{{"general"}},
		Backend:        backend,
	})
	coord, err := orchestrator.New(orchestrator.Options{Pool: pool})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	rt := &runtime{coord: coord}
	defer rt.close()

	// The dependent stays held forever once its upstream fails, so the
	// wait must end on quiescence rather than on an empty held set.
	tasks := []*models.Task{
		{ID: "c1", RunID: "run-blocked", Type: "data_collection",
			Priority: models.LevelHigh, Status: models.TaskStatusPending, CreatedAt: time.Now()},
		{ID: "p1", RunID: "run-blocked", Type: "data_processing", DependsOn: []string{"c1"},
			Priority: models.LevelNormal, Status: models.TaskStatusPending, CreatedAt: time.Now()},
	}
	if _, err := pool.Dispatch(tasks); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	done := make(chan swarm.PoolStatus, 1)
	go func() { done <- rt.waitForDrain(5 * time.Millisecond) }()

	select {
	case status := <-done:
		if status.Held != 1 {
			t.Errorf("held = %d, want 1 permanently blocked task", status.Held)
		}
		if status.FailedTasks != 1 {
			t.Errorf("failed = %d, want 1", status.FailedTasks)
		}
		if status.CompletedTasks != 0 {
			t.Errorf("completed = %d, want 0", status.CompletedTasks)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waitForDrain did not return for a permanently blocked run")
	}
}

func TestConfigValueRoundTrip(t *testing.T) {
	cfg := config.Default()

	cases := []struct{ key, value, want string }{
		{"pool.initial_workers", "12", "12"},
		{"pool.backend", "claude", "claude"},
		{"decompose.max_tasks", "500", "500"},
		{"audit.enabled", "false", "false"},
		{"tui.refresh_rate", "250ms", "250ms"},
	}
	for _, tc := range cases {
		if err := setConfigValue(cfg, tc.key, tc.value); err != nil {
			t.Fatalf("setConfigValue(%s) failed: %v", tc.key, err)
		}
		got, err := getConfigValue(cfg, tc.key)
		if err != nil {
			t.Fatalf("getConfigValue(%s) failed: %v", tc.key, err)
		}
		if got != tc.want {
			t.Errorf("%s = %s, want %s", tc.key, got, tc.want)
		}
	}
}

func TestSetConfigValue_Invalid(t *testing.T) {
	cfg := config.Default()

	if err := setConfigValue(cfg, "pool.backend", "mystery"); err == nil {
		t.Error("unknown backend should be rejected")
	}
	if err := setConfigValue(cfg, "no.such.key", "1"); err == nil {
		t.Error("unknown key should be rejected")
	}
	if err := setConfigValue(cfg, "pool.initial_workers", "lots"); err == nil {
		t.Error("non-numeric worker count should be rejected")
	}
}
