package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
anthropic:
  model: claude-sonnet-4-20250514
pool:
  initial_workers: 12
  min_workers: 3
  backend: claude
decompose:
  max_tasks: 500
audit:
  enabled: false
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Pool.InitialWorkers != 12 || cfg.Pool.MinWorkers != 3 {
		t.Errorf("pool = %+v, want 12/3", cfg.Pool)
	}
	if cfg.Pool.Backend != "claude" {
		t.Errorf("backend = %s, want claude", cfg.Pool.Backend)
	}
	if cfg.Decompose.MaxTasks != 500 {
		t.Errorf("max tasks = %d, want 500", cfg.Decompose.MaxTasks)
	}
	if cfg.Audit.Enabled {
		t.Error("audit should be disabled")
	}
	// Unset keys keep their defaults.
	if cfg.Audit.RetentionDays != 30 {
		t.Errorf("retention = %d, want default 30", cfg.Audit.RetentionDays)
	}
	if cfg.TUI.RefreshRate != 500*time.Millisecond {
		t.Errorf("refresh rate = %v, want default 500ms", cfg.TUI.RefreshRate)
	}
}

func TestLoadFromPath_ExpandsAPIKeyEnv(t *testing.T) {
	t.Setenv("TEST_SWARMQ_KEY", "sk-test-123")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("anthropic:\n  api_key: ${TEST_SWARMQ_KEY}\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Anthropic.APIKey != "sk-test-123" {
		t.Errorf("api key = %q, want expanded env value", cfg.Anthropic.APIKey)
	}
}

func TestSaveAndReload(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := Default()
	cfg.Pool.InitialWorkers = 7
	cfg.Decompose.MaxTasks = 1234
	if err := Save(cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadFromPath(GetUserConfigPath())
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded.Pool.InitialWorkers != 7 || loaded.Decompose.MaxTasks != 1234 {
		t.Errorf("loaded = %+v, want saved values back", loaded)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Pool.InitialWorkers != 5 || cfg.Pool.MinWorkers != 1 {
		t.Errorf("pool defaults = %+v", cfg.Pool)
	}
	if cfg.Pool.Backend != "simulate" {
		t.Errorf("backend default = %s, want simulate", cfg.Pool.Backend)
	}
	if cfg.Decompose.MaxTasks != 2000 {
		t.Errorf("max tasks default = %d, want 2000", cfg.Decompose.MaxTasks)
	}
}
