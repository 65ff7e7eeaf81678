package config

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/swarmq/swarmq/internal/graph"
)

func TestLoadRules_MissingFileUsesDefaults(t *testing.T) {
	rules, err := LoadRules(filepath.Join(t.TempDir(), "rules.yaml"))
	if err != nil {
		t.Fatalf("LoadRules failed: %v", err)
	}

	table, err := rules.RuleTable()
	if err != nil {
		t.Fatalf("RuleTable failed: %v", err)
	}
	if got := table["data_processing"]; len(got) != 1 || got[0] != "data_collection" {
		t.Errorf("data_processing rule = %v, want built-in default", got)
	}
	if rules.CapabilityPalette() != nil {
		t.Error("palette should be nil so the pool uses its default rotation")
	}
}

func TestLoadRules_CustomTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
rules:
  render: [layout]
  layout: [parse]
palette:
  - [general, render]
  - [parse]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules failed: %v", err)
	}

	table, err := rules.RuleTable()
	if err != nil {
		t.Fatalf("RuleTable failed: %v", err)
	}
	if got := table["render"]; len(got) != 1 || got[0] != "layout" {
		t.Errorf("render rule = %v, want [layout]", got)
	}

	palette := rules.CapabilityPalette()
	if len(palette) != 2 || palette[0][1] != "render" {
		t.Errorf("palette = %v", palette)
	}
}

func TestLoadRules_RejectsCyclicTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
rules:
  a: [b]
  b: [a]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	_, err := LoadRules(path)
	if !errors.Is(err, graph.ErrRuleCycle) {
		t.Errorf("error = %v, want ErrRuleCycle", err)
	}
}

func TestSaveRules_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "rules.yaml")
	rules := &SchedulingRules{
		Rules:   map[string][]string{"summarize": {"fetch"}},
		Palette: [][]string{{"general"}},
	}

	if err := SaveRules(path, rules); err != nil {
		t.Fatalf("SaveRules failed: %v", err)
	}

	loaded, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules failed: %v", err)
	}
	if got := loaded.Rules["summarize"]; len(got) != 1 || got[0] != "fetch" {
		t.Errorf("loaded rules = %v", loaded.Rules)
	}
}

func TestWatchRules_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(path, []byte("rules:\n  a: []\n"), 0644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	var mu sync.Mutex
	var latest *SchedulingRules
	reloaded := make(chan struct{}, 4)

	watcher, err := WatchRules(path, func(r *SchedulingRules) {
		mu.Lock()
		latest = r
		mu.Unlock()
		reloaded <- struct{}{}
	}, nil)
	if err != nil {
		t.Fatalf("WatchRules failed: %v", err)
	}
	defer watcher.Stop()

	if err := os.WriteFile(path, []byte("rules:\n  b: [a]\n"), 0644); err != nil {
		t.Fatalf("rewrite rules: %v", err)
	}

	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	mu.Lock()
	defer mu.Unlock()
	if got := latest.Rules["b"]; len(got) != 1 || got[0] != "a" {
		t.Errorf("reloaded rules = %v, want the rewritten table", latest.Rules)
	}
}

func TestWatchRules_InvalidEditReportsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(path, []byte("rules:\n  a: []\n"), 0644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	errs := make(chan error, 4)
	watcher, err := WatchRules(path, func(r *SchedulingRules) {}, func(err error) {
		errs <- err
	})
	if err != nil {
		t.Fatalf("WatchRules failed: %v", err)
	}
	defer watcher.Stop()

	// Introduce a cycle; the watcher must reject it and keep running.
	if err := os.WriteFile(path, []byte("rules:\n  a: [b]\n  b: [a]\n"), 0644); err != nil {
		t.Fatalf("rewrite rules: %v", err)
	}

	select {
	case err := <-errs:
		if !errors.Is(err, graph.ErrRuleCycle) {
			t.Errorf("error = %v, want ErrRuleCycle", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload error")
	}
}
