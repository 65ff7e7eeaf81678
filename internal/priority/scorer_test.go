package priority

import (
	"testing"
	"time"

	"github.com/swarmq/swarmq/pkg/models"
)

func TestScore_BaseValues(t *testing.T) {
	tests := []struct {
		hint models.PriorityLevel
		want float64
	}{
		{models.LevelCritical, 100},
		{models.LevelHigh, 75},
		{models.LevelNormal, 50},
		{models.LevelLow, 25},
		{models.LevelBackground, 10},
		{"", 50}, // no hint defaults to normal base
	}

	for _, tt := range tests {
		// Long duration so the quick bonus stays out of the way.
		task := &models.Task{Hint: tt.hint, EstimatedDuration: time.Minute}
		if got := Score(task, 0); got != tt.want {
			t.Errorf("Score(hint=%q) = %v, want %v", tt.hint, got, tt.want)
		}
	}
}

func TestScore_Bonuses(t *testing.T) {
	base := &models.Task{Hint: models.LevelNormal, EstimatedDuration: time.Minute}
	if got := Score(base, 0); got != 50 {
		t.Fatalf("base score = %v, want 50", got)
	}

	gpu := &models.Task{
		Hint:              models.LevelNormal,
		EstimatedDuration: time.Minute,
		Requires:          models.Resources{GPU: 1},
	}
	if got := Score(gpu, 0); got != 65 {
		t.Errorf("gpu score = %v, want 65", got)
	}

	quick := &models.Task{Hint: models.LevelNormal, EstimatedDuration: 5 * time.Second}
	if got := Score(quick, 0); got != 60 {
		t.Errorf("quick score = %v, want 60", got)
	}

	fanOut := &models.Task{Hint: models.LevelNormal, EstimatedDuration: time.Minute}
	if got := Score(fanOut, 4); got != 70 {
		t.Errorf("fan-out score = %v, want 70", got)
	}
}

func TestScore_Deterministic(t *testing.T) {
	task := &models.Task{
		Hint:              models.LevelHigh,
		EstimatedDuration: 10 * time.Second,
		Requires:          models.Resources{GPU: 1},
	}
	first := Score(task, 3)
	for i := 0; i < 5; i++ {
		if got := Score(task, 3); got != first {
			t.Fatalf("score changed between calls: %v vs %v", got, first)
		}
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		score float64
		want  models.PriorityLevel
	}{
		{120, models.LevelCritical},
		{90, models.LevelCritical},
		{89, models.LevelHigh},
		{70, models.LevelHigh},
		{69, models.LevelNormal},
		{40, models.LevelNormal},
		{39, models.LevelLow},
		{20, models.LevelLow},
		{19, models.LevelBackground},
		{0, models.LevelBackground},
	}

	for _, tt := range tests {
		if got := LevelFor(tt.score); got != tt.want {
			t.Errorf("LevelFor(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestApply_PromotesDependencyFreeNormal(t *testing.T) {
	// Normal hint, slow, no dependents: score 50 -> level normal,
	// then promoted to high because it has no dependencies.
	task := &models.Task{ID: "a", Hint: models.LevelNormal, EstimatedDuration: time.Minute}
	Apply([]*models.Task{task})

	if task.Priority != models.LevelHigh {
		t.Errorf("priority = %q, want high (promoted)", task.Priority)
	}
}

func TestApply_NoPromotionWithDependencies(t *testing.T) {
	dep := &models.Task{ID: "a", Hint: models.LevelNormal, EstimatedDuration: time.Minute}
	task := &models.Task{
		ID:                "b",
		Hint:              models.LevelNormal,
		EstimatedDuration: time.Minute,
		DependsOn:         []string{"a"},
	}
	Apply([]*models.Task{dep, task})

	if task.Priority != models.LevelNormal {
		t.Errorf("priority = %q, want normal (no promotion)", task.Priority)
	}
	// dep gains +5 fan-out: 55 is still normal, but it has no deps, so
	// it is promoted.
	if dep.Priority != models.LevelHigh {
		t.Errorf("dep priority = %q, want high", dep.Priority)
	}
}

func TestApply_TerminalForcedCritical(t *testing.T) {
	terminal := &models.Task{
		ID:                "s",
		Hint:              models.LevelLow,
		EstimatedDuration: time.Minute,
		DependsOn:         []string{"a"},
		Terminal:          true,
	}
	dep := &models.Task{ID: "a", Hint: models.LevelNormal, EstimatedDuration: time.Minute}
	Apply([]*models.Task{dep, terminal})

	if terminal.Priority != models.LevelCritical {
		t.Errorf("terminal priority = %q, want critical", terminal.Priority)
	}
}

func TestApply_FanOutReachesCritical(t *testing.T) {
	// High hint + quick + 2 dependents: 75 + 10 + 10 = 95 -> critical.
	hub := &models.Task{ID: "hub", Hint: models.LevelHigh, EstimatedDuration: 5 * time.Second}
	d1 := &models.Task{ID: "d1", Hint: models.LevelNormal, EstimatedDuration: time.Minute, DependsOn: []string{"hub"}}
	d2 := &models.Task{ID: "d2", Hint: models.LevelNormal, EstimatedDuration: time.Minute, DependsOn: []string{"hub"}}
	Apply([]*models.Task{hub, d1, d2})

	if hub.Score != 95 {
		t.Errorf("hub score = %v, want 95", hub.Score)
	}
	if hub.Priority != models.LevelCritical {
		t.Errorf("hub priority = %q, want critical", hub.Priority)
	}
}
