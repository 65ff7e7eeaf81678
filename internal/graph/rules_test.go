package graph

import (
	"errors"
	"testing"

	"github.com/swarmq/swarmq/pkg/models"
)

func TestDefaultRulesAcyclic(t *testing.T) {
	if err := DefaultRules().Validate(); err != nil {
		t.Fatalf("default rule table should validate: %v", err)
	}
}

func TestValidate_CyclicTable(t *testing.T) {
	cyclic := Rules{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
	}
	err := cyclic.Validate()
	if err == nil {
		t.Fatal("expected cycle error")
	}
	if !errors.Is(err, ErrRuleCycle) {
		t.Errorf("error = %v, want ErrRuleCycle", err)
	}
}

func TestValidate_SelfCycle(t *testing.T) {
	if err := (Rules{"a": {"a"}}).Validate(); err == nil {
		t.Fatal("expected cycle error for self-dependency")
	}
}

func TestResolve_FanIn(t *testing.T) {
	tasks := []*models.Task{
		{ID: "c1", Type: "data_collection"},
		{ID: "c2", Type: "data_collection"},
		{ID: "p1", Type: "data_processing"},
		{ID: "p2", Type: "data_processing"},
		{ID: "a1", Type: "data_analysis"},
		{ID: "s1", Type: "synthesis"},
	}

	DefaultRules().Resolve(tasks)

	// Every processing task depends on every collection task.
	for _, p := range []*models.Task{tasks[2], tasks[3]} {
		if len(p.DependsOn) != 2 {
			t.Errorf("task %s deps = %v, want both collection tasks", p.ID, p.DependsOn)
		}
	}

	// Analysis depends on both processing tasks.
	if len(tasks[4].DependsOn) != 2 {
		t.Errorf("analysis deps = %v, want 2", tasks[4].DependsOn)
	}

	// Synthesis depends on the single analysis task.
	if len(tasks[5].DependsOn) != 1 || tasks[5].DependsOn[0] != "a1" {
		t.Errorf("synthesis deps = %v, want [a1]", tasks[5].DependsOn)
	}

	// Collection tasks have no dependencies and are immediately dispatchable.
	if len(tasks[0].DependsOn) != 0 {
		t.Errorf("collection deps = %v, want none", tasks[0].DependsOn)
	}
}

func TestResolve_MissingPredecessorType(t *testing.T) {
	// A run without the predecessor type gets no edges for it.
	tasks := []*models.Task{
		{ID: "p1", Type: "data_processing"},
	}
	DefaultRules().Resolve(tasks)
	if len(tasks[0].DependsOn) != 0 {
		t.Errorf("deps = %v, want none when predecessor type absent", tasks[0].DependsOn)
	}
}

func TestBuild_UnknownDependency(t *testing.T) {
	tasks := []*models.Task{
		{ID: "t1", DependsOn: []string{"ghost"}},
	}
	if _, err := Build(tasks); err == nil {
		t.Fatal("expected error for dependency on unknown task")
	}
}

func TestRunGraph_ReadyAndMarkComplete(t *testing.T) {
	tasks := []*models.Task{
		{ID: "c1", Type: "data_collection"},
		{ID: "p1", Type: "data_processing"},
		{ID: "s1", Type: "synthesis"},
	}
	tasks[1].DependsOn = []string{"c1"}
	tasks[2].DependsOn = []string{"p1"}

	g, err := Build(tasks)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if !g.Ready("c1") {
		t.Error("c1 should be ready")
	}
	if g.Ready("p1") || g.Ready("s1") {
		t.Error("p1 and s1 should not be ready before c1 completes")
	}

	released := g.MarkComplete("c1")
	if len(released) != 1 || released[0] != "p1" {
		t.Errorf("released = %v, want [p1]", released)
	}

	// Marking the same task again releases nothing.
	if again := g.MarkComplete("c1"); again != nil {
		t.Errorf("second MarkComplete released %v, want nothing", again)
	}

	released = g.MarkComplete("p1")
	if len(released) != 1 || released[0] != "s1" {
		t.Errorf("released = %v, want [s1]", released)
	}
}

func TestRunGraph_TopologicalOrder(t *testing.T) {
	tasks := []*models.Task{
		{ID: "c1", Type: "data_collection"},
		{ID: "p1", Type: "data_processing", DependsOn: []string{"c1"}},
		{ID: "a1", Type: "data_analysis", DependsOn: []string{"p1"}},
		{ID: "s1", Type: "synthesis", DependsOn: []string{"a1"}},
	}
	g, err := Build(tasks)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	order := g.TopologicalOrder()
	if len(order) != 4 {
		t.Fatalf("order has %d entries, want 4", len(order))
	}
	pos := make(map[string]int)
	for i, id := range order {
		pos[id] = i
	}
	if !(pos["c1"] < pos["p1"] && pos["p1"] < pos["a1"] && pos["a1"] < pos["s1"]) {
		t.Errorf("order %v does not respect dependencies", order)
	}
}

func TestRunGraph_DependentCount(t *testing.T) {
	tasks := []*models.Task{
		{ID: "c1", Type: "data_collection"},
		{ID: "p1", Type: "data_processing", DependsOn: []string{"c1"}},
		{ID: "p2", Type: "data_processing", DependsOn: []string{"c1"}},
	}
	g, err := Build(tasks)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if got := g.DependentCount("c1"); got != 2 {
		t.Errorf("DependentCount(c1) = %d, want 2", got)
	}
	if got := g.DependentCount("p1"); got != 0 {
		t.Errorf("DependentCount(p1) = %d, want 0", got)
	}
}
