// Package priority computes numeric scores and queue levels for
// micro-tasks.
package priority

import (
	"time"

	"github.com/swarmq/swarmq/pkg/models"
)

// Base score values per explicit priority hint.
const (
	baseCritical   = 100
	baseHigh       = 75
	baseNormal     = 50
	baseLow        = 25
	baseBackground = 10

	// exclusiveBonus rewards tasks that need a hard exclusive resource (GPU).
	exclusiveBonus = 15
	// quickBonus rewards tasks expected to finish fast.
	quickBonus = 10
	// dependentBonus is added once per task that depends on this one.
	dependentBonus = 5
)

// QuickThreshold is the estimated duration below which a task counts as
// a quick win.
const QuickThreshold = 30 * time.Second

// Level bucketing thresholds.
const (
	criticalThreshold = 90
	highThreshold     = 70
	normalThreshold   = 40
	lowThreshold      = 20
)

// Score computes the numeric priority for a task given how many tasks
// depend on it. The result is a pure function of the task's hint,
// resource needs, estimated duration, and fan-out.
func Score(task *models.Task, dependents int) float64 {
	score := float64(baseFor(task.Hint))

	if task.Requires.GPU > 0 {
		score += exclusiveBonus
	}
	if task.EstimatedDuration < QuickThreshold {
		score += quickBonus
	}
	score += float64(dependents * dependentBonus)

	return score
}

func baseFor(hint models.PriorityLevel) int {
	switch hint {
	case models.LevelCritical:
		return baseCritical
	case models.LevelHigh:
		return baseHigh
	case models.LevelNormal:
		return baseNormal
	case models.LevelLow:
		return baseLow
	case models.LevelBackground:
		return baseBackground
	default:
		return baseNormal
	}
}

// LevelFor buckets a numeric score into a dispatch level.
func LevelFor(score float64) models.PriorityLevel {
	switch {
	case score >= criticalThreshold:
		return models.LevelCritical
	case score >= highThreshold:
		return models.LevelHigh
	case score >= normalThreshold:
		return models.LevelNormal
	case score >= lowThreshold:
		return models.LevelLow
	default:
		return models.LevelBackground
	}
}

// Apply scores every task in the run and sets its dispatch level.
// Dependency-free tasks landing on exactly "normal" are promoted to
// "high" so entry points drain first; terminal tasks are forced to
// "critical" regardless of score.
func Apply(tasks []*models.Task) {
	dependents := make(map[string]int)
	for _, task := range tasks {
		for _, depID := range task.DependsOn {
			dependents[depID]++
		}
	}

	for _, task := range tasks {
		task.Score = Score(task, dependents[task.ID])
		task.Priority = LevelFor(task.Score)

		if len(task.DependsOn) == 0 && task.Priority == models.LevelNormal {
			task.Priority = models.LevelHigh
		}
		if task.Terminal {
			task.Priority = models.LevelCritical
		}
	}
}
