package swarm

import (
	"sort"
	"time"

	"github.com/swarmq/swarmq/pkg/models"
)

// defaultRequires is assumed for tasks that declare no resource needs.
var defaultRequires = models.Resources{CPU: 1, MemoryMB: 1024}

// AllocationResult holds one greedy allocation pass over a bounded
// resource pool.
type AllocationResult struct {
	// Allocations lists the tasks that received resources, in grant order.
	Allocations []models.Allocation `json:"allocations"`
	// StillPending lists the tasks that did not fit, in input order.
	StillPending []*models.Task `json:"-"`
	// Remaining is what is left of the pool after all grants.
	Remaining models.Resources `json:"remaining"`
}

// Allocate walks the pending tasks in descending score order and grants
// resources all-or-nothing per task: a task is allocated only when its
// requirement fits the remaining pool in every dimension at once.
// Tasks that do not fit stay pending; one exhausted dimension never
// blocks later tasks that avoid it. Resource exhaustion is not an
// error.
func Allocate(pool models.Resources, pending []*models.Task) AllocationResult {
	ordered := make([]*models.Task, len(pending))
	copy(ordered, pending)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Score > ordered[j].Score
	})

	result := AllocationResult{Remaining: pool}
	for _, task := range ordered {
		need := task.Requires
		if need.Zero() {
			need = defaultRequires
		}
		if !need.Fits(result.Remaining) {
			result.StillPending = append(result.StillPending, task)
			continue
		}
		result.Remaining = need.Sub(result.Remaining)
		result.Allocations = append(result.Allocations, models.Allocation{
			TaskID:    task.ID,
			Granted:   need,
			Timestamp: time.Now(),
		})
	}
	return result
}
