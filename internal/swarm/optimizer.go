package swarm

import (
	"github.com/swarmq/swarmq/pkg/models"
)

const (
	// lowPerfThreshold marks a worker as a replacement candidate.
	lowPerfThreshold = 0.5
	// minPerfSample is the completed-task count a worker needs before its
	// performance score is trusted.
	minPerfSample = 10
	// replaceBatchLimit caps replacement candidates per pass.
	replaceBatchLimit = 10
	// scaleDownQueueCeiling is the queue depth below which a mostly-idle
	// pool may shrink.
	scaleDownQueueCeiling = 10
	// scaleDownIdleRatio is the idle fraction above which a pool is
	// considered oversized.
	scaleDownIdleRatio = 0.7
)

// OptimizerWorker is one worker's slice of an optimizer snapshot.
type OptimizerWorker struct {
	// ID is the worker id.
	ID string `json:"id"`
	// Status is the worker's status at snapshot time.
	Status models.WorkerStatus `json:"status"`
	// Completed is the worker's successful-task counter.
	Completed int `json:"completed"`
	// Performance is the worker's performance score.
	Performance float64 `json:"performance"`
}

// OptimizerSnapshot is the point-in-time pool state the optimizer
// advises on. It is decoupled from the live pool so recommendations can
// be computed without the dispatch lock.
type OptimizerSnapshot struct {
	// Workers holds per-worker state in ascending-id order.
	Workers []OptimizerWorker `json:"workers"`
	// QueueDepth is the total number of queued tasks.
	QueueDepth int `json:"queue_depth"`
	// MinWorkers is the configured pool floor.
	MinWorkers int `json:"min_workers"`
}

// RecommendationAction identifies what an optimizer recommendation asks for.
type RecommendationAction string

const (
	// ActionScaleUp recommends growing the pool.
	ActionScaleUp RecommendationAction = "scale_up"
	// ActionScaleDown recommends shrinking the pool.
	ActionScaleDown RecommendationAction = "scale_down"
	// ActionReplaceWorkers recommends replacing underperforming workers.
	ActionReplaceWorkers RecommendationAction = "replace_workers"
)

// Recommendation is one piece of scaling advice. The optimizer only
// advises; applying a recommendation is the caller's decision.
type Recommendation struct {
	// Action identifies the recommended change.
	Action RecommendationAction `json:"action"`
	// CurrentWorkers is the pool size the advice was computed from.
	CurrentWorkers int `json:"current_workers"`
	// TargetWorkers is the recommended pool size for scale actions.
	TargetWorkers int `json:"target_workers,omitempty"`
	// WorkerIDs lists replacement candidates for replace actions.
	WorkerIDs []string `json:"worker_ids,omitempty"`
	// Reason explains the recommendation.
	Reason string `json:"reason"`
}

// Optimize derives scaling advice from a snapshot. It is a pure
// function: calling it twice on the same snapshot yields identical
// output. Scale-up fires when the queue exceeds twice the pool size;
// otherwise scale-down fires when over 70% of workers sit idle against
// a near-empty queue, never recommending below the configured floor.
// Independently, up to ten proven underperformers are flagged for
// replacement.
func Optimize(snap OptimizerSnapshot) []Recommendation {
	total := len(snap.Workers)
	idle, working := 0, 0
	for _, w := range snap.Workers {
		switch w.Status {
		case models.WorkerStatusIdle:
			idle++
		case models.WorkerStatusWorking:
			working++
		}
	}

	var recs []Recommendation
	if snap.QueueDepth > total*2 {
		recs = append(recs, Recommendation{
			Action:         ActionScaleUp,
			CurrentWorkers: total,
			TargetWorkers:  total + snap.QueueDepth/10,
			Reason:         "high queue depth",
		})
	} else if float64(idle) > float64(total)*scaleDownIdleRatio && snap.QueueDepth < scaleDownQueueCeiling {
		target := working + 20
		if target < snap.MinWorkers {
			target = snap.MinWorkers
		}
		recs = append(recs, Recommendation{
			Action:         ActionScaleDown,
			CurrentWorkers: total,
			TargetWorkers:  target,
			Reason:         "mostly idle with low queue",
		})
	}

	var lowPerformers []string
	for _, w := range snap.Workers {
		if w.Performance < lowPerfThreshold && w.Completed > minPerfSample {
			lowPerformers = append(lowPerformers, w.ID)
			if len(lowPerformers) == replaceBatchLimit {
				break
			}
		}
	}
	if len(lowPerformers) > 0 {
		recs = append(recs, Recommendation{
			Action:         ActionReplaceWorkers,
			CurrentWorkers: total,
			WorkerIDs:      lowPerformers,
			Reason:         "low performance detected",
		})
	}
	return recs
}
