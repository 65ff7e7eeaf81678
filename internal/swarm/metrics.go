package swarm

import (
	"time"

	"github.com/swarmq/swarmq/pkg/models"
)

// PoolStatus is a point-in-time view of the pool for status surfaces.
type PoolStatus struct {
	// TotalWorkers is the current pool size.
	TotalWorkers int `json:"total_workers"`
	// Idle, Working, Failed and Maintenance count workers by status.
	Idle        int `json:"idle"`
	Working     int `json:"working"`
	Failed      int `json:"failed"`
	Maintenance int `json:"maintenance"`
	// QueueDepths is the number of queued tasks per priority level.
	QueueDepths map[models.PriorityLevel]int `json:"queue_depths"`
	// QueuedTotal is the sum of all queue depths.
	QueuedTotal int `json:"queued_total"`
	// Held is the number of tasks waiting on dependencies.
	Held int `json:"held"`
	// CompletedTasks and FailedTasks are pool-lifetime outcome counters.
	CompletedTasks int `json:"completed_tasks"`
	FailedTasks    int `json:"failed_tasks"`
	// Uptime is the time since pool construction.
	Uptime time.Duration `json:"uptime"`
	// Timestamp is when the snapshot was taken.
	Timestamp time.Time `json:"timestamp"`
}

// WorkerMetrics is one worker's slice of a performance snapshot.
type WorkerMetrics struct {
	// ID is the worker id.
	ID string `json:"id"`
	// Status is the worker's status at snapshot time.
	Status models.WorkerStatus `json:"status"`
	// Completed and Failed are the worker's outcome counters.
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	// Performance is the worker's current performance score.
	Performance float64 `json:"performance"`
}

// PerformanceMetrics is a point-in-time performance view of the pool,
// consumed by the optimizer and the watch dashboard.
type PerformanceMetrics struct {
	// TotalWorkers is the current pool size.
	TotalWorkers int `json:"total_workers"`
	// Working and Idle count workers by status.
	Working int `json:"working"`
	Idle    int `json:"idle"`
	// QueuedTotal is the sum of all queue depths.
	QueuedTotal int `json:"queued_total"`
	// CompletedTasks and FailedTasks are pool-lifetime outcome counters.
	CompletedTasks int `json:"completed_tasks"`
	FailedTasks    int `json:"failed_tasks"`
	// SuccessRate is completed / (completed + failed), 1.0 with no history.
	SuccessRate float64 `json:"success_rate"`
	// AvgPerformance is the mean worker performance score.
	AvgPerformance float64 `json:"avg_performance"`
	// Workers holds per-worker metrics in ascending-id order.
	Workers []WorkerMetrics `json:"workers"`
	// Timestamp is when the snapshot was taken.
	Timestamp time.Time `json:"timestamp"`
}

// Status returns a point-in-time view of the pool.
func (p *Pool) Status() PoolStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	status := PoolStatus{
		TotalWorkers:   len(p.workers),
		QueueDepths:    p.queues.Depths(),
		QueuedTotal:    p.queues.Total(),
		Held:           len(p.held),
		CompletedTasks: p.totalCompleted,
		FailedTasks:    p.totalFailed,
		Uptime:         time.Since(p.startedAt),
		Timestamp:      time.Now(),
	}
	for _, w := range p.workers {
		switch w.Status {
		case models.WorkerStatusIdle:
			status.Idle++
		case models.WorkerStatusWorking:
			status.Working++
		case models.WorkerStatusFailed:
			status.Failed++
		case models.WorkerStatusMaintenance:
			status.Maintenance++
		}
	}
	return status
}

// Metrics returns a point-in-time performance view of the pool.
func (p *Pool) Metrics() PerformanceMetrics {
	p.mu.Lock()
	defer p.mu.Unlock()

	m := PerformanceMetrics{
		TotalWorkers:   len(p.workers),
		QueuedTotal:    p.queues.Total(),
		CompletedTasks: p.totalCompleted,
		FailedTasks:    p.totalFailed,
		SuccessRate:    1.0,
		Timestamp:      time.Now(),
	}

	var perfSum float64
	for _, id := range p.sortedWorkerIDsLocked() {
		w := p.workers[id]
		score := w.PerformanceScore()
		perfSum += score
		switch w.Status {
		case models.WorkerStatusIdle:
			m.Idle++
		case models.WorkerStatusWorking:
			m.Working++
		}
		m.Workers = append(m.Workers, WorkerMetrics{
			ID:          w.ID,
			Status:      w.Status,
			Completed:   w.Completed,
			Failed:      w.Failed,
			Performance: score,
		})
	}
	if len(p.workers) > 0 {
		m.AvgPerformance = perfSum / float64(len(p.workers))
	}
	if total := p.totalCompleted + p.totalFailed; total > 0 {
		m.SuccessRate = float64(p.totalCompleted) / float64(total)
	}
	return m
}

// Snapshot captures the optimizer's input from the live pool.
func (p *Pool) Snapshot() OptimizerSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := OptimizerSnapshot{
		QueueDepth: p.queues.Total(),
		MinWorkers: p.cfg.MinWorkers,
	}
	for _, id := range p.sortedWorkerIDsLocked() {
		w := p.workers[id]
		snap.Workers = append(snap.Workers, OptimizerWorker{
			ID:          w.ID,
			Status:      w.Status,
			Completed:   w.Completed,
			Performance: w.PerformanceScore(),
		})
	}
	return snap
}
