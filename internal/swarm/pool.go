package swarm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/swarmq/swarmq/internal/exec"
	"github.com/swarmq/swarmq/internal/graph"
	"github.com/swarmq/swarmq/pkg/models"
)

var (
	// ErrTaskNotFound indicates a reference to an unknown task id.
	ErrTaskNotFound = errors.New("task not found")
	// ErrWorkerNotFound indicates a reference to an unknown worker id.
	ErrWorkerNotFound = errors.New("worker not found")
	// ErrNotCancellable indicates the task already left the pending state.
	// Cancellation of running work is unsupported.
	ErrNotCancellable = errors.New("task is not cancellable")
	// ErrWorkerBusy indicates an operation that requires an idle worker
	// was attempted on a working one.
	ErrWorkerBusy = errors.New("worker is busy")
	// ErrPoolStopped indicates the pool no longer accepts work.
	ErrPoolStopped = errors.New("pool is stopped")
	// ErrRunExists indicates a run id was dispatched twice.
	ErrRunExists = errors.New("run already dispatched")
)

// DefaultPalette is the capability rotation used when scaling up without
// an explicit palette.
var DefaultPalette = [][]string{
	{"general", "data_processing"},
	{"general", "image_processing"},
	{"general", "text_processing"},
	{"general", "api_calls"},
	{"general", "validation"},
	{"specialized", "ml_inference"},
	{"specialized", "data_transformation"},
}

// Config controls pool construction.
type Config struct {
	// InitialWorkers is the number of workers created at startup.
	InitialWorkers int
	// MinWorkers is the floor enforced by ScaleTo and recommended by the
	// optimizer. Defaults to 1.
	MinWorkers int
	// Palette is the capability rotation for created workers. Defaults
	// to DefaultPalette.
	Palette [][]string
	// Backend executes tasks. Defaults to the simulator.
	Backend exec.Backend
	// EventBuffer is the subscriber channel size. Defaults to 256.
	EventBuffer int
}

// DispatchResult summarizes one Dispatch call.
type DispatchResult struct {
	// DispatchID identifies this dispatch call.
	DispatchID string `json:"dispatch_id"`
	// Total is the number of tasks accepted.
	Total int `json:"total"`
	// Immediate is the number assigned to a worker on arrival.
	Immediate int `json:"immediate"`
	// Queued is the number placed on a priority queue.
	Queued int `json:"queued"`
	// Held is the number held back on unmet dependencies.
	Held int `json:"held"`
	// Timestamp is when the dispatch completed.
	Timestamp time.Time `json:"timestamp"`
}

// Pool is the scheduling core: a capability-tagged worker registry plus
// per-level FIFO queues. A single mutex serializes both dispatch paths
// (assign-on-arrival and queue drain) and all completion bookkeeping;
// task execution itself always happens outside the lock.
type Pool struct {
	mu      sync.Mutex
	cfg     Config
	backend exec.Backend
	emitter *EventEmitter

	workers map[string]*models.Worker
	created int

	queues *queueSet
	tasks  map[string]*models.Task
	graphs map[string]*graph.RunGraph
	held   map[string]bool

	totalCompleted int
	totalFailed    int
	startedAt      time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopped bool
}

// NewPool creates a pool and spawns the initial workers by cycling the
// capability palette.
func NewPool(cfg Config) *Pool {
	if cfg.MinWorkers <= 0 {
		cfg.MinWorkers = 1
	}
	if len(cfg.Palette) == 0 {
		cfg.Palette = DefaultPalette
	}
	if cfg.Backend == nil {
		cfg.Backend = exec.NewSimulator()
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 256
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		cfg:       cfg,
		backend:   cfg.Backend,
		emitter:   NewEventEmitter(cfg.EventBuffer),
		workers:   make(map[string]*models.Worker),
		queues:    newQueueSet(),
		tasks:     make(map[string]*models.Task),
		graphs:    make(map[string]*graph.RunGraph),
		held:      make(map[string]bool),
		startedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}

	p.mu.Lock()
	var events []Event
	for i := 0; i < cfg.InitialWorkers; i++ {
		p.addWorkerLocked(nil, &events)
	}
	p.mu.Unlock()
	p.emitAll(events)

	return p
}

// Events returns the subscriber channel for pool lifecycle events.
func (p *Pool) Events() <-chan Event {
	return p.emitter.Events()
}

// Stop rejects further work, cancels in-flight executions, waits for
// them to finish their bookkeeping, and closes the event channel.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
	p.emitter.Close()
}

// Dispatch accepts one run's resolved, scored tasks. Each task is
// assigned immediately when an idle capable worker exists, queued at its
// priority level otherwise, or held back until its dependencies
// complete. A final drain pass runs before returning.
func (p *Pool) Dispatch(tasks []*models.Task) (DispatchResult, error) {
	result := DispatchResult{
		DispatchID: uuid.New().String(),
	}
	if len(tasks) == 0 {
		result.Timestamp = time.Now()
		return result, nil
	}

	byRun := make(map[string][]*models.Task)
	for _, task := range tasks {
		byRun[task.RunID] = append(byRun[task.RunID], task)
	}

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return result, ErrPoolStopped
	}

	// Validate every run before mutating any state.
	for runID := range byRun {
		if _, exists := p.graphs[runID]; exists {
			p.mu.Unlock()
			return result, fmt.Errorf("%w: %s", ErrRunExists, runID)
		}
	}
	built := make(map[string]*graph.RunGraph, len(byRun))
	for runID, runTasks := range byRun {
		g, err := graph.Build(runTasks)
		if err != nil {
			p.mu.Unlock()
			return result, fmt.Errorf("run %s: %w", runID, err)
		}
		built[runID] = g
	}
	for runID, g := range built {
		p.graphs[runID] = g
	}

	var events []Event
	for _, task := range tasks {
		p.tasks[task.ID] = task
		result.Total++

		if !p.graphs[task.RunID].Ready(task.ID) {
			p.held[task.ID] = true
			result.Held++
			events = append(events, taskEvent(EventTaskHeld, task, ""))
			continue
		}
		if p.assignOnArrivalLocked(task, &events) {
			result.Immediate++
		} else {
			p.queues.Push(task)
			result.Queued++
			events = append(events, taskEvent(EventTaskQueued, task, ""))
		}
	}
	p.drainLocked(&events)
	p.mu.Unlock()

	p.emitAll(events)
	result.Timestamp = time.Now()
	return result, nil
}

// assignOnArrivalLocked scans idle workers in ascending-id order and
// assigns the task to the first capability match. Returns false when no
// idle capable worker exists.
func (p *Pool) assignOnArrivalLocked(task *models.Task, events *[]Event) bool {
	for _, id := range p.sortedWorkerIDsLocked() {
		w := p.workers[id]
		if w.Status == models.WorkerStatusIdle && w.CanHandle(task.Type) {
			p.assignLocked(w, task, events)
			return true
		}
	}
	return false
}

// drainLocked walks the levels in strict priority order. Within a level
// it assigns the head task to the best-performance idle capable worker;
// when the head is capability-blocked the level stops (never skipping
// past the head) but lower levels are still attempted.
func (p *Pool) drainLocked(events *[]Event) {
	if p.stopped {
		return
	}
	for _, level := range models.Levels {
		for {
			task := p.queues.Peek(level)
			if task == nil {
				break
			}
			w := p.bestIdleWorkerLocked(task.Type)
			if w == nil {
				break
			}
			p.queues.Pop(level)
			p.assignLocked(w, task, events)
		}
	}
}

// bestIdleWorkerLocked returns the idle capable worker with the highest
// performance score, lower id winning ties. Nil when none qualifies.
func (p *Pool) bestIdleWorkerLocked(taskType string) *models.Worker {
	var best *models.Worker
	bestScore := -1.0
	for _, id := range p.sortedWorkerIDsLocked() {
		w := p.workers[id]
		if w.Status != models.WorkerStatusIdle || !w.CanHandle(taskType) {
			continue
		}
		if score := w.PerformanceScore(); score > bestScore {
			best = w
			bestScore = score
		}
	}
	return best
}

// assignLocked hands the task to the worker and launches execution in
// its own goroutine, outside the lock.
func (p *Pool) assignLocked(w *models.Worker, task *models.Task, events *[]Event) {
	_ = task.Transition(models.TaskStatusAssigned)
	task.AssignedWorker = w.ID
	w.Status = models.WorkerStatusWorking
	w.CurrentTask = task.ID
	*events = append(*events, taskEvent(EventTaskAssigned, task, w.ID))

	p.wg.Add(1)
	go p.execute(w.ID, task)
}

// execute runs one task against the backend and feeds the outcome back
// into the pool. It never holds the lock across the backend call.
func (p *Pool) execute(workerID string, task *models.Task) {
	defer p.wg.Done()

	p.mu.Lock()
	_ = task.Transition(models.TaskStatusRunning)
	p.mu.Unlock()

	start := time.Now()
	result, err := p.backend.Execute(p.ctx, task)
	elapsed := time.Since(start)

	p.complete(workerID, task, result, err, elapsed)
}

// complete records the outcome, returns the worker to idle, releases any
// dependents that became ready, and re-drains. Execution failures are
// captured here; they never propagate out of the dispatcher.
func (p *Pool) complete(workerID string, task *models.Task, result map[string]any, execErr error, elapsed time.Duration) {
	p.mu.Lock()

	var events []Event
	if w, ok := p.workers[workerID]; ok {
		w.TotalExecution += elapsed
		w.CurrentTask = ""
		w.Status = models.WorkerStatusIdle
		if execErr != nil {
			w.Failed++
		} else {
			w.Completed++
		}
	}

	if execErr != nil {
		task.Error = execErr.Error()
		_ = task.Transition(models.TaskStatusFailed)
		p.totalFailed++
		ev := taskEvent(EventTaskFailed, task, workerID)
		ev.Err = task.Error
		ev.Duration = elapsed
		events = append(events, ev)
	} else {
		task.Result = result
		_ = task.Transition(models.TaskStatusCompleted)
		p.totalCompleted++
		ev := taskEvent(EventTaskCompleted, task, workerID)
		ev.Duration = elapsed
		events = append(events, ev)

		if g, ok := p.graphs[task.RunID]; ok {
			released := g.MarkComplete(task.ID)
			sort.Strings(released)
			for _, id := range released {
				if !p.held[id] {
					continue
				}
				delete(p.held, id)
				next := p.tasks[id]
				if p.stopped || !p.assignOnArrivalLocked(next, &events) {
					p.queues.Push(next)
					events = append(events, taskEvent(EventTaskQueued, next, ""))
				}
			}
		}
	}

	p.drainLocked(&events)
	p.mu.Unlock()

	p.emitAll(events)
}

// Cancel removes a pending task from its queue or its hold set. Tasks
// already assigned or running cannot be cancelled.
func (p *Pool) Cancel(taskID string) error {
	p.mu.Lock()
	task, ok := p.tasks[taskID]
	if !ok {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	if p.held[taskID] {
		delete(p.held, taskID)
	} else if !p.queues.Remove(taskID) {
		status := task.Status
		p.mu.Unlock()
		return fmt.Errorf("%w: %s is %s", ErrNotCancellable, taskID, status)
	}
	_ = task.Transition(models.TaskStatusCancelled)
	events := []Event{taskEvent(EventTaskCancelled, task, "")}
	p.mu.Unlock()

	p.emitAll(events)
	return nil
}

// Task returns a copy of the task with the given id.
func (p *Pool) Task(taskID string) (models.Task, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	task, ok := p.tasks[taskID]
	if !ok {
		return models.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	return *task, nil
}

// Worker returns a copy of the worker with the given id.
func (p *Pool) Worker(workerID string) (models.Worker, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	w, ok := p.workers[workerID]
	if !ok {
		return models.Worker{}, fmt.Errorf("%w: %s", ErrWorkerNotFound, workerID)
	}
	return *w, nil
}

// Workers returns copies of all workers in ascending-id order.
func (p *Pool) Workers() []models.Worker {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.Worker, 0, len(p.workers))
	for _, id := range p.sortedWorkerIDsLocked() {
		out = append(out, *p.workers[id])
	}
	return out
}

// RegisterWorker adds a worker with an explicit capability set and
// returns its id. A fresh drain pass runs so queued work can use the
// new capacity.
func (p *Pool) RegisterWorker(capabilities []string) string {
	p.mu.Lock()
	var events []Event
	w := p.addWorkerLocked(capabilities, &events)
	p.drainLocked(&events)
	p.mu.Unlock()
	p.emitAll(events)
	return w.ID
}

// DeregisterWorker removes an idle, failed, or maintenance worker.
// Working workers are never interrupted.
func (p *Pool) DeregisterWorker(workerID string) error {
	p.mu.Lock()
	w, ok := p.workers[workerID]
	if !ok {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrWorkerNotFound, workerID)
	}
	if w.Status == models.WorkerStatusWorking {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrWorkerBusy, workerID)
	}
	delete(p.workers, workerID)
	events := []Event{{Type: EventWorkerRemoved, WorkerID: workerID, Timestamp: time.Now()}}
	p.mu.Unlock()
	p.emitAll(events)
	return nil
}

// SetMaintenance toggles a worker between idle and maintenance. Only
// idle workers may enter maintenance; only maintenance workers leave it.
func (p *Pool) SetMaintenance(workerID string, enabled bool) error {
	p.mu.Lock()
	w, ok := p.workers[workerID]
	if !ok {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrWorkerNotFound, workerID)
	}
	if enabled {
		if w.Status != models.WorkerStatusIdle {
			p.mu.Unlock()
			return fmt.Errorf("worker %s is %s, must be idle to enter maintenance", workerID, w.Status)
		}
		w.Status = models.WorkerStatusMaintenance
		p.mu.Unlock()
		return nil
	}
	if w.Status != models.WorkerStatusMaintenance {
		p.mu.Unlock()
		return fmt.Errorf("worker %s is %s, not in maintenance", workerID, w.Status)
	}
	w.Status = models.WorkerStatusIdle
	var events []Event
	p.drainLocked(&events)
	p.mu.Unlock()
	p.emitAll(events)
	return nil
}

// AddWorkers creates n workers by cycling the capability palette and
// returns their ids. Queued work drains onto the new capacity.
func (p *Pool) AddWorkers(n int) []string {
	p.mu.Lock()
	var events []Event
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, p.addWorkerLocked(nil, &events).ID)
	}
	p.drainLocked(&events)
	p.mu.Unlock()
	p.emitAll(events)
	return ids
}

// ScaleTo grows or shrinks the pool toward target. Shrinking removes
// only idle workers, newest first, and stops early when too few are
// idle; it never goes below MinWorkers. Returns the resulting size.
func (p *Pool) ScaleTo(target int) int {
	if target < p.cfg.MinWorkers {
		target = p.cfg.MinWorkers
	}

	p.mu.Lock()
	var events []Event
	if target > len(p.workers) {
		for len(p.workers) < target {
			p.addWorkerLocked(nil, &events)
		}
		p.drainLocked(&events)
	} else if target < len(p.workers) {
		ids := p.sortedWorkerIDsLocked()
		for i := len(ids) - 1; i >= 0 && len(p.workers) > target; i-- {
			w := p.workers[ids[i]]
			if w.Status != models.WorkerStatusIdle {
				continue
			}
			delete(p.workers, w.ID)
			events = append(events, Event{Type: EventWorkerRemoved, WorkerID: w.ID, Timestamp: time.Now()})
		}
	}
	size := len(p.workers)
	p.mu.Unlock()
	p.emitAll(events)
	return size
}

// addWorkerLocked creates one worker. With nil capabilities the palette
// rotation decides the capability set.
func (p *Pool) addWorkerLocked(capabilities []string, events *[]Event) *models.Worker {
	if capabilities == nil {
		set := p.cfg.Palette[p.created%len(p.cfg.Palette)]
		capabilities = append([]string(nil), set...)
	}
	w := &models.Worker{
		ID:           fmt.Sprintf("worker-%06d", p.created),
		Capabilities: capabilities,
		Status:       models.WorkerStatusIdle,
		CreatedAt:    time.Now(),
	}
	p.created++
	p.workers[w.ID] = w
	*events = append(*events, Event{Type: EventWorkerAdded, WorkerID: w.ID, Timestamp: time.Now()})
	return w
}

func (p *Pool) sortedWorkerIDsLocked() []string {
	ids := make([]string, 0, len(p.workers))
	for id := range p.workers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (p *Pool) emitAll(events []Event) {
	for _, ev := range events {
		p.emitter.Emit(ev)
	}
}

func taskEvent(typ EventType, task *models.Task, workerID string) Event {
	return Event{
		Type:      typ,
		TaskID:    task.ID,
		RunID:     task.RunID,
		TaskType:  task.Type,
		WorkerID:  workerID,
		Priority:  task.Priority,
		Timestamp: time.Now(),
	}
}
