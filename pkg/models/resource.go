package models

import "time"

// Resources describes a bundle of compute units, used both for pool
// capacity and per-task requirements.
type Resources struct {
	// CPU is the number of CPU units.
	CPU int `json:"cpu"`
	// MemoryMB is the amount of memory in megabytes.
	MemoryMB int `json:"memory_mb"`
	// GPU is the number of GPU units.
	GPU int `json:"gpu"`
}

// Fits reports whether r fits within the available pool in every
// dimension simultaneously.
func (r Resources) Fits(available Resources) bool {
	return r.CPU <= available.CPU &&
		r.MemoryMB <= available.MemoryMB &&
		r.GPU <= available.GPU
}

// Sub returns the pool remaining after r is taken from available.
func (r Resources) Sub(available Resources) Resources {
	return Resources{
		CPU:      available.CPU - r.CPU,
		MemoryMB: available.MemoryMB - r.MemoryMB,
		GPU:      available.GPU - r.GPU,
	}
}

// Zero reports whether the bundle declares no resource units at all.
func (r Resources) Zero() bool {
	return r.CPU == 0 && r.MemoryMB == 0 && r.GPU == 0
}

// Allocation records resources granted to a single task.
type Allocation struct {
	// TaskID is the task the resources were granted to.
	TaskID string `json:"task_id"`
	// Granted is the resource bundle consumed by the task.
	Granted Resources `json:"granted"`
	// Timestamp is when the allocation was made.
	Timestamp time.Time `json:"timestamp"`
}
