package task

import "time"

// Event kinds recorded over a tracked task's lifetime.
const (
	KindSpawned   = "spawned"
	KindCompleted = "completed"
	KindCancelled = "cancelled"
)

// Event describes a lifecycle transition of a tracked task.
type Event struct {
	TaskID     uint64    `json:"task_id"`
	Name       string    `json:"name"`
	Kind       string    `json:"kind"`
	Err        string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
	DurationMS int64     `json:"duration_ms,omitempty"` // set on terminal kinds
}

// Observer receives lifecycle events. Implementations must be safe for
// concurrent use; events for different tasks are delivered from different
// goroutines.
type Observer interface {
	TaskEvent(ev Event)
}
