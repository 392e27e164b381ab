package model

import (
	"sync"
	"time"
)

// Job status constants
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ProgressEvent is one snapshot pushed to a subscriber. Results stays empty
// until Done is true, at which point it carries the full ordered result list.
type ProgressEvent struct {
	Completed   int      `json:"completed"`
	Total       int      `json:"total"`
	CurrentItem string   `json:"current_item"`
	Done        bool     `json:"done"`
	Error       string   `json:"error,omitempty"`
	Results     []Result `json:"results"`
}

// eventBuffer bounds how many progress snapshots a job retains for a slow
// subscriber before old ones are dropped. The terminal event is never dropped.
const eventBuffer = 16

// Job tracks one submitted batch of clause×source comparisons. All mutable
// state is guarded by mu; the event channel is the one-way progress feed
// drained by the SSE transport.
type Job struct {
	ID        string
	CreatedAt time.Time

	mu          sync.Mutex
	completed   int
	total       int
	currentItem string
	done        bool
	errMsg      string
	results     []Result
	events      chan ProgressEvent
}

// NewJob creates a job in its initial state
func NewJob(id string) *Job {
	return &Job{
		ID:          id,
		CreatedAt:   time.Now(),
		currentItem: "Starting…",
		events:      make(chan ProgressEvent, eventBuffer),
	}
}

// Events returns the progress feed for this job. The channel is closed
// after the terminal event has been queued.
func (j *Job) Events() <-chan ProgressEvent {
	return j.events
}

// Snapshot returns the current progress state without consuming events
func (j *Job) Snapshot() ProgressEvent {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snapshotLocked()
}

func (j *Job) snapshotLocked() ProgressEvent {
	ev := ProgressEvent{
		Completed:   j.completed,
		Total:       j.total,
		CurrentItem: j.currentItem,
		Done:        j.done,
		Error:       j.errMsg,
		Results:     []Result{},
	}
	if j.done {
		ev.Results = j.results
	}
	return ev
}

// SetTotal fixes the task-grid size once sources are resolved
func (j *Job) SetTotal(total int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.total = total
	j.publishLocked()
}

// SetCurrentItem updates the human-readable activity line
func (j *Job) SetCurrentItem(item string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.currentItem = item
	j.publishLocked()
}

// TaskDone increments the completed counter and records the activity line
// for the task that just finished. Completed never exceeds total.
func (j *Job) TaskDone(item string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.completed < j.total {
		j.completed++
	}
	j.currentItem = item
	j.publishLocked()
}

// Completed returns the number of terminal tasks so far
func (j *Job) Completed() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.completed
}

// Done reports whether the job reached its terminal state
func (j *Job) Done() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.done
}

// Finish marks the job terminal, attaches the ordered result list and queues
// the terminal event, then closes the event channel. Finish is a no-op on a
// job that is already done.
func (j *Job) Finish(results []Result, errMsg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.done {
		return
	}
	j.done = true
	j.errMsg = errMsg
	if results == nil {
		results = []Result{}
	}
	j.results = results
	ev := j.snapshotLocked()

	// The terminal event must reach the subscriber even if the buffer is
	// full of stale snapshots: make room by discarding the oldest ones.
	for {
		select {
		case j.events <- ev:
			close(j.events)
			return
		default:
			select {
			case <-j.events:
			default:
			}
		}
	}
}

// publishLocked queues a progress snapshot without blocking task execution.
// When the buffer is full the oldest snapshot is dropped; a slow or
// disconnected subscriber must not stall the orchestrator. Callers hold mu,
// which also serializes sends against the close in Finish.
func (j *Job) publishLocked() {
	if j.done {
		return
	}
	ev := j.snapshotLocked()
	select {
	case j.events <- ev:
	default:
		select {
		case <-j.events:
		default:
		}
		select {
		case j.events <- ev:
		default:
		}
	}
}
