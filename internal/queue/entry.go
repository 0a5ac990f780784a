package queue

import (
	"encoding/json"

	"github.com/ivana-meshed/mmm-app-sub001/internal/batch"
)

// Status is a job entry's position in its lifecycle.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusLaunching Status = "LAUNCHING"
	StatusRunning   Status = "RUNNING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
	StatusError     Status = "ERROR"
)

// Terminal reports whether no further transitions may occur.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCancelled, StatusError:
		return true
	}
	return false
}

// Active reports whether the entry currently owns the backend resource.
func (s Status) Active() bool {
	return s == StatusLaunching || s == StatusRunning
}

// CanAdvanceTo reports whether the transition s → next is legal. Transitions
// are monotonic: nothing leaves a terminal status and nothing moves backwards.
func (s Status) CanAdvanceTo(next Status) bool {
	if s.Terminal() {
		return false
	}
	switch s {
	case StatusPending:
		return next == StatusLaunching
	case StatusLaunching:
		return next == StatusRunning || next.Terminal()
	case StatusRunning:
		return next.Terminal()
	}
	return false
}

// statusFromExec maps a backend execution state to an entry status. The
// backend's COMPLETED is an alias for SUCCEEDED.
func statusFromExec(state batch.State) Status {
	switch state {
	case batch.StateSucceeded, batch.StateCompleted:
		return StatusSucceeded
	case batch.StateFailed:
		return StatusFailed
	case batch.StateCancelled:
		return StatusCancelled
	default:
		return StatusError
	}
}

// JobEntry is one queued unit of work. Params is the enqueuer's opaque
// configuration blob; the engine passes it through to the launcher unmodified
// and never interprets its contents.
type JobEntry struct {
	ID            int64           `json:"id"`
	Params        json.RawMessage `json:"params"`
	Status        Status          `json:"status"`
	Timestamp     string          `json:"timestamp"`
	ExecutionName string          `json:"execution_name"`
	GCSPrefix     string          `json:"gcs_prefix"`
	Message       string          `json:"message"`
	SubmittedAt   string          `json:"submitted_at"`
	StartedAt     string          `json:"started_at"`
	FinishedAt    string          `json:"finished_at"`
}
