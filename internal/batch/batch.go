package batch

import (
	"context"
	"encoding/json"
)

// State is the execution status vocabulary reported by a backend poller.
type State string

const (
	StatePending   State = "PENDING"
	StateRunning   State = "RUNNING"
	StateSucceeded State = "SUCCEEDED"
	StateFailed    State = "FAILED"
	StateCancelled State = "CANCELLED"
	StateCompleted State = "COMPLETED"
	StateError     State = "ERROR"
)

// Terminal reports whether the state is a final backend outcome.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateCancelled, StateCompleted, StateError:
		return true
	}
	return false
}

// LaunchResult carries the identifiers assigned by the backend when a job
// execution is created.
type LaunchResult struct {
	ExecutionName string
	Timestamp     string
	GCSPrefix     string
}

// ExecStatus is a point-in-time view of an execution.
type ExecStatus struct {
	State   State
	Message string
}

// Launcher starts a job on the batch backend. The params blob is the
// enqueuer's opaque configuration and must be passed through unmodified.
// Launch performs the externally observable side effect; the engine calls it
// at most once per successfully leased entry and never speculatively.
type Launcher interface {
	Launch(ctx context.Context, params json.RawMessage) (LaunchResult, error)
}

// StatusPoller queries the status of a previously launched execution. It must
// not block indefinitely; any timeout policy belongs to the implementation.
type StatusPoller interface {
	Status(ctx context.Context, executionName string) (ExecStatus, error)
}

// LauncherFunc adapts a function to the Launcher interface.
type LauncherFunc func(ctx context.Context, params json.RawMessage) (LaunchResult, error)

// Launch implements Launcher.
func (f LauncherFunc) Launch(ctx context.Context, params json.RawMessage) (LaunchResult, error) {
	return f(ctx, params)
}

// PollerFunc adapts a function to the StatusPoller interface.
type PollerFunc func(ctx context.Context, executionName string) (ExecStatus, error)

// Status implements StatusPoller.
func (f PollerFunc) Status(ctx context.Context, executionName string) (ExecStatus, error) {
	return f(ctx, executionName)
}
