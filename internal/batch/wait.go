package batch

import (
	"context"
	"time"
)

// WaitVisible polls until the execution is observable on the backend (any
// state other than PENDING) or maxWait elapses. Backends assign execution
// records asynchronously after a launch call returns, so callers that need
// the execution to be queryable use this instead of a fixed sleep.
//
// It returns the last observed status. A poll error ends the wait immediately.
func WaitVisible(ctx context.Context, poller StatusPoller, executionName string, maxWait, interval time.Duration) (ExecStatus, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	deadline := time.Now().Add(maxWait)

	var last ExecStatus
	for {
		st, err := poller.Status(ctx, executionName)
		if err != nil {
			return last, err
		}
		last = st
		if st.State != StatePending {
			return st, nil
		}
		if time.Now().After(deadline) {
			return last, nil
		}
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-time.After(interval):
		}
	}
}
