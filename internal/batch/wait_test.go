package batch

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWaitVisibleReturnsOnceVisible(t *testing.T) {
	calls := 0
	poller := PollerFunc(func(ctx context.Context, name string) (ExecStatus, error) {
		calls++
		if calls < 3 {
			return ExecStatus{State: StatePending}, nil
		}
		return ExecStatus{State: StateRunning, Message: "started"}, nil
	})

	st, err := WaitVisible(context.Background(), poller, "exec-1", time.Second, time.Millisecond)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if st.State != StateRunning || calls != 3 {
		t.Fatalf("state=%s calls=%d", st.State, calls)
	}
}

func TestWaitVisibleGivesUpAfterMaxWait(t *testing.T) {
	poller := PollerFunc(func(ctx context.Context, name string) (ExecStatus, error) {
		return ExecStatus{State: StatePending}, nil
	})
	st, err := WaitVisible(context.Background(), poller, "exec-1", 5*time.Millisecond, time.Millisecond)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if st.State != StatePending {
		t.Fatalf("want last observed PENDING, got %s", st.State)
	}
}

func TestWaitVisibleStopsOnPollError(t *testing.T) {
	boom := errors.New("backend unreachable")
	poller := PollerFunc(func(ctx context.Context, name string) (ExecStatus, error) {
		return ExecStatus{}, boom
	})
	if _, err := WaitVisible(context.Background(), poller, "exec-1", time.Second, time.Millisecond); !errors.Is(err, boom) {
		t.Fatalf("want poll error, got %v", err)
	}
}

func TestTerminalStates(t *testing.T) {
	for _, s := range []State{StateSucceeded, StateFailed, StateCancelled, StateCompleted, StateError} {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []State{StatePending, StateRunning} {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}
