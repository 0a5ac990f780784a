package queue

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/ivana-meshed/mmm-app-sub001/internal/batch"
)

func TestStatusTransitions(t *testing.T) {
	allowed := map[Status][]Status{
		StatusPending:   {StatusLaunching},
		StatusLaunching: {StatusRunning, StatusSucceeded, StatusFailed, StatusCancelled, StatusError},
		StatusRunning:   {StatusSucceeded, StatusFailed, StatusCancelled, StatusError},
	}
	all := []Status{
		StatusPending, StatusLaunching, StatusRunning,
		StatusSucceeded, StatusFailed, StatusCancelled, StatusError,
	}
	for _, from := range all {
		ok := make(map[Status]bool)
		for _, to := range allowed[from] {
			ok[to] = true
		}
		for _, to := range all {
			if got := from.CanAdvanceTo(to); got != ok[to] {
				t.Errorf("%s -> %s: got %v, want %v", from, to, got, ok[to])
			}
		}
	}
}

func TestTerminalAndActive(t *testing.T) {
	if StatusPending.Terminal() || StatusLaunching.Terminal() || StatusRunning.Terminal() {
		t.Fatal("non-terminal status reported terminal")
	}
	for _, s := range []Status{StatusSucceeded, StatusFailed, StatusCancelled, StatusError} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
		if s.Active() {
			t.Errorf("%s should not be active", s)
		}
	}
	if !StatusLaunching.Active() || !StatusRunning.Active() {
		t.Fatal("LAUNCHING and RUNNING are the active statuses")
	}
	if StatusPending.Active() {
		t.Fatal("PENDING is not active")
	}
}

func TestEntryWireFormatKeepsEmptyFields(t *testing.T) {
	// Readers of the raw document rely on every column being present, so a
	// fresh PENDING entry still carries its empty lifecycle fields.
	data, err := json.Marshal(&JobEntry{ID: 1, Status: StatusPending})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{
		"timestamp", "execution_name", "gcs_prefix", "message",
		"submitted_at", "started_at", "finished_at",
	} {
		if !strings.Contains(string(data), `"`+key+`"`) {
			t.Errorf("wire format dropped %q: %s", key, data)
		}
	}
}

func TestStatusFromExec(t *testing.T) {
	cases := map[batch.State]Status{
		batch.StateSucceeded: StatusSucceeded,
		batch.StateCompleted: StatusSucceeded,
		batch.StateFailed:    StatusFailed,
		batch.StateCancelled: StatusCancelled,
		batch.StateError:     StatusError,
	}
	for state, want := range cases {
		if got := statusFromExec(state); got != want {
			t.Errorf("statusFromExec(%s) = %s, want %s", state, got, want)
		}
	}
}
