package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestEnqueueAssignsMonotonicIDs(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	first, err := e.Enqueue(ctx, testQueue, json.RawMessage(`{"country":"DE"}`))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	second, err := e.Enqueue(ctx, testQueue, json.RawMessage(`{"country":"FR"}`))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if first.ID != 1 || second.ID != 2 {
		t.Fatalf("want ids 1,2 got %d,%d", first.ID, second.ID)
	}
	if first.Status != StatusPending {
		t.Fatalf("new entries start PENDING, got %s", first.Status)
	}

	doc := loadDoc(t, e)
	if len(doc.Entries) != 2 {
		t.Fatalf("unexpected entries: %+v", doc.Entries)
	}
}

func TestEnqueueDoesNotReuseIDsAfterRemoval(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	a, _ := e.Enqueue(ctx, testQueue, json.RawMessage(`{}`))
	b, _ := e.Enqueue(ctx, testQueue, json.RawMessage(`{}`))
	if err := e.Remove(ctx, testQueue, b.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	c, err := e.Enqueue(ctx, testQueue, json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if c.ID != b.ID+1 {
		t.Fatalf("id %d reused after removal of %d (a=%d)", c.ID, b.ID, a.ID)
	}
}

func TestEnqueueRejectsInvalidInput(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.Enqueue(ctx, "Bad Name", json.RawMessage(`{}`)); err != ErrInvalidQueueName {
		t.Fatalf("want ErrInvalidQueueName, got %v", err)
	}
	if _, err := e.Enqueue(ctx, testQueue, json.RawMessage(`{not json`)); err == nil {
		t.Fatalf("invalid params accepted")
	}
	if _, err := e.Enqueue(ctx, testQueue, nil); err == nil {
		t.Fatalf("empty params accepted")
	}
}

func TestSetRunningPausesAndResumes(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.Enqueue(ctx, testQueue, json.RawMessage(`{}`)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := e.SetRunning(ctx, testQueue, false); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if loadDoc(t, e).QueueRunning {
		t.Fatalf("queue should be paused")
	}

	res := e.Tick(ctx, testQueue, &stubLauncher{}, nil, 0)
	if res.Message != "queue is paused" {
		t.Fatalf("paused queue ticked: %+v", res)
	}

	if err := e.SetRunning(ctx, testQueue, true); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if !loadDoc(t, e).QueueRunning {
		t.Fatalf("queue should be running")
	}
}

func TestSetRunningNoopSkipsWrite(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()
	if _, err := e.Enqueue(ctx, testQueue, json.RawMessage(`{}`)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	genBefore := s.Generation("mmm/queues/default.json")
	if err := e.SetRunning(ctx, testQueue, true); err != nil {
		t.Fatalf("set running: %v", err)
	}
	if s.Generation("mmm/queues/default.json") != genBefore {
		t.Fatalf("redundant set must not write")
	}
}

func TestRemoveRefusesActiveEntry(t *testing.T) {
	e, _ := newTestEngine(t)
	seedDoc(t, e, &Document{Version: 1, QueueRunning: true, Entries: []*JobEntry{
		{ID: 1, Params: json.RawMessage(`{}`), Status: StatusRunning, ExecutionName: "exec-1"},
	}})

	err := e.Remove(context.Background(), testQueue, 1)
	if !errors.Is(err, ErrEntryActive) {
		t.Fatalf("want ErrEntryActive, got %v", err)
	}
	if loadDoc(t, e).Entry(1) == nil {
		t.Fatalf("entry should survive refused removal")
	}
}

func TestRemoveUnknownEntry(t *testing.T) {
	e, _ := newTestEngine(t)
	seedDoc(t, e, &Document{Version: 1, QueueRunning: true, Entries: []*JobEntry{pendingEntry(1)}})
	if err := e.Remove(context.Background(), testQueue, 42); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("want ErrEntryNotFound, got %v", err)
	}
}

func TestEnqueueStampsSubmittedAt(t *testing.T) {
	e, _ := newTestEngine(t)
	ent, err := e.Enqueue(context.Background(), testQueue, json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if ent.SubmittedAt == "" {
		t.Fatalf("submitted_at not stamped: %+v", ent)
	}
}

func TestSnapshotOfUnknownQueueIsDefaultDocument(t *testing.T) {
	e, _ := newTestEngine(t)
	doc, err := e.Snapshot(context.Background(), "fresh")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !doc.QueueRunning || len(doc.Entries) != 0 {
		t.Fatalf("unexpected default document: %+v", doc)
	}
}
